package scheduler

// tierQueue is a bounded FIFO. A buffered channel gives atomic claim: each
// receive hands the item to exactly one worker.
type tierQueue struct {
	items chan *WorkItem
}

func newTierQueue(capacity int) *tierQueue {
	return &tierQueue{items: make(chan *WorkItem, capacity)}
}

// offer enqueues without blocking and reports whether there was room.
func (q *tierQueue) offer(item *WorkItem) bool {
	select {
	case q.items <- item:
		return true
	default:
		return false
	}
}

func (q *tierQueue) depth() int    { return len(q.items) }
func (q *tierQueue) capacity() int { return cap(q.items) }

// signal is a set-once wake flag. Set is idempotent; the first receive from
// C clears it.
type signal struct {
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{}, 1)}
}

// set raises the flag and reports whether it was previously clear.
func (s *signal) set() bool {
	select {
	case s.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// clear lowers the flag and reports whether it was set.
func (s *signal) clear() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s *signal) isSet() bool { return len(s.ch) == 1 }

func (s *signal) C() <-chan struct{} { return s.ch }
