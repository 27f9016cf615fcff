package errors

import "fmt"

// MisuseError reports an operation called in a state that forbids it.
type MisuseError struct {
	// Op is the operation that was attempted (e.g. "scheduler.submit").
	Op string
	// Err is the sentinel describing the violated precondition.
	Err error
}

// Error implements the error interface.
func (e *MisuseError) Error() string {
	return fmt.Sprintf("misuse of %s: %v", e.Op, e.Err)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *MisuseError) Unwrap() error {
	return e.Err
}

// Misuse wraps a sentinel as a MisuseError.
func Misuse(op string, err error) *MisuseError {
	return &MisuseError{Op: op, Err: err}
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}
