package event

import "errors"

var (
	// ErrBridgeStarted is returned when a bridge is reconfigured while running.
	ErrBridgeStarted = errors.New("bridge already started")

	// ErrUnknownBus is returned when a rule names a bus the bridge does not know.
	ErrUnknownBus = errors.New("unknown bus")

	// ErrSelfLoop is returned for a rule whose source and target are the same bus.
	ErrSelfLoop = errors.New("rule forwards a bus onto itself")

	// ErrInvalidRule is returned for a rule without a source or target.
	ErrInvalidRule = errors.New("invalid forward rule")
)
