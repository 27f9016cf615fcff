package scheduler

import "errors"

// Sentinel errors surfaced as MisuseError.
var (
	// ErrNotRunning is returned by Submit before Start or after Stop.
	ErrNotRunning = errors.New("scheduler not running")

	// ErrUnknownTier is returned for a tier outside Reflex..Meta.
	ErrUnknownTier = errors.New("unknown tier")

	// ErrNilOrchestrator is returned by New without an orchestrator.
	ErrNilOrchestrator = errors.New("orchestrator is required")
)
