// Package observability provides the structured logging, metrics, and tracing
// used by the scheduler, buses, and bridge.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichWorkerLogger adds tier and worker index fields to a logger.
//
// Example:
//
//	wlog := EnrichWorkerLogger(logger, "reflex", 2)
//	wlog.Debug("claimed item") // includes tier, worker
func EnrichWorkerLogger(logger *slog.Logger, tier string, worker int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("tier", tier),
		slog.Int("worker", worker),
	)
}

// EnrichBusLogger adds the bus id to a logger.
func EnrichBusLogger(logger *slog.Logger, busID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("bus_id", busID))
}

// LogSchedulerStart logs a scheduler start.
func LogSchedulerStart(logger *slog.Logger, workers, producers, capacity int) {
	if logger == nil {
		return
	}
	logger.Info("scheduler started",
		slog.Int("workers", workers),
		slog.Int("producers", producers),
		slog.Int("queue_capacity", capacity),
	)
}

// LogQueueFull logs a rejected submission.
func LogQueueFull(logger *slog.Logger, tier string, depth, capacity int, itemID string) {
	if logger == nil {
		return
	}
	logger.Warn("tier queue full, dropping item",
		slog.String("tier", tier),
		slog.Int("depth", depth),
		slog.Int("capacity", capacity),
		slog.String("item_id", itemID),
	)
}

// LogCycleError logs an orchestrator failure inside a worker loop (non-fatal).
func LogCycleError(logger *slog.Logger, itemID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("worker cycle failed",
		slog.String("item_id", itemID),
		slog.String("error", err.Error()),
	)
}

// LogHandlerError logs a subscriber failure caught at the dispatch boundary.
func LogHandlerError(logger *slog.Logger, busID, eventType, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("bus handler failed",
		slog.String("bus_id", busID),
		slog.String("event_type", eventType),
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// LogBridgeStart logs bridge wiring.
func LogBridgeStart(logger *slog.Logger, buses, rules, sources int) {
	if logger == nil {
		return
	}
	logger.Info("event bus bridge started",
		slog.Int("buses", buses),
		slog.Int("rules", rules),
		slog.Int("sources", sources),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
