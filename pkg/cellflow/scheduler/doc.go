// Package scheduler runs work items through four operating-frequency tiers.
//
// Each tier owns one bounded FIFO queue drained by a fixed pool of workers.
// Submission never blocks: a full queue rejects the item and Submit reports
// false. Workers wait at most their tier's cadence for an item, hand it to
// the Orchestrator, and loop. When a reflex cycle ends in an anomalous
// verdict the micro tier is interrupted so its first worker wakes ahead of
// its cadence.
//
// Producers are background sensors registered before Start. Each one is
// polled at its own interval and whatever it senses is submitted to its
// declared tier.
//
// Basic usage:
//
//	s, err := scheduler.New(orch, scheduler.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	s.RegisterProducer(watcher)
//	s.Start(ctx)
//	defer s.Stop()
//
//	ok, err := s.Submit(cell, scheduler.WithCostHint(0.002))
//
// Tier selection: an explicit WithTier wins. Otherwise the cost hint is
// compared against the policy's ascending thresholds; cheap work lands on
// the reflex tier and expensive work on the meta tier.
package scheduler
