/*
Package cellflow is the concurrency and messaging substrate of a scoring
organism: a tiered worker-pool scheduler plus a set of event buses joined by
a loop-safe bridge.

# Overview

Work items ("cells") are submitted to a scheduler that routes each one to
one of four tiers (reflex, micro, macro, meta). Every tier owns a bounded
queue drained by a fixed pool of workers; a full queue rejects rather than
blocks. Workers hand items to an Orchestrator, the black box that turns a
cell into a verdict.

Events travel on independent buses (CORE, AUTOMATION, AGENT). A bridge
subscribes to each source bus and re-emits selected event types on other
buses. Every envelope carries its genealogy, the buses it has already
crossed, so forwarding terminates even when the rule graph has cycles.

# Kernel

Kernel assembles the pieces from config.Settings:

	settings, err := config.LoadSettings("cellflow.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	k, err := cellflow.NewKernel(settings, orch)
	if err != nil {
	    log.Fatal(err)
	}
	if err := k.Start(ctx); err != nil {
	    log.Fatal(err)
	}
	defer k.Stop(context.Background())

	k.Buses().Core().Subscribe(event.JudgmentCreated, onJudgment)
	k.Scheduler().Submit(cell, scheduler.WithCostHint(0.002))

Wrap the orchestrator with Announce to publish a judgment.created event on
CORE for every processed cell.

# Packages

  - scheduler: tiers, queues, worker pools, interrupts, producers
  - event: envelopes, buses, bus registry, forward rules, bridge
  - journal: persists every delivered envelope (memory ring or SQLite)
  - config: settings loaded from YAML or JSON
  - observability: slog helpers, OpenTelemetry metrics and spans
  - errors: misuse errors, categorisation, retry
  - registry, ring: generic containers used by the above
*/
package cellflow
