// Package event provides the named publish/subscribe buses and the bridge
// that forwards envelopes between them.
//
// A Bus dispatches every emitted Envelope to the handlers subscribed to its
// type and to the Wildcard key. Each handler runs in its own goroutine; Emit
// returns as soon as they are launched. Handler errors and panics are caught
// at the dispatch boundary, logged and counted.
//
// A Bridge subscribes one wildcard forwarder on every bus that is the source
// of a ForwardRule. Forwarded envelopes carry their genealogy: the ordered
// list of bus ids already traversed. The bridge never delivers an envelope to
// a bus that appears in its genealogy, so the number of hops any envelope
// takes is bounded by the number of buses, even when the rules form cycles.
//
// Buses are obtained from a Registry rather than package globals:
//
//	reg := event.NewRegistry(event.WithLogger(logger))
//	bridge, err := event.NewDefaultBridge(reg)
//	if err != nil {
//	    return err
//	}
//	if err := bridge.Start(); err != nil {
//	    return err
//	}
//	defer bridge.Stop()
//
//	reg.Agent().Subscribe(event.JudgmentCreated, func(ctx context.Context, env *event.Envelope) error {
//	    // runs once the bridge forwards the CORE emission below
//	    return nil
//	})
//	reg.EmitCore(ctx, event.JudgmentCreated, verdict, "judge")
package event
