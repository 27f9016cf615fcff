// Package registry provides a generic concurrent registry that remembers
// insertion order.
//
// The bus registry in package event is built on it: buses are created lazily
// by name with GetOrCreate and listed back in the order they were first
// requested, which keeps stats output and bridge wiring deterministic.
//
//	buses := registry.New[string, *event.Bus]()
//	core := buses.GetOrCreate("CORE", func() *event.Bus {
//	    return event.NewBus("CORE")
//	})
//
// GetOrCreate calls the factory at most once per key, even under concurrent
// access. Keys and Values return snapshots, so callers may mutate the
// registry while iterating them. The kernel keeps its producer factories in
// one as well, keyed by producer kind.
package registry
