/*
Package config loads cellflow settings from YAML or JSON.

# Settings

Settings is the typed process configuration consumed by the kernel:

	scheduler:
	  queue_capacity: 55
	  cost_thresholds: [0.01, 0.05, 1.0]
	  tiers:
	    reflex: {cadence: 6ms, workers: 5}
	    micro:  {cadence: 64ms, workers: 3}
	    macro:  {cadence: 441ms, workers: 2}
	    meta:   {cadence: 233m, workers: 1}
	bus:
	  history_size: 1000
	journal:
	  path: ring        # "" disables, ":memory:" or a file path selects SQLite
	  capacity: 89
	producers:
	  - name: heartbeat
	    tier: micro
	    interval: 500ms
	    options: {cost_hint: 0.02}

Parse overlays a decoded document on Defaults, so any key may be omitted.
LoadSettings additionally runs Validate.

# Config

Config is the untyped accessor Parse is built on. Producer option maps are
passed to producer factories as a Config:

	hint := opts.Float("cost_hint", 0.05)
	every := opts.Duration("interval", time.Second) // "30s" or 30

Accessors return the default when a key is missing or has the wrong shape.
Config is safe for concurrent reads.
*/
package config
