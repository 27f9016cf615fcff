package config

import (
	"time"
)

// Config is a read-only view over a decoded YAML/JSON mapping.
// Accessors return the supplied default when a key is missing or holds a
// value of the wrong shape, so callers never type-assert themselves.
type Config struct {
	data map[string]any
}

// New wraps data. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string at key, or def.
func (c Config) String(key, def string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key, or def.
func (c Config) Bool(key string, def bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integer at key, or def. Floats are accepted only when
// they carry no fractional part (JSON decodes every number as float64).
func (c Config) Int(key string, def int) int {
	switch v := c.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return def
}

// Float returns the number at key as float64, or def.
func (c Config) Float(key string, def float64) float64 {
	if f, ok := toFloat(c.data[key]); ok {
		return f
	}
	return def
}

// Duration returns the duration at key, or def.
//
// Strings go through time.ParseDuration ("6ms", "233m"); bare numbers are
// seconds.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	switch v := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

// Floats returns the numeric list at key, or def if any element is not a number.
func (c Config) Floats(key string, def []float64) []float64 {
	switch v := c.data[key].(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return def
			}
			out = append(out, f)
		}
		return out
	}
	return def
}

// Sub returns the nested mapping at key. Missing or non-mapping values
// yield an empty Config.
func (c Config) Sub(key string) Config {
	if m, ok := c.data[key].(map[string]any); ok {
		return New(m)
	}
	return New(nil)
}

// List returns the mappings held in the sequence at key. Elements that are
// not mappings are skipped.
func (c Config) List(key string) []Config {
	switch v := c.data[key].(type) {
	case []map[string]any:
		out := make([]Config, 0, len(v))
		for _, m := range v {
			out = append(out, New(m))
		}
		return out
	case []any:
		out := make([]Config, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, New(m))
			}
		}
		return out
	}
	return nil
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Raw returns the underlying map. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
