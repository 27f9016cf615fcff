package config

import (
	"os"
	"regexp"
)

// bracePattern matches ${NAME}; NAME is alphanumeric or underscore.
var bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Lookup resolves one variable name.
type Lookup func(name string) (string, bool)

// ExpandString replaces every ${NAME} in s using lookup. Unresolved
// placeholders are kept as-is.
func ExpandString(s string, lookup Lookup) string {
	if s == "" || lookup == nil {
		return s
	}
	return bracePattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := lookup(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// Expand returns a copy of c with ${NAME} placeholders in every string
// value replaced, descending into nested mappings and lists. Keys are never
// expanded.
func (c Config) Expand(lookup Lookup) Config {
	return New(expandMap(c.data, lookup))
}

// ExpandEnv is Expand against the process environment.
func (c Config) ExpandEnv() Config {
	return c.Expand(os.LookupEnv)
}

func expandMap(m map[string]any, lookup Lookup) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = expandValue(v, lookup)
	}
	return out
}

func expandValue(v any, lookup Lookup) any {
	switch val := v.(type) {
	case string:
		return ExpandString(val, lookup)
	case map[string]any:
		return expandMap(val, lookup)
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = expandMap(item, lookup)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item, lookup)
		}
		return out
	default:
		return v
	}
}
