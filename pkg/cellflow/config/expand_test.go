package config_test

import (
	"testing"

	"github.com/randalmurphal/cellflow/pkg/cellflow/config"
	"github.com/stretchr/testify/assert"
)

func lookupFrom(vars map[string]string) config.Lookup {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestExpandString(t *testing.T) {
	lookup := lookupFrom(map[string]string{"HOST": "localhost", "PORT": "8080", "EMPTY": ""})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no placeholders", "plain", "plain"},
		{"single", "${HOST}", "localhost"},
		{"several", "http://${HOST}:${PORT}/", "http://localhost:8080/"},
		{"missing kept", "${NOPE}/x", "${NOPE}/x"},
		{"empty value", "a${EMPTY}b", "ab"},
		{"bare dollar untouched", "$HOST", "$HOST"},
		{"invalid name untouched", "${1X}", "${1X}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.ExpandString(tt.in, lookup))
		})
	}

	assert.Equal(t, "${HOST}", config.ExpandString("${HOST}", nil))
}

func TestConfigExpand(t *testing.T) {
	cfg := config.New(map[string]any{
		"journal": map[string]any{"path": "${DIR}/j.db", "capacity": 10},
		"producers": []any{
			map[string]any{"name": "${NAME}", "interval": "1s"},
		},
		"${DIR}": "key",
	})

	out := cfg.Expand(lookupFrom(map[string]string{"DIR": "/var/cf", "NAME": "pulse"}))

	assert.Equal(t, "/var/cf/j.db", out.Sub("journal").String("path", ""))
	assert.Equal(t, 10, out.Sub("journal").Int("capacity", 0))
	producers := out.List("producers")
	if assert.Len(t, producers, 1) {
		assert.Equal(t, "pulse", producers[0].String("name", ""))
	}
	assert.Equal(t, "key", out.String("${DIR}", ""))

	// The source is untouched.
	assert.Equal(t, "${DIR}/j.db", cfg.Sub("journal").String("path", ""))
}
