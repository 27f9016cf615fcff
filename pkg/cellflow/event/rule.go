package event

import (
	"fmt"
	"slices"
	"strings"

	cferrors "github.com/randalmurphal/cellflow/pkg/cellflow/errors"
)

// Transform rewrites a forwarded envelope before it reaches the target bus.
// It may change the type or payload via WithType/WithPayload; genealogy and
// the bridged flag are restored by the bridge afterwards. Returning nil drops
// the hop.
type Transform func(env *Envelope) *Envelope

// ForwardRule forwards envelopes from Source to Target. An empty Types list
// matches every event type.
type ForwardRule struct {
	Source    string
	Target    string
	Types     []string
	Transform Transform
}

// Matches reports whether the rule's type filter admits eventType.
func (r ForwardRule) Matches(eventType string) bool {
	return len(r.Types) == 0 || slices.Contains(r.Types, eventType)
}

func (r ForwardRule) validate() error {
	if r.Source == "" || r.Target == "" {
		return fmt.Errorf("%w: source %q target %q", ErrInvalidRule, r.Source, r.Target)
	}
	if r.Source == r.Target {
		return fmt.Errorf("%w: %s", ErrSelfLoop, r.Source)
	}
	return nil
}

// String renders the rule as "SOURCE -> TARGET [types]".
func (r ForwardRule) String() string {
	types := "*"
	if len(r.Types) > 0 {
		types = strings.Join(r.Types, ",")
	}
	s := fmt.Sprintf("%s -> %s [%s]", r.Source, r.Target, types)
	if r.Transform != nil {
		s += " (transform)"
	}
	return s
}

// compiledRule is a rule frozen at bridge start.
type compiledRule struct {
	ForwardRule
	types  map[string]struct{}
	target *Bus
}

func compile(r ForwardRule, target *Bus) compiledRule {
	c := compiledRule{ForwardRule: r, target: target}
	if len(r.Types) > 0 {
		c.types = make(map[string]struct{}, len(r.Types))
		for _, t := range r.Types {
			c.types[t] = struct{}{}
		}
	}
	return c
}

func (c compiledRule) admits(eventType string) bool {
	if c.types == nil {
		return true
	}
	_, ok := c.types[eventType]
	return ok
}

func misuse(op string, err error) error {
	return cferrors.Misuse(op, err)
}
