// Package rule implements irccd's rule engine: an ordered list of filters
// that resolve an accept/drop verdict for a (server, channel, origin,
// plugin, event) tuple before a plugin callback is invoked.
package rule

import "fmt"

// Action is the verdict a matching rule assigns.
type Action string

const (
	Accept Action = "accept"
	Drop   Action = "drop"
)

// Rule is a single filter entry. Each set is matched by exact,
// case-sensitive string comparison; an empty set matches anything.
type Rule struct {
	Servers  []string
	Channels []string
	Origins  []string
	Plugins  []string
	Events   []string
	Action   Action
}

// Tuple is the (server, channel, origin, plugin, event) instance a Rule is
// evaluated against.
type Tuple struct {
	Server  string
	Channel string
	Origin  string
	Plugin  string
	Event   string
}

func setMatches(set []string, value string) bool {
	if len(set) == 0 {
		return true
	}

	for _, v := range set {
		if v == value {
			return true
		}
	}

	return false
}

// Match reports whether r matches t: every one of the five rule sets must
// either be empty or contain the tuple's corresponding value.
func (r Rule) Match(t Tuple) bool {
	return setMatches(r.Servers, t.Server) &&
		setMatches(r.Channels, t.Channel) &&
		setMatches(r.Origins, t.Origin) &&
		setMatches(r.Plugins, t.Plugin) &&
		setMatches(r.Events, t.Event)
}

// Engine holds the ordered rule sequence. The zero value is an empty,
// ready-to-use engine.
type Engine struct {
	rules []Rule
}

// NewEngine returns an empty rule engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Rules returns the current rule sequence. The returned slice must not be
// mutated by the caller.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Len returns the number of rules currently held.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Add appends rule to the end of the sequence.
func (e *Engine) Add(r Rule) {
	e.rules = append(e.rules, r)
}

// Insert places rule at position pos, shifting later rules back one. pos
// must be <= Len().
func (e *Engine) Insert(r Rule, pos int) error {
	if pos < 0 || pos > len(e.rules) {
		return fmt.Errorf("rule: insert position %d out of range 0..%d", pos, len(e.rules))
	}

	e.rules = append(e.rules, Rule{})
	copy(e.rules[pos+1:], e.rules[pos:])
	e.rules[pos] = r

	return nil
}

// Remove deletes the rule at position pos, shifting later rules forward
// one. pos must be < Len().
func (e *Engine) Remove(pos int) error {
	if pos < 0 || pos >= len(e.rules) {
		return fmt.Errorf("rule: remove position %d out of range 0..%d", pos, len(e.rules)-1)
	}

	e.rules = append(e.rules[:pos], e.rules[pos+1:]...)

	return nil
}

// Resolve walks the rule sequence in order starting from an Accept
// verdict; each matching rule overwrites the running verdict. The verdict
// after the last matching rule (or Accept, if none match) is returned.
func (e *Engine) Resolve(t Tuple) Action {
	verdict := Accept

	for _, r := range e.rules {
		if r.Match(t) {
			verdict = r.Action
		}
	}

	return verdict
}
