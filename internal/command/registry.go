// Package command implements irccd's command registry: per-command
// request validation against a declared property schema, followed by
// dispatch to a handler that mutates daemon state.
package command

import (
	"encoding/json"
	"fmt"
)

// Kind is one of the JSON value kinds a property may be declared to
// accept.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

func kindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case float64:
		return KindNumber
	case bool:
		return KindBool
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return -1
	}
}

// Property declares one field the request JSON must (or may) carry.
type Property struct {
	Name     string
	Kinds    []Kind
	Required bool
	Min, Max *float64 // only meaningful when KindNumber is among Kinds
}

func (p Property) allows(k Kind) bool {
	for _, want := range p.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

func (p Property) kindsString() string {
	s := ""
	for i, k := range p.Kinds {
		if i > 0 {
			s += "|"
		}
		s += k.String()
	}
	return s
}

// Option documents one command-line flag exposed by irccdctl for this
// command (short key, long key, argument name, description). It carries
// no runtime behavior here: it exists so Help output matches spec.md
// §4.5's declared shape.
type Option struct {
	Short, Long, Arg, Desc string
}

// Positional documents one positional CLI argument.
type Positional struct {
	Name     string
	Required bool
}

// Handler executes a validated request and returns the fields to merge
// into the success response envelope.
type Handler func(d Daemon, req map[string]any) (map[string]any, error)

// Command is one entry in the registry: name, help text, declared CLI
// shape, and the JSON property schema the request must satisfy before
// Handler runs.
type Command struct {
	Name       string
	Help       string
	Options    []Option
	Positional []Positional
	Properties []Property
	Handler    Handler
}

// validate checks req against c.Properties, returning spec.md §4.5's
// exact error strings on the first violation found (property order as
// declared).
func (c *Command) validate(req map[string]any) error {
	for _, prop := range c.Properties {
		v, present := req[prop.Name]
		if !present {
			if prop.Required {
				return fmt.Errorf("missing '%s' property", prop.Name)
			}
			continue
		}

		k := kindOf(v)
		if !prop.allows(k) {
			return fmt.Errorf("invalid '%s' property (%s expected, got %s)", prop.Name, prop.kindsString(), k.String())
		}

		if k == KindNumber && (prop.Min != nil || prop.Max != nil) {
			n := v.(float64)
			min, max := -1e18, 1e18
			if prop.Min != nil {
				min = *prop.Min
			}
			if prop.Max != nil {
				max = *prop.Max
			}
			if n < min || n > max {
				return fmt.Errorf("property '%s' is out of range %v..%v, got %v", prop.Name, min, max, n)
			}
		}
	}

	return nil
}

// Registry is the full set of commands the daemon's transport can
// dispatch into.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry returns a registry populated with every command
// spec.md §4.5 names.
func NewRegistry() *Registry {
	r := &Registry{commands: make(map[string]*Command)}
	for _, c := range allCommands() {
		r.register(c)
	}
	return r
}

func (r *Registry) register(c *Command) {
	r.commands[c.Name] = c
}

// Lookup returns the command with the given name, if registered.
func (r *Registry) Lookup(name string) (*Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Exec validates raw against the named command's schema, then invokes
// its Handler, producing a response envelope per spec.md §6.1: "response"
// always equals name, "status" reports success, and "error" is set only
// on failure.
func (r *Registry) Exec(d Daemon, raw json.RawMessage) (map[string]any, error) {
	var req map[string]any
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("malformed request: %w", err)
	}

	name, _ := req["command"].(string)
	c, ok := r.commands[name]
	if !ok {
		return map[string]any{"response": name, "status": false, "error": "command does not exist"}, nil
	}

	if err := c.validate(req); err != nil {
		return map[string]any{"response": name, "status": false, "error": err.Error()}, nil
	}

	fields, err := c.Handler(d, req)
	if err != nil {
		return map[string]any{"response": name, "status": false, "error": err.Error()}, nil
	}

	resp := map[string]any{"response": name, "status": true}
	for k, v := range fields {
		resp[k] = v
	}
	return resp, nil
}
