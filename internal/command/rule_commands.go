package command

import "github.com/irccd-go/irccd/internal/rule"

func strSliceProp(name string) Property {
	return Property{Name: name, Kinds: []Kind{KindArray}}
}

func stringsFrom(req map[string]any, key string) []string {
	raw, _ := req[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func ruleFromRequest(req map[string]any) rule.Rule {
	action := rule.Accept
	if str(req, "action", "accept") == "drop" {
		action = rule.Drop
	}
	return rule.Rule{
		Servers:  stringsFrom(req, "servers"),
		Channels: stringsFrom(req, "channels"),
		Origins:  stringsFrom(req, "origins"),
		Plugins:  stringsFrom(req, "plugins"),
		Events:   stringsFrom(req, "events"),
		Action:   action,
	}
}

func ruleAddCommand() *Command {
	return &Command{
		Name: "rule-add",
		Help: "Append a new rule.",
		Properties: []Property{
			strSliceProp("servers"), strSliceProp("channels"), strSliceProp("origins"),
			strSliceProp("plugins"), strSliceProp("events"), strProp("action", true),
		},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			d.Rules().Add(ruleFromRequest(req))
			return nil, nil
		},
	}
}

func ruleInsertCommand() *Command {
	return &Command{
		Name:       "rule-move",
		Help:       "Insert a new rule at a given position; existing rules are not moved.",
		Positional: []Positional{{Name: "index", Required: true}},
		Properties: []Property{
			numProp("index", true, 0, 1e9),
			strSliceProp("servers"), strSliceProp("channels"), strSliceProp("origins"),
			strSliceProp("plugins"), strSliceProp("events"), strProp("action", true),
		},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			pos := int(num(req, "index", 0))
			return nil, d.Rules().Insert(ruleFromRequest(req), pos)
		},
	}
}

func ruleRemoveCommand() *Command {
	return &Command{
		Name:       "rule-remove",
		Help:       "Remove a rule by position.",
		Positional: []Positional{{Name: "index", Required: true}},
		Properties: []Property{numProp("index", true, 0, 1e9)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			pos := int(num(req, "index", 0))
			return nil, d.Rules().Remove(pos)
		},
	}
}

func ruleListCommand() *Command {
	return &Command{
		Name: "rule-list",
		Help: "List every rule in order.",
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			rules := d.Rules().Rules()
			list := make([]map[string]any, 0, len(rules))
			for _, r := range rules {
				list = append(list, map[string]any{
					"servers": r.Servers, "channels": r.Channels, "origins": r.Origins,
					"plugins": r.Plugins, "events": r.Events, "action": string(r.Action),
				})
			}
			return map[string]any{"list": list}, nil
		},
	}
}
