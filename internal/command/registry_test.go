package command

import (
	"encoding/json"
	"testing"

	"github.com/irccd-go/irccd/internal/rule"
	"github.com/irccd-go/irccd/internal/server"
)

type fakeDaemon struct {
	servers map[string]*server.Server
	rules   *rule.Engine
	plugins map[string]map[string]any
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{servers: make(map[string]*server.Server), rules: rule.NewEngine(), plugins: make(map[string]map[string]any)}
}

func (f *fakeDaemon) AddServer(cfg server.Config) error {
	if _, ok := f.servers[cfg.Name]; ok {
		return &ErrServerExists{Name: cfg.Name}
	}
	events := make(chan server.Event, 8)
	f.servers[cfg.Name] = server.New(cfg, events)
	return nil
}

func (f *fakeDaemon) RemoveServer(name string) error {
	delete(f.servers, name)
	return nil
}

func (f *fakeDaemon) Server(name string) (*server.Server, bool) {
	s, ok := f.servers[name]
	return s, ok
}

func (f *fakeDaemon) ServerNames() []string {
	names := make([]string, 0, len(f.servers))
	for n := range f.servers {
		names = append(names, n)
	}
	return names
}

func (f *fakeDaemon) Rules() *rule.Engine { return f.rules }

func (f *fakeDaemon) LoadPlugin(name, path string) error {
	f.plugins[name] = map[string]any{"name": name}
	return nil
}
func (f *fakeDaemon) UnloadPlugin(name string) error { delete(f.plugins, name); return nil }
func (f *fakeDaemon) ReloadPlugin(name string) error { return nil }
func (f *fakeDaemon) PluginNames() []string {
	names := make([]string, 0, len(f.plugins))
	for n := range f.plugins {
		names = append(names, n)
	}
	return names
}
func (f *fakeDaemon) PluginInfo(name string) (map[string]any, bool) {
	info, ok := f.plugins[name]
	return info, ok
}
func (f *fakeDaemon) PluginConfig(name string, set map[string]string) (map[string]string, error) {
	return map[string]string{}, nil
}

func TestServerConnectValidatesRequiredProperties(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{"command": "server-connect", "host": "irc.example"})
	resp, err := r.Exec(d, raw)
	if err != nil {
		t.Fatal(err)
	}
	if resp["status"].(bool) {
		t.Fatal("expected missing 'name' to fail validation")
	}
	if resp["error"] != "missing 'name' property" {
		t.Fatalf("unexpected error message: %v", resp["error"])
	}
}

func TestServerConnectRejectsWrongPropertyType(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{"command": "server-connect", "name": "freenode", "host": "irc.example", "port": "not-a-number"})
	resp, _ := r.Exec(d, raw)
	if resp["status"].(bool) {
		t.Fatal("expected a string port to fail validation")
	}
	if resp["error"] != "invalid 'port' property (number expected, got string)" {
		t.Fatalf("unexpected error message: %v", resp["error"])
	}
}

func TestServerConnectRejectsOutOfRangePort(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{"command": "server-connect", "name": "freenode", "host": "irc.example", "port": 99999})
	resp, _ := r.Exec(d, raw)
	if resp["status"].(bool) {
		t.Fatal("expected an out-of-range port to fail validation")
	}
}

func TestServerConnectSucceedsAndRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{
		"command": "server-connect", "name": "freenode", "host": "irc.example",
		"channels": []any{"#general", map[string]any{"name": "#secret", "password": "x"}},
	})
	resp, err := r.Exec(d, raw)
	if err != nil {
		t.Fatal(err)
	}
	if !resp["status"].(bool) {
		t.Fatalf("expected success, got error: %v", resp["error"])
	}

	resp2, _ := r.Exec(d, raw)
	if resp2["status"].(bool) {
		t.Fatal("expected the second server-connect with the same name to fail")
	}
	if resp2["error"] != "server 'freenode' already exists" {
		t.Fatalf("unexpected error message: %v", resp2["error"])
	}
}

func TestServerConnectRejectsInvalidIdentifier(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{"command": "server-connect", "name": "bad name!", "host": "irc.example"})
	resp, _ := r.Exec(d, raw)
	if resp["status"].(bool) {
		t.Fatal("expected an identifier containing a space and '!' to fail validation")
	}
	if resp["error"] != `invalid 'name' property (identifier expected, got "bad name!")` {
		t.Fatalf("unexpected error message: %v", resp["error"])
	}
}

func TestServerConnectRoundTripsOptionalProperties(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{
		"command": "server-connect", "name": "oftc", "host": "irc.example",
		"ctcpVersion": "irccd-go", "commandChar": ".", "reconnectTries": 0, "reconnectTimeout": 10,
	})
	resp, err := r.Exec(d, raw)
	if err != nil {
		t.Fatal(err)
	}
	if !resp["status"].(bool) {
		t.Fatalf("expected success, got error: %v", resp["error"])
	}

	infoRaw, _ := json.Marshal(map[string]any{"command": "server-info", "name": "oftc"})
	info, _ := r.Exec(d, infoRaw)
	if info["ctcpVersion"] != "irccd-go" {
		t.Fatalf("expected ctcpVersion to round-trip, got %v", info["ctcpVersion"])
	}
	if info["commandChar"] != "." {
		t.Fatalf("expected commandChar to round-trip, got %v", info["commandChar"])
	}
	if info["reconnectTries"] != int32(0) {
		t.Fatalf("expected reconnectTries 0 (never) to round-trip, not the -1 default, got %v", info["reconnectTries"])
	}
	if info["reconnectDelay"] != uint16(10) {
		t.Fatalf("expected reconnectTimeout to round-trip as reconnectDelay, got %v", info["reconnectDelay"])
	}
}

func TestRuleAddAndList(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{"command": "rule-add", "servers": []any{"freenode"}, "action": "drop"})
	if resp, _ := r.Exec(d, raw); !resp["status"].(bool) {
		t.Fatalf("expected rule-add to succeed: %v", resp["error"])
	}

	listRaw, _ := json.Marshal(map[string]any{"command": "rule-list"})
	resp, _ := r.Exec(d, listRaw)
	list := resp["list"].([]map[string]any)
	if len(list) != 1 || list[0]["action"] != "drop" {
		t.Fatalf("unexpected rule list: %v", list)
	}
}

func TestUnknownCommand(t *testing.T) {
	r := NewRegistry()
	d := newFakeDaemon()

	raw, _ := json.Marshal(map[string]any{"command": "bogus"})
	resp, _ := r.Exec(d, raw)
	if resp["status"].(bool) {
		t.Fatal("expected an unknown command to fail")
	}
	if resp["error"] != "command does not exist" {
		t.Fatalf("unexpected error message: %v", resp["error"])
	}
}
