package plugin

import (
	"testing"

	"github.com/irccd-go/irccd/internal/server"
)

// echoPlugin is a trivial example plugin exercising the Load/Unload
// lifecycle and one optional callback, used only by this package's tests.
type echoPlugin struct {
	loaded bool
	seen   []string
}

func (p *echoPlugin) Info() Info {
	return Info{Name: "echo", Author: "test", License: "ISC", Summary: "echoes messages", Version: "1.0"}
}

func (p *echoPlugin) Load(ctx *Context) error {
	p.loaded = true
	return nil
}

func (p *echoPlugin) Unload() { p.loaded = false }

func (p *echoPlugin) OnMessage(origin, channel, message string, srv *server.Server) {
	p.seen = append(p.seen, message)
}

func TestManagerLoadUnload(t *testing.T) {
	m := NewManager(func(func()) {})
	m.Register("echo", func() Plugin { return &echoPlugin{} })

	if err := m.Load("echo", ""); err != nil {
		t.Fatal(err)
	}

	names := m.Names()
	if len(names) != 1 || names[0] != "echo" {
		t.Fatalf("expected echo to be loaded, got %v", names)
	}

	p, ok := m.Get("echo")
	if !ok {
		t.Fatal("expected to retrieve the loaded plugin")
	}
	echo := p.(*echoPlugin)
	if !echo.loaded {
		t.Fatal("expected Load to have run")
	}

	if err := m.Unload("echo"); err != nil {
		t.Fatal(err)
	}
	if echo.loaded {
		t.Fatal("expected Unload to have run")
	}
	if len(m.Names()) != 0 {
		t.Fatal("expected no plugins loaded after unload")
	}
}

func TestManagerRejectsDuplicateLoad(t *testing.T) {
	m := NewManager(func(func()) {})
	m.Register("echo", func() Plugin { return &echoPlugin{} })

	if err := m.Load("echo", ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Load("echo", ""); err == nil {
		t.Fatal("expected loading an already-loaded plugin to fail")
	}
}

func TestManagerConfigRoundTrips(t *testing.T) {
	m := NewManager(func(func()) {})

	if _, err := m.Config("echo", map[string]string{"greeting": "hi"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := m.Config("echo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg["greeting"] != "hi" {
		t.Fatalf("expected config to persist, got %v", cfg)
	}
}

func TestManagerOnMessageCallback(t *testing.T) {
	m := NewManager(func(func()) {})
	m.Register("echo", func() Plugin { return &echoPlugin{} })
	m.Load("echo", "")

	p, _ := m.Get("echo")
	handler, ok := p.(OnMessageHandler)
	if !ok {
		t.Fatal("expected echo plugin to implement OnMessageHandler")
	}
	handler.OnMessage("alice", "#general", "hello", nil)

	echo := p.(*echoPlugin)
	if len(echo.seen) != 1 || echo.seen[0] != "hello" {
		t.Fatalf("expected the message to be recorded, got %v", echo.seen)
	}
}
