package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/irccd-go/irccd/internal/server"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "irccd.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsAbsentReconnectTriesToInfinite(t *testing.T) {
	path := writeTemp(t, `
[[server]]
name = "freenode"
host = "irc.freenode.net"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Servers) != 1 {
		t.Fatalf("expected one server, got %d", len(cfg.Servers))
	}
	if got := cfg.Servers[0].ReconnectTriesOrDefault(); got != -1 {
		t.Fatalf("expected default reconnect_tries -1, got %d", got)
	}
}

func TestLoadPreservesExplicitZeroReconnectTries(t *testing.T) {
	path := writeTemp(t, `
[[server]]
name = "freenode"
host = "irc.freenode.net"
reconnect_tries = 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Servers[0].ReconnectTriesOrDefault(); got != 0 {
		t.Fatalf("expected explicit reconnect_tries=0 preserved, got %d", got)
	}
}

func TestLoadParsesRulesAndTransports(t *testing.T) {
	path := writeTemp(t, `
[[rule]]
servers = ["freenode"]
action = "drop"

[[transport]]
type = "unix"
path = "/tmp/irccd.sock"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Action != "drop" {
		t.Fatalf("unexpected rules: %+v", cfg.Rules)
	}
	if len(cfg.Transports) != 1 || cfg.Transports[0].Path != "/tmp/irccd.sock" {
		t.Fatalf("unexpected transports: %+v", cfg.Transports)
	}
}

func TestToServerConfigMapsFlags(t *testing.T) {
	sc := ServerConfig{Name: "x", Host: "h", SSL: true, AutoRejoin: true}
	rc := sc.ToServerConfig()

	if rc.Name != "x" || rc.Host != "h" {
		t.Fatalf("unexpected conversion: %+v", rc)
	}
	if !rc.Flags.Has(server.FlagTLS) || !rc.Flags.Has(server.FlagAutoRejoinOnKick) {
		t.Fatalf("expected SSL and AutoRejoin flags set, got %v", rc.Flags)
	}
}
