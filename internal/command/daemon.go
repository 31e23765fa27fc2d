package command

import (
	"github.com/irccd-go/irccd/internal/rule"
	"github.com/irccd-go/irccd/internal/server"
)

// Daemon is the subset of the daemon façade command handlers need. It is
// declared here, at the consumer, so this package does not import
// internal/daemon (which imports this package to populate its registry).
type Daemon interface {
	AddServer(cfg server.Config) error
	RemoveServer(name string) error
	Server(name string) (*server.Server, bool)
	ServerNames() []string

	Rules() *rule.Engine

	LoadPlugin(name, path string) error
	UnloadPlugin(name string) error
	ReloadPlugin(name string) error
	PluginNames() []string
	PluginInfo(name string) (map[string]any, bool)
	PluginConfig(name string, set map[string]string) (map[string]string, error)
}

// ErrServerExists is returned by AddServer implementations when the name
// is already taken, matching spec.md §4.5's "server '<name>' already
// exists" wording.
type ErrServerExists struct{ Name string }

func (e *ErrServerExists) Error() string {
	return "server '" + e.Name + "' already exists"
}

// ErrNoSuchServer is returned when a command names a server the daemon
// doesn't know about.
type ErrNoSuchServer struct{ Name string }

func (e *ErrNoSuchServer) Error() string {
	return "server '" + e.Name + "' not found"
}

// ErrNoSuchPlugin is returned when a command names an unknown plugin.
type ErrNoSuchPlugin struct{ Name string }

func (e *ErrNoSuchPlugin) Error() string {
	return "plugin '" + e.Name + "' not found"
}
