// Package daemon implements the event dispatcher: the single goroutine
// that owns every server, rule, transport listener, and loaded plugin,
// and the only place daemon state is ever mutated from.
package daemon

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/irccd-go/irccd/internal/command"
	"github.com/irccd-go/irccd/internal/interrupt"
	"github.com/irccd-go/irccd/internal/plugin"
	"github.com/irccd-go/irccd/internal/rule"
	"github.com/irccd-go/irccd/internal/server"
	"github.com/irccd-go/irccd/internal/transport"
)

// Daemon is the façade that exclusively owns the servers table, rules
// table, transport-servers list, command registry, and work queue, per
// spec.md §3's ownership model.
type Daemon struct {
	log hclog.Logger

	mu      sync.Mutex
	servers map[string]*server.Server

	rules      *rule.Engine
	plugins    *plugin.Manager
	registry   *command.Registry
	transports []*transport.Server

	events chan server.Event
	frames chan transport.Frame

	interrupt *interrupt.Channel
	workMu    sync.Mutex
	work      []func()

	stop chan struct{}
}

// New constructs a Daemon with empty servers, rules, and plugins. events
// and frames are the shared channels every Server and transport.Server
// feed; AddServer builds each Server from its Config with the events
// channel, while callers construct transport.Servers with Frames() before
// calling AddTransport.
func New(log hclog.Logger) *Daemon {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	d := &Daemon{
		log:       log,
		servers:   make(map[string]*server.Server),
		rules:     rule.NewEngine(),
		events:    make(chan server.Event, 256),
		frames:    make(chan transport.Frame, 256),
		interrupt: interrupt.New(),
		stop:      make(chan struct{}),
	}
	d.plugins = plugin.NewManager(d.Post)
	d.registry = command.NewRegistry()
	return d
}

// Events returns the shared channel new Servers should be constructed
// with.
func (d *Daemon) Events() chan<- server.Event { return d.events }

// Frames returns the shared channel new transport.Servers should be
// constructed with.
func (d *Daemon) Frames() chan transport.Frame { return d.frames }

// AddTransport registers a listening transport.Server whose frames feed
// the daemon's shared frame channel, and whose Broadcast is called for
// every outbound event.
func (d *Daemon) AddTransport(t *transport.Server) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transports = append(d.transports, t)
}

// AddServer implements command.Daemon.
func (d *Daemon) AddServer(cfg server.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.servers[cfg.Name]; exists {
		return &command.ErrServerExists{Name: cfg.Name}
	}
	if cfg.Log == nil {
		cfg.Log = d.log
	}

	srv := server.New(cfg, d.events)
	d.servers[cfg.Name] = srv
	return nil
}

// RemoveServer implements command.Daemon.
func (d *Daemon) RemoveServer(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	srv, ok := d.servers[name]
	if !ok {
		return &command.ErrNoSuchServer{Name: name}
	}
	srv.Disconnect()
	delete(d.servers, name)
	return nil
}

// Server implements command.Daemon.
func (d *Daemon) Server(name string) (*server.Server, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.servers[name]
	return s, ok
}

// ServerNames implements command.Daemon.
func (d *Daemon) ServerNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.servers))
	for n := range d.servers {
		names = append(names, n)
	}
	return names
}

// Rules implements command.Daemon.
func (d *Daemon) Rules() *rule.Engine { return d.rules }

// LoadPlugin implements command.Daemon.
func (d *Daemon) LoadPlugin(name, path string) error { return d.plugins.Load(name, path) }

// UnloadPlugin implements command.Daemon.
func (d *Daemon) UnloadPlugin(name string) error { return d.plugins.Unload(name) }

// ReloadPlugin implements command.Daemon.
func (d *Daemon) ReloadPlugin(name string) error { return d.plugins.Reload(name) }

// PluginNames implements command.Daemon.
func (d *Daemon) PluginNames() []string { return d.plugins.Names() }

// PluginInfo implements command.Daemon.
func (d *Daemon) PluginInfo(name string) (map[string]any, bool) { return d.plugins.Info(name) }

// PluginConfig implements command.Daemon.
func (d *Daemon) PluginConfig(name string, set map[string]string) (map[string]string, error) {
	return d.plugins.Config(name, set)
}

// RegisterPlugin exposes the plugin manager's Register, for wiring
// in-process plugin factories at startup.
func (d *Daemon) RegisterPlugin(name string, f plugin.Factory) {
	d.plugins.Register(name, f)
}

// Post queues closure to run on the dispatcher goroutine, per spec.md
// §4.6's "lock -> push -> unlock -> wake" posting rule. Safe to call
// from any goroutine, including timers and server/transport readers.
func (d *Daemon) Post(closure func()) {
	d.workMu.Lock()
	d.work = append(d.work, closure)
	d.workMu.Unlock()
	d.interrupt.Signal()
}

func (d *Daemon) drainPosted() {
	d.workMu.Lock()
	work := d.work
	d.work = nil
	d.workMu.Unlock()

	for _, closure := range work {
		d.runSafely(closure)
	}
}

// runSafely invokes closure, recovering a panic so one misbehaving
// plugin callback can never tear down the dispatcher, per spec.md §4.2's
// failure semantics for callback exceptions.
func (d *Daemon) runSafely(closure func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("recovered panic in posted work", "recover", fmt.Sprint(r))
		}
	}()
	closure()
}

// Stop interrupts the dispatcher loop; it exits at the next iteration
// boundary, per spec.md §4.6.
func (d *Daemon) Stop() {
	close(d.stop)
	d.interrupt.Signal()
}
