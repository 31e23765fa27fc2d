package plugin

import (
	"fmt"
	"sync"
)

// Factory constructs a fresh plugin instance by name, standing in for
// the scripting host's module loader (out of scope): in this build,
// plugins are registered in-process rather than loaded from a script
// path on disk.
type Factory func() Plugin

// Manager owns the set of loaded plugins and their configuration,
// mutated only from the dispatcher goroutine per spec.md §5's
// shared-resource policy.
type Manager struct {
	mu        sync.Mutex
	factories map[string]Factory
	loaded    map[string]Plugin
	config    map[string]map[string]string
	post      func(func())
}

// NewManager returns an empty plugin manager. post is the daemon's
// closure-posting mechanism, handed to every plugin's Context.
func NewManager(post func(func())) *Manager {
	return &Manager{
		factories: make(map[string]Factory),
		loaded:    make(map[string]Plugin),
		config:    make(map[string]map[string]string),
		post:      post,
	}
}

// Register makes a plugin factory available for Load by name.
func (m *Manager) Register(name string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = f
}

// Load instantiates and loads a registered plugin. path is accepted for
// interface compatibility with a script-loading host but unused here.
func (m *Manager) Load(name, path string) error {
	m.mu.Lock()
	factory, ok := m.factories[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("no such plugin: %s", name)
	}
	if _, exists := m.loaded[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("plugin '%s' already loaded", name)
	}
	cfg := m.config[name]
	m.mu.Unlock()

	p := factory()
	if err := p.Load(&Context{Post: m.post, Config: cfg}); err != nil {
		return fmt.Errorf("loading plugin '%s': %w", name, err)
	}

	m.mu.Lock()
	m.loaded[name] = p
	m.mu.Unlock()
	return nil
}

// Unload removes and unloads a plugin.
func (m *Manager) Unload(name string) error {
	m.mu.Lock()
	p, ok := m.loaded[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("plugin '%s' not loaded", name)
	}
	delete(m.loaded, name)
	m.mu.Unlock()

	p.Unload()
	return nil
}

// Reload unloads and reloads a plugin, firing OnReload if implemented.
func (m *Manager) Reload(name string) error {
	m.mu.Lock()
	p, ok := m.loaded[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("plugin '%s' not loaded", name)
	}

	if r, ok := p.(OnReloadHandler); ok {
		r.OnReload()
	}

	if err := m.Unload(name); err != nil {
		return err
	}
	return m.Load(name, "")
}

// Names returns the currently loaded plugin names.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.loaded))
	for n := range m.loaded {
		names = append(names, n)
	}
	return names
}

// Info returns a loaded plugin's metadata as a plain map, ready to merge
// into a plugin-info response.
func (m *Manager) Info(name string) (map[string]any, bool) {
	m.mu.Lock()
	p, ok := m.loaded[name]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	info := p.Info()
	return map[string]any{
		"name":    info.Name,
		"author":  info.Author,
		"license": info.License,
		"summary": info.Summary,
		"version": info.Version,
	}, true
}

// Config reads or mutates a plugin's configuration store. Entries in set
// are merged in before the current map is returned.
func (m *Manager) Config(name string, set map[string]string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.config[name]
	if !ok {
		cfg = make(map[string]string)
		m.config[name] = cfg
	}
	for k, v := range set {
		cfg[k] = v
	}

	out := make(map[string]string, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out, nil
}

// Get returns a loaded plugin instance, for the dispatcher to invoke
// callbacks on.
func (m *Manager) Get(name string) (Plugin, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.loaded[name]
	return p, ok
}

// All returns every currently loaded plugin, for broadcasting a callback
// to all of them.
func (m *Manager) All() map[string]Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Plugin, len(m.loaded))
	for k, v := range m.loaded {
		out[k] = v
	}
	return out
}
