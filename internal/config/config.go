// Package config loads the daemon's servers, rules, transports, and
// plugin load list from a TOML file on each start, the way irccd's own
// INI-based loader re-seeds daemon state from scratch rather than
// persisting it across restarts (spec.md explicitly has no persisted
// runtime state).
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ServerConfig is one [[server]] table.
type ServerConfig struct {
	Name           string          `toml:"name"`
	Host           string          `toml:"host"`
	Port           uint16          `toml:"port"`
	Password       string          `toml:"password"`
	SSL            bool            `toml:"ssl"`
	SSLVerify      bool            `toml:"ssl_verify"`
	IPv6           bool            `toml:"ipv6"`
	Nickname       string          `toml:"nickname"`
	Username       string          `toml:"username"`
	Realname       string          `toml:"realname"`
	CommandChar string `toml:"command_char"`
	// ReconnectTries is a pointer so an absent key can be told apart
	// from an explicit 0, which means "never reconnect" and must not
	// be silently overwritten with the default of -1 (retry forever).
	ReconnectTries *int32 `toml:"reconnect_tries"`
	ReconnectDelay uint16 `toml:"reconnect_delay"`
	PingTimeout    uint16          `toml:"ping_timeout"`
	AutoRejoin     bool            `toml:"auto_rejoin"`
	JoinOnInvite   bool            `toml:"join_on_invite"`
	Channels       []ChannelConfig `toml:"channels"`
}

// ChannelConfig is one auto-join entry, written in TOML as a
// {name, password} inline table that BurntSushi/toml decodes directly
// into this struct. Bare-string entries are not normalized and fail to
// decode.
type ChannelConfig struct {
	Name     string `toml:"name"`
	Password string `toml:"password"`
}

// RuleConfig is one [[rule]] table.
type RuleConfig struct {
	Servers  []string `toml:"servers"`
	Channels []string `toml:"channels"`
	Origins  []string `toml:"origins"`
	Plugins  []string `toml:"plugins"`
	Events   []string `toml:"events"`
	Action   string   `toml:"action"`
}

// TransportConfig is one [[transport]] table.
type TransportConfig struct {
	Type      string `toml:"type"` // "ip", "ipv6", or "unix"
	Address   string `toml:"address"`
	Port      uint16 `toml:"port"`
	Path      string `toml:"path"`
	Password  string `toml:"password"`
	DualStack bool   `toml:"dual_stack"`
	SSL       bool   `toml:"ssl"`
	KeyFile   string `toml:"key_file"`
	CertFile  string `toml:"cert_file"`
}

// PluginConfig is one [[plugin]] table: a plugin to load by name, with
// its initial key/value configuration.
type PluginConfig struct {
	Name   string            `toml:"name"`
	Config map[string]string `toml:"config"`
}

// Config is the fully-parsed daemon configuration file.
type Config struct {
	Verbosity  int               `toml:"verbosity"`
	Servers    []ServerConfig    `toml:"server"`
	Rules      []RuleConfig      `toml:"rule"`
	Transports []TransportConfig `toml:"transport"`
	Plugins    []PluginConfig    `toml:"plugin"`
}

// Load reads and parses the TOML configuration file at path. Absent
// fields get sane defaults, except reconnect_tries: its TOML zero value
// (0) is the meaningful "never reconnect" setting per spec.md §9's
// reconnect_tries 0/-1 asymmetry, so ServerConfig keeps it as a pointer
// and Load only defaults a genuinely absent key to -1 (retry forever).
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}

	for i := range cfg.Servers {
		if cfg.Servers[i].ReconnectDelay == 0 {
			cfg.Servers[i].ReconnectDelay = 30
		}
		if cfg.Servers[i].PingTimeout == 0 {
			cfg.Servers[i].PingTimeout = 300
		}
		if cfg.Servers[i].Nickname == "" {
			cfg.Servers[i].Nickname = "irccd"
		}
		if cfg.Servers[i].ReconnectTries == nil {
			forever := int32(-1)
			cfg.Servers[i].ReconnectTries = &forever
		}
	}

	return &cfg, nil
}

// ReconnectTriesOrDefault returns the resolved reconnect_tries value.
func (s ServerConfig) ReconnectTriesOrDefault() int32 {
	if s.ReconnectTries == nil {
		return -1
	}
	return *s.ReconnectTries
}
