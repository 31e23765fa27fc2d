package config

import (
	"crypto/tls"
	"net"
	"strconv"

	"github.com/irccd-go/irccd/internal/rule"
	"github.com/irccd-go/irccd/internal/transport"
)

// ToRule converts a parsed [[rule]] table into the rule engine's Rule
// type. Action defaults to "accept" for anything other than the literal
// string "drop", matching spec.md §3's two-value rule action.
func (r RuleConfig) ToRule() rule.Rule {
	action := rule.Accept
	if r.Action == "drop" {
		action = rule.Drop
	}

	return rule.Rule{
		Servers:  r.Servers,
		Channels: r.Channels,
		Origins:  r.Origins,
		Plugins:  r.Plugins,
		Events:   r.Events,
		Action:   action,
	}
}

// ToListenerConfig converts a parsed [[transport]] table into a
// transport.ListenerConfig ready for transport.Listen.
func (t TransportConfig) ToListenerConfig() transport.ListenerConfig {
	cfg := transport.ListenerConfig{DualStack: t.DualStack}

	switch t.Type {
	case "unix":
		cfg.Network = transport.NetworkUnix
		cfg.Address = t.Path
	case "ipv6":
		cfg.Network = transport.NetworkTCP6
		cfg.Address = net.JoinHostPort(t.Address, strconv.Itoa(int(t.Port)))
	default:
		cfg.Network = transport.NetworkTCP4
		cfg.Address = net.JoinHostPort(t.Address, strconv.Itoa(int(t.Port)))
	}

	if t.SSL {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err == nil {
			cfg.TLS = &tls.Config{Certificates: []tls.Certificate{cert}}
		}
	}

	return cfg
}
