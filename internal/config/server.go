package config

import "github.com/irccd-go/irccd/internal/server"

// ToServerConfig converts a parsed TOML server table into the
// internal/server package's runtime Config.
func (s ServerConfig) ToServerConfig() server.Config {
	var flags server.Flags
	if s.SSL {
		flags |= server.FlagTLS
	}
	if s.SSLVerify {
		flags |= server.FlagTLSVerify
	}
	if s.IPv6 {
		flags |= server.FlagIPv6
	}
	if s.AutoRejoin {
		flags |= server.FlagAutoRejoinOnKick
	}
	if s.JoinOnInvite {
		flags |= server.FlagJoinOnInvite
	}

	channels := make([]server.Channel, 0, len(s.Channels))
	for _, c := range s.Channels {
		channels = append(channels, server.Channel{Name: c.Name, Password: c.Password})
	}

	return server.Config{
		Name:     s.Name,
		Host:     s.Host,
		Port:     s.Port,
		Password: s.Password,
		Flags:    flags,
		Identity: server.Identity{
			Nickname: s.Nickname,
			Username: s.Username,
			Realname: s.Realname,
		},
		AutoJoin: channels,
		Settings: server.Settings{
			ReconnectTries: s.ReconnectTriesOrDefault(),
			ReconnectDelay: s.ReconnectDelay,
			PingTimeout:    s.PingTimeout,
			CommandChar:    s.CommandChar,
		},
	}
}
