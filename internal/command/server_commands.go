package command

import (
	"fmt"
	"regexp"

	"github.com/irccd-go/irccd/internal/server"
)

// identifierPattern is spec.md §3/§4.5's server/identity naming rule:
// server names (and other identifiers) must match [A-Za-z0-9_-]+.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validateIdentifier enforces identifierPattern at the command boundary,
// per spec.md §4.5's worked server-connect example.
func validateIdentifier(prop, value string) error {
	if !identifierPattern.MatchString(value) {
		return fmt.Errorf("invalid '%s' property (identifier expected, got %q)", prop, value)
	}
	return nil
}

func numProp(name string, required bool, min, max float64) Property {
	return Property{Name: name, Kinds: []Kind{KindNumber}, Required: required, Min: &min, Max: &max}
}

func strProp(name string, required bool) Property {
	return Property{Name: name, Kinds: []Kind{KindString}, Required: required}
}

func boolProp(name string) Property {
	return Property{Name: name, Kinds: []Kind{KindBool}}
}

func str(req map[string]any, key, def string) string {
	if v, ok := req[key].(string); ok {
		return v
	}
	return def
}

func num(req map[string]any, key string, def float64) float64 {
	if v, ok := req[key].(float64); ok {
		return v
	}
	return def
}

func boolean(req map[string]any, key string) bool {
	v, _ := req[key].(bool)
	return v
}

// channelsFromRequest implements the supplement from
// original_source/lib/irccd/cmd-server-connect.cpp: the "channels"
// property may be an array of bare channel-name strings or
// {"name":..,"password":..} objects.
func channelsFromRequest(req map[string]any) []server.Channel {
	raw, ok := req["channels"].([]any)
	if !ok {
		return nil
	}

	channels := make([]server.Channel, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			channels = append(channels, server.Channel{Name: v})
		case map[string]any:
			name, _ := v["name"].(string)
			if name == "" {
				continue
			}
			password, _ := v["password"].(string)
			channels = append(channels, server.Channel{Name: name, Password: password})
		}
	}
	return channels
}

func serverConnectCommand() *Command {
	return &Command{
		Name: "server-connect",
		Help: "Connect to a server.",
		Options: []Option{
			{Short: "-n", Long: "--nickname", Arg: "nickname", Desc: "nickname to use"},
			{Short: "-c", Long: "--command-char", Arg: "char", Desc: "command character"},
		},
		Positional: []Positional{
			{Name: "name", Required: true},
			{Name: "host", Required: true},
		},
		Properties: []Property{
			strProp("name", true),
			strProp("host", true),
			numProp("port", false, 1, 65535),
			strProp("password", false),
			strProp("nickname", false),
			strProp("username", false),
			strProp("realname", false),
			strProp("ctcpVersion", false),
			strProp("commandChar", false),
			boolProp("ssl"),
			boolProp("sslVerify"),
			numProp("reconnectTries", false, -1, 2147483647),
			numProp("reconnectTimeout", false, 0, 65535),
			{Name: "channels", Kinds: []Kind{KindArray}},
		},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			name := req["name"].(string)
			if err := validateIdentifier("name", name); err != nil {
				return nil, err
			}
			if _, exists := d.Server(name); exists {
				return nil, &ErrServerExists{Name: name}
			}

			var flags server.Flags
			if boolean(req, "ssl") {
				flags |= server.FlagTLS
			}
			if boolean(req, "sslVerify") {
				flags |= server.FlagTLSVerify
			}

			cfg := server.Config{
				Name:     name,
				Host:     req["host"].(string),
				Port:     uint16(num(req, "port", 6667)),
				Password: str(req, "password", ""),
				Flags:    flags,
				Identity: server.Identity{
					Nickname:    str(req, "nickname", "irccd"),
					Username:    str(req, "username", "irccd"),
					Realname:    str(req, "realname", "irccd"),
					CTCPVersion: str(req, "ctcpVersion", ""),
				},
				AutoJoin: channelsFromRequest(req),
				Settings: server.Settings{
					ReconnectTries: int32(num(req, "reconnectTries", -1)),
					ReconnectDelay: uint16(num(req, "reconnectTimeout", 30)),
					PingTimeout:    300,
					CommandChar:    str(req, "commandChar", "!"),
				},
			}

			if err := d.AddServer(cfg); err != nil {
				return nil, err
			}
			return nil, nil
		},
	}
}

func serverDisconnectCommand() *Command {
	return &Command{
		Name:       "server-disconnect",
		Help:       "Disconnect from a server.",
		Positional: []Positional{{Name: "name", Required: true}},
		Properties: []Property{strProp("name", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			name := req["name"].(string)
			srv, ok := d.Server(name)
			if !ok {
				return nil, &ErrNoSuchServer{Name: name}
			}
			srv.Disconnect()
			return nil, nil
		},
	}
}

func serverReconnectCommand() *Command {
	return &Command{
		Name:       "server-reconnect",
		Help:       "Force a server to reconnect.",
		Positional: []Positional{{Name: "name", Required: false}},
		Properties: []Property{strProp("name", false)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			name, hasName := req["name"].(string)
			if !hasName || name == "" {
				for _, n := range d.ServerNames() {
					if srv, ok := d.Server(n); ok {
						srv.Reconnect()
					}
				}
				return nil, nil
			}
			srv, ok := d.Server(name)
			if !ok {
				return nil, &ErrNoSuchServer{Name: name}
			}
			srv.Reconnect()
			return nil, nil
		},
	}
}

func serverListCommand() *Command {
	return &Command{
		Name: "server-list",
		Help: "List every configured server.",
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			return map[string]any{"list": d.ServerNames()}, nil
		},
	}
}

func serverInfoCommand() *Command {
	return &Command{
		Name:       "server-info",
		Help:       "Describe a server's current state.",
		Positional: []Positional{{Name: "name", Required: true}},
		Properties: []Property{strProp("name", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			name := req["name"].(string)
			srv, ok := d.Server(name)
			if !ok {
				return nil, &ErrNoSuchServer{Name: name}
			}
			info := srv.Info()
			return map[string]any{
				"name":           info.Name,
				"host":           info.Host,
				"port":           info.Port,
				"ssl":            info.TLS,
				"sslVerify":      info.TLSVerify,
				"createdAt":      info.CreatedAt,
				"nickname":       info.Nickname,
				"username":       info.Username,
				"realname":       info.Realname,
				"ctcpVersion":    info.CTCPVersion,
				"commandChar":    info.CommandChar,
				"channels":       info.Channels,
				"state":          info.State,
				"reconnectTries": info.ReconnectTries,
				"reconnectDelay": info.ReconnectDelay,
				"pingTimeout":    info.PingTimeout,
			}, nil
		},
	}
}

func withServer(d Daemon, req map[string]any) (*server.Server, error) {
	name, _ := req["server"].(string)
	srv, ok := d.Server(name)
	if !ok {
		return nil, &ErrNoSuchServer{Name: name}
	}
	return srv, nil
}

func serverMessageCommand() *Command {
	return &Command{
		Name:       "server-message",
		Help:       "Send a channel or private message.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "target", Required: true}, {Name: "message", Required: true}},
		Properties: []Property{strProp("server", true), strProp("target", true), strProp("message", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Message(req["target"].(string), req["message"].(string))
		},
	}
}

func serverMeCommand() *Command {
	return &Command{
		Name:       "server-me",
		Help:       "Send a CTCP ACTION.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "target", Required: true}, {Name: "message", Required: true}},
		Properties: []Property{strProp("server", true), strProp("target", true), strProp("message", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Me(req["target"].(string), req["message"].(string))
		},
	}
}

func serverNoticeCommand() *Command {
	return &Command{
		Name:       "server-notice",
		Help:       "Send a notice.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "target", Required: true}, {Name: "message", Required: true}},
		Properties: []Property{strProp("server", true), strProp("target", true), strProp("message", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Notice(req["target"].(string), req["message"].(string))
		},
	}
}

func serverCModeCommand() *Command {
	return &Command{
		Name:       "server-cmode",
		Help:       "Change a channel mode.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "channel", Required: true}, {Name: "mode", Required: true}},
		Properties: []Property{strProp("server", true), strProp("channel", true), strProp("mode", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.CMode(req["channel"].(string), req["mode"].(string))
		},
	}
}

func serverCNoticeCommand() *Command {
	return &Command{
		Name:       "server-cnotice",
		Help:       "Send a channel notice.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "channel", Required: true}, {Name: "message", Required: true}},
		Properties: []Property{strProp("server", true), strProp("channel", true), strProp("message", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.CNotice(req["channel"].(string), req["message"].(string))
		},
	}
}

func serverInviteCommand() *Command {
	return &Command{
		Name:       "server-invite",
		Help:       "Invite a user to a channel.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "target", Required: true}, {Name: "channel", Required: true}},
		Properties: []Property{strProp("server", true), strProp("target", true), strProp("channel", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Invite(req["channel"].(string), req["target"].(string))
		},
	}
}

func serverJoinCommand() *Command {
	return &Command{
		Name:       "server-join",
		Help:       "Join a channel.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "channel", Required: true}, {Name: "password", Required: false}},
		Properties: []Property{strProp("server", true), strProp("channel", true), strProp("password", false)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			if pw, ok := req["password"].(string); ok && pw != "" {
				return nil, srv.JoinKey(req["channel"].(string), pw)
			}
			return nil, srv.Join(req["channel"].(string))
		},
	}
}

func serverKickCommand() *Command {
	return &Command{
		Name:       "server-kick",
		Help:       "Kick a user from a channel.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "target", Required: true}, {Name: "channel", Required: true}, {Name: "reason", Required: false}},
		Properties: []Property{strProp("server", true), strProp("target", true), strProp("channel", true), strProp("reason", false)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Kick(req["channel"].(string), req["target"].(string), str(req, "reason", ""))
		},
	}
}

func serverModeCommand() *Command {
	return &Command{
		Name:       "server-mode",
		Help:       "Change your own user mode.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "mode", Required: true}},
		Properties: []Property{strProp("server", true), strProp("mode", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Mode(req["mode"].(string))
		},
	}
}

func serverNickCommand() *Command {
	return &Command{
		Name:       "server-nick",
		Help:       "Change your nickname.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "nickname", Required: true}},
		Properties: []Property{strProp("server", true), strProp("nickname", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Nick(req["nickname"].(string))
		},
	}
}

func serverPartCommand() *Command {
	return &Command{
		Name:       "server-part",
		Help:       "Leave a channel.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "channel", Required: true}, {Name: "reason", Required: false}},
		Properties: []Property{strProp("server", true), strProp("channel", true), strProp("reason", false)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Part(req["channel"].(string), str(req, "reason", ""))
		},
	}
}

func serverTopicCommand() *Command {
	return &Command{
		Name:       "server-topic",
		Help:       "Change a channel's topic.",
		Positional: []Positional{{Name: "server", Required: true}, {Name: "channel", Required: true}, {Name: "topic", Required: true}},
		Properties: []Property{strProp("server", true), strProp("channel", true), strProp("topic", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			srv, err := withServer(d, req)
			if err != nil {
				return nil, err
			}
			return nil, srv.Topic(req["channel"].(string), req["topic"].(string))
		},
	}
}
