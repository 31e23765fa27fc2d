// Package plugin defines the collaborator interface the scripting host
// (out of scope) would implement: stable callback names, required
// metadata, and a per-plugin key/value configuration store.
package plugin

import "github.com/irccd-go/irccd/internal/server"

// Info is the metadata every plugin must expose, per spec.md §6.3.
type Info struct {
	Name    string
	Author  string
	License string
	Summary string
	Version string
}

// Context is handed to a plugin on Load, giving it a narrow,
// posting-only way back into the daemon: it may queue a closure to run
// on the dispatcher goroutine, never touch daemon state directly.
type Context struct {
	Post   func(func())
	Config map[string]string
}

// Plugin is the minimal interface every plugin implements. Every
// callback below is optional: a plugin implements only the
// corresponding On* sub-interface (composition-by-assertion, the way
// io.Reader/io.Writer compose) and the dispatcher only invokes the methods
// actually present.
type Plugin interface {
	Info() Info
	Load(*Context) error
	Unload()
}

// The following are the optional per-callback sub-interfaces a Plugin
// may additionally implement, named after spec.md §6.3's callback list.
type (
	OnConnectHandler      interface{ OnConnect(*server.Server) }
	OnMessageHandler       interface{ OnMessage(origin, channel, message string, srv *server.Server) }
	OnMeHandler            interface{ OnMe(origin, channel, message string, srv *server.Server) }
	OnNoticeHandler        interface{ OnNotice(origin, channel, message string, srv *server.Server) }
	OnJoinHandler          interface{ OnJoin(origin, channel string, srv *server.Server) }
	OnKickHandler          interface{ OnKick(origin, channel, target, reason string, srv *server.Server) }
	OnNickHandler          interface{ OnNick(origin, nickname string, srv *server.Server) }
	OnPartHandler          interface{ OnPart(origin, channel, reason string, srv *server.Server) }
	OnTopicHandler         interface{ OnTopic(origin, channel, topic string, srv *server.Server) }
	OnInviteHandler        interface{ OnInvite(origin, channel, target string, srv *server.Server) }
	OnNamesHandler         interface{ OnNames(channel string, names []string, srv *server.Server) }
	OnWhoisHandler         interface{ OnWhois(info server.Info, srv *server.Server) }
	OnChannelModeHandler   interface{ OnChannelMode(origin, channel, mode string, args []string, srv *server.Server) }
	OnCommandHandler       interface{ OnCommand(origin, channel, message string, srv *server.Server) }
	OnQueryHandler         interface{ OnQuery(origin, message string, srv *server.Server) }
	OnQueryCommandHandler  interface{ OnQueryCommand(origin, message string, srv *server.Server) }
	OnReloadHandler        interface{ OnReload() }
)
