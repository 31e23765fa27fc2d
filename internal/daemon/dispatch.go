package daemon

import (
	"strings"
	"time"

	"github.com/irccd-go/irccd/internal/plugin"
	"github.com/irccd-go/irccd/internal/rule"
	"github.com/irccd-go/irccd/internal/server"
	"github.com/irccd-go/irccd/internal/transport"
)

// pollTimeout bounds how long one dispatcher iteration may block without
// making progress, reproducing spec.md §4.6's 5.25-second readiness-call
// upper bound with a Go select/time.After instead of a literal fd_set.
const pollTimeout = 5250 * time.Millisecond

// Run is the dispatcher loop. It owns every server's Tick, drains posted
// work, routes typed server events to transports and plugins, and
// dispatches transport command frames, until Stop is called.
func (d *Daemon) Run() {
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		d.tickServers()

		if d.drainOnce() {
			continue
		}

		select {
		case <-d.stop:
			return
		case <-d.interrupt.C():
			d.drainPosted()
		case ev := <-d.events:
			d.routeEvent(ev)
		case f := <-d.frames:
			d.handleFrame(f)
		case <-time.After(pollTimeout):
		}
	}
}

// drainOnce opportunistically processes one pending item from each
// class, in the order spec.md §4.6 specifies (servers before transport
// servers before transport clients, here: posted work, server events,
// transport frames), without blocking. Returns true if anything was
// processed, so the caller can keep draining before falling back to a
// blocking select.
func (d *Daemon) drainOnce() bool {
	processed := false

	select {
	case <-d.interrupt.C():
		d.drainPosted()
		processed = true
	default:
	}

	select {
	case ev := <-d.events:
		d.routeEvent(ev)
		processed = true
	default:
	}

	select {
	case f := <-d.frames:
		d.handleFrame(f)
		processed = true
	default:
	}

	return processed
}

func (d *Daemon) tickServers() {
	now := time.Now()

	d.mu.Lock()
	servers := make([]*server.Server, 0, len(d.servers))
	for _, s := range d.servers {
		servers = append(servers, s)
	}
	d.mu.Unlock()

	for _, s := range servers {
		s.Update()
		s.Tick(now)
		s.Sync()

		if s.Died() {
			d.mu.Lock()
			delete(d.servers, s.Name)
			d.mu.Unlock()
		}
	}
}

// handleFrame validates and dispatches one transport command frame,
// replying on the originating client.
func (d *Daemon) handleFrame(f transport.Frame) {
	resp, err := d.registry.Exec(d, f.Payload)
	if err != nil {
		f.Client.Send(map[string]any{"response": "", "status": false, "error": err.Error()})
		return
	}
	f.Client.Send(resp)
}

// broadcast sends name/fields to every registered transport server's
// ready clients.
func (d *Daemon) broadcast(name, serverName string, fields map[string]any) {
	d.mu.Lock()
	transports := d.transports
	d.mu.Unlock()

	for _, t := range transports {
		t.Broadcast(name, serverName, fields)
	}
}

// routeEvent implements spec.md §4.6's event routing: broadcast first,
// unconditionally, then one posted closure per loaded plugin applying
// the rule engine's verdict and the command-prefix reclassification for
// channel messages.
func (d *Daemon) routeEvent(ev server.Event) {
	name, fields, channel, origin := eventFields(ev)
	srvRef := eventServerOf(ev)
	if srvRef == nil {
		return
	}

	if name == "" {
		return
	}

	d.broadcast(name, srvRef.Name, fields)

	for pname, p := range d.plugins.All() {
		pname, p := pname, p
		d.Post(func() {
			d.dispatchToPlugin(pname, p, name, channel, origin, ev, srvRef)
		})
	}
}

// eventServerOf returns the originating server each concrete event type
// carries via baseEvent's exported Server field (promoted across
// packages despite baseEvent itself being unexported).
func eventServerOf(ev server.Event) *server.Server {
	switch e := ev.(type) {
	case server.ConnectEvent:
		return e.Server
	case server.DisconnectEvent:
		return e.Server
	case server.DiedEvent:
		return e.Server
	case server.MessageEvent:
		return e.Server
	case server.NoticeEvent:
		return e.Server
	case server.CTCPActionEvent:
		return e.Server
	case server.JoinEvent:
		return e.Server
	case server.PartEvent:
		return e.Server
	case server.KickEvent:
		return e.Server
	case server.NickEvent:
		return e.Server
	case server.TopicEvent:
		return e.Server
	case server.ModeEvent:
		return e.Server
	case server.InviteEvent:
		return e.Server
	case server.NamesEvent:
		return e.Server
	case server.WhoisEvent:
		return e.Server
	default:
		return nil
	}
}

// eventFields maps a typed server.Event onto the plugin callback name it
// corresponds to, the broadcast field set, and the (channel, origin)
// pair the rule engine and command-prefix reclassification need.
func eventFields(ev server.Event) (name string, fields map[string]any, channel, origin string) {
	switch e := ev.(type) {
	case server.ConnectEvent:
		return "onConnect", map[string]any{}, "", ""
	case server.DisconnectEvent:
		return "onDisconnect", map[string]any{}, "", ""
	case server.DiedEvent:
		return "", nil, "", ""
	case server.MessageEvent:
		return "onMessage", map[string]any{"origin": e.Origin, "channel": e.Channel, "message": e.Message}, e.Channel, e.Origin
	case server.NoticeEvent:
		return "onNotice", map[string]any{"origin": e.Origin, "channel": e.Channel, "message": e.Message}, e.Channel, e.Origin
	case server.CTCPActionEvent:
		return "onMe", map[string]any{"origin": e.Origin, "channel": e.Channel, "message": e.Message}, e.Channel, e.Origin
	case server.JoinEvent:
		return "onJoin", map[string]any{"origin": e.Origin, "channel": e.Channel}, e.Channel, e.Origin
	case server.PartEvent:
		return "onPart", map[string]any{"origin": e.Origin, "channel": e.Channel, "reason": e.Reason}, e.Channel, e.Origin
	case server.KickEvent:
		return "onKick", map[string]any{"origin": e.Origin, "channel": e.Channel, "target": e.Target, "reason": e.Reason}, e.Channel, e.Origin
	case server.NickEvent:
		return "onNick", map[string]any{"origin": e.Origin, "nickname": e.Nickname}, "", e.Origin
	case server.TopicEvent:
		return "onTopic", map[string]any{"origin": e.Origin, "channel": e.Channel, "topic": e.Topic}, e.Channel, e.Origin
	case server.ModeEvent:
		return "onChannelMode", map[string]any{"origin": e.Origin, "channel": e.Channel, "mode": e.Mode, "args": e.Args}, e.Channel, e.Origin
	case server.InviteEvent:
		return "onInvite", map[string]any{"origin": e.Origin, "channel": e.Channel, "target": e.Target}, e.Channel, e.Origin
	case server.NamesEvent:
		return "onNames", map[string]any{"channel": e.Channel, "names": e.Names}, e.Channel, ""
	case server.WhoisEvent:
		return "onWhois", map[string]any{"nickname": e.Nickname, "username": e.Username, "host": e.Host, "channels": e.Channels}, "", ""
	default:
		return "", nil, "", ""
	}
}

// dispatchToPlugin applies the rule engine's verdict for one plugin and,
// if accepted, invokes its matching optional callback, reclassifying a
// channel message beginning with command_char+pluginName into an
// on_command invocation for that plugin only.
func (d *Daemon) dispatchToPlugin(pluginName string, p plugin.Plugin, eventName, channel, origin string, ev server.Event, srv *server.Server) {
	effective := eventName
	var strippedCommand string
	var msg server.MessageEvent
	isCommand := false

	if m, ok := ev.(server.MessageEvent); ok {
		commandChar := srv.Settings.CommandChar
		if commandChar == "" {
			commandChar = "!"
		}
		prefix := commandChar + pluginName
		if strings.HasPrefix(m.Message, prefix) {
			effective = "onCommand"
			strippedCommand = strings.TrimSpace(strings.TrimPrefix(m.Message, prefix))
			msg = m
			isCommand = true
		}
	}

	verdict := d.rules.Resolve(rule.Tuple{
		Server:  srv.Name,
		Channel: channel,
		Origin:  origin,
		Plugin:  pluginName,
		Event:   effective,
	})
	if verdict == rule.Drop {
		return
	}

	if isCommand {
		if h, ok := p.(plugin.OnCommandHandler); ok {
			h.OnCommand(msg.Origin, msg.Channel, strippedCommand, srv)
		}
		return
	}

	invokeCallback(p, eventName, ev, srv)
}

func invokeCallback(p plugin.Plugin, eventName string, ev server.Event, srv *server.Server) {
	switch eventName {
	case "onConnect":
		if h, ok := p.(plugin.OnConnectHandler); ok {
			h.OnConnect(srv)
		}
	case "onMessage":
		e := ev.(server.MessageEvent)
		if h, ok := p.(plugin.OnMessageHandler); ok {
			h.OnMessage(e.Origin, e.Channel, e.Message, srv)
		}
	case "onNotice":
		e := ev.(server.NoticeEvent)
		if h, ok := p.(plugin.OnNoticeHandler); ok {
			h.OnNotice(e.Origin, e.Channel, e.Message, srv)
		}
	case "onMe":
		e := ev.(server.CTCPActionEvent)
		if h, ok := p.(plugin.OnMeHandler); ok {
			h.OnMe(e.Origin, e.Channel, e.Message, srv)
		}
	case "onJoin":
		e := ev.(server.JoinEvent)
		if h, ok := p.(plugin.OnJoinHandler); ok {
			h.OnJoin(e.Origin, e.Channel, srv)
		}
	case "onPart":
		e := ev.(server.PartEvent)
		if h, ok := p.(plugin.OnPartHandler); ok {
			h.OnPart(e.Origin, e.Channel, e.Reason, srv)
		}
	case "onKick":
		e := ev.(server.KickEvent)
		if h, ok := p.(plugin.OnKickHandler); ok {
			h.OnKick(e.Origin, e.Channel, e.Target, e.Reason, srv)
		}
	case "onNick":
		e := ev.(server.NickEvent)
		if h, ok := p.(plugin.OnNickHandler); ok {
			h.OnNick(e.Origin, e.Nickname, srv)
		}
	case "onTopic":
		e := ev.(server.TopicEvent)
		if h, ok := p.(plugin.OnTopicHandler); ok {
			h.OnTopic(e.Origin, e.Channel, e.Topic, srv)
		}
	case "onChannelMode":
		e := ev.(server.ModeEvent)
		if h, ok := p.(plugin.OnChannelModeHandler); ok {
			h.OnChannelMode(e.Origin, e.Channel, e.Mode, e.Args, srv)
		}
	case "onInvite":
		e := ev.(server.InviteEvent)
		if h, ok := p.(plugin.OnInviteHandler); ok {
			h.OnInvite(e.Origin, e.Channel, e.Target, srv)
		}
	case "onNames":
		e := ev.(server.NamesEvent)
		if h, ok := p.(plugin.OnNamesHandler); ok {
			h.OnNames(e.Channel, e.Names, srv)
		}
	case "onWhois":
		if h, ok := p.(plugin.OnWhoisHandler); ok {
			h.OnWhois(srv.Info(), srv)
		}
	}
}
