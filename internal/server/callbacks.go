package server

import (
	"bufio"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/irccd-go/irccd/internal/ircmsg"
)

// readLoop is the reader goroutine standing in for the codec's recv side
// of prepare/sync: it blocks on the socket so the dispatcher never has to,
// parsing one ircmsg.Event per line and routing it through handleEvent.
// Any read error or clean close is "recv returning 0 bytes" from spec.md
// §3's invariants and stages Disconnected.
func (srv *Server) readLoop(conn Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		ev := ircmsg.ParseEvent(line)
		if ev == nil {
			continue
		}

		srv.mu.Lock()
		srv.lastActivity = time.Now()
		srv.mu.Unlock()

		func() {
			defer func() {
				if r := recover(); r != nil {
					srv.log.Error("panic handling event", "command", ev.Command, "recover", r)
				}
			}()
			srv.handleEvent(ev)
		}()
	}

	srv.stage(stateDisconnected)
	srv.emit(DisconnectEvent{baseEvent{Server: srv}})
}

// Conn is the subset of net.Conn the reader/writer goroutines need; kept
// as an interface so tests can substitute an in-memory pipe.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// handleEvent implements spec.md §4.2's callback handling rules: each raw
// IRC command is translated into zero or one typed Event, with the
// side-effects (ping timer reset, queued PONG, auto-rejoin, NAMES/WHOIS
// aggregation, ISUPPORT parsing) listed there.
func (srv *Server) handleEvent(ev *ircmsg.Event) {
	switch ev.Command {
	case ircmsg.PING:
		srv.mu.Lock()
		srv.lastActivity = time.Now()
		srv.mu.Unlock()
		token := ""
		if len(ev.Params) > 0 {
			token = ev.Params[0]
		}
		srv.enqueue(&ircmsg.Event{Command: ircmsg.PONG, Params: []string{token}})

	case ircmsg.PRIVMSG:
		srv.handlePrivmsg(ev)

	case ircmsg.NOTICE:
		srv.handleNotice(ev)

	case ircmsg.JOIN:
		srv.handleJoin(ev)

	case ircmsg.PART:
		srv.handlePart(ev)

	case ircmsg.KICK:
		srv.handleKick(ev)

	case ircmsg.NICK:
		srv.handleNick(ev)

	case ircmsg.TOPIC:
		if len(ev.Params) > 0 {
			srv.emit(TopicEvent{baseEvent{srv}, originName(ev), ev.Params[0], ev.Trailing})
		}

	case ircmsg.MODE:
		srv.handleMode(ev)

	case ircmsg.INVITE:
		srv.handleInvite(ev)

	case ircmsg.RPL_ISUPPORT:
		srv.handleISupport(ev)

	case ircmsg.RPL_NAMREPLY:
		srv.handleNamesReply(ev)

	case ircmsg.RPL_ENDOFNAMES:
		srv.handleEndOfNames(ev)

	case ircmsg.RPL_WHOISUSER:
		srv.handleWhoisUser(ev)

	case ircmsg.RPL_WHOISCHANNELS:
		srv.handleWhoisChannels(ev)

	case ircmsg.RPL_ENDOFWHOIS:
		srv.handleEndOfWhois(ev)

	case ircmsg.RPL_CREATED:
		srv.handleCreated(ev)
	}
}

func originName(ev *ircmsg.Event) string {
	if ev.Source == nil {
		return ""
	}
	return ev.Source.Name
}

func (srv *Server) handlePrivmsg(ev *ircmsg.Event) {
	if len(ev.Params) == 0 {
		return
	}

	origin := originName(ev)
	target := ev.Params[0]

	if ctcp := ircmsg.DecodeCTCP(ev); ctcp != nil {
		if ctcp.Command == "ACTION" {
			srv.emit(CTCPActionEvent{baseEvent{srv}, origin, channelOrEmpty(target), ctcp.Text})
		}
		return
	}

	srv.emit(MessageEvent{baseEvent{srv}, origin, channelOrEmpty(target), ev.Trailing})
}

func (srv *Server) handleNotice(ev *ircmsg.Event) {
	if len(ev.Params) == 0 {
		return
	}
	srv.emit(NoticeEvent{baseEvent{srv}, originName(ev), channelOrEmpty(ev.Params[0]), ev.Trailing})
}

func channelOrEmpty(target string) string {
	if ircmsg.IsValidChannel(target) {
		return target
	}
	return ""
}

func (srv *Server) handleJoin(ev *ircmsg.Event) {
	var channel string
	if len(ev.Params) > 0 {
		channel = ev.Params[0]
	} else {
		channel = ev.Trailing
	}

	if srv.IsMe(originName(ev)) {
		srv.mu.Lock()
		srv.joined[channel] = true
		srv.mu.Unlock()
	}

	srv.emit(JoinEvent{baseEvent{srv}, originName(ev), channel})
}

func (srv *Server) handlePart(ev *ircmsg.Event) {
	if len(ev.Params) == 0 {
		return
	}
	channel := ev.Params[0]

	if srv.IsMe(originName(ev)) {
		srv.mu.Lock()
		delete(srv.joined, channel)
		srv.mu.Unlock()
	}

	srv.emit(PartEvent{baseEvent{srv}, originName(ev), channel, ev.Trailing})
}

func (srv *Server) handleKick(ev *ircmsg.Event) {
	if len(ev.Params) < 2 {
		return
	}
	channel, target := ev.Params[0], ev.Params[1]

	if srv.IsMe(target) {
		srv.mu.Lock()
		delete(srv.joined, channel)
		rejoin := srv.Flags.Has(FlagAutoRejoinOnKick)
		srv.mu.Unlock()

		if rejoin {
			srv.Join(channel)
		}
	}

	srv.emit(KickEvent{baseEvent{srv}, originName(ev), channel, target, ev.Trailing})
}

func (srv *Server) handleNick(ev *ircmsg.Event) {
	var newNick string
	if len(ev.Params) > 0 {
		newNick = ev.Params[0]
	} else {
		newNick = ev.Trailing
	}

	if srv.IsMe(originName(ev)) {
		srv.mu.Lock()
		srv.currentNickname = newNick
		srv.mu.Unlock()
	}

	srv.emit(NickEvent{baseEvent{srv}, originName(ev), newNick})
}

func (srv *Server) handleMode(ev *ircmsg.Event) {
	params := ev.Params
	if ev.Command == ircmsg.RPL_CHANNELMODEIS && len(params) > 2 {
		params = params[1:]
	}

	if len(params) < 2 || !ircmsg.IsValidChannel(params[0]) {
		return
	}

	flags := params[1]
	var args []string
	if len(params) > 2 {
		args = append(args, params[2:]...)
	}

	srv.mu.Lock()
	parsed := ircmsg.ApplyMode(&srv.modes, flags, args)
	srv.mu.Unlock()

	for _, m := range parsed {
		srv.emit(ModeEvent{baseEvent{srv}, originName(ev), params[0], m.Short(), args})
	}
}

func (srv *Server) handleInvite(ev *ircmsg.Event) {
	if len(ev.Params) < 2 {
		return
	}
	target, channel := ev.Params[0], ev.Params[1]

	if srv.IsMe(target) {
		srv.mu.Lock()
		join := srv.Flags.Has(FlagJoinOnInvite)
		srv.mu.Unlock()

		if join {
			srv.Join(channel)
		}
	}

	srv.emit(InviteEvent{baseEvent{srv}, originName(ev), channel, target})
}

// handleISupport parses RPL_ISUPPORT (numeric 5), recording the
// PREFIX=(modes)symbols token per spec.md §4.2.
func (srv *Server) handleISupport(ev *ircmsg.Event) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	for _, token := range ev.Params {
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			continue
		}
		srv.serverOptions[kv[0]] = kv[1]

		if kv[0] == "PREFIX" {
			modes, _ := ircmsg.ParsePrefixes(kv[1])
			if modes != "" {
				srv.modes = ircmsg.NewCModes(ircmsg.ChanModes(srv.serverOptions), modes)
			}
		}
	}
}

// handleNamesReply appends cleaned nicknames to the in-progress NAMES
// aggregation for the channel, stripping any status prefix recorded from
// ISUPPORT PREFIX.
func (srv *Server) handleNamesReply(ev *ircmsg.Event) {
	if len(ev.Params) < 3 {
		return
	}
	channel := ev.Params[len(ev.Params)-1]

	srv.mu.Lock()
	_, prefixes := ircmsg.ParsePrefixes(ircmsg.UserPrefixes(srv.serverOptions))
	srv.mu.Unlock()

	var existing []string
	if v, ok := srv.names.Get(channel); ok {
		existing = v.([]string)
	}

	for _, nick := range strings.Fields(ev.Trailing) {
		existing = append(existing, strings.TrimLeft(nick, prefixes))
	}

	srv.names.Set(channel, existing)
}

func (srv *Server) handleEndOfNames(ev *ircmsg.Event) {
	if len(ev.Params) < 2 {
		return
	}
	channel := ev.Params[len(ev.Params)-1]

	var names []string
	if v, ok := srv.names.Get(channel); ok {
		names = v.([]string)
	}
	srv.names.Remove(channel)

	srv.emit(NamesEvent{baseEvent{srv}, channel, names})
}

func (srv *Server) handleWhoisUser(ev *ircmsg.Event) {
	if len(ev.Params) < 4 {
		return
	}
	nick := ev.Params[1]
	acc := &whoisAccumulator{Nick: nick, User: ev.Params[2], Host: ev.Params[3], Realname: ev.Trailing}
	srv.whois.Set(nick, acc)
}

func (srv *Server) handleWhoisChannels(ev *ircmsg.Event) {
	if len(ev.Params) < 2 {
		return
	}
	nick := ev.Params[1]

	v, ok := srv.whois.Get(nick)
	if !ok {
		return
	}
	acc := v.(*whoisAccumulator)
	acc.Channels = append(acc.Channels, strings.Fields(ev.Trailing)...)
}

func (srv *Server) handleEndOfWhois(ev *ircmsg.Event) {
	if len(ev.Params) < 2 {
		return
	}
	nick := ev.Params[1]

	v, ok := srv.whois.Get(nick)
	if !ok {
		return
	}
	acc := v.(*whoisAccumulator)
	srv.whois.Remove(nick)

	srv.emit(WhoisEvent{baseEvent{srv}, acc.Nick, acc.User, acc.Host, acc.Realname, acc.Channels})
}

// handleCreated parses the RPL_CREATED (003) numeric's free-form date
// text, the way lrstanley-girc's builtin.go handleCREATED does.
func (srv *Server) handleCreated(ev *ircmsg.Event) {
	t, err := dateparse.ParseAny(ev.Trailing)
	if err != nil {
		return
	}

	srv.mu.Lock()
	srv.createdAt = t
	srv.mu.Unlock()
}
