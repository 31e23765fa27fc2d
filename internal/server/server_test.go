package server

import (
	"testing"

	"github.com/irccd-go/irccd/internal/ircmsg"
)

func newTestServer() *Server {
	events := make(chan Event, 64)
	return New(Config{
		Name:     "freenode",
		Host:     "irc.example",
		Port:     6667,
		Identity: Identity{Nickname: "bot"},
		Settings: Settings{ReconnectTries: -1, ReconnectDelay: 5, PingTimeout: 60},
	}, events)
}

func TestNewServerStartsDisconnected(t *testing.T) {
	srv := newTestServer()
	if got := srv.State(); got != "disconnected" {
		t.Fatalf("expected disconnected, got %s", got)
	}
}

func TestJoinRejectsInvalidChannel(t *testing.T) {
	srv := newTestServer()
	if err := srv.Join("not-a-channel"); err == nil {
		t.Fatal("expected error joining an invalid channel name")
	}
}

func TestJoinEnqueuesDeferredSend(t *testing.T) {
	srv := newTestServer()
	if err := srv.Join("#general"); err != nil {
		t.Fatal(err)
	}

	if srv.deferred.Len() != 1 {
		t.Fatalf("expected one deferred send, got %d", srv.deferred.Len())
	}

	ev := srv.deferred.Front().Value.(*ircmsg.Event)
	if ev.Command != ircmsg.JOIN || ev.Params[0] != "#general" {
		t.Fatalf("unexpected queued event: %+v", ev)
	}
}

func TestIsMeCaseFolded(t *testing.T) {
	srv := newTestServer()
	if !srv.IsMe("BOT") {
		t.Fatal("expected RFC1459 case-folded identity match")
	}
}

func TestISupportRecordsPrefix(t *testing.T) {
	srv := newTestServer()
	srv.handleISupport(&ircmsg.Event{Command: ircmsg.RPL_ISUPPORT, Params: []string{"PREFIX=(ohv)@%+", "CHANTYPES=#"}})

	if srv.serverOptions["PREFIX"] != "(ohv)@%+" {
		t.Fatalf("expected PREFIX recorded, got %q", srv.serverOptions["PREFIX"])
	}
}

func TestNamesAggregationEmitsOnEndOfNames(t *testing.T) {
	events := make(chan Event, 4)
	srv := New(Config{Name: "x", Identity: Identity{Nickname: "bot"}}, events)

	srv.handleNamesReply(&ircmsg.Event{Command: ircmsg.RPL_NAMREPLY, Params: []string{"bot", "=", "#chan"}, Trailing: "@op voiced +v2"})
	srv.handleEndOfNames(&ircmsg.Event{Command: ircmsg.RPL_ENDOFNAMES, Params: []string{"bot", "#chan"}, Trailing: "End of /NAMES list."})

	select {
	case ev := <-events:
		names, ok := ev.(NamesEvent)
		if !ok {
			t.Fatalf("expected NamesEvent, got %T", ev)
		}
		if names.Channel != "#chan" || len(names.Names) != 3 {
			t.Fatalf("unexpected names event: %+v", names)
		}
	default:
		t.Fatal("expected a NamesEvent to have been emitted")
	}
}

func TestWhoisAggregationEmitsOnEndOfWhois(t *testing.T) {
	events := make(chan Event, 4)
	srv := New(Config{Name: "x", Identity: Identity{Nickname: "bot"}}, events)

	srv.handleWhoisUser(&ircmsg.Event{Command: ircmsg.RPL_WHOISUSER, Params: []string{"bot", "alice", "ident", "host.example"}, Trailing: "Alice"})
	srv.handleWhoisChannels(&ircmsg.Event{Command: ircmsg.RPL_WHOISCHANNELS, Params: []string{"bot", "alice"}, Trailing: "#a #b"})
	srv.handleEndOfWhois(&ircmsg.Event{Command: ircmsg.RPL_ENDOFWHOIS, Params: []string{"bot", "alice"}, Trailing: "End of /WHOIS list."})

	select {
	case ev := <-events:
		whois, ok := ev.(WhoisEvent)
		if !ok {
			t.Fatalf("expected WhoisEvent, got %T", ev)
		}
		if whois.Nickname != "alice" || len(whois.Channels) != 2 {
			t.Fatalf("unexpected whois event: %+v", whois)
		}
	default:
		t.Fatal("expected a WhoisEvent to have been emitted")
	}
}

func TestKickRejoinQueuesExactlyOneJoin(t *testing.T) {
	events := make(chan Event, 4)
	srv := New(Config{Name: "x", Flags: FlagAutoRejoinOnKick, Identity: Identity{Nickname: "bot"}}, events)
	srv.joined["#foo"] = true

	srv.handleKick(&ircmsg.Event{Command: ircmsg.KICK, Source: &ircmsg.Source{Name: "mod"}, Params: []string{"#foo", "bot"}, Trailing: "bye"})

	if srv.deferred.Len() != 1 {
		t.Fatalf("expected exactly one deferred JOIN after kick-rejoin, got %d", srv.deferred.Len())
	}
	ev := srv.deferred.Front().Value.(*ircmsg.Event)
	if ev.Command != ircmsg.JOIN || ev.Params[0] != "#foo" {
		t.Fatalf("expected a JOIN for #foo, got %+v", ev)
	}
}
