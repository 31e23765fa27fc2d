// Package server implements irccd's per-network connection state machine:
// connect/reconnect policy, a ping watchdog, a deferred outbound command
// queue, and translation of raw IRC protocol events into the typed events
// the dispatcher posts to plugins and broadcasts to transport clients.
//
// The source multiplexes every server's socket through one select() call
// driven by prepare/sync. Go's idiomatic equivalent is a reader goroutine
// per server feeding a shared channel that the dispatcher drains; Tick
// reproduces the "at most one state transition per loop iteration" and
// "ping watchdog" behavior that prepare/sync provided in the original.
package server

import (
	"container/list"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	cmap "github.com/orcaman/concurrent-map"

	"github.com/irccd-go/irccd/internal/ircmsg"
)

// Flags is a bitset of boolean server options.
type Flags uint8

const (
	FlagIPv6 Flags = 1 << iota
	FlagTLS
	FlagTLSVerify
	FlagAutoRejoinOnKick
	FlagJoinOnInvite
)

func (f Flags) Has(flag Flags) bool { return f&flag != 0 }

// Channel is an auto-join target, with an optional join password.
type Channel struct {
	Name     string
	Password string
}

// Identity groups the nickname-related fields that are kept in sync with
// what the server acknowledges for us.
type Identity struct {
	Nickname    string
	Username    string
	Realname    string
	CTCPVersion string
}

// Settings are the reconnection/timeout/prefix knobs from spec.md's
// "Server settings" data model.
type Settings struct {
	// ReconnectTries: -1 = infinite, 0 = never. Preserved verbatim from
	// the source; this asymmetry is deliberate, not normalized away.
	ReconnectTries int32
	ReconnectDelay uint16 // seconds
	PingTimeout    uint16 // seconds
	CommandChar    string
}

// Config is everything needed to construct a Server.
type Config struct {
	Name     string
	Host     string
	Port     uint16
	Password string
	Flags    Flags
	Identity Identity
	AutoJoin []Channel
	Settings Settings
	Dialer   *net.Dialer
	TLS      *tls.Config
	Log      hclog.Logger
}

// Event is implemented by every typed event a Server can produce. Server is
// included on every event so plugins may retain a reference across
// suspensions, per spec.md's ownership model.
type Event interface {
	eventServer() *Server
}

type baseEvent struct {
	Server *Server
}

func (b baseEvent) eventServer() *Server { return b.Server }

// whoisAccumulator collects a WHOIS reply across multiple numerics before
// the dispatcher emits one Whois event.
type whoisAccumulator struct {
	Nick     string
	User     string
	Host     string
	Realname string
	Channels []string
}

// Server is the per-network connection state machine described by
// spec.md §4.2, implemented as a sum-type state (state.go) driven by Tick.
type Server struct {
	Config

	log hclog.Logger

	mu        sync.Mutex
	state     connState
	nextState *connState

	conn         net.Conn
	connecting   bool
	connectStart time.Time

	lastActivity    time.Time
	disconnectAt    time.Time
	attempts        int32
	joined          map[string]bool
	serverOptions   map[string]string
	modes           ircmsg.CModes
	modesSeen       bool
	currentNickname string

	createdAt time.Time

	deferred *list.List // of *ircmsg.Event, each awaiting a send that may would-block

	names cmap.ConcurrentMap // channel -> []string (in-progress NAMES)
	whois cmap.ConcurrentMap // nick -> *whoisAccumulator

	events chan<- Event
	lineCh chan string
	died   bool
}

// New constructs a Server in the Disconnected state. events is the shared
// channel the dispatcher drains; the Server never blocks writing to it
// longer than the dispatcher takes to receive (the channel should be sized
// by the caller to avoid a single slow server stalling others, mirroring
// spec.md's "must never block on a misbehaving plugin or peer" for the
// reverse direction).
func New(cfg Config, events chan<- Event) *Server {
	if cfg.Log == nil {
		cfg.Log = hclog.NewNullLogger()
	}

	return &Server{
		Config:          cfg,
		log:             cfg.Log.Named("server." + cfg.Name),
		state:           stateDisconnected,
		joined:          make(map[string]bool),
		serverOptions:   make(map[string]string),
		modes:           ircmsg.NewCModes(ircmsg.ModeDefaults, ircmsg.DefaultPrefixes),
		currentNickname: cfg.Identity.Nickname,
		deferred:        list.New(),
		names:           cmap.New(),
		whois:           cmap.New(),
		events:          events,
	}
}

// Info is the read-only snapshot returned by the server-info command,
// supplementing spec.md's data model with the fields
// original_source/lib/irccd/server.hpp tracks for introspection.
type Info struct {
	Name           string
	Host           string
	Port           uint16
	TLS            bool
	TLSVerify      bool
	Nickname       string
	Username       string
	Realname       string
	CTCPVersion    string
	CommandChar    string
	ReconnectTries int32
	ReconnectDelay uint16
	PingTimeout    uint16
	Channels       []string
	State          string
	CreatedAt      time.Time
}

// Info returns a snapshot of the server's current configuration and
// runtime state.
func (srv *Server) Info() Info {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	channels := make([]string, 0, len(srv.joined))
	for ch := range srv.joined {
		channels = append(channels, ch)
	}

	return Info{
		Name:           srv.Name,
		Host:           srv.Host,
		Port:           srv.Port,
		TLS:            srv.Flags.Has(FlagTLS),
		TLSVerify:      srv.Flags.Has(FlagTLSVerify),
		Nickname:       srv.currentNickname,
		Username:       srv.Identity.Username,
		Realname:       srv.Identity.Realname,
		CTCPVersion:    srv.Identity.CTCPVersion,
		CommandChar:    srv.Settings.CommandChar,
		ReconnectTries: srv.Settings.ReconnectTries,
		ReconnectDelay: srv.Settings.ReconnectDelay,
		PingTimeout:    srv.Settings.PingTimeout,
		Channels:       channels,
		State:          srv.state.String(),
		CreatedAt:      srv.createdAt,
	}
}

// IsMe reports whether source names this server's current identity.
// Comparison is RFC1459 case-folded, resolving spec.md §4.2's "compares
// against the cached nickname case-sensitively" in the direction the
// original source's string_util::eq helper actually takes (case-folded,
// not byte-exact).
func (srv *Server) IsMe(nick string) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return ircmsg.ToRFC1459(nick) == ircmsg.ToRFC1459(srv.currentNickname)
}

// onEnterDisconnected marks the server died once retry policy is exhausted;
// otherwise it records the time so Tick can honor ReconnectDelay. The
// caller (Update) is responsible for emitting DiedEvent after releasing
// srv.mu, since emit may block on the dispatcher's event channel.
func (srv *Server) onEnterDisconnected() (died bool) {
	if srv.conn != nil {
		srv.conn.Close()
		srv.conn = nil
	}

	srv.disconnectAt = time.Now()

	if srv.Settings.ReconnectTries == 0 || (srv.Settings.ReconnectTries > 0 && srv.attempts >= srv.Settings.ReconnectTries) {
		srv.died = true
		srv.log.Info("server died", "attempts", srv.attempts)
		return true
	}

	return false
}

func (srv *Server) onEnterConnecting() {
	srv.connecting = false
	srv.connectStart = time.Now()
}

func (srv *Server) onEnterConnected() {
	srv.attempts = 0
	srv.lastActivity = time.Now()
}

// Died reports whether the server has permanently given up reconnecting
// and should be removed by the daemon.
func (srv *Server) Died() bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.died
}

// Tick drives the per-state checks spec.md's prepare() describes: retry
// policy while Disconnected, connect-timeout while Connecting, and the
// ping watchdog while Connected. The dispatcher calls Tick once per loop
// iteration, after Update.
func (srv *Server) Tick(now time.Time) {
	srv.mu.Lock()
	state := srv.state
	srv.mu.Unlock()

	switch state {
	case stateDisconnected:
		srv.tickDisconnected(now)
	case stateConnecting:
		srv.tickConnecting(now)
	case stateConnected:
		srv.tickConnected(now)
	}
}

func (srv *Server) tickDisconnected(now time.Time) {
	if srv.Died() {
		return
	}

	if now.Sub(srv.disconnectAt) < time.Duration(srv.Settings.ReconnectDelay)*time.Second {
		return
	}

	srv.mu.Lock()
	srv.attempts++
	srv.mu.Unlock()

	srv.stage(stateConnecting)
	go srv.dial()
}

func (srv *Server) tickConnecting(now time.Time) {
	srv.mu.Lock()
	alreadyConnecting := srv.connecting
	srv.connecting = true
	elapsed := now.Sub(srv.connectStart)
	srv.mu.Unlock()

	if alreadyConnecting && elapsed >= time.Duration(srv.Settings.ReconnectDelay)*time.Second {
		srv.stage(stateDisconnected)
	}
}

func (srv *Server) tickConnected(now time.Time) {
	srv.mu.Lock()
	idle := now.Sub(srv.lastActivity)
	srv.mu.Unlock()

	if idle >= time.Duration(srv.Settings.PingTimeout)*time.Second {
		srv.log.Info("ping timeout", "idle", idle)
		srv.stage(stateDisconnected)
	}
}

// dial performs the non-blocking-equivalent connect: it runs on its own
// goroutine so Tick never blocks the dispatcher, and reports the outcome
// back onto the state machine exactly once.
func (srv *Server) dial() {
	dialer := srv.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: time.Duration(srv.Settings.ReconnectDelay) * time.Second}
	}

	addr := fmt.Sprintf("%s:%d", srv.Host, srv.Port)
	network := "tcp4"
	if srv.Flags.Has(FlagIPv6) {
		network = "tcp6"
	}

	var conn net.Conn
	var err error

	if srv.Flags.Has(FlagTLS) {
		tlsConf := srv.TLS
		if tlsConf == nil {
			tlsConf = &tls.Config{ServerName: srv.Host, InsecureSkipVerify: !srv.Flags.Has(FlagTLSVerify)} //nolint:gosec
		}
		conn, err = tls.DialWithDialer(dialer, network, addr, tlsConf)
	} else {
		conn, err = dialer.Dial(network, addr)
	}

	if err != nil {
		srv.log.Warn("connect failed", "error", err)
		srv.stage(stateDisconnected)
		return
	}

	srv.onConnected(conn)
}

// onConnected wires up the reader goroutine and fires the on_connect
// callback handling rules from spec.md §4.2: reset attempt counter, reset
// ping timer, stage Connected, enqueue JOIN for every auto-join channel.
func (srv *Server) onConnected(conn net.Conn) {
	srv.mu.Lock()
	srv.conn = conn
	srv.lastActivity = time.Now()
	srv.mu.Unlock()

	srv.stage(stateConnected)
	srv.register()

	for _, ch := range srv.AutoJoin {
		if ch.Password != "" {
			srv.JoinKey(ch.Name, ch.Password)
		} else {
			srv.Join(ch.Name)
		}
	}

	srv.emit(ConnectEvent{baseEvent: baseEvent{Server: srv}})

	go srv.readLoop(conn)
}

// register sends the initial PASS/NICK/USER sequence.
func (srv *Server) register() {
	if srv.Password != "" {
		srv.sendNow(&ircmsg.Event{Command: ircmsg.PASS, Params: []string{srv.Password}, Sensitive: true})
	}
	srv.sendNow(&ircmsg.Event{Command: ircmsg.NICK, Params: []string{srv.currentNickname}})
	srv.sendNow(&ircmsg.Event{Command: ircmsg.USER, Params: []string{srv.Identity.Username, "0", "*"}, Trailing: srv.Identity.Realname})
}

// emit hands a typed event to the dispatcher's shared channel. The send
// blocks until the channel has buffer room or the dispatcher receives;
// events are never dropped.
func (srv *Server) emit(ev Event) {
	srv.events <- ev
}
