package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/irccd-go/irccd/internal/ircmsg"
)

// ErrInvalidTarget is returned by command methods given a malformed
// nickname or channel name, grounded on girc's commands.go ErrInvalidTarget.
type ErrInvalidTarget struct {
	Target string
}

func (e *ErrInvalidTarget) Error() string {
	return fmt.Sprintf("invalid target: %q", e.Target)
}

// enqueue appends an event to the deferred FIFO. Command methods never
// block: they only ever append here, per spec.md §4.2.
func (srv *Server) enqueue(ev *ircmsg.Event) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.deferred.PushBack(ev)
}

// Sync drains the deferred FIFO in submission order, stopping at the
// first send that would block so ordering is preserved across dispatcher
// iterations, per spec.md §4.2's invariant on the deferred FIFO.
func (srv *Server) Sync() {
	for {
		srv.mu.Lock()
		front := srv.deferred.Front()
		if front == nil {
			srv.mu.Unlock()
			return
		}
		conn := srv.conn
		srv.mu.Unlock()

		if conn == nil {
			return
		}

		ev := front.Value.(*ircmsg.Event)
		if !srv.writeEvent(conn, ev) {
			return // would-block: retried next iteration, stays at head
		}

		srv.mu.Lock()
		srv.deferred.Remove(front)
		srv.mu.Unlock()
	}
}

// writeEvent writes one event, splitting long PRIVMSGs per spec.md §4.1's
// codec responsibilities. Returns false on a transient would-block
// condition (left at the head of the queue to retry), and stages
// Disconnected on a hard error.
func (srv *Server) writeEvent(conn Conn, ev *ircmsg.Event) bool {
	srv.mu.Lock()
	prefixLen := ircmsg.MaxPrefixLen(10, 18, 63)
	srv.mu.Unlock()

	events := ircmsg.SplitEvent(ev, prefixLen)

	for _, e := range events {
		if !srv.writeRaw(conn, e) {
			return false
		}
	}

	return true
}

func (srv *Server) writeRaw(conn Conn, ev *ircmsg.Event) bool {
	if wd, ok := conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		wd.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}

	data := append(ev.Bytes(), '\r', '\n')
	if _, err := conn.Write(data); err != nil {
		if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
			return false
		}
		srv.log.Warn("write failed", "error", err)
		srv.stage(stateDisconnected)
		return true // drop the message, don't retry forever on a dead conn
	}

	return true
}

// sendNow bypasses the deferred FIFO for the initial registration burst
// (PASS/NICK/USER), where ordering relative to later command-queued
// traffic doesn't matter since nothing else has been queued yet.
func (srv *Server) sendNow(ev *ircmsg.Event) {
	srv.mu.Lock()
	conn := srv.conn
	srv.mu.Unlock()

	if conn == nil {
		return
	}

	srv.writeRaw(conn, ev)
}

// Disconnect closes the connection now and fires the died signal.
func (srv *Server) Disconnect() {
	srv.mu.Lock()
	srv.died = true
	if srv.conn != nil {
		srv.conn.Close()
		srv.conn = nil
	}
	srv.mu.Unlock()
	srv.stage(stateDisconnected)
}

// Reconnect closes the current connection and transitions to Connecting.
func (srv *Server) Reconnect() {
	srv.mu.Lock()
	srv.attempts = 0
	srv.mu.Unlock()
	srv.stage(stateConnecting)
	go srv.dial()
}

// CMode queues a channel mode change.
func (srv *Server) CMode(channel, flags string, args ...string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	params := append([]string{channel, flags}, args...)
	srv.enqueue(&ircmsg.Event{Command: ircmsg.MODE, Params: params})
	return nil
}

// CNotice queues a channel-targeted NOTICE.
func (srv *Server) CNotice(channel, message string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.NOTICE, Params: []string{channel}, Trailing: message})
	return nil
}

// Invite queues an INVITE.
func (srv *Server) Invite(channel, nick string) error {
	if !ircmsg.IsValidChannel(channel) || !ircmsg.IsValidNick(nick) {
		return &ErrInvalidTarget{Target: channel}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.INVITE, Params: []string{nick, channel}})
	return nil
}

// Join queues a JOIN with no password.
func (srv *Server) Join(channel string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.JOIN, Params: []string{channel}})
	return nil
}

// JoinKey queues a JOIN with a channel key.
func (srv *Server) JoinKey(channel, password string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.JOIN, Params: []string{channel, password}})
	return nil
}

// Kick queues a KICK.
func (srv *Server) Kick(channel, nick, reason string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	if !ircmsg.IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.KICK, Params: []string{channel, nick}, Trailing: reason})
	return nil
}

// Me queues a CTCP ACTION (/me) to target.
func (srv *Server) Me(target, message string) error {
	if !ircmsg.IsValidChannel(target) && !ircmsg.IsValidNick(target) {
		return &ErrInvalidTarget{Target: target}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.PRIVMSG, Params: []string{target}, Trailing: ircmsg.EncodeCTCPRaw("ACTION", message)})
	return nil
}

// Message queues a PRIVMSG to target.
func (srv *Server) Message(target, message string) error {
	if !ircmsg.IsValidChannel(target) && !ircmsg.IsValidNick(target) {
		return &ErrInvalidTarget{Target: target}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.PRIVMSG, Params: []string{target}, Trailing: message})
	return nil
}

// Mode queues a user mode change.
func (srv *Server) Mode(flags string) error {
	srv.enqueue(&ircmsg.Event{Command: ircmsg.MODE, Params: []string{srv.currentNickname, flags}})
	return nil
}

// Names queues a NAMES request.
func (srv *Server) Names(channel string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.NAMES, Params: []string{channel}})
	return nil
}

// Nick queues a nickname change.
func (srv *Server) Nick(nickname string) error {
	if !ircmsg.IsValidNick(nickname) {
		return &ErrInvalidTarget{Target: nickname}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.NICK, Params: []string{nickname}})
	return nil
}

// Notice queues a NOTICE to target.
func (srv *Server) Notice(target, message string) error {
	if !ircmsg.IsValidChannel(target) && !ircmsg.IsValidNick(target) {
		return &ErrInvalidTarget{Target: target}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.NOTICE, Params: []string{target}, Trailing: message})
	return nil
}

// Part queues a PART, with an optional reason.
func (srv *Server) Part(channel, reason string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.PART, Params: []string{channel}, Trailing: reason})
	return nil
}

// SendRaw parses and queues a raw protocol line.
func (srv *Server) SendRaw(raw string) error {
	ev := ircmsg.ParseEvent(raw)
	if ev == nil {
		return errors.New("invalid event: " + raw)
	}
	srv.enqueue(ev)
	return nil
}

// Topic queues a TOPIC change.
func (srv *Server) Topic(channel, topic string) error {
	if !ircmsg.IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.TOPIC, Params: []string{channel}, Trailing: topic})
	return nil
}

// Whois queues a WHOIS request.
func (srv *Server) Whois(nick string) error {
	if !ircmsg.IsValidNick(nick) {
		return &ErrInvalidTarget{Target: nick}
	}
	srv.enqueue(&ircmsg.Event{Command: ircmsg.WHOIS, Params: []string{nick}})
	return nil
}
