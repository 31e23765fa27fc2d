package server

// ConnectEvent fires once a server finishes registration and is ready for
// use (after on_connect in spec.md §4.2).
type ConnectEvent struct{ baseEvent }

// DisconnectEvent fires when a server transitions to Disconnected.
type DisconnectEvent struct{ baseEvent }

// DiedEvent fires once reconnection policy is exhausted. The daemon
// removes a died server when its tick sees Died() report true; the event
// itself is neither broadcast nor passed to plugins.
type DiedEvent struct{ baseEvent }

// MessageEvent is a channel or private PRIVMSG.
type MessageEvent struct {
	baseEvent
	Origin  string
	Channel string // empty for a private message
	Message string
}

// NoticeEvent is a channel or private NOTICE.
type NoticeEvent struct {
	baseEvent
	Origin  string
	Channel string
	Message string
}

// CTCPActionEvent is a PRIVMSG ACTION (/me).
type CTCPActionEvent struct {
	baseEvent
	Origin  string
	Channel string
	Message string
}

// JoinEvent fires when someone (possibly us) joins a channel.
type JoinEvent struct {
	baseEvent
	Origin  string
	Channel string
}

// PartEvent fires when someone leaves a channel.
type PartEvent struct {
	baseEvent
	Origin  string
	Channel string
	Reason  string
}

// KickEvent fires when someone is kicked from a channel.
type KickEvent struct {
	baseEvent
	Origin  string
	Channel string
	Target  string
	Reason  string
}

// NickEvent fires when someone changes nickname.
type NickEvent struct {
	baseEvent
	Origin  string
	Nickname string
}

// TopicEvent fires when a channel topic is changed.
type TopicEvent struct {
	baseEvent
	Origin  string
	Channel string
	Topic   string
}

// ModeEvent fires on a channel or user MODE change.
type ModeEvent struct {
	baseEvent
	Origin  string
	Channel string
	Mode    string
	Args    []string
}

// InviteEvent fires when someone (possibly us) is invited to a channel.
type InviteEvent struct {
	baseEvent
	Origin  string
	Channel string
	Target  string
}

// NamesEvent fires once a NAMES aggregation completes (RPL_ENDOFNAMES).
type NamesEvent struct {
	baseEvent
	Channel string
	Names   []string
}

// WhoisEvent fires once a WHOIS aggregation completes (RPL_ENDOFWHOIS).
type WhoisEvent struct {
	baseEvent
	Nickname string
	Username string
	Host     string
	Realname string
	Channels []string
}
