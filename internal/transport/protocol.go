package transport

import "encoding/json"

// ProtocolMajor/Minor/Patch identify this build's control-protocol version,
// carried in the handshake banner.
const (
	ProtocolMajor = 2
	ProtocolMinor = 2
	ProtocolPatch = 0
)

// Banner is the server-to-client handshake frame, sent once immediately
// after accept.
type Banner struct {
	Program    string `json:"program"`
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	SSL        bool   `json:"ssl"`
	Javascript bool   `json:"javascript"`
}

// NewBanner returns this build's handshake banner. Javascript is always
// false: the scripting host is out of scope.
func NewBanner(tlsCapable bool) Banner {
	return Banner{
		Program:    "irccd",
		Major:      ProtocolMajor,
		Minor:      ProtocolMinor,
		Patch:      ProtocolPatch,
		SSL:        tlsCapable,
		Javascript: false,
	}
}

// Verify checks a peer banner against this build's version, per spec.md
// §4.4's banner-verification rule: same program name, equal major, and the
// client's minor no greater than the server's.
func (b Banner) Verify(peer Banner) error {
	if peer.Program != "irccd" {
		return &ProtocolError{Reason: "unexpected program: " + peer.Program}
	}
	if peer.Major != b.Major {
		return &ProtocolError{Reason: "incompatible major version"}
	}
	if b.Minor > peer.Minor {
		return &ProtocolError{Reason: "server minor version too old"}
	}
	return nil
}

// ProtocolError is a handshake or framing failure that should close the
// connection without retry.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return e.Reason }

// Request is the client-to-server command envelope:
// {"command":"<name>", ...command-specific fields}.
type Request struct {
	Command string          `json:"command"`
	raw     json.RawMessage `json:"-"`
}

// AuthRequest is the first command a client must send when the daemon is
// password-protected.
type AuthRequest struct {
	Command  string `json:"command"`
	Password string `json:"password"`
}

// AuthResponse answers an AuthRequest.
type AuthResponse struct {
	Response string `json:"response"`
	Result   bool   `json:"result"`
}

// Response is the server-to-client reply envelope for a command.
type Response struct {
	Response string `json:"response"`
	Status   bool   `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Broadcast is the server-to-client event envelope, never acknowledged.
type Broadcast struct {
	Event  string `json:"event"`
	Server string `json:"server"`
}
