package transport

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
)

// outboundState is the sum type behind the CLI's symmetric state machine:
// Disconnected -> Connecting -> Checking -> Authenticating -> Ready.
type outboundState int

const (
	outboundDisconnected outboundState = iota
	outboundConnecting
	outboundChecking
	outboundAuthenticating
	outboundReady
)

func (s outboundState) String() string {
	switch s {
	case outboundDisconnected:
		return "disconnected"
	case outboundConnecting:
		return "connecting"
	case outboundChecking:
		return "checking"
	case outboundAuthenticating:
		return "authenticating"
	case outboundReady:
		return "ready"
	default:
		return "unknown"
	}
}

// OutboundClient drives the control-client side of the handshake:
// connect, verify the banner, optionally authenticate, then exchange
// command/response frames. Used by irccdctl.
type OutboundClient struct {
	conn    net.Conn
	reader  *bufio.Reader
	scanner *bufio.Scanner
	state   outboundState
	banner  Banner
}

// Dial connects to addr (network "tcp" or "unix"), verifies the server's
// handshake banner, and authenticates with password if non-empty,
// finishing in the Ready state or returning an error.
func Dial(network, addr string, tlsConfig *tls.Config, password string) (*OutboundClient, error) {
	c := &OutboundClient{state: outboundConnecting}

	var conn net.Conn
	var err error
	if tlsConfig != nil {
		conn, err = tls.Dial(network, addr, tlsConfig)
	} else {
		conn, err = net.Dial(network, addr)
	}
	if err != nil {
		c.state = outboundDisconnected
		return nil, fmt.Errorf("connect: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.scanner = newFrameScanner(c.reader)
	c.state = outboundChecking

	if err := c.readBanner(); err != nil {
		conn.Close()
		c.state = outboundDisconnected
		return nil, err
	}

	if password != "" {
		c.state = outboundAuthenticating
		if err := c.authenticate(password); err != nil {
			conn.Close()
			c.state = outboundDisconnected
			return nil, err
		}
	}

	c.state = outboundReady
	return c, nil
}

func (c *OutboundClient) readBanner() error {
	if !c.scanner.Scan() {
		return &ProtocolError{Reason: "connection closed before banner"}
	}

	var peer Banner
	if err := json.Unmarshal(c.scanner.Bytes(), &peer); err != nil {
		return &ProtocolError{Reason: "malformed banner: " + err.Error()}
	}

	ours := NewBanner(true)
	if err := ours.Verify(peer); err != nil {
		return err
	}

	c.banner = peer
	return nil
}

func (c *OutboundClient) authenticate(password string) error {
	data, err := encodeFrame(AuthRequest{Command: "auth", Password: password})
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return err
	}

	if !c.scanner.Scan() {
		return &ProtocolError{Reason: "connection closed during auth"}
	}

	var resp AuthResponse
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return &ProtocolError{Reason: "malformed auth response: " + err.Error()}
	}
	if !resp.Result {
		return &ProtocolError{Reason: "authentication refused"}
	}
	return nil
}

// Banner returns the verified server handshake banner.
func (c *OutboundClient) Banner() Banner { return c.banner }

// State reports the client's current state machine position.
func (c *OutboundClient) State() string { return c.state.String() }

// Command sends a request frame and waits for the matching response,
// decoded as a plain map so command-specific fields (server-list's
// names, server-info's details, plugin-info's metadata, ...) survive
// alongside the response/status/error envelope keys.
func (c *OutboundClient) Command(req any) (map[string]any, error) {
	if c.state != outboundReady {
		return nil, &ProtocolError{Reason: "client not ready: " + c.state.String()}
	}

	data, err := encodeFrame(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(data); err != nil {
		return nil, err
	}

	if !c.scanner.Scan() {
		return nil, &ProtocolError{Reason: "connection closed awaiting response"}
	}

	var resp map[string]any
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return nil, &ProtocolError{Reason: "malformed response: " + err.Error()}
	}
	return resp, nil
}

// Close disconnects from the daemon.
func (c *OutboundClient) Close() error {
	c.state = outboundDisconnected
	return c.conn.Close()
}
