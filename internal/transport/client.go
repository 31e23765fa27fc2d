package transport

import (
	"bufio"
	"crypto/subtle"
	"encoding/json"
	"net"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Client is one accepted control connection, reinterpreting spec.md
// §4.4's transport_client: instead of prepare/sync against a shared
// fd_set, a reader goroutine blocks on frame boundaries and a writer
// goroutine drains a buffered output channel, each reporting terminal
// conditions back to the owning Server exactly once.
type Client struct {
	ID   uint64
	conn net.Conn
	log  hclog.Logger

	requiresAuth bool
	password     string

	mu            sync.Mutex
	authenticated bool
	closed        bool

	outbound chan []byte
	done     chan struct{}
}

func newClient(id uint64, conn net.Conn, password string, log hclog.Logger) *Client {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Client{
		ID:           id,
		conn:         conn,
		log:          log,
		requiresAuth: password != "",
		password:     password,
		outbound:     make(chan []byte, 64),
		done:         make(chan struct{}),
	}
}

// Ready reports whether the client has passed authentication (or none was
// required) and may receive broadcasts.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.requiresAuth || c.authenticated
}

// Send queues a frame for the write goroutine. Non-blocking: a client
// that can't keep up has frames dropped rather than stalling the
// dispatcher, per spec.md §5's "must never block on a misbehaving peer".
func (c *Client) Send(v any) {
	data, err := encodeFrame(v)
	if err != nil {
		return
	}

	select {
	case c.outbound <- data:
	default:
		c.log.Warn("client outbound queue full, dropping frame", "client", c.ID)
	}
}

// close signals writeLoop to stop once it has flushed whatever was
// already queued, so a final response (e.g. an auth rejection) is not
// lost to a race between the signal and the send.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

// writeLoop drains the outbound channel until the connection is closed,
// flushing any frames still queued at the moment done fires before
// actually closing the socket.
func (c *Client) writeLoop() {
	defer c.conn.Close()

	for {
		select {
		case data := <-c.outbound:
			if _, err := c.conn.Write(data); err != nil {
				c.close()
				return
			}
		case <-c.done:
			for {
				select {
				case data := <-c.outbound:
					c.conn.Write(data)
				default:
					return
				}
			}
		}
	}
}

// Frame is one dispatched command frame from a ready client.
type Frame struct {
	Client  *Client
	Payload json.RawMessage
}

// readLoop consumes frames from conn. Frames before authentication
// completes are only accepted if they parse as {"command":"auth", ...};
// before that point any other frame or a JSON parse failure closes the
// client, as does a read error at any time. Once authenticated, every
// frame is forwarded unparsed.
func (c *Client) readLoop(frames chan<- Frame) {
	defer c.close()

	reader := bufio.NewReader(c.conn)
	scanner := newFrameScanner(reader)

	for scanner.Scan() {
		payload := append([]byte(nil), scanner.Bytes()...)

		c.mu.Lock()
		needsAuth := c.requiresAuth && !c.authenticated
		c.mu.Unlock()

		if needsAuth {
			if !c.handleAuth(payload) {
				return
			}
			continue
		}

		select {
		case frames <- Frame{Client: c, Payload: payload}:
		case <-c.done:
			return
		}
	}
}

func (c *Client) handleAuth(payload []byte) bool {
	var req AuthRequest
	if err := json.Unmarshal(payload, &req); err != nil || req.Command != "auth" {
		c.Send(Response{Response: "auth", Status: false, Error: "expected auth command"})
		return false
	}

	ok := subtle.ConstantTimeCompare([]byte(req.Password), []byte(c.password)) == 1

	c.mu.Lock()
	c.authenticated = ok
	c.mu.Unlock()

	c.Send(AuthResponse{Response: "auth", Result: ok})
	return ok
}
