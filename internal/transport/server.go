package transport

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// Server owns one listening endpoint and the clients accepted from it,
// standing in for one of spec.md §4.4's transport_server instances. The
// daemon runs one Server per configured listening endpoint.
type Server struct {
	ln       net.Listener
	password string
	banner   Banner
	log      hclog.Logger

	nextID  uint64
	mu      sync.Mutex
	clients map[uint64]*Client

	frames chan Frame
	quit   chan struct{}
}

// NewServer wraps an already-listening net.Listener. password, if
// non-empty, is required of every accepted client's first command.
// frames is the shared channel the dispatcher drains; every Server on
// the daemon feeds the same channel.
func NewServer(ln net.Listener, password string, frames chan Frame, log hclog.Logger) *Server {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Server{
		ln:       ln,
		password: password,
		banner:   NewBanner(true),
		log:      log,
		clients:  make(map[uint64]*Client),
		frames:   frames,
		quit:     make(chan struct{}),
	}
}

// Run accepts connections until Close is called. It is meant to run on
// its own goroutine, posting accepted clients' frames to the shared
// channel rather than blocking the dispatcher on Accept.
func (s *Server) Run() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Warn("accept failed", "error", err)
				return
			}
		}

		s.accept(conn)
	}
}

func (s *Server) accept(conn net.Conn) {
	id := atomic.AddUint64(&s.nextID, 1)
	client := newClient(id, conn, s.password, s.log)

	s.mu.Lock()
	s.clients[id] = client
	s.mu.Unlock()

	client.Send(s.banner)

	go client.writeLoop()
	go func() {
		client.readLoop(s.frames)
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
	}()
}

// Broadcast sends an event frame to every client that has completed
// authentication, per spec.md §6.1's broadcast envelope. Broadcasts are
// never acknowledged.
func (s *Server) Broadcast(event string, serverID string, fields map[string]any) {
	payload := map[string]any{"event": event, "server": serverID}
	for k, v := range fields {
		payload[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if c.Ready() {
			c.Send(payload)
		}
	}
}

// Close stops accepting connections and disconnects every client.
func (s *Server) Close() error {
	close(s.quit)
	err := s.ln.Close()

	s.mu.Lock()
	for _, c := range s.clients {
		c.close()
	}
	s.clients = make(map[uint64]*Client)
	s.mu.Unlock()

	return err
}
