package server

// connState is the sum-type encoding of the server's connection state
// machine, mirroring the Disconnected -> Connecting -> Connected cycle.
// Encoding it as a tagged integer that Tick and Update switch on (rather
// than a polymorphic Disconnected/Connecting/Connected class per state)
// keeps the per-state logic in exhaustive switches and avoids a heap
// allocation per transition.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// stage records a transition that will take effect the next time Update is
// called, guaranteeing at most one logical transition per loop iteration.
func (srv *Server) stage(next connState) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	n := next
	srv.nextState = &n
}

// Update commits any staged state transition. The dispatcher calls this
// once per loop iteration, before the next round of I/O, so that a
// transition staged during event handling only becomes visible on the
// following iteration.
func (srv *Server) Update() {
	srv.mu.Lock()

	if srv.nextState == nil {
		srv.mu.Unlock()
		return
	}

	from := srv.state
	srv.state = *srv.nextState
	srv.nextState = nil

	if from != srv.state {
		srv.log.Debug("state transition", "from", from, "to", srv.state)
	}

	var died bool
	switch srv.state {
	case stateDisconnected:
		died = srv.onEnterDisconnected()
	case stateConnecting:
		srv.onEnterConnecting()
	case stateConnected:
		srv.onEnterConnected()
	}

	srv.mu.Unlock()

	if died {
		srv.emit(DiedEvent{baseEvent{Server: srv}})
	}
}

// State reports the server's current connection state.
func (srv *Server) State() string {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.state.String()
}
