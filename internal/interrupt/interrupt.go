// Package interrupt provides the Go-native analogue of irccd's self-pipe:
// a small buffered channel used to wake the dispatcher goroutine whenever
// another goroutine posts work, without requiring the dispatcher to poll.
package interrupt

// Channel wakes a single consumer (the dispatcher) whenever producers call
// Signal. It never blocks a producer: if the channel already has a pending
// wakeup queued, further signals are coalesced, mirroring how the source's
// self-pipe only needs one pending byte to guarantee the reader wakes up.
type Channel struct {
	wake chan struct{}
}

// New returns a ready-to-use interrupt Channel.
func New() *Channel {
	return &Channel{wake: make(chan struct{}, 1)}
}

// Signal wakes the consumer. It never blocks.
func (c *Channel) Signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// C returns the channel the dispatcher should select on.
func (c *Channel) C() <-chan struct{} {
	return c.wake
}

// Drain empties any pending wakeups without blocking, so a signal raised
// while the consumer was already processing work doesn't cause a needless
// extra wakeup. The dispatcher does not call it; it receives from C().
func (c *Channel) Drain() {
	for {
		select {
		case <-c.wake:
		default:
			return
		}
	}
}
