package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
)

// Network selects the socket family of a listening endpoint: TCP4, TCP6
// or Unix. TLS wrapping is chosen separately via ListenerConfig.TLS.
type Network int

const (
	NetworkTCP4 Network = iota
	NetworkTCP6
	NetworkUnix
)

// ListenerConfig describes one listening endpoint.
type ListenerConfig struct {
	Network   Network
	Address   string // host:port for TCP, filesystem path for Unix
	DualStack bool   // NetworkTCP6 only: also accept IPv4-mapped addresses
	TLS       *tls.Config
}

// unixListener wraps a net.Listener so Close also removes the socket file,
// per spec.md §4.4's "Unix-domain variant removes the socket file on
// destruction".
type unixListener struct {
	net.Listener
	path string
}

func (u *unixListener) Close() error {
	err := u.Listener.Close()
	if rmErr := os.Remove(u.path); rmErr != nil && !os.IsNotExist(rmErr) {
		if err == nil {
			err = rmErr
		}
	}
	return err
}

// Listen opens a listening endpoint for cfg, grounded on the four
// transport_server variants: IPv4, IPv6 (v6-only unless DualStack),
// Unix-domain (stale socket removed first, cleaned up on Close), and any
// of those wrapped in TLS when cfg.TLS is non-nil.
func Listen(cfg ListenerConfig) (net.Listener, error) {
	var (
		ln  net.Listener
		err error
	)

	switch cfg.Network {
	case NetworkTCP4:
		ln, err = net.Listen("tcp4", cfg.Address)
	case NetworkTCP6:
		network := "tcp6"
		if cfg.DualStack {
			network = "tcp"
		}
		ln, err = net.Listen(network, cfg.Address)
	case NetworkUnix:
		if rmErr := os.Remove(cfg.Address); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("removing stale socket: %w", rmErr)
		}
		ln, err = net.Listen("unix", cfg.Address)
		if err == nil {
			ln = &unixListener{Listener: ln, path: cfg.Address}
		}
	default:
		return nil, fmt.Errorf("unknown network variant %d", cfg.Network)
	}

	if err != nil {
		return nil, err
	}

	if cfg.TLS != nil {
		ln = tls.NewListener(ln, cfg.TLS)
	}

	return ln, nil
}
