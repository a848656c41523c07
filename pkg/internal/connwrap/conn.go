// Package connwrap wraps network connections to track their state.
package connwrap

import (
	"net"

	"go.uber.org/atomic"
)

// Conn is a wrapper around a net.Conn that tracks whether Close has been called.
// It serves as the channel a Floodgate connection is registered against.
type Conn struct {
	net.Conn // underlying connection
	closed   atomic.Bool
}

// New wraps c.
func New(c net.Conn) *Conn { return &Conn{Conn: c} }

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.Conn.Close()
}

func (c *Conn) Closed() bool { return c.closed.Load() }
func (c *Conn) Active() bool { return !c.closed.Load() }
