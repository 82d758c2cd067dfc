// Package netline is the plain TCP/unix-socket transport: a thin
// net.Listener/net.Dial wrapper presenting connections as the
// io.ReadWriteCloser the session manager and client replica expect,
// for deployments that want neither a named pipe nor a websocket.
package netline

import (
	"io"
	"net"
)

// Listener accepts connections on a network address and hands them back
// as plain byte streams.
type Listener struct {
	ln net.Listener
}

// Listen starts listening on network/address (e.g. "tcp", ":4000", or
// "unix", "/tmp/inkdoc.sock").
func Listen(network, address string) (*Listener, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln}, nil
}

// Accept blocks until a new connection arrives.
func (l *Listener) Accept() (io.ReadWriteCloser, error) {
	return l.ln.Accept()
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Dial connects to a listening server and returns the connection as a
// byte stream, for the client side.
func Dial(network, address string) (io.ReadWriteCloser, error) {
	return net.Dial(network, address)
}
