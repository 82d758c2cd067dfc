// Package wsline adapts nhooyr.io/websocket connections into the
// io.ReadWriteCloser byte stream the session manager and client replica
// speak, so the same line-oriented wire protocol used over a named pipe
// can run over a websocket instead.
package wsline

import (
	"context"
	"net"
	"net/http"

	"nhooyr.io/websocket"
)

// Accept upgrades an incoming HTTP request to a websocket connection and
// wraps it as a byte stream carrying text frames.
func Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, err
	}
	return newConn(c), nil
}

// Dial connects to a websocket endpoint and wraps the connection as a
// byte stream, for the client side.
func Dial(ctx context.Context, url string) (*Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newConn(c), nil
}

// Conn is a websocket connection presented as an io.ReadWriteCloser.
type Conn struct {
	ws     *websocket.Conn
	stream net.Conn
}

func newConn(c *websocket.Conn) *Conn {
	return &Conn{
		ws:     c,
		stream: websocket.NetConn(context.Background(), c, websocket.MessageText),
	}
}

func (c *Conn) Read(p []byte) (int, error)  { return c.stream.Read(p) }
func (c *Conn) Write(p []byte) (int, error) { return c.stream.Write(p) }

// Close closes the underlying websocket with a normal-closure status.
func (c *Conn) Close() error {
	c.stream.Close()
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
