package connection

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single open transport. Production connections wrap
// gorilla/websocket; tests substitute in-memory fakes.
type Conn interface {
	// ReadMessage blocks until the next text frame or a read error.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one text frame.
	WriteMessage(data []byte) error

	// Close sends a close frame with the given code and tears down the
	// transport.
	Close(code int, reason string) error
}

// Dialer opens transports. Substituted in tests to count dial attempts and
// to inject failures.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// wsDialer dials real WebSocket connections.
type wsDialer struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
}

// NewDialer returns the production gorilla/websocket dialer.
func NewDialer(opts Options) Dialer {
	return &wsDialer{
		handshakeTimeout: opts.HandshakeTimeout,
		writeTimeout:     opts.WriteTimeout,
	}
}

func (d *wsDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.handshakeTimeout,
	}

	c, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}

	return &wsConn{conn: c, writeTimeout: d.writeTimeout}, nil
}

// wsConn adapts *websocket.Conn to the Conn interface.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// Serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close(code int, reason string) error {
	c.writeMu.Lock()
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	return c.conn.Close()
}

// isNormalClosure reports whether a read error represents a deliberate
// close (normal closure or going away). Anything else drives the
// reconnection path.
func isNormalClosure(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
	)
}

// buildURL joins the gateway base, the endpoint path and the auth token:
// <base>/<endpoint>/?token=... (&token=... when the base carries a query).
func buildURL(base, endpoint, token string) string {
	path := base
	query := ""
	if i := strings.Index(base, "?"); i >= 0 {
		path, query = base[:i], base[i+1:]
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(path, "/"))
	b.WriteString("/")
	b.WriteString(endpoint)
	b.WriteString("/")

	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
		b.WriteString("&token=")
	} else {
		b.WriteString("?token=")
	}
	b.WriteString(url.QueryEscape(token))

	return b.String()
}
