// Package websocket implements the transport over a single WebSocket
// connection.
//
// Every message is a binary frame holding a MessagePack envelope
// {event, data}. Both ends of a connection are symmetric: what one side
// emits, the other side's handler for the same event receives.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/transport"
)

// envelope is the frame carried in each binary message.
type envelope struct {
	Event string `msgpack:"event"`
	Data  []byte `msgpack:"data"`
}

// Config configures a connection.
type Config struct {
	// Header is sent with the dial handshake.
	Header http.Header
	// ReadLimit caps a single inbound message (default: codec.MaxPayloadSize plus framing).
	ReadLimit int64
	// Logger receives connection diagnostics (default: discard).
	Logger *log.Logger
}

func (c Config) readLimit() int64 {
	if c.ReadLimit > 0 {
		return c.ReadLimit
	}
	return codec.MaxPayloadSize + 1024
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Nop()
}

// Conn is a transport over one WebSocket connection.
type Conn struct {
	ws       *websocket.Conn
	handlers transport.HandlerSet
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	readErr error
}

// Dial connects to a holonet WebSocket endpoint.
func Dial(ctx context.Context, url string, cfg Config) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: cfg.Header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return newConn(context.Background(), ws, cfg), nil
}

func newConn(parent context.Context, ws *websocket.Conn, cfg Config) *Conn {
	ws.SetReadLimit(cfg.readLimit())
	ctx, cancel := context.WithCancel(parent)
	c := &Conn{
		ws:     ws,
		logger: cfg.logger(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		typ, data, err := c.ws.Read(c.ctx)
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && c.ctx.Err() == nil {
				c.logger.Warn("websocket read failed", map[string]any{"error": err.Error()})
			}
			return
		}
		if typ != websocket.MessageBinary {
			c.logger.Debug("ignoring non-binary websocket message", nil)
			continue
		}

		var env envelope
		if err := msgpack.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.logger.Warn("ignoring malformed websocket envelope", map[string]any{"size": len(data)})
			continue
		}
		if !c.handlers.Dispatch(env.Event, env.Data) {
			c.logger.Debug("websocket event without handler", map[string]any{"event": env.Event})
		}
	}
}

// Emit writes one envelope to the peer.
func (c *Conn) Emit(ctx context.Context, event string, payload []byte) error {
	if !c.IsConnected() {
		return transport.ErrClosed
	}
	data, err := msgpack.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("websocket: encode envelope: %w", err)
	}
	if err := c.ws.Write(ctx, websocket.MessageBinary, data); err != nil {
		return fmt.Errorf("websocket: write %s: %w", event, err)
	}
	return nil
}

// Subscribe installs h for event, replacing any prior handler.
func (c *Conn) Subscribe(event string, h transport.Handler) error {
	if c.isClosed() {
		return transport.ErrClosed
	}
	if c.handlers.Set(event, h) {
		c.logger.Debug("websocket handler replaced", map[string]any{"event": event})
	}
	return nil
}

// Unsubscribe removes the handler for event. Removing an absent handler
// is a no-op.
func (c *Conn) Unsubscribe(event string) error {
	c.handlers.Remove(event)
	return nil
}

// IsConnected reports whether the connection is open and its read loop
// is running.
func (c *Conn) IsConnected() bool {
	if c.isClosed() {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the connection stops reading, either because
// the peer went away or Close was called.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the read loop, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close performs a normal closure handshake and stops the read loop.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	var err error
	select {
	case <-c.done:
		// Peer already went away; only release the socket.
		_ = c.ws.CloseNow()
	default:
		err = c.ws.Close(websocket.StatusNormalClosure, "")
	}
	c.cancel()
	<-c.done
	c.handlers.Clear()

	if err != nil && websocket.CloseStatus(err) == -1 {
		return fmt.Errorf("websocket: close: %w", err)
	}
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Verify Conn implements the transport interface.
var _ transport.Transport = (*Conn)(nil)
