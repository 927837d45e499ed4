// Package redis implements the transport over Redis pub/sub.
//
// Each event maps to two channels, one per direction:
//
//	<prefix>:request:<event>   client → responder
//	<prefix>:reply:<event>     responder → client
//
// A client publishes on the request channel and subscribes to the reply
// channel; a responder does the opposite. Every subscribed event holds its
// own pub/sub connection so Subscribe can wait for the server to confirm
// the subscription before returning.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/transport"
)

// DefaultPrefix is the default channel prefix.
const DefaultPrefix = "holonet"

// DefaultTimeout is the default per-command timeout.
const DefaultTimeout = 5 * time.Second

// Role selects which direction a transport publishes on.
type Role string

const (
	// RoleClient publishes requests and receives replies.
	RoleClient Role = "client"
	// RoleResponder receives requests and publishes replies.
	RoleResponder Role = "responder"
)

// Config configures the Redis transport.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Prefix is the channel prefix (default: holonet).
	Prefix string
	// Role selects the publish direction (default: client).
	Role Role
	// Timeout bounds each PUBLISH, SUBSCRIBE and PING (default 5s).
	Timeout time.Duration
	// Logger receives subscription diagnostics (default: discard).
	Logger *log.Logger
}

type subscription struct {
	ps *goredis.PubSub
}

// Transport exchanges events over Redis pub/sub.
type Transport struct {
	config   Config
	client   *goredis.Client
	handlers transport.HandlerSet
	logger   *log.Logger

	mu     sync.Mutex
	subs   map[string]*subscription
	closed bool
	wg     sync.WaitGroup
}

// New creates a Redis transport from the given config.
// Returns an error if the URL is empty or invalid. No connection is made
// until the first command.
func New(cfg Config) (*Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis transport requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis transport: invalid URL: %w", err)
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch cfg.Role {
	case "":
		cfg.Role = RoleClient
	case RoleClient, RoleResponder:
	default:
		return nil, fmt.Errorf("redis transport: invalid role %q (must be client or responder)", cfg.Role)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	return &Transport{
		config: cfg,
		client: goredis.NewClient(opts),
		logger: logger,
		subs:   make(map[string]*subscription),
	}, nil
}

// RequestChannel returns the channel carrying requests for event.
func RequestChannel(prefix, event string) string {
	return prefix + ":request:" + event
}

// ReplyChannel returns the channel carrying replies for event.
func ReplyChannel(prefix, event string) string {
	return prefix + ":reply:" + event
}

func (t *Transport) outbound(event string) string {
	if t.config.Role == RoleResponder {
		return ReplyChannel(t.config.Prefix, event)
	}
	return RequestChannel(t.config.Prefix, event)
}

func (t *Transport) inbound(event string) string {
	if t.config.Role == RoleResponder {
		return RequestChannel(t.config.Prefix, event)
	}
	return ReplyChannel(t.config.Prefix, event)
}

// Emit publishes payload on the outbound channel for event.
func (t *Transport) Emit(ctx context.Context, event string, payload []byte) error {
	if t.isClosed() {
		return transport.ErrClosed
	}

	publishCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	if err := t.client.Publish(publishCtx, t.outbound(event), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", event, err)
	}
	return nil
}

// Subscribe installs h for event. The first subscription for an event
// blocks until Redis confirms it.
func (t *Transport) Subscribe(event string, h transport.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return transport.ErrClosed
	}

	if t.handlers.Set(event, h) {
		t.logger.Debug("redis handler replaced", map[string]any{"event": event})
	}
	if _, ok := t.subs[event]; ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.Timeout)
	defer cancel()

	channel := t.inbound(event)
	ps := t.client.Subscribe(ctx, channel)
	// Wait for the subscribe confirmation so a reply published right
	// after Subscribe returns is not lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		t.handlers.Remove(event)
		return fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	t.subs[event] = &subscription{ps: ps}
	t.wg.Add(1)
	go t.receiveLoop(event, ps)
	return nil
}

func (t *Transport) receiveLoop(event string, ps *goredis.PubSub) {
	defer t.wg.Done()
	for msg := range ps.Channel() {
		if !t.handlers.Dispatch(event, []byte(msg.Payload)) {
			t.logger.Debug("redis message without handler", map[string]any{
				"channel": msg.Channel,
			})
		}
	}
}

// Unsubscribe removes the handler for event and releases its connection.
func (t *Transport) Unsubscribe(event string) error {
	t.mu.Lock()
	sub, ok := t.subs[event]
	delete(t.subs, event)
	t.handlers.Remove(event)
	t.mu.Unlock()

	if !ok {
		return nil
	}
	if err := sub.ps.Close(); err != nil {
		return fmt.Errorf("redis: unsubscribe %s: %w", event, err)
	}
	return nil
}

// IsConnected pings the server.
func (t *Transport) IsConnected() bool {
	if t.isClosed() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.config.Timeout)
	defer cancel()
	return t.client.Ping(ctx).Err() == nil
}

// Close releases all subscriptions and the client.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	t.closed = true
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.wg.Wait()
	t.handlers.Clear()

	if err := t.client.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Verify Transport implements the transport interface.
var _ transport.Transport = (*Transport)(nil)
