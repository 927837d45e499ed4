// Package client runs transactions over a transport.
package client

import (
	"context"
	"time"

	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/transport"
	"github.com/pithecene-io/holonet/txn"
	"github.com/pithecene-io/holonet/types"
)

// Config configures a Client.
type Config struct {
	// Timeout is the per-transaction budget (default: txn.DefaultTimeout).
	Timeout time.Duration
	// Codec encodes requests and decodes replies (default: codec.JSON).
	Codec codec.Codec
	// Logger receives transaction logs (default: discard).
	Logger *log.Logger
	// Metrics records transaction counters (optional).
	Metrics *metrics.Collector
}

// Client drives transactions to completion over one transport.
// Transactions on the same Client must not run concurrently; the
// transport holds a single reply handler per event.
type Client struct {
	transport transport.Transport
	config    Config
	logger    *log.Logger
}

// New creates a Client over t.
func New(t transport.Transport, cfg Config) *Client {
	if cfg.Codec == nil {
		cfg.Codec = codec.JSON
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{transport: t, config: cfg, logger: logger}
}

// IsConnected reports whether the underlying transport is connected.
func (c *Client) IsConnected() bool {
	return c.transport.IsConnected()
}

// ExecuteTransaction runs t to a terminal status before returning.
// On a disconnected transport t fails with txn.MsgUnavailable and
// nothing is emitted.
func (c *Client) ExecuteTransaction(ctx context.Context, t txn.Transaction) {
	if !c.transport.IsConnected() {
		t.Fail(types.FailureUnavailable, txn.MsgUnavailable)
		c.logger.Error("failed to execute transaction: transport not connected", map[string]any{
			"txn_id": t.ID(),
		})
		return
	}
	t.Execute(ctx, c.transport)
}

// Search builds a search for key with the client's settings and runs it.
// Returns txn.ErrEmptyKey for an empty key.
func (c *Client) Search(ctx context.Context, key string) (*txn.Search, error) {
	s, err := txn.NewSearch(key,
		txn.WithTimeout(c.config.Timeout),
		txn.WithCodec(c.config.Codec),
		txn.WithLogger(c.logger),
		txn.WithMetrics(c.config.Metrics),
	)
	if err != nil {
		return nil, err
	}
	c.ExecuteTransaction(ctx, s)
	return s, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
