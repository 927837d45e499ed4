package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pithecene-io/holonet/cli/config"
	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/responder"
	"github.com/pithecene-io/holonet/transport"
	"github.com/pithecene-io/holonet/transport/memory"
	"github.com/pithecene-io/holonet/transport/redis"
	"github.com/pithecene-io/holonet/transport/websocket"
)

// loopback is the client end of an in-process pair whose other end is
// served by a local responder. Closing it stops the responder.
type loopback struct {
	*memory.Peer
	server    *memory.Peer
	responder *responder.Responder
	cancel    context.CancelFunc
}

func (l *loopback) Close() error {
	l.cancel()
	l.responder.Wait()
	err := l.Peer.Close()
	_ = l.server.Close()
	return err
}

// openTransport opens the client side of the configured transport.
func openTransport(ctx context.Context, cfg *config.Config, logger *log.Logger) (transport.Transport, error) {
	switch cfg.Transport.Type {
	case config.TransportMemory:
		r, err := newResponder(cfg, logger, nil)
		if err != nil {
			return nil, err
		}
		client, server := memory.NewPair()
		rctx, cancel := context.WithCancel(context.Background())
		if err := r.Attach(rctx, server); err != nil {
			cancel()
			_ = client.Close()
			_ = server.Close()
			return nil, fmt.Errorf("attach loopback responder: %w", err)
		}
		return &loopback{Peer: client, server: server, responder: r, cancel: cancel}, nil

	case config.TransportRedis:
		t, err := redis.New(redis.Config{
			URL:     cfg.Transport.URL,
			Prefix:  cfg.Transport.ChannelPrefix,
			Role:    redis.RoleClient,
			Timeout: cfg.Transport.EmitTimeout.Duration,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return t, nil

	case config.TransportWebsocket:
		header := http.Header{}
		for k, v := range cfg.Transport.Headers {
			header.Set(k, v)
		}
		conn, err := websocket.Dial(ctx, cfg.Transport.URL, websocket.Config{
			Header: header,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		return conn, nil

	default:
		return nil, fmt.Errorf("unknown transport type %q", cfg.Transport.Type)
	}
}

// newResponder builds a responder from the responder section of cfg.
func newResponder(cfg *config.Config, logger *log.Logger, m *metrics.Collector) (*responder.Responder, error) {
	c, err := codec.ByName(cfg.Transport.Codec)
	if err != nil {
		return nil, err
	}

	var catalog responder.Catalog = responder.DefaultCatalog()
	if cfg.Responder.Catalog != "" {
		loaded, err := responder.LoadCatalog(cfg.Responder.Catalog)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	return responder.New(responder.Config{
		Catalog: catalog,
		Codec:   c,
		Rate:    cfg.Responder.Rate,
		Burst:   cfg.Responder.Burst,
		Logger:  logger,
		Metrics: m,
	}), nil
}
var _ transport.Transport = (*loopback)(nil)
