package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/holonet/cli/config"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/responder"
	"github.com/pithecene-io/holonet/transport"
	"github.com/pithecene-io/holonet/transport/redis"
	"github.com/pithecene-io/holonet/transport/websocket"
)

// WebsocketPath is where serve accepts WebSocket connections.
const WebsocketPath = "/ws"

const shutdownTimeout = 5 * time.Second

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Answer search requests from a character catalog",
		Description: `Runs the responder until interrupted.

With --transport redis it subscribes to the request channel.
With --transport websocket it listens on responder.listen and accepts
connections at /ws. Metrics are served on responder.metrics_listen when set.`,
		Flags: append(TransportFlags(),
			&cli.StringFlag{Name: "listen", Usage: "WebSocket listen address"},
			&cli.StringFlag{Name: "metrics-listen", Usage: "Prometheus /metrics listen address"},
			&cli.StringFlag{Name: "catalog", Usage: "Path to a character catalog YAML"},
			&cli.Float64Flag{Name: "rate", Usage: "Requests per second (0 disables limiting)"},
			&cli.IntFlag{Name: "burst", Usage: "Rate limiter burst"},
		),
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	applyServeFlags(c, cfg)
	if cfg.Transport.Type == config.TransportMemory {
		return cli.Exit("serve requires --transport redis or websocket", exitUsage)
	}

	logger := newLogger(c, cfg, "responder")
	defer logger.Sync()

	collector := metrics.NewCollector(cfg.Transport.Type, cfg.Transport.Codec)
	r, err := newResponder(cfg, logger, collector)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Responder.MetricsListen != "" {
		ms := &http.Server{
			Addr:              cfg.Responder.MetricsListen,
			Handler:           newMetricsHandler(collector),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", map[string]any{"error": err.Error()})
			}
		}()
		defer shutdown(ms, logger)
		logger.Info("serving metrics", map[string]any{"addr": cfg.Responder.MetricsListen})
	}

	switch cfg.Transport.Type {
	case config.TransportRedis:
		return serveRedis(ctx, cfg, r, logger)
	default:
		return serveWebsocket(ctx, cfg, r, logger)
	}
}

func applyServeFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("listen") {
		cfg.Responder.Listen = c.String("listen")
	}
	if c.IsSet("metrics-listen") {
		cfg.Responder.MetricsListen = c.String("metrics-listen")
	}
	if c.IsSet("catalog") {
		cfg.Responder.Catalog = c.String("catalog")
	}
	if c.IsSet("rate") {
		cfg.Responder.Rate = c.Float64("rate")
	}
	if c.IsSet("burst") {
		cfg.Responder.Burst = c.Int("burst")
	}
}

func serveRedis(ctx context.Context, cfg *config.Config, r *responder.Responder, logger *log.Logger) error {
	t, err := redis.New(redis.Config{
		URL:     cfg.Transport.URL,
		Prefix:  cfg.Transport.ChannelPrefix,
		Role:    redis.RoleResponder,
		Timeout: cfg.Transport.EmitTimeout.Duration,
		Logger:  logger,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	defer func() { _ = t.Close() }()

	if !t.IsConnected() {
		return cli.Exit("redis unavailable at "+cfg.Transport.URL, exitUnavailable)
	}

	logger.Info("responder listening on redis", map[string]any{"url": cfg.Transport.URL})
	if err := r.Serve(ctx, t); err != nil {
		return cli.Exit(err.Error(), exitUnavailable)
	}
	logger.Info("responder stopped", nil)
	return nil
}

func serveWebsocket(ctx context.Context, cfg *config.Config, r *responder.Responder, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Responder.Listen,
		Handler:           newWebsocketHandler(r, logger),
		ReadHeaderTimeout: 5 * time.Second,
		// Hijacked connections outlive Shutdown; tie them to ctx instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("responder listening", map[string]any{"addr": cfg.Responder.Listen, "path": WebsocketPath})

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit("listen "+cfg.Responder.Listen+": "+err.Error(), exitUnavailable)
		}
	case <-ctx.Done():
		shutdown(srv, logger)
	}
	r.Wait()
	logger.Info("responder stopped", nil)
	return nil
}

// newWebsocketHandler serves r to every connection at WebsocketPath.
func newWebsocketHandler(r *responder.Responder, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(WebsocketPath, &websocket.Server{
		OnConnect: func(ctx context.Context, t transport.Transport) {
			if err := r.Attach(ctx, t); err != nil {
				logger.Error("failed to attach responder", map[string]any{"error": err.Error()})
			}
		},
		Config: websocket.Config{Logger: logger},
	})
	return mux
}

// newMetricsHandler exposes collector on /metrics.
func newMetricsHandler(collector *metrics.Collector) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewPrometheusCollector(collector))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func shutdown(srv *http.Server, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown incomplete", map[string]any{"addr": srv.Addr, "error": err.Error()})
	}
}
