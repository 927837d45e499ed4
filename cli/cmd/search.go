package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/holonet/cli/config"
	"github.com/pithecene-io/holonet/cli/render"
	"github.com/pithecene-io/holonet/client"
	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/txn"
	"github.com/pithecene-io/holonet/types"
)

// SearchCommand returns the search command.
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Look up a character and print the matches",
		ArgsUsage: "<name>",
		Description: `Runs one search transaction and prints its outcome.

Exit codes:
  0  transaction complete
  1  transaction failed (timeout, remote error, malformed reply)
  2  usage or configuration error
  3  transport unavailable

Examples:
  holonet search luke
  holonet search --transport redis --url redis://localhost:6379 --format json darth
  holonet search --transport websocket --url ws://localhost:3000/ws --timeout 2s r2`,
		Flags:  append(TransportFlags(), FormatFlag, TimeoutFlag),
		Action: searchAction,
	}
}

func searchAction(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return cli.Exit("search requires a <name> argument", exitUsage)
	}

	renderer, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	logger := newLogger(c, cfg, "search")
	defer logger.Sync()

	cl, collector, err := openClient(c.Context, cfg, logger)
	if err != nil {
		return cli.Exit("transport unavailable: "+err.Error(), exitUnavailable)
	}
	defer func() { _ = cl.Close() }()

	started := time.Now()
	s, err := cl.Search(c.Context, query)
	if err != nil {
		if errors.Is(err, txn.ErrEmptyKey) {
			return cli.Exit(err.Error(), exitUsage)
		}
		return cli.Exit(err.Error(), exitFailed)
	}

	logger.Debug("transaction finished", map[string]any{
		"txn_id":  s.ID(),
		"status":  string(s.Status()),
		"metrics": collector.Snapshot(),
	})

	if err := renderer.Render(render.OutcomeOf(s, time.Since(started))); err != nil {
		return err
	}

	return searchExit(s)
}

// searchExit maps a finished transaction to a process exit.
func searchExit(s *txn.Search) error {
	switch {
	case s.Status() == types.StatusComplete:
		return nil
	case s.FailureKind() == types.FailureUnavailable:
		return cli.Exit("", exitUnavailable)
	default:
		return cli.Exit("", exitFailed)
	}
}

// openClient opens the configured transport and wraps it in a client.
func openClient(ctx context.Context, cfg *config.Config, logger *log.Logger) (*client.Client, *metrics.Collector, error) {
	c, err := codec.ByName(cfg.Transport.Codec)
	if err != nil {
		return nil, nil, err
	}
	t, err := openTransport(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	collector := metrics.NewCollector(cfg.Transport.Type, c.Name())
	return client.New(t, client.Config{
		Timeout: cfg.Transaction.Timeout.Duration,
		Codec:   c,
		Logger:  logger,
		Metrics: collector,
	}), collector, nil
}
