package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/holonet/cli/config"
	"github.com/pithecene-io/holonet/cli/render"
	"github.com/pithecene-io/holonet/cli/tui"
	"github.com/pithecene-io/holonet/client"
	"github.com/pithecene-io/holonet/log"
)

var errNotConnected = errors.New("not connected")

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Look up characters interactively",
		Flags: append(TransportFlags(),
			TimeoutFlag,
			&cli.StringFlag{Name: "log-file", Usage: "Write logs to this file (default: discard)"},
		),
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	// Logs would corrupt the terminal, so they go to a file or nowhere.
	logger := log.Nop()
	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return cli.Exit(fmt.Sprintf("open log file: %v", err), exitUsage)
		}
		defer func() { _ = f.Close() }()
		logger = newLogger(c, cfg, "shell").WithOutput(f)
	}

	session := newShellSession(cfg, logger)
	defer func() { _ = session.Disconnect() }()
	if err := session.Connect(c.Context); err != nil {
		logger.Warn("initial connect failed", map[string]any{"error": err.Error()})
	}

	if err := tui.RunShell(c.Context, session); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}

// shellSession is a tui.Session over the configured transport.
type shellSession struct {
	cfg    *config.Config
	logger *log.Logger

	mu     sync.Mutex
	client *client.Client
}

func newShellSession(cfg *config.Config, logger *log.Logger) *shellSession {
	return &shellSession{cfg: cfg, logger: logger}
}

func (s *shellSession) current() *client.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *shellSession) Connected() bool {
	cl := s.current()
	return cl != nil && cl.IsConnected()
}

func (s *shellSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.client.IsConnected() {
		return nil
	}
	if s.client != nil {
		_ = s.client.Close()
		s.client = nil
	}
	cl, _, err := openClient(ctx, s.cfg, s.logger)
	if err != nil {
		return err
	}
	s.client = cl
	return nil
}

func (s *shellSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *shellSession) Search(ctx context.Context, name string) (render.Outcome, error) {
	cl := s.current()
	if cl == nil {
		return render.Outcome{}, errNotConnected
	}
	started := time.Now()
	search, err := cl.Search(ctx, name)
	if err != nil {
		return render.Outcome{}, err
	}
	return render.OutcomeOf(search, time.Since(started)), nil
}
var _ tui.Session = (*shellSession)(nil)
