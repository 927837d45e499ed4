package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/holonet/cli/config"
	"github.com/pithecene-io/holonet/log"
)

// Exit codes.
const (
	exitSuccess     = 0
	exitFailed      = 1
	exitUsage       = 2
	exitUnavailable = 3
)

// loadConfig resolves the effective configuration: .env, then the config
// file, then flag overrides. A config path left at its default may be
// absent.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String(EnvFileFlag.Name)); err != nil {
		return nil, fmt.Errorf("load %s: %w", c.String(EnvFileFlag.Name), err)
	}

	cfg := config.Default()
	path := c.String(ConfigFlag.Name)
	if _, err := os.Stat(path); err == nil || c.IsSet(ConfigFlag.Name) {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cannot stat config file %q: %w", path, err)
	}

	if c.IsSet(TransportFlag.Name) {
		cfg.Transport.Type = c.String(TransportFlag.Name)
	}
	if c.IsSet(URLFlag.Name) {
		cfg.Transport.URL = c.String(URLFlag.Name)
	}
	if c.IsSet(CodecFlag.Name) {
		cfg.Transport.Codec = c.String(CodecFlag.Name)
	}
	if c.IsSet(LogLevelFlag.Name) {
		cfg.Log.Level = c.String(LogLevelFlag.Name)
	}
	if c.IsSet(TimeoutFlag.Name) {
		cfg.Transaction.Timeout = config.Duration{Duration: c.Duration(TimeoutFlag.Name)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the component logger writing to the app's error writer.
func newLogger(c *cli.Context, cfg *config.Config, component string) *log.Logger {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		// Validate already rejected bad levels.
		level, _ = log.ParseLevel("info")
	}
	logger := log.NewLogger(component, level)
	if c.App != nil && c.App.ErrWriter != nil {
		logger = logger.WithOutput(c.App.ErrWriter)
	}
	return logger
}
