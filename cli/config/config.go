// Package config loads holonet.yaml.
//
// Every value is optional. Load starts from Default and overlays the
// file; CLI flags override both.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/txn"
)

// Transport types.
const (
	TransportMemory    = "memory"
	TransportRedis     = "redis"
	TransportWebsocket = "websocket"
)

// Config represents a holonet.yaml configuration file.
type Config struct {
	Transport   TransportConfig   `yaml:"transport"`
	Transaction TransactionConfig `yaml:"transaction"`
	Responder   ResponderConfig   `yaml:"responder"`
	Log         LogConfig         `yaml:"log"`
}

// TransportConfig selects and configures the event transport.
type TransportConfig struct {
	// Type is memory, redis or websocket.
	Type string `yaml:"type"`
	// URL is the redis:// URL or the ws:// endpoint to dial.
	URL string `yaml:"url"`
	// ChannelPrefix namespaces Redis channels.
	ChannelPrefix string `yaml:"channel_prefix,omitempty"`
	// Codec is json or msgpack.
	Codec string `yaml:"codec"`
	// EmitTimeout bounds each publish and subscribe.
	EmitTimeout Duration `yaml:"emit_timeout,omitempty"`
	// Headers are sent with the WebSocket handshake.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// TransactionConfig holds transaction defaults.
type TransactionConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// ResponderConfig configures holonet serve.
type ResponderConfig struct {
	// Catalog is a YAML catalog path. Empty uses the built-in catalog.
	Catalog string `yaml:"catalog,omitempty"`
	// Rate is requests per second; zero disables limiting.
	Rate  float64 `yaml:"rate,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
	// Listen is the WebSocket listen address.
	Listen string `yaml:"listen"`
	// MetricsListen, if set, serves Prometheus metrics on /metrics.
	MetricsListen string `yaml:"metrics_listen,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "2s" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is given:
// an in-process loopback transport with JSON payloads.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Type:  TransportMemory,
			Codec: codec.NameJSON,
		},
		Transaction: TransactionConfig{
			Timeout: Duration{txn.DefaultTimeout},
		},
		Responder: ResponderConfig{
			Listen: ":3000",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport.Type {
	case TransportMemory:
	case TransportRedis:
		if !strings.HasPrefix(c.Transport.URL, "redis://") && !strings.HasPrefix(c.Transport.URL, "rediss://") {
			errs = append(errs, fmt.Errorf("transport.url must be a redis:// URL for the redis transport, got %q", c.Transport.URL))
		}
	case TransportWebsocket:
		if !strings.HasPrefix(c.Transport.URL, "ws://") && !strings.HasPrefix(c.Transport.URL, "wss://") {
			errs = append(errs, fmt.Errorf("transport.url must be a ws:// or wss:// URL for the websocket transport, got %q", c.Transport.URL))
		}
	default:
		errs = append(errs, fmt.Errorf("transport.type must be memory, redis or websocket, got %q", c.Transport.Type))
	}

	if _, err := codec.ByName(c.Transport.Codec); err != nil {
		errs = append(errs, fmt.Errorf("transport.codec: %w", err))
	}
	if c.Transport.EmitTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("transport.emit_timeout must be >= 0, got %s", c.Transport.EmitTimeout))
	}
	if c.Transaction.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("transaction.timeout must be >= 0, got %s", c.Transaction.Timeout))
	}
	if c.Responder.Rate < 0 {
		errs = append(errs, fmt.Errorf("responder.rate must be >= 0, got %v", c.Responder.Rate))
	}
	if c.Responder.Burst < 0 {
		errs = append(errs, fmt.Errorf("responder.burst must be >= 0, got %d", c.Responder.Burst))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}
