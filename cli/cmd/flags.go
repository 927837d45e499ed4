// Package cmd provides CLI commands for the holonet binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags. Values set on the command line override holonet.yaml.
var (
	// ConfigFlag points at holonet.yaml. A missing default file is not an error.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to holonet.yaml",
		Value:   "holonet.yaml",
		EnvVars: []string{"HOLONET_CONFIG"},
	}

	// EnvFileFlag points at an optional .env file.
	EnvFileFlag = &cli.StringFlag{
		Name:  "env-file",
		Usage: "Path to a .env file loaded before the config",
		Value: ".env",
	}

	// TransportFlag selects the transport type.
	TransportFlag = &cli.StringFlag{
		Name:    "transport",
		Aliases: []string{"t"},
		Usage:   "Transport: memory, redis, websocket",
	}

	// URLFlag sets the transport URL.
	URLFlag = &cli.StringFlag{
		Name:    "url",
		Usage:   "Transport URL (redis://... or ws://...)",
		EnvVars: []string{"HOLONET_URL"},
	}

	// CodecFlag selects the payload codec.
	CodecFlag = &cli.StringFlag{
		Name:  "codec",
		Usage: "Payload codec: json, msgpack",
	}

	// LogLevelFlag sets the log level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}

	// FormatFlag selects output format.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, table, json, yaml",
	}

	// TimeoutFlag overrides the transaction timeout.
	TimeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Transaction timeout (e.g. 2s)",
	}
)

// TransportFlags returns the flags shared by every command that opens a transport.
func TransportFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		EnvFileFlag,
		TransportFlag,
		URLFlag,
		CodecFlag,
		LogLevelFlag,
	}
}
