// Package main provides the holonet CLI entrypoint.
//
// Usage:
//
//	holonet <command> [options]
//
// Exit codes:
//   - 0: transaction complete
//   - 1: transaction failed
//   - 2: usage or configuration error
//   - 3: transport unavailable
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/holonet/cli/cmd"
	"github.com/pithecene-io/holonet/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "holonet",
		Usage:          "Request/response transactions over event transports",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.SearchCommand(),
			cmd.ServeCommand(),
			cmd.ShellCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler prints the error message, if any, and exits with the
// code carried by cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	msg, code := exitMessage(err)
	if msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}

// exitMessage returns what to print and the process exit code for err.
// cli.Exit("", N) prints nothing.
func exitMessage(err error) (string, int) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return msg, code
	}
	return fmt.Sprintf("Error: %v", err), 1
}
