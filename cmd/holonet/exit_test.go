package main

import (
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestExitMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantCode int
	}{
		{"complete", cli.Exit("", 0), "", 0},
		{"failed silent", cli.Exit("", 1), "", 1},
		{"usage", cli.Exit("search requires a <name> argument", 2), "search requires a <name> argument", 2},
		{"unavailable", cli.Exit("transport unavailable: dial tcp", 3), "transport unavailable: dial tcp", 3},
		{"wrapped", errors.Join(errors.New("context"), cli.Exit("inner", 42)), "inner", 42},
		{"regular error", errors.New("boom"), "Error: boom", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, code := exitMessage(tt.err)
			if msg != tt.wantMsg {
				t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
			}
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
		})
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"search", "serve", "shell", "version"} {
		if app.Command(name) == nil {
			t.Errorf("missing command %q", name)
		}
	}
	if app.ExitErrHandler == nil {
		t.Error("ExitErrHandler not set")
	}
}
