package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/holonet/cli/config"
	"github.com/pithecene-io/holonet/cli/render"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/responder"
	"github.com/pithecene-io/holonet/transport/redis"
)

// runApp runs the CLI in a scratch directory and returns stdout and the
// action error. Exits are captured, not performed.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runAppOutput(t, args...)
	return stdout, err
}

// runAppOutput is runApp that also returns what was written to stderr.
func runAppOutput(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	app := &cli.App{
		Name:           "holonet",
		Writer:         &stdout,
		ErrWriter:      &stderr,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			SearchCommand(),
			ServeCommand(),
			VersionCommand("abc123"),
		},
	}
	err := app.Run(append([]string{"holonet"}, args...))
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return exitSuccess
	}
	var ec cli.ExitCoder
	if !errors.As(err, &ec) {
		t.Fatalf("error %v is not a cli.ExitCoder", err)
	}
	return ec.ExitCode()
}

func decodeOutcome(t *testing.T, out string) render.Outcome {
	t.Helper()
	var o render.Outcome
	if err := json.Unmarshal([]byte(out), &o); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	return o
}

func TestSearch_LoopbackComplete(t *testing.T) {
	out, err := runApp(t, "search", "--format", "json", "luke")
	if code := exitCode(t, err); code != exitSuccess {
		t.Fatalf("exit code = %d, want 0 (err %v)", code, err)
	}

	o := decodeOutcome(t, out)
	if o.Status != "complete" {
		t.Errorf("status = %q, want complete", o.Status)
	}
	if len(o.Matches) != 1 || o.Matches[0].Name != "Luke Skywalker" {
		t.Errorf("matches = %+v, want Luke Skywalker", o.Matches)
	}
}

func TestSearch_LoopbackText(t *testing.T) {
	out, err := runApp(t, "search", "--codec", "msgpack", "luke")
	if code := exitCode(t, err); code != exitSuccess {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(out, "Results found:") || !strings.Contains(out, "Luke Skywalker featured in") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestSearch_LogsCarryComponent(t *testing.T) {
	_, stderr, err := runAppOutput(t, "search", "--log-level", "info", "luke")
	if code := exitCode(t, err); code != exitSuccess {
		t.Fatalf("exit code = %d, want 0", code)
	}

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatal("expected log output on stderr")
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		if entry["component"] != "search" {
			t.Errorf("component = %v in %q, want search", entry["component"], line)
		}
	}
}

func TestSearch_NoMatchFails(t *testing.T) {
	out, err := runApp(t, "search", "--format", "json", "jar jar")
	if code := exitCode(t, err); code != exitFailed {
		t.Fatalf("exit code = %d, want %d", code, exitFailed)
	}
	o := decodeOutcome(t, out)
	if o.FailureKind != "remote" {
		t.Errorf("failure_kind = %q, want remote", o.FailureKind)
	}
	if o.Error != responder.NoMatchMessage("jar jar") {
		t.Errorf("error = %q", o.Error)
	}
}

func TestSearch_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing name", []string{"search"}},
		{"blank name", []string{"search", "   "}},
		{"bad format", []string{"search", "--format", "xml", "luke"}},
		{"bad transport", []string{"search", "--transport", "carrier-pigeon", "luke"}},
		{"bad codec", []string{"search", "--codec", "xml", "luke"}},
		{"redis without url", []string{"search", "--transport", "redis", "luke"}},
		{"explicit config missing", []string{"search", "--config", "nope.yaml", "luke"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			if code := exitCode(t, err); code != exitUsage {
				t.Errorf("exit code = %d, want %d (err %v)", code, exitUsage, err)
			}
		})
	}
}

func TestSearch_WebsocketUnreachable(t *testing.T) {
	_, err := runApp(t, "search", "--transport", "websocket", "--url", "ws://127.0.0.1:1/ws", "luke")
	if code := exitCode(t, err); code != exitUnavailable {
		t.Errorf("exit code = %d, want %d", code, exitUnavailable)
	}
}

func TestSearch_RedisDown(t *testing.T) {
	out, err := runApp(t, "search", "--format", "json", "--transport", "redis", "--url", "redis://127.0.0.1:1", "luke")
	if code := exitCode(t, err); code != exitUnavailable {
		t.Fatalf("exit code = %d, want %d", code, exitUnavailable)
	}
	if o := decodeOutcome(t, out); o.FailureKind != "unavailable" {
		t.Errorf("failure_kind = %q, want unavailable", o.FailureKind)
	}
}

func TestSearch_OverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr()

	rt, err := redis.New(redis.Config{URL: url, Role: redis.RoleResponder})
	if err != nil {
		t.Fatalf("redis.New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	r := responder.New(responder.Config{})
	if err := r.Attach(t.Context(), rt); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	out, err := runApp(t, "search", "--format", "json", "--transport", "redis", "--url", url, "--timeout", "5s", "darth")
	if code := exitCode(t, err); code != exitSuccess {
		t.Fatalf("exit code = %d, want 0 (output %q)", code, out)
	}
	o := decodeOutcome(t, out)
	if len(o.Matches) != 2 {
		t.Errorf("matches = %+v, want 2", o.Matches)
	}
}

func TestSearch_OverWebsocket(t *testing.T) {
	collector := metrics.NewCollector("websocket", "json")
	r := responder.New(responder.Config{Metrics: collector})
	srv := httptest.NewServer(newWebsocketHandler(r, log.Nop()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WebsocketPath
	out, err := runApp(t, "search", "--format", "json", "--transport", "websocket", "--url", url, "r2")
	if code := exitCode(t, err); code != exitSuccess {
		t.Fatalf("exit code = %d, want 0 (output %q)", code, out)
	}
	if o := decodeOutcome(t, out); len(o.Matches) != 1 || o.Matches[0].Name != "R2-D2" {
		t.Errorf("matches = %+v, want R2-D2", o.Matches)
	}
	if got := collector.Snapshot().RequestsServed; got != 1 {
		t.Errorf("RequestsServed = %d, want 1", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	collector := metrics.NewCollector("redis", "json")
	collector.IncRequestServed()
	collector.IncFragmentSent()

	srv := httptest.NewServer(newMetricsHandler(collector))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`holonet_responder_requests_total{codec="json",result="served",transport="redis"} 1`,
		"holonet_responder_fragments_sent_total",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServe_MemoryRejected(t *testing.T) {
	_, err := runApp(t, "serve")
	if code := exitCode(t, err); code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestVersion(t *testing.T) {
	out, err := runApp(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var resp VersionResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if resp.Commit != "abc123" || resp.Version == "" {
		t.Errorf("unexpected version response %+v", resp)
	}

	out, _ = runApp(t, "version")
	if !strings.HasPrefix(out, "holonet ") {
		t.Errorf("text output = %q", out)
	}
}

func TestLoadConfig_FileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "holonet.yaml")
	content := `
transport:
  type: redis
  url: redis://localhost:6379
  codec: msgpack
transaction:
  timeout: 10s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var got *config.Config
	app := &cli.App{
		Flags: append(TransportFlags(), TimeoutFlag),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			got = cfg
			return err
		},
	}
	err := app.Run([]string{"holonet", "--config", path, "--codec", "json", "--timeout", "2s"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if got.Transport.Type != config.TransportRedis {
		t.Errorf("Type = %q, want redis", got.Transport.Type)
	}
	if got.Transport.Codec != "json" {
		t.Errorf("Codec = %q, want json (flag override)", got.Transport.Codec)
	}
	if got.Transaction.Timeout.Duration != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s (flag override)", got.Transaction.Timeout.Duration)
	}
	if got.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", got.Log.Level)
	}
}

func TestShellSession(t *testing.T) {
	s := newShellSession(config.Default(), log.Nop())
	if s.Connected() {
		t.Fatal("new session should be disconnected")
	}
	if _, err := s.Search(t.Context(), "luke"); !errors.Is(err, errNotConnected) {
		t.Fatalf("Search before connect: err = %v, want errNotConnected", err)
	}

	if err := s.Connect(t.Context()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.Connected() {
		t.Fatal("session should be connected")
	}

	o, err := s.Search(t.Context(), "leia")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if o.Status != "complete" || len(o.Matches) != 1 {
		t.Errorf("outcome = %+v, want one complete match", o)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if s.Connected() {
		t.Error("session should be disconnected")
	}
	if err := s.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}
}
