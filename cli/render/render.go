// Package render formats transaction outcomes for the holonet CLI.
//
// Format selection:
//   - text (default) prints the rendered result, or the error text
//   - table prints one row per match
//   - json and yaml print the full Outcome
//   - invalid formats are errors
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/holonet/txn"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string. Empty selects FormatText.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be text, table, json, or yaml)", s)
	}
}

// Match is one accepted page of a search.
type Match struct {
	Page  int    `json:"page" yaml:"page"`
	Name  string `json:"name" yaml:"name"`
	Films string `json:"films" yaml:"films"`
}

// Outcome is the renderable view of a finished transaction.
type Outcome struct {
	ID          string  `json:"id" yaml:"id"`
	Query       string  `json:"query" yaml:"query"`
	Status      string  `json:"status" yaml:"status"`
	FailureKind string  `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	Error       string  `json:"error,omitempty" yaml:"error,omitempty"`
	Matches     []Match `json:"matches,omitempty" yaml:"matches,omitempty"`
	ElapsedMS   int64   `json:"elapsed_ms" yaml:"elapsed_ms"`

	result string
}

// OutcomeOf captures the state of s.
func OutcomeOf(s *txn.Search, elapsed time.Duration) Outcome {
	o := Outcome{
		ID:          s.ID(),
		Query:       s.Key(),
		Status:      string(s.Status()),
		FailureKind: string(s.FailureKind()),
		ElapsedMS:   elapsed.Milliseconds(),
	}
	if msg, ok := s.ErrorMessage(); ok {
		o.Error = msg
	}
	if result, ok := s.Result(); ok {
		o.result = result
		for _, m := range s.Matches() {
			o.Matches = append(o.Matches, Match{Page: m.Page, Name: m.Name, Films: m.Films})
		}
	}
	return o
}

// Renderer writes outcomes in one format.
type Renderer struct {
	format Format
	out    io.Writer
}

// NewRenderer creates a renderer from the --format flag of c. Output goes
// to the app's writer, or stdout when none is set.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	var out io.Writer = os.Stdout
	if c.App != nil && c.App.Writer != nil {
		out = c.App.Writer
	}
	return &Renderer{format: format, out: out}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, out io.Writer) *Renderer {
	return &Renderer{format: format, out: out}
}

// Format returns the renderer's format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes o in the configured format.
func (r *Renderer) Render(o Outcome) error {
	switch r.format {
	case FormatText:
		return r.renderText(o)
	case FormatTable:
		return r.renderTable(o)
	case FormatJSON:
		return r.renderJSON(o)
	case FormatYAML:
		return r.renderYAML(o)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderText(o Outcome) error {
	if o.result != "" {
		_, err := io.WriteString(r.out, o.result)
		return err
	}
	_, err := fmt.Fprintln(r.out, o.Error)
	return err
}

func (r *Renderer) renderTable(o Outcome) error {
	if len(o.Matches) == 0 {
		_, err := fmt.Fprintf(r.out, "(no results: %s)\n", o.Error)
		return err
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tNAME\tFILMS")
	for _, m := range o.Matches {
		fmt.Fprintf(w, "%d\t%s\t%s\n", m.Page, m.Name, m.Films)
	}
	return w.Flush()
}

// RenderValue writes v as json or yaml, or text in the text and table formats.
func (r *Renderer) RenderValue(v any, text string) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(v)
	case FormatYAML:
		return r.renderYAML(v)
	default:
		_, err := fmt.Fprintln(r.out, text)
		return err
	}
}

func (r *Renderer) renderJSON(o any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func (r *Renderer) renderYAML(o any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(o); err != nil {
		return err
	}
	return enc.Close()
}
