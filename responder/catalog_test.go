package responder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStaticCatalog_Search(t *testing.T) {
	c := NewCatalog([]Character{
		{Name: "Darth Vader"},
		{Name: "Luke Skywalker"},
		{Name: "Darth Maul"},
	})

	tests := []struct {
		query string
		want  []string
	}{
		{"darth", []string{"Darth Vader", "Darth Maul"}},
		{"DARTH", []string{"Darth Vader", "Darth Maul"}},
		{"  sky  ", []string{"Luke Skywalker"}},
		{"a", []string{"Darth Vader", "Luke Skywalker", "Darth Maul"}},
		{"yoda", nil},
		{"", nil},
		{"   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := c.Search(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) returned %d matches, want %d", tt.query, len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("match %d = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestNewCatalog_CopiesInput(t *testing.T) {
	chars := []Character{{Name: "Yoda"}}
	c := NewCatalog(chars)
	chars[0].Name = "Changed"

	if got := c.Search("yoda"); len(got) != 1 {
		t.Error("catalog should not see caller mutation")
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
characters:
  - name: Luke Skywalker
    films: [A New Hope, The Empire Strikes Back]
    delay: 250
  - name: Yoda
    films:
      - The Empire Strikes Back
`)
	c, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	luke := c.Search("luke")[0]
	if len(luke.Films) != 2 || luke.Films[1] != "The Empire Strikes Back" {
		t.Errorf("Films = %v", luke.Films)
	}
	if luke.DelayDuration() != 250*time.Millisecond {
		t.Errorf("DelayDuration() = %v, want 250ms", luke.DelayDuration())
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad yaml", "characters: [", "failed to parse catalog YAML"},
		{"missing name", "characters:\n  - films: [x]\n", "name is required"},
		{"negative delay", "characters:\n  - name: x\n    delay: -5\n", "delay must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("characters:\n  - name: Han Solo\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(c.Search("solo")) != 1 {
		t.Error("expected Han Solo in loaded catalog")
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if len(c.Search("Luke Skywalker")) != 1 {
		t.Error("default catalog should contain Luke Skywalker")
	}
	if len(c.Search("darth")) < 2 {
		t.Error("default catalog should contain several Darths")
	}
}
