package responder

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Character is one searchable catalog entry.
type Character struct {
	Name  string   `yaml:"name"`
	Films []string `yaml:"films"`
	// Delay is how long to wait, in milliseconds, after emitting this
	// character's page before emitting the next one.
	Delay int `yaml:"delay,omitempty"`
}

// DelayDuration returns Delay as a time.Duration.
func (c Character) DelayDuration() time.Duration {
	return time.Duration(c.Delay) * time.Millisecond
}

// Catalog finds characters for a query.
type Catalog interface {
	// Search returns matching characters in catalog order.
	Search(query string) []Character
}

// StaticCatalog is an in-memory Catalog matching names by
// case-insensitive substring.
type StaticCatalog struct {
	characters []Character
}

// NewCatalog creates a catalog over characters. The slice is copied.
func NewCatalog(characters []Character) *StaticCatalog {
	return &StaticCatalog{characters: append([]Character(nil), characters...)}
}

// Search implements Catalog.
func (c *StaticCatalog) Search(query string) []Character {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Character
	for _, ch := range c.characters {
		if strings.Contains(strings.ToLower(ch.Name), q) {
			out = append(out, ch)
		}
	}
	return out
}

// Len returns the number of characters.
func (c *StaticCatalog) Len() int {
	return len(c.characters)
}

type catalogFile struct {
	Characters []Character `yaml:"characters"`
}

// LoadCatalog reads a YAML catalog file:
//
//	characters:
//	  - name: Luke Skywalker
//	    films: [A New Hope, The Empire Strikes Back]
//	    delay: 250
func LoadCatalog(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses YAML catalog content.
func ParseCatalog(data []byte) (*StaticCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	var errs []error
	for i, ch := range f.Characters {
		if strings.TrimSpace(ch.Name) == "" {
			errs = append(errs, fmt.Errorf("characters[%d]: name is required", i))
		}
		if ch.Delay < 0 {
			errs = append(errs, fmt.Errorf("characters[%d]: delay must be >= 0, got %d", i, ch.Delay))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return NewCatalog(f.Characters), nil
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *StaticCatalog {
	return NewCatalog([]Character{
		{Name: "Luke Skywalker", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi", "Revenge of the Sith"}},
		{Name: "C-3PO", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi", "The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "R2-D2", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi", "The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "Darth Vader", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi", "Revenge of the Sith"}},
		{Name: "Leia Organa", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi", "Revenge of the Sith"}},
		{Name: "Owen Lars", Films: []string{"A New Hope", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "Beru Whitesun lars", Films: []string{"A New Hope", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "R5-D4", Films: []string{"A New Hope"}},
		{Name: "Biggs Darklighter", Films: []string{"A New Hope"}},
		{Name: "Obi-Wan Kenobi", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi", "The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "Anakin Skywalker", Films: []string{"The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}, Delay: 100},
		{Name: "Chewbacca", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi", "Revenge of the Sith"}},
		{Name: "Han Solo", Films: []string{"A New Hope", "The Empire Strikes Back", "Return of the Jedi"}},
		{Name: "Yoda", Films: []string{"The Empire Strikes Back", "Return of the Jedi", "The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "Palpatine", Films: []string{"The Empire Strikes Back", "Return of the Jedi", "The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "Boba Fett", Films: []string{"The Empire Strikes Back", "Return of the Jedi", "Attack of the Clones"}},
		{Name: "Lando Calrissian", Films: []string{"The Empire Strikes Back", "Return of the Jedi"}},
		{Name: "Darth Maul", Films: []string{"The Phantom Menace"}, Delay: 200},
		{Name: "Padmé Amidala", Films: []string{"The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}},
		{Name: "Mace Windu", Films: []string{"The Phantom Menace", "Attack of the Clones", "Revenge of the Sith"}},
	})
}
