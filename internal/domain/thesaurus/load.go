package thesaurus

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type file struct {
	// Replace drops the built-in table instead of appending to it.
	Replace bool    `yaml:"replace"`
	Entries []Entry `yaml:"entries"`
}

// Load reads a YAML thesaurus. Entries extend the built-in table unless replace is set.
func Load(r io.Reader) (*Thesaurus, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode thesaurus: %w", err)
	}
	entries := f.Entries
	if !f.Replace {
		entries = append(cloneEntries(defaultEntries), f.Entries...)
	}
	t, err := New(entries)
	if err != nil {
		return nil, fmt.Errorf("build thesaurus: %w", err)
	}
	return t, nil
}

// LoadFile reads a YAML thesaurus from path. An empty path yields the built-in table.
func LoadFile(path string) (*Thesaurus, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path) //nolint:gosec // path from trusted config
	if err != nil {
		return nil, fmt.Errorf("open thesaurus %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
