package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Entries is the file format used to add entries to a catalog and to dump
// existing ones.
type Entries struct {
	Bundles []BundleEntry `json:"bundles" toml:"bundles" yaml:"bundles"`
	Prefabs []PrefabEntry `json:"prefabs" toml:"prefabs" yaml:"prefabs"`
}

// BundleEntry describes an AssetBundle location.
type BundleEntry struct {
	InternalID   string `json:"internal_id" toml:"internal_id" yaml:"internal_id"`
	InternalPath string `json:"internal_path" toml:"internal_path" yaml:"internal_path"`
}

// PrefabEntry describes an asset stored in one or more bundles.
type PrefabEntry struct {
	InternalID   string   `json:"internal_id" toml:"internal_id" yaml:"internal_id"`
	InternalPath string   `json:"internal_path" toml:"internal_path" yaml:"internal_path"`
	Dependencies []string `json:"dependencies" toml:"dependencies" yaml:"dependencies"`
}

// EntriesFormat is the encoding of an entries file.
type EntriesFormat string

const (
	FormatTOML EntriesFormat = "toml"
	FormatJSON EntriesFormat = "json"
	FormatYAML EntriesFormat = "yaml"
)

// FormatFromPath picks the entries format from a file extension. Unknown
// extensions use TOML.
func FormatFromPath(path string) EntriesFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// LoadEntries reads an entries file, picking the decoder from its extension.
func LoadEntries(path string) (*Entries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entries file: %w", err)
	}
	return DecodeEntries(data, FormatFromPath(path))
}

// DecodeEntries decodes an entries document.
func DecodeEntries(data []byte, format EntriesFormat) (*Entries, error) {
	e := &Entries{}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, e)
	case FormatYAML:
		err = yaml.Unmarshal(data, e)
	default:
		err = toml.Unmarshal(data, e)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s entries: %w", format, err)
	}

	return e, nil
}

// Encode encodes the entries in the given format.
func (e *Entries) Encode(format EntriesFormat) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("failed to encode JSON entries: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("failed to encode YAML entries: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode YAML entries: %w", err)
		}
	default:
		enc := toml.NewEncoder(&buf)
		enc.SetArraysMultiline(true)
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("failed to encode TOML entries: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// Validate reports every problem in the entries at once.
func (e *Entries) Validate() error {
	var errs error
	seen := make(map[string]bool)

	check := func(kind string, i int, id, path string) {
		if id == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s %d: internal_id is empty", kind, i))
		}
		if path == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s %d: internal_path is empty", kind, i))
		}
		if id != "" && seen[id] {
			errs = multierr.Append(errs, fmt.Errorf("%s %d: internal_id %s listed twice", kind, i, id))
		}
		seen[id] = true
	}

	for i, b := range e.Bundles {
		check("bundle", i, b.InternalID, b.InternalPath)
	}
	for i, p := range e.Prefabs {
		check("prefab", i, p.InternalID, p.InternalPath)
		for _, dep := range p.Dependencies {
			if dep == p.InternalID {
				errs = multierr.Append(errs, fmt.Errorf("prefab %d: depends on itself", i))
			}
		}
	}

	return errs
}
