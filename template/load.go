package template

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/envquery/query"
)

// Format is a template file encoding.
type Format string

const (
	// FormatTOML is the TOML encoding.
	FormatTOML Format = "toml"
	// FormatYAML is the YAML encoding.
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for files whose extension names no format.
var ErrUnknownFormat = errors.New("unknown template format")

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Decode reads a template file without building it. Unknown keys are errors.
func Decode(r io.Reader, format Format) (*File, error) {
	var f File
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML template: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidValue, undecoded)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML template: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &f, nil
}

// Load decodes and builds all queries from r.
func (r *Registry) Load(rd io.Reader, format Format) ([]*query.Query, error) {
	f, err := Decode(rd, format)
	if err != nil {
		return nil, err
	}
	return r.BuildFile(f)
}

// LoadFile decodes and builds all queries of the file at path.
func (r *Registry) LoadFile(path string) ([]*query.Query, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) //nolint:gosec // user supplied template path
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	queries, err := r.Load(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return queries, nil
}
