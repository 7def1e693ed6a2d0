// Package codec selects the JSON encoding used to export query results.
//
// Exported documents carry no codec marker. Both built-in codecs produce
// interchangeable JSON, so a document written by one decodes with the other.
package codec

import (
	"fmt"
	"io"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	MarshalIndent(v any, prefix, indent string) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Names lists the built-in codec names accepted by ByName.
func Names() []string { return []string{JSON{}.Name(), GoJSON{}.Name()} }

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// WriteIndented writes v as two-space indented JSON followed by a newline.
// A nil codec means Default.
func WriteIndented(w io.Writer, c Codec, v any) error {
	if c == nil {
		c = Default
	}
	data, err := c.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// MustMarshal is a helper for tests and examples.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
