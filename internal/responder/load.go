package responder

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTable reads a response table from a YAML file. Unknown fields are
// rejected. Generated records cannot be expressed in YAML, so a loaded table
// holds static responses only. The returned table is validated; on error it is
// still returned so a selector built from it fails closed.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read response table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes a YAML response table.
func ParseTable(data []byte) (Table, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && err != io.EOF {
		return Table{}, fmt.Errorf("decode response table: %w", err)
	}
	if t.Window == 0 {
		t.Window = DefaultWindow
	}
	if t.Apology.Body == "" {
		t.Apology = builtinApology
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}
