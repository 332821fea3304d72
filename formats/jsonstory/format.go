package jsonstory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"story-json-editor/formats"
	"story-json-editor/parser"
)

// JSONFormat è il formato canonico: il documento è già JSON
type JSONFormat struct{}

// NewJSONFormat crea il formato JSON
func NewJSONFormat() *JSONFormat {
	return &JSONFormat{}
}

// GetFormatName restituisce "json"
func (f *JSONFormat) GetFormatName() string {
	return "json"
}

// Extensions restituisce le estensioni gestite
func (f *JSONFormat) Extensions() []string {
	return []string{".json"}
}

// ToDocument valida il documento e lo restituisce compattato
func (f *JSONFormat) ToDocument(source []byte) ([]byte, error) {
	if err := parser.Validate(source); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, source); err != nil {
		return nil, fmt.Errorf("errore compattazione JSON: %w", err)
	}
	return buf.Bytes(), nil
}

func init() {
	formats.RegisterFormat("json", func() formats.StoryFormat {
		return NewJSONFormat()
	})
}
