package formats

import "story-json-editor/parser"

// StoryFormat definisce l'interface per i formati sorgente di una storia.
// Ogni formato converte il sorgente nel documento JSON canonico.
type StoryFormat interface {
	// GetFormatName restituisce il nome del formato
	GetFormatName() string

	// Extensions restituisce le estensioni dei file gestiti (es: ".twee")
	Extensions() []string

	// ToDocument converte il sorgente nel documento JSON della storia
	ToDocument(source []byte) ([]byte, error)
}

// Convert converte il sorgente con il formato indicato e decodifica la storia
func Convert(format StoryFormat, source []byte) (*parser.Story, error) {
	doc, err := format.ToDocument(source)
	if err != nil {
		return nil, err
	}
	return parser.Decode(doc)
}
