package twee

import "story-json-editor/formats"

// TweeFormat importa sorgenti Twee 3 nel documento JSON
type TweeFormat struct{}

// NewTweeFormat crea il formato Twee
func NewTweeFormat() *TweeFormat {
	return &TweeFormat{}
}

// GetFormatName restituisce "twee"
func (f *TweeFormat) GetFormatName() string {
	return "twee"
}

// Extensions restituisce le estensioni gestite
func (f *TweeFormat) Extensions() []string {
	return []string{".twee", ".tw"}
}

// ToDocument converte il sorgente Twee
func (f *TweeFormat) ToDocument(source []byte) ([]byte, error) {
	return ToDocument(source)
}

// init registra automaticamente il formato Twee
// Questo viene chiamato quando il package viene importato
func init() {
	formats.RegisterFormat("twee", func() formats.StoryFormat {
		return NewTweeFormat()
	})
}
