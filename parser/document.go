package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidDocument è la causa comune degli errori di validazione
var ErrInvalidDocument = errors.New("documento della storia non valido")

// ValidationError descrive il campo mancante o non valido
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate controlla la forma del documento (validazione superficiale).
// Non verifica che le destinazioni delle scelte esistano: i link pendenti
// sono un errore di navigazione, non di caricamento.
func Validate(data []byte) error {
	if !gjson.ValidBytes(data) {
		return invalid("", "il documento non è JSON valido")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return invalid("", "il documento deve essere un oggetto")
	}

	title := doc.Get(TitleField)
	if title.Type != gjson.String || title.Str == "" {
		return invalid(TitleField, "titolo mancante o vuoto")
	}

	passages := doc.Get(PassagesField)
	if !passages.IsArray() {
		return invalid(PassagesField, "deve essere un array di passaggi")
	}
	items := passages.Array()
	if len(items) == 0 {
		return invalid(PassagesField, "la storia non contiene passaggi")
	}

	for i, p := range items {
		field := fmt.Sprintf("%s[%d]", PassagesField, i)
		if !p.IsObject() {
			return invalid(field, "il passaggio deve essere un oggetto")
		}
		if name := p.Get(NameField); name.Type != gjson.String || name.Str == "" {
			return invalid(field+"."+NameField, "nome del passaggio mancante")
		}
		if !p.Get(ContentField).IsArray() {
			return invalid(field+"."+ContentField, "il contenuto deve essere un array")
		}
	}

	return nil
}

// Valid restituisce true se il documento supera la validazione
func Valid(data []byte) bool {
	return Validate(data) == nil
}

// Decode valida e converte il documento JSON in una Story.
// L'ordine delle etichette delle scelte è quello del documento.
func Decode(data []byte) (*Story, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, invalid("", "compattazione fallita: %v", err)
	}

	doc := gjson.ParseBytes(compact.Bytes())
	story := &Story{
		Title: doc.Get(TitleField).Str,
		Raw:   compact.Bytes(),
	}

	doc.Get(PassagesField).ForEach(func(_, p gjson.Result) bool {
		story.Passages = append(story.Passages, decodePassage(p))
		return true
	})

	return story, nil
}

func decodePassage(p gjson.Result) *Passage {
	passage := &Passage{Name: p.Get(NameField).Str}

	p.Get(ContentField).ForEach(func(_, item gjson.Result) bool {
		switch {
		case item.Type == gjson.String:
			passage.Content = append(passage.Content, Text(item.Str))
		case item.IsObject() && item.Get(ChoicesField).IsObject():
			set := ChoiceSet{}
			item.Get(ChoicesField).ForEach(func(label, target gjson.Result) bool {
				set = append(set, Choice{Label: label.String(), Target: target.String()})
				return true
			})
			passage.Content = append(passage.Content, ContentItem{Choices: set})
		}
		// altri elementi vengono ignorati, come fa il renderer
		return true
	})

	return passage
}

// Document restituisce il testo JSON della storia: quello originale se disponibile
func (s *Story) Document() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	return json.Marshal(s)
}

// UnmarshalJSON decodifica una Story mantenendo l'ordine delle scelte
func (s *Story) UnmarshalJSON(data []byte) error {
	story, err := Decode(data)
	if err != nil {
		return err
	}
	*s = *story
	return nil
}

// MarshalJSON codifica la Story nel formato documento
func (s Story) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, TitleField)
	if err := writeValue(&buf, s.Title); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	writeKey(&buf, PassagesField)
	buf.WriteByte('[')
	for i, p := range s.Passages {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := p.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON codifica il passaggio come {"name": ..., "content": [...]}
func (p *Passage) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, NameField)
	if err := writeValue(&buf, p.Name); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	writeKey(&buf, ContentField)
	buf.WriteByte('[')
	for i, item := range p.Content {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := item.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON codifica il testo come stringa e le scelte come {"choices": {...}}
func (ci ContentItem) MarshalJSON() ([]byte, error) {
	if !ci.IsChoiceSet() {
		return json.Marshal(ci.Text)
	}
	choices, err := ci.Choices.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, ChoicesField)
	buf.Write(choices)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON codifica le scelte come oggetto etichetta -> destinazione, in ordine
func (cs ChoiceSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(&buf, c.Label); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeValue(&buf, c.Target); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) {
	data, _ := json.Marshal(key)
	buf.Write(data)
	buf.WriteByte(':')
}

func writeValue(buf *bytes.Buffer, v string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
