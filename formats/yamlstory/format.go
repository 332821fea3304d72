package yamlstory

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"

	"story-json-editor/formats"
	"story-json-editor/parser"
)

// YAMLFormat legge storie scritte in YAML con la stessa struttura del JSON
type YAMLFormat struct{}

// NewYAMLFormat crea il formato YAML
func NewYAMLFormat() *YAMLFormat {
	return &YAMLFormat{}
}

// GetFormatName restituisce "yaml"
func (f *YAMLFormat) GetFormatName() string {
	return "yaml"
}

// Extensions restituisce le estensioni gestite
func (f *YAMLFormat) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// ToDocument converte lo YAML in JSON mantenendo l'ordine delle chiavi
// (l'ordine delle scelte è significativo).
func (f *YAMLFormat) ToDocument(source []byte) ([]byte, error) {
	var v interface{}
	if err := yaml.UnmarshalWithOptions(source, &v, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("errore parsing YAML: %w", err)
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	if err := parser.Validate(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromStory esporta la storia in YAML, con le scelte nell'ordine originale
func FromStory(story *parser.Story) ([]byte, error) {
	passages := make([]interface{}, 0, len(story.Passages))
	for _, p := range story.Passages {
		content := make([]interface{}, 0, len(p.Content))
		for _, item := range p.Content {
			if !item.IsChoiceSet() {
				content = append(content, item.Text)
				continue
			}
			choices := yaml.MapSlice{}
			for _, c := range item.Choices {
				choices = append(choices, yaml.MapItem{Key: c.Label, Value: c.Target})
			}
			content = append(content, yaml.MapSlice{{Key: parser.ChoicesField, Value: choices}})
		}
		passages = append(passages, yaml.MapSlice{
			{Key: parser.NameField, Value: p.Name},
			{Key: parser.ContentField, Value: content},
		})
	}

	doc := yaml.MapSlice{
		{Key: parser.TitleField, Value: story.Title},
		{Key: parser.PassagesField, Value: passages},
	}
	return yaml.Marshal(doc)
}

func writeJSON(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case yaml.MapSlice:
		buf.WriteByte('{')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(fmt.Sprint(item.Key))
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, item.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("valore YAML non convertibile in JSON: %w", err)
		}
		buf.Write(data)
	}
	return nil
}

func init() {
	formats.RegisterFormat("yaml", func() formats.StoryFormat {
		return NewYAMLFormat()
	})
}
