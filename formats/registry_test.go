package formats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-json-editor/formats"
	_ "story-json-editor/formats/jsonstory"
	_ "story-json-editor/formats/twee"
	_ "story-json-editor/formats/yamlstory"
	"story-json-editor/parser"
)

func TestRegisteredFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "twee", "yaml"}, formats.GetAvailableFormats())
	assert.True(t, formats.IsFormatRegistered("YAML"))
	assert.False(t, formats.IsFormatRegistered("sugarcube"))
	assert.Nil(t, formats.GetRegisteredFormat("toml"))
}

func TestForFile(t *testing.T) {
	cases := map[string]string{
		"storia.json":    "json",
		"storia.YAML":    "yaml",
		"dir/storia.yml": "yaml",
		"storia.twee":    "twee",
		"storia.tw":      "twee",
	}
	for path, name := range cases {
		format, err := formats.ForFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, name, format.GetFormatName())
	}

	_, err := formats.ForFile("note.txt")
	assert.Error(t, err)
	assert.False(t, formats.IsStoryFile("note.txt"))
}

func TestConvertJSON(t *testing.T) {
	story, err := formats.Convert(formats.GetRegisteredFormat("json"), parser.SampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "Echoes of the Dragon", story.Title)

	_, err = formats.Convert(formats.GetRegisteredFormat("json"), []byte(`{"story_name": ""}`))
	assert.ErrorIs(t, err, parser.ErrInvalidDocument)
}
