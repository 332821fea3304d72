package sharing

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-json-editor/parser"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	docs := map[string][]byte{
		"sample": parser.SampleDocument(),
		"unicode": []byte(`{"story_name": "Città perduta 🐉", "passages": [
			{"name": "Start", "content": ["Però è già «notte» — 夜", {"choices": {"Avanti →": "Fine"}}]},
			{"name": "Fine", "content": ["100% & <fine>"]}
		]}`),
	}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			story, err := parser.Decode(doc)
			require.NoError(t, err)

			token, err := Encode(story)
			require.NoError(t, err)
			assert.NotContains(t, token, "%")

			decoded := DecodeStory(token)
			require.NotNil(t, decoded)
			assert.Equal(t, story.Title, decoded.Title)
			require.Len(t, decoded.Passages, len(story.Passages))
			for i := range story.Passages {
				assert.Equal(t, story.Passages[i].Name, decoded.Passages[i].Name)
				assert.Equal(t, story.Passages[i].Content, decoded.Passages[i].Content)
			}
			assert.JSONEq(t, string(doc), string(Decode(token)))
		})
	}
}

func TestEncodeMatchesBrowserFormat(t *testing.T) {
	// btoa(encodeURIComponent('{"a":"b c"}'))
	token, err := EncodeDocument([]byte(`{"a": "b c"}`))
	require.NoError(t, err)

	expected := base64.StdEncoding.EncodeToString([]byte(`%7B%22a%22%3A%22b%20c%22%7D`))
	assert.Equal(t, expected, token)
}

func TestEscapeComponentKeepsUnreserved(t *testing.T) {
	assert.Equal(t, "AZaz09-_.!~*'()", escapeComponent("AZaz09-_.!~*'()"))
	assert.Equal(t, "%C3%A8%20%2B%2F", escapeComponent("è +/"))
}

func TestDecodeMalformedIsAbsent(t *testing.T) {
	valid, err := EncodeDocument(parser.SampleDocument())
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"not base64":   "@@@not-base64@@@",
		"truncated":    valid[:len(valid)/2],
		"not json":     base64.StdEncoding.EncodeToString([]byte("hello%20world")),
		"bad escape":   base64.StdEncoding.EncodeToString([]byte("%ZZ")),
		"partial json": base64.StdEncoding.EncodeToString([]byte(`%7B%22a%22`)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, Decode(token))
			assert.Nil(t, DecodeStory(token))
		})
	}
}

func TestDecodeStoryRejectsInvalidStory(t *testing.T) {
	token, err := EncodeDocument([]byte(`{"story_name": "Vuota", "passages": []}`))
	require.NoError(t, err)

	assert.NotNil(t, Decode(token))
	assert.Nil(t, DecodeStory(token))
}

func TestShareURLReplacesQuery(t *testing.T) {
	story := parser.SampleStory()

	shareURL, err := ShareURL("https://example.com/viewer/?old=1#top", story)
	require.NoError(t, err)

	u, err := url.Parse(shareURL)
	require.NoError(t, err)
	assert.Equal(t, "/viewer/", u.Path)
	assert.Empty(t, u.Query().Get("old"))
	assert.NotEmpty(t, u.Query().Get(QueryParam))

	doc := FromURL(shareURL)
	require.NotNil(t, doc)
	assert.JSONEq(t, string(story.Raw), string(doc))

	t.Logf("✅ URL condivisibile (%d caratteri)", len(shareURL))
}

func TestFromURLWithoutStory(t *testing.T) {
	assert.Nil(t, FromURL("https://example.com/"))
	assert.Nil(t, FromURL("https://example.com/?story="))
	assert.Nil(t, FromURL("https://example.com/?story=%%%"))
	assert.Nil(t, FromURL("://bad url"))
}

func TestDecodeAcceptsUnescapedPlus(t *testing.T) {
	token, err := EncodeDocument(parser.SampleDocument())
	require.NoError(t, err)
	if !strings.Contains(token, "+") {
		t.Skip("il token non contiene '+'")
	}
	assert.NotNil(t, Decode(strings.ReplaceAll(token, "+", " ")))
}
