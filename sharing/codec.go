package sharing

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"story-json-editor/parser"
)

// QueryParam è il parametro dell'URL che trasporta il token
const QueryParam = "story"

// Encode serializza la storia in un token condivisibile:
// base64(percent-encoding(testo JSON)).
func Encode(story *parser.Story) (string, error) {
	if story == nil {
		return "", fmt.Errorf("nessuna storia da condividere")
	}
	doc, err := story.Document()
	if err != nil {
		return "", fmt.Errorf("errore serializzazione storia: %w", err)
	}
	return EncodeDocument(doc)
}

// EncodeDocument codifica un documento JSON già serializzato
func EncodeDocument(doc []byte) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, doc); err != nil {
		return "", fmt.Errorf("documento JSON non valido: %w", err)
	}
	escaped := escapeComponent(compact.String())
	return base64.StdEncoding.EncodeToString([]byte(escaped)), nil
}

// Decode è l'operazione inversa di Encode. Restituisce nil (mai un errore)
// se il token è malformato, troncato o non contiene JSON.
func Decode(token string) []byte {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	raw, err := decodeBase64(token)
	if err != nil {
		return nil
	}

	text, err := url.PathUnescape(string(raw))
	if err != nil {
		return nil
	}
	if !gjson.Valid(text) {
		return nil
	}
	return []byte(text)
}

// DecodeStory decodifica il token e restituisce la storia, nil se assente o non valida
func DecodeStory(token string) *parser.Story {
	doc := Decode(token)
	if doc == nil {
		return nil
	}
	story, err := parser.Decode(doc)
	if err != nil {
		return nil
	}
	return story
}

// ShareURL genera l'URL condivisibile: la query esistente viene sostituita
func ShareURL(base string, story *parser.Story) (string, error) {
	token, err := Encode(story)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("URL base non valido %q: %w", base, err)
	}
	q := url.Values{}
	q.Set(QueryParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FromURL estrae il documento dal parametro "story" dell'URL, nil se assente
func FromURL(rawURL string) []byte {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil
	}
	token := u.Query().Get(QueryParam)
	if token == "" {
		return nil
	}
	return Decode(token)
}

// decodeBase64 accetta anche token passati per URL senza escape ('+' diventato spazio)
// o nella variante URL-safe.
func decodeBase64(token string) ([]byte, error) {
	token = strings.ReplaceAll(token, " ", "+")
	if raw, err := base64.StdEncoding.DecodeString(token); err == nil {
		return raw, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
}

// escapeComponent applica le stesse regole di encodeURIComponent:
// restano invariati solo A-Z a-z 0-9 - _ . ! ~ * ' ( )
func escapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreservedComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreservedComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
