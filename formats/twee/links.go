package twee

import (
	"regexp"
	"strings"
)

var linkRegex = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// Link è un collegamento [[...]] trovato nel testo
type Link struct {
	Label  string
	Target string
}

// ParseLinks estrae i link dal contenuto. Gestisce [[Target]],
// [[Testo|Target]], [[Testo->Target]] e [[Target<-Testo]].
func ParseLinks(content string) []Link {
	matches := linkRegex.FindAllStringSubmatch(content, -1)

	links := []Link{}
	for _, match := range matches {
		if len(match) > 1 {
			links = append(links, parseLink(match[1]))
		}
	}
	return links
}

func parseLink(body string) Link {
	switch {
	case strings.Contains(body, "->"):
		i := strings.LastIndex(body, "->")
		return newLink(body[:i], body[i+2:])
	case strings.Contains(body, "<-"):
		i := strings.Index(body, "<-")
		return newLink(body[i+2:], body[:i])
	case strings.Contains(body, "|"):
		i := strings.LastIndex(body, "|")
		return newLink(body[:i], body[i+1:])
	}
	return newLink(body, body)
}

func newLink(label, target string) Link {
	return Link{Label: strings.TrimSpace(label), Target: strings.TrimSpace(target)}
}

// StripLinks rimuove i link dal testo
func StripLinks(content string) string {
	return linkRegex.ReplaceAllString(content, "")
}

// InlineLabels sostituisce ogni link con la sua etichetta
func InlineLabels(content string) string {
	return linkRegex.ReplaceAllStringFunc(content, func(m string) string {
		return parseLink(m[2 : len(m)-2]).Label
	})
}
