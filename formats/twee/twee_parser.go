package twee

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"story-json-editor/parser"
)

// Passaggi speciali di Twine che non fanno parte della narrazione
const (
	storyTitlePassage = "StoryTitle"
	storyDataPassage  = "StoryData"
)

var skippedTags = map[string]bool{
	"script":     true,
	"stylesheet": true,
	"widget":     true,
}

// Regex per il formato :: Title [tags] {"position":"x,y"}
var passageHeaderRegex = regexp.MustCompile(`^::\s*(.+?)(?:\s+\[([^\]]*)\])?(?:\s+\{.*\})?$`)

// rawPassage è un passaggio Twee prima della conversione
type rawPassage struct {
	title   string
	tags    []string
	content string
}

// TweeParser gestisce il parsing dei file .twee
type TweeParser struct {
	reader io.Reader
}

// NewTweeParser crea un nuovo parser che legge da r
func NewTweeParser(r io.Reader) *TweeParser {
	return &TweeParser{reader: r}
}

// Parse legge il sorgente Twee e costruisce la storia.
// Il titolo arriva dal passaggio StoryTitle; i link [[...]] di ogni
// passaggio diventano un insieme di scelte in coda al contenuto.
func (tp *TweeParser) Parse() (*parser.Story, error) {
	raws, err := tp.scan()
	if err != nil {
		return nil, err
	}

	story := &parser.Story{}
	for _, raw := range raws {
		switch {
		case raw.title == storyTitlePassage:
			story.Title = strings.TrimSpace(raw.content)
			continue
		case raw.title == storyDataPassage:
			continue
		case hasSkippedTag(raw.tags):
			continue
		}
		story.Passages = append(story.Passages, convertPassage(raw))
	}

	if story.Title == "" {
		return nil, fmt.Errorf("passaggio %s mancante o vuoto", storyTitlePassage)
	}
	if len(story.Passages) == 0 {
		return nil, fmt.Errorf("nessun passaggio narrativo trovato")
	}

	return story, nil
}

// scan divide il sorgente nei passaggi grezzi, nell'ordine del file
func (tp *TweeParser) scan() ([]rawPassage, error) {
	scanner := bufio.NewScanner(tp.reader)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var passages []rawPassage
	var current *rawPassage
	var contentBuilder strings.Builder

	flush := func() {
		if current != nil {
			current.content = strings.TrimSpace(contentBuilder.String())
			passages = append(passages, *current)
			contentBuilder.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Nuova intestazione passaggio
		if strings.HasPrefix(line, "::") {
			flush()
			current = nil

			matches := passageHeaderRegex.FindStringSubmatch(line)
			if len(matches) > 1 {
				current = &rawPassage{title: strings.TrimSpace(matches[1])}
				if len(matches) > 2 && matches[2] != "" {
					current.tags = strings.Fields(matches[2])
				}
			}
		} else if current != nil {
			contentBuilder.WriteString(line)
			contentBuilder.WriteString("\n")
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("errore lettura file: %w", err)
	}
	return passages, nil
}

// convertPassage trasforma il testo Twee in elementi di contenuto:
// ogni riga di prosa diventa un testo, i link diventano scelte.
func convertPassage(raw rawPassage) *parser.Passage {
	passage := &parser.Passage{Name: raw.title, Content: []parser.ContentItem{}}
	choices := parser.ChoiceSet{}

	for _, line := range strings.Split(raw.content, "\n") {
		links := ParseLinks(line)
		for _, link := range links {
			choices = append(choices, parser.Choice{Label: link.Label, Target: link.Target})
		}

		text := strings.TrimSpace(line)
		if len(links) > 0 {
			if strings.TrimSpace(StripLinks(line)) == "" {
				// riga composta solo da link
				continue
			}
			text = strings.TrimSpace(InlineLabels(line))
		}
		if text != "" {
			passage.Content = append(passage.Content, parser.Text(text))
		}
	}

	if len(choices) > 0 {
		passage.Content = append(passage.Content, parser.ContentItem{Choices: choices})
	}
	return passage
}

func hasSkippedTag(tags []string) bool {
	for _, tag := range tags {
		if skippedTags[strings.ToLower(tag)] {
			return true
		}
	}
	return false
}

// ToDocument converte il sorgente Twee nel documento JSON della storia
func ToDocument(source []byte) ([]byte, error) {
	story, err := NewTweeParser(bytes.NewReader(source)).Parse()
	if err != nil {
		return nil, err
	}
	return story.Document()
}
