package parser

import (
	_ "embed"
)

// Storia di esempio mostrata all'avvio dell'editor
//
//go:embed sample_story.json
var sampleStory []byte

// SampleDocument restituisce una copia del documento JSON di esempio
func SampleDocument() []byte {
	doc := make([]byte, len(sampleStory))
	copy(doc, sampleStory)
	return doc
}

// SampleStory restituisce la storia di esempio già decodificata
func SampleStory() *Story {
	story, err := Decode(sampleStory)
	if err != nil {
		panic("storia di esempio non valida: " + err.Error())
	}
	return story
}
