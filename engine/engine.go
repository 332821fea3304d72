package engine

import (
	"story-json-editor/parser"
)

// State è una fotografia dello stato di navigazione
type State struct {
	Title   string   `json:"title"`
	Current string   `json:"current"`
	History []string `json:"history"`
	Loaded  bool     `json:"loaded"`
}

// Engine gestisce la navigazione in una storia: passaggio corrente,
// cronologia e notifiche ai listener registrati.
//
// Le notifiche vengono consegnate in modo sincrono, nell'ordine di
// registrazione, sullo stesso stack dell'operazione che le ha generate.
// Engine non è sicuro per l'uso concorrente.
type Engine struct {
	story   *parser.Story
	current *parser.Passage
	history []string

	onPassageChanged []func(*parser.Passage)
	onStoryLoaded    []func(*parser.Story)
	onError          []func(error)
}

// New crea un nuovo engine senza storia caricata
func New() *Engine {
	return &Engine{}
}

// ============================================
// Listener
// ============================================

// OnPassageChanged registra un listener per il cambio di passaggio
func (e *Engine) OnPassageChanged(fn func(*parser.Passage)) *Engine {
	e.onPassageChanged = append(e.onPassageChanged, fn)
	return e
}

// OnStoryLoaded registra un listener per il caricamento di una storia
func (e *Engine) OnStoryLoaded(fn func(*parser.Story)) *Engine {
	e.onStoryLoaded = append(e.onStoryLoaded, fn)
	return e
}

// OnError registra un listener per gli errori di navigazione
func (e *Engine) OnError(fn func(error)) *Engine {
	e.onError = append(e.onError, fn)
	return e
}

func (e *Engine) emitPassageChanged(p *parser.Passage) {
	for _, fn := range e.onPassageChanged {
		fn(p)
	}
}

func (e *Engine) emitStoryLoaded(s *parser.Story) {
	for _, fn := range e.onStoryLoaded {
		fn(s)
	}
}

// fail notifica l'errore ai listener e lo restituisce al chiamante
func (e *Engine) fail(err error) error {
	for _, fn := range e.onError {
		fn(err)
	}
	return err
}

// ============================================
// Operazioni
// ============================================

// Load valida il documento JSON e lo carica come nuova storia.
// In caso di errore lo stato esistente resta invariato.
func (e *Engine) Load(data []byte) (*parser.Passage, error) {
	story, err := parser.Decode(data)
	if err != nil {
		return nil, e.fail(&InvalidStoryError{Reason: err})
	}
	return e.LoadStory(story)
}

// LoadStory carica una storia già decodificata.
// Il passaggio iniziale è "Start" se presente, altrimenti il primo.
func (e *Engine) LoadStory(story *parser.Story) (*parser.Passage, error) {
	if story == nil || len(story.Passages) == 0 || story.Title == "" {
		return nil, e.fail(&InvalidStoryError{Reason: parser.ErrInvalidDocument})
	}

	start := story.StartingPassage()

	e.story = story
	e.history = nil
	e.current = nil
	e.emitStoryLoaded(story)

	// stesso percorso di Navigate: start esiste sempre in story
	e.moveTo(start)
	return start, nil
}

// Navigate porta la storia al passaggio indicato.
// Il passaggio corrente (se c'è) viene aggiunto alla cronologia.
func (e *Engine) Navigate(name string) error {
	if e.story == nil {
		return e.fail(ErrNoStory)
	}

	target, ok := e.story.Lookup(name)
	if !ok {
		return e.fail(&PassageNotFoundError{Name: name})
	}

	e.moveTo(target)
	return nil
}

// MakeChoice gestisce la scelta dell'utente: equivale a Navigate
func (e *Engine) MakeChoice(target string) error {
	return e.Navigate(target)
}

// GoBack torna al passaggio precedente senza creare cronologia in avanti.
// La voce estratta viene consumata anche se il passaggio non esiste più.
func (e *Engine) GoBack() error {
	if len(e.history) == 0 {
		return e.fail(ErrNoHistory)
	}

	last := len(e.history) - 1
	previous := e.history[last]
	e.history = e.history[:last]

	target, ok := e.story.Lookup(previous)
	if !ok {
		return e.fail(&PassageNotFoundError{Name: previous})
	}

	e.current = target
	e.emitPassageChanged(target)
	return nil
}

// Reset svuota la cronologia e torna al passaggio "Start".
// Non c'è fallback sul primo passaggio: senza "Start" il reset fallisce.
func (e *Engine) Reset() error {
	if e.story == nil {
		return e.fail(ErrNoStory)
	}

	start, ok := e.story.Lookup(parser.StartPassage)
	if !ok {
		return e.fail(&PassageNotFoundError{Name: parser.StartPassage})
	}

	e.history = nil
	e.current = nil
	e.moveTo(start)
	return nil
}

func (e *Engine) moveTo(target *parser.Passage) {
	if e.current != nil {
		e.history = append(e.history, e.current.Name)
	}
	e.current = target
	e.emitPassageChanged(target)
}

// ============================================
// Accessori
// ============================================

// Current restituisce il passaggio corrente (nil se nessuna storia è caricata)
func (e *Engine) Current() *parser.Passage {
	return e.current
}

// Title restituisce il titolo della storia ("" se nessuna storia è caricata)
func (e *Engine) Title() string {
	if e.story == nil {
		return ""
	}
	return e.story.Title
}

// Story restituisce la storia caricata
func (e *Engine) Story() *parser.Story {
	return e.story
}

// Document restituisce il documento JSON della storia, da passare al codec di condivisione
func (e *Engine) Document() []byte {
	if e.story == nil {
		return nil
	}
	doc, err := e.story.Document()
	if err != nil {
		return nil
	}
	return doc
}

// History restituisce una copia della cronologia (dal più vecchio al più recente)
func (e *Engine) History() []string {
	history := make([]string, len(e.history))
	copy(history, e.history)
	return history
}

// Loaded indica se una storia è caricata
func (e *Engine) Loaded() bool {
	return e.story != nil
}

// Snapshot restituisce lo stato corrente
func (e *Engine) Snapshot() State {
	state := State{
		Title:   e.Title(),
		History: e.History(),
		Loaded:  e.Loaded(),
	}
	if e.current != nil {
		state.Current = e.current.Name
	}
	return state
}
