package player

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"story-json-editor/engine"
	"story-json-editor/parser"
)

const defaultWidth = 80

// Model è il presentation layer da terminale.
// Lo stato mostrato arriva solo dalle notifiche dell'engine.
type Model struct {
	engine *engine.Engine

	title   string
	passage *parser.Passage
	depth   int
	cursor  int
	status  string
	width   int
}

// New crea il player e lo registra come listener dell'engine
func New(e *engine.Engine) *Model {
	m := &Model{
		engine:  e,
		title:   e.Title(),
		passage: e.Current(),
		depth:   len(e.History()),
		width:   defaultWidth,
	}

	e.OnStoryLoaded(func(s *parser.Story) {
		m.title = s.Title
		m.status = ""
	}).OnPassageChanged(func(p *parser.Passage) {
		m.passage = p
		m.depth = len(e.History())
		m.cursor = 0
		m.status = ""
	}).OnError(func(err error) {
		m.status = err.Error()
	})

	return m
}

// Init non esegue comandi iniziali
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update gestisce tastiera e ridimensionamento
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m *Model) handleKey(key string) (tea.Model, tea.Cmd) {
	choices := m.choices()

	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(choices)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.choose(m.cursor)
	case "b", "backspace":
		_ = m.engine.GoBack()
	case "r":
		_ = m.engine.Reset()
	default:
		// 1-9: scelta diretta
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
			m.choose(n - 1)
		}
	}
	return m, nil
}

// choose applica la scelta all'indice i; gli errori arrivano dalla notifica
func (m *Model) choose(i int) {
	choices := m.choices()
	if i < 0 || i >= len(choices) {
		return
	}
	_ = m.engine.MakeChoice(choices[i].Target)
}

func (m *Model) choices() []parser.Choice {
	if m.passage == nil {
		return nil
	}
	return m.passage.AllChoices()
}

// View disegna titolo, testo, scelte e riga di stato
func (m *Model) View() string {
	var b strings.Builder
	width := m.width - 2
	if width < 20 {
		width = 20
	}

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	if m.passage == nil {
		b.WriteString(helpStyle.Render("Nessuna storia caricata"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(passageStyle.Render(m.passage.Name))
	if m.depth > 0 {
		b.WriteString(historyStyle.Render(fmt.Sprintf("  ↩ %d", m.depth)))
	}
	b.WriteString("\n\n")

	for _, text := range m.passage.Texts() {
		b.WriteString(textStyle.Width(width).Render(text))
		b.WriteString("\n\n")
	}

	for i, c := range m.passage.AllChoices() {
		line := fmt.Sprintf("%d. %s", i+1, c.Label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(choiceStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("⚠ " + m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ seleziona • 1-9 scegli • enter conferma • b indietro • r ricomincia • q esci"))
	b.WriteString("\n")
	return b.String()
}

// Run avvia il player a schermo intero
func Run(e *engine.Engine, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	if _, err := tea.NewProgram(New(e), opts...).Run(); err != nil {
		return fmt.Errorf("errore player: %w", err)
	}
	return nil
}
