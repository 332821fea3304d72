package player

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-json-editor/engine"
	"story-json-editor/parser"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

func newPlayer(t *testing.T) (*Model, *engine.Engine) {
	t.Helper()
	e := engine.New()
	m := New(e)
	_, err := e.LoadStory(parser.SampleStory())
	require.NoError(t, err)
	return m, e
}

func TestPlayerFollowsEngine(t *testing.T) {
	m, e := newPlayer(t)

	assert.Equal(t, "Echoes of the Dragon", m.title)
	assert.Equal(t, "Start", m.passage.Name)

	press(m, "2")
	assert.Equal(t, "Village", e.Current().Name)
	assert.Equal(t, "Village", m.passage.Name)
	assert.Equal(t, 1, m.depth)

	press(m, "down", "enter")
	assert.Equal(t, "Start", m.passage.Name)
	assert.Equal(t, []string{"Start", "Village"}, e.History())

	press(m, "b")
	assert.Equal(t, "Village", m.passage.Name)

	press(m, "r")
	assert.Equal(t, "Start", m.passage.Name)
	assert.Empty(t, e.History())
}

func TestPlayerCursorBounds(t *testing.T) {
	m, _ := newPlayer(t)

	press(m, "up")
	assert.Equal(t, 0, m.cursor)
	press(m, "down", "down", "down")
	assert.Equal(t, 1, m.cursor)

	// scelta fuori range: nessun cambiamento
	press(m, "9")
	assert.Equal(t, "Start", m.passage.Name)
}

func TestPlayerShowsErrors(t *testing.T) {
	m, _ := newPlayer(t)

	press(m, "b")
	assert.Equal(t, engine.ErrNoHistory.Error(), m.status)
	assert.Contains(t, m.View(), engine.ErrNoHistory.Error())

	press(m, "1")
	assert.Empty(t, m.status)
}

func TestPlayerView(t *testing.T) {
	m, _ := newPlayer(t)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	view := m.View()
	assert.Contains(t, view, "Echoes of the Dragon")
	assert.Contains(t, view, "1. Enter the forest")
	assert.Contains(t, view, "2. Go to the village")

	empty := New(engine.New())
	assert.Contains(t, empty.View(), "Nessuna storia caricata")
}

func TestPlayerQuit(t *testing.T) {
	m, _ := newPlayer(t)

	cmd := press(m, "q")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
	assert.True(t, strings.Contains(m.View(), "Start"))
}
