package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-json-editor/parser"
)

const threePassages = `{
	"story_name": "Tre passaggi",
	"passages": [
		{"name": "Start", "content": ["Sei all'ingresso.", {"choices": {"Enter the forest": "Forest"}}]},
		{"name": "Forest", "content": ["Alberi.", {"choices": {"Back": "Start", "Village": "Village"}}]},
		{"name": "Village", "content": ["Case.", {"choices": {"Lost": "Nowhere"}}]}
	]
}`

// recorder registra le notifiche nell'ordine di arrivo
type recorder struct {
	events   []string
	passages []string
	errs     []error
}

func (r *recorder) attach(e *Engine) *Engine {
	return e.
		OnStoryLoaded(func(s *parser.Story) {
			r.events = append(r.events, "storyLoaded:"+s.Title)
		}).
		OnPassageChanged(func(p *parser.Passage) {
			r.events = append(r.events, "passageChanged:"+p.Name)
			r.passages = append(r.passages, p.Name)
		}).
		OnError(func(err error) {
			r.events = append(r.events, "error")
			r.errs = append(r.errs, err)
		})
}

func loaded(t *testing.T) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	e := rec.attach(New())
	_, err := e.Load([]byte(threePassages))
	require.NoError(t, err)
	return e, rec
}

// ============================================
// Load
// ============================================

func TestLoadSelectsStartAndNotifiesInOrder(t *testing.T) {
	rec := &recorder{}
	e := rec.attach(New())

	start, err := e.Load([]byte(threePassages))
	require.NoError(t, err)

	assert.Equal(t, "Start", start.Name)
	assert.Same(t, start, e.Current())
	assert.Equal(t, "Tre passaggi", e.Title())
	assert.Empty(t, e.History())
	assert.Equal(t, []string{"storyLoaded:Tre passaggi", "passageChanged:Start"}, rec.events)
}

func TestLoadFallsBackToFirstPassage(t *testing.T) {
	e := New()
	start, err := e.Load([]byte(`{"story_name": "X", "passages": [
		{"name": "Intro", "content": []},
		{"name": "Other", "content": []}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, "Intro", start.Name)
	assert.Equal(t, "Intro", e.Current().Name)
}

func TestLoadInvalidLeavesStateUntouched(t *testing.T) {
	e, rec := loaded(t)
	require.NoError(t, e.Navigate("Forest"))
	before := e.Snapshot()
	rec.events = nil

	invalid := []string{
		`{"passages": [{"name": "Start", "content": []}]}`,
		`{"story_name": "T", "passages": []}`,
		`{"story_name": "T"}`,
		`{"story_name": "T", "passages": "Start"}`,
		`non json`,
	}
	for _, doc := range invalid {
		start, err := e.Load([]byte(doc))
		assert.Nil(t, start)
		require.Error(t, err)
		assert.True(t, IsInvalidStory(err), "doc %s", doc)
		assert.Equal(t, before, e.Snapshot())
	}

	assert.Len(t, rec.errs, len(invalid))
	for _, ev := range rec.events {
		assert.Equal(t, "error", ev)
	}
}

func TestLoadReplacesStoryAndClearsHistory(t *testing.T) {
	e, _ := loaded(t)
	require.NoError(t, e.Navigate("Forest"))
	require.NoError(t, e.Navigate("Village"))

	_, err := e.Load(parser.SampleDocument())
	require.NoError(t, err)

	assert.Equal(t, "Echoes of the Dragon", e.Title())
	assert.Empty(t, e.History())
	// il passaggio corrente appartiene alla nuova storia
	p, ok := e.Story().Lookup("Start")
	require.True(t, ok)
	assert.Same(t, p, e.Current())
}

// ============================================
// Navigate / MakeChoice
// ============================================

func TestNavigateGrowsHistoryWithoutDedup(t *testing.T) {
	e, rec := loaded(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, e.Navigate("Forest"))
		assert.Len(t, e.History(), i)
		assert.Equal(t, "Forest", e.Current().Name)
	}
	assert.Equal(t, []string{"Start", "Forest", "Forest", "Forest", "Forest"}, e.History())
	assert.Len(t, rec.passages, 6)
}

func TestNavigateMissingPassageIsNoOp(t *testing.T) {
	e, rec := loaded(t)
	require.NoError(t, e.Navigate("Village"))
	before := e.Snapshot()
	current := e.Current()

	err := e.Navigate("Nowhere")
	require.Error(t, err)

	var notFound *PassageNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Nowhere", notFound.Name)
	assert.Same(t, current, e.Current())
	assert.Equal(t, before, e.Snapshot())
	require.Len(t, rec.errs, 1)
	assert.Equal(t, err.Error(), rec.errs[0].Error())
}

func TestNavigateWithoutStory(t *testing.T) {
	rec := &recorder{}
	e := rec.attach(New())

	assert.ErrorIs(t, e.Navigate("Start"), ErrNoStory)
	assert.ErrorIs(t, e.MakeChoice("Start"), ErrNoStory)
	assert.ErrorIs(t, e.Reset(), ErrNoStory)
	assert.ErrorIs(t, e.GoBack(), ErrNoHistory)
	assert.Nil(t, e.Current())
	assert.Equal(t, "", e.Title())
	assert.Nil(t, e.Document())
	assert.False(t, e.Snapshot().Loaded)
	assert.Len(t, rec.errs, 4)
}

func TestMakeChoiceScenario(t *testing.T) {
	e := New()
	var changed []string
	e.OnPassageChanged(func(p *parser.Passage) { changed = append(changed, p.Name) })

	_, err := e.Load(parser.SampleDocument())
	require.NoError(t, err)
	changed = nil

	require.NoError(t, e.MakeChoice("Forest"))
	assert.Equal(t, []string{"Forest"}, changed)
	assert.Equal(t, []string{"Start"}, e.History())

	require.NoError(t, e.GoBack())
	assert.Equal(t, []string{"Forest", "Start"}, changed)
	assert.Empty(t, e.History())

	t.Logf("✅ Scenario scelta + indietro: %v", changed)
}

// ============================================
// GoBack
// ============================================

func TestGoBackAfterTwoNavigations(t *testing.T) {
	e, _ := loaded(t)
	require.NoError(t, e.Navigate("Forest"))
	require.NoError(t, e.Navigate("Village"))

	require.NoError(t, e.GoBack())
	assert.Equal(t, "Forest", e.Current().Name)
	assert.Equal(t, []string{"Start"}, e.History())

	require.NoError(t, e.GoBack())
	assert.Equal(t, "Start", e.Current().Name)
	assert.Empty(t, e.History())

	before := e.Snapshot()
	assert.ErrorIs(t, e.GoBack(), ErrNoHistory)
	assert.Equal(t, before, e.Snapshot())
}

func TestGoBackAfterLoadNavigateNavigate(t *testing.T) {
	// load -> navigate(A) -> navigate(B): indietro torna ad A,
	// la cronologia torna com'era dopo navigate(A)
	e, _ := loaded(t)
	require.NoError(t, e.Navigate("Forest"))
	afterA := e.History()
	require.NoError(t, e.Navigate("Village"))

	require.NoError(t, e.GoBack())
	assert.Equal(t, "Forest", e.Current().Name)
	assert.Equal(t, afterA, e.History())

	// il passaggio iniziale non crea cronologia: dopo un altro passo è vuota
	require.NoError(t, e.GoBack())
	assert.Empty(t, e.History())
	assert.ErrorIs(t, e.GoBack(), ErrNoHistory)
}

func TestGoBackConsumesMissingEntry(t *testing.T) {
	e, rec := loaded(t)
	require.NoError(t, e.Navigate("Forest"))
	// simula una voce di cronologia per un passaggio rimosso
	e.history = append(e.history, "Removed")
	current := e.Current()

	err := e.GoBack()
	require.Error(t, err)
	assert.True(t, IsPassageNotFound(err))
	assert.Same(t, current, e.Current())
	assert.Equal(t, []string{"Start"}, e.History())
	assert.Len(t, rec.errs, 1)
}

// ============================================
// Reset
// ============================================

func TestResetReturnsToStartFromAnyDepth(t *testing.T) {
	for depth := 0; depth < 6; depth++ {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			e, _ := loaded(t)
			for i := 0; i < depth; i++ {
				target := "Forest"
				if i%2 == 1 {
					target = "Village"
				}
				require.NoError(t, e.Navigate(target))
			}

			require.NoError(t, e.Reset())
			assert.Equal(t, "Start", e.Current().Name)
			assert.Empty(t, e.History())
		})
	}
}

func TestResetRequiresStartPassage(t *testing.T) {
	e := New()
	_, err := e.Load([]byte(`{"story_name": "X", "passages": [
		{"name": "Intro", "content": []},
		{"name": "Other", "content": []}
	]}`))
	require.NoError(t, err)
	require.NoError(t, e.Navigate("Other"))
	before := e.Snapshot()

	err = e.Reset()
	var notFound *PassageNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Start", notFound.Name)
	assert.Equal(t, before, e.Snapshot())
}

// ============================================
// Notifiche e istanze indipendenti
// ============================================

func TestListenersRunInRegistrationOrder(t *testing.T) {
	var calls []int
	e := New()
	for i := 0; i < 3; i++ {
		e.OnPassageChanged(func(*parser.Passage) { calls = append(calls, i) })
	}

	_, err := e.Load([]byte(threePassages))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, calls)
}

func TestEnginesAreIndependent(t *testing.T) {
	a, _ := loaded(t)
	b, _ := loaded(t)

	require.NoError(t, a.Navigate("Forest"))
	assert.Equal(t, "Forest", a.Current().Name)
	assert.Equal(t, "Start", b.Current().Name)
	assert.Empty(t, b.History())
}

func TestHistoryIsACopy(t *testing.T) {
	e, _ := loaded(t)
	require.NoError(t, e.Navigate("Forest"))

	h := e.History()
	h[0] = "Tampered"
	assert.Equal(t, []string{"Start"}, e.History())
}

func TestDocumentIsCompactRawText(t *testing.T) {
	e, _ := loaded(t)
	doc := e.Document()
	require.NotNil(t, doc)
	assert.JSONEq(t, threePassages, string(doc))
	assert.NotContains(t, string(doc), "\n")
}
