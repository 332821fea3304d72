package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"story-json-editor/parser"
)

func TestValidatePath(t *testing.T) {
	sim := NewPathSimulator(parser.SampleStory())

	assert.Empty(t, sim.ValidatePath([]string{"Start", "Forest", "HelpDragon"}))

	errs := sim.ValidatePath([]string{"Start", "DragonCave"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "DragonCave")

	errs = sim.ValidatePath([]string{"Start", "Atlantide"})
	assert.Len(t, errs, 2)
}

func TestSimulatePath(t *testing.T) {
	sim := NewPathSimulator(parser.SampleStory())

	result := sim.SimulatePath([]string{"Start", "Forest", "HelpDragon", "DragonFriend"})
	require.True(t, result.Success, result.Errors)

	require.Len(t, result.Steps, 4)
	assert.Equal(t, "Start", result.Steps[0].PassageName)
	assert.Equal(t, "DragonFriend", result.Steps[3].PassageName)
	assert.Equal(t, 4, result.Steps[3].PassageIndex)
	assert.Equal(t, "DragonFriend", result.FinalPassage)
	assert.Equal(t, []string{"Start", "Forest", "HelpDragon"}, result.History)

	// le scelte di Start puntano a passaggi esistenti
	assert.Empty(t, result.Steps[0].Warnings)
	t.Logf("✅ Simulazione completata: %d step, %d warning", len(result.Steps), result.TotalWarnings)
}

func TestSimulatePathFromMiddle(t *testing.T) {
	sim := NewPathSimulator(parser.SampleStory())

	result := sim.SimulatePath([]string{"Forest", "HelpDragon"})
	require.True(t, result.Success, result.Errors)

	require.Len(t, result.Steps, 2)
	assert.Equal(t, "Forest", result.Steps[0].PassageName)
	assert.Equal(t, 1, result.Steps[0].PassageIndex)
	assert.Equal(t, "HelpDragon", result.FinalPassage)
	// il passaggio iniziale non percorso resta fuori dalla cronologia
	assert.Equal(t, []string{"Forest"}, result.History)

	result = sim.SimulatePath([]string{"Forest"})
	require.True(t, result.Success, result.Errors)
	assert.Empty(t, result.History)
}

func TestSimulatePathInvalid(t *testing.T) {
	sim := NewPathSimulator(parser.SampleStory())

	result := sim.SimulatePath([]string{"Start", "DragonPeace"})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Steps)

	result = sim.SimulatePath(nil)
	assert.False(t, result.Success)
}

func TestSimulatePathWarnsOnDanglingChoice(t *testing.T) {
	story, err := parser.Decode([]byte(`{"story_name": "Rotta", "passages": [
		{"name": "Start", "content": [{"choices": {"Vai": "Mancante", "Resta": "Start"}}]}
	]}`))
	require.NoError(t, err)

	result := NewPathSimulator(story).SimulatePath([]string{"Start", "Start"})
	require.True(t, result.Success)
	assert.Equal(t, 2, result.TotalWarnings)
	assert.Equal(t, []string{"Start"}, result.History)
}

func TestGetSuggestedPaths(t *testing.T) {
	sim := NewPathSimulator(parser.SampleStory())

	paths := sim.GetSuggestedPaths("Start", 3)
	require.NotEmpty(t, paths)
	assert.LessOrEqual(t, len(paths), maxSuggestedPaths)
	for _, p := range paths {
		assert.Equal(t, "Start", p[0])
		assert.LessOrEqual(t, len(p), 3)
		assert.Empty(t, sim.ValidatePath(p))
	}

	assert.Empty(t, sim.GetSuggestedPaths("Atlantide", 3))
}

func TestGetSuggestedPathsEndsAtTerminalPassage(t *testing.T) {
	story, err := parser.Decode([]byte(`{"story_name": "Breve", "passages": [
		{"name": "Start", "content": [{"choices": {"Fine": "End"}}]},
		{"name": "End", "content": ["Fine."]}
	]}`))
	require.NoError(t, err)

	paths := NewPathSimulator(story).GetSuggestedPaths("Start", 0)
	assert.Equal(t, [][]string{{"Start", "End"}}, paths)
}
