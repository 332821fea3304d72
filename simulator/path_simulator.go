package simulator

import (
	"fmt"

	"story-json-editor/engine"
	"story-json-editor/parser"
)

const (
	// DefaultMaxDepth profondità usata quando non specificata
	DefaultMaxDepth = 5
	// MaxDepthLimit limite massimo di profondità per i suggerimenti
	MaxDepthLimit = 10
	// maxSuggestedPaths limita i percorsi restituiti per non esplodere
	maxSuggestedPaths = 10
)

// PathSimulator simula un percorso attraverso la storia
type PathSimulator struct {
	story *parser.Story
}

// StepResult risultato di un singolo step
type StepResult struct {
	PassageName    string          `json:"passage_name"`
	PassageIndex   int             `json:"passage_index"`
	Texts          []string        `json:"texts"`
	AvailableLinks []parser.Choice `json:"available_links"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// SimulationResult risultato completo della simulazione
type SimulationResult struct {
	Success       bool         `json:"success"`
	Path          []string     `json:"path"`
	Steps         []StepResult `json:"steps"`
	FinalPassage  string       `json:"final_passage"`
	History       []string     `json:"history"`
	Errors        []string     `json:"errors,omitempty"`
	TotalWarnings int          `json:"total_warnings"`
}

// NewPathSimulator crea un nuovo simulatore
func NewPathSimulator(story *parser.Story) *PathSimulator {
	return &PathSimulator{story: story}
}

// ValidatePath verifica che il path sia valido: ogni passaggio deve esistere
// e deve essere raggiungibile con una scelta dal passaggio precedente.
func (ps *PathSimulator) ValidatePath(path []string) []string {
	errors := []string{}

	for i, name := range path {
		if _, exists := ps.story.Lookup(name); !exists {
			errors = append(errors, fmt.Sprintf("Step %d: passaggio '%s' non esiste", i+1, name))
		}
	}

	for i := 0; i < len(path)-1; i++ {
		current, exists := ps.story.Lookup(path[i])
		if !exists {
			continue // già segnalato sopra
		}
		if !current.HasChoice(path[i+1]) {
			errors = append(errors, fmt.Sprintf(
				"Step %d→%d: '%s' non ha una scelta verso '%s'. Scelte disponibili: %v",
				i+1, i+2, path[i], path[i+1], targets(current.AllChoices()),
			))
		}
	}

	return errors
}

// SimulatePath esegue il percorso con un engine nuovo.
// Il primo elemento del path è il passaggio di partenza, gli altri sono scelte.
func (ps *PathSimulator) SimulatePath(path []string) *SimulationResult {
	result := &SimulationResult{
		Success: true,
		Path:    path,
		Steps:   []StepResult{},
		Errors:  []string{},
	}

	if len(path) == 0 {
		result.Success = false
		result.Errors = append(result.Errors, "percorso vuoto")
		return result
	}

	if validationErrors := ps.ValidatePath(path); len(validationErrors) > 0 {
		result.Success = false
		result.Errors = validationErrors
		return result
	}

	eng := engine.New()
	eng.OnPassageChanged(func(p *parser.Passage) {
		step := StepResult{
			PassageName:    p.Name,
			PassageIndex:   len(result.Steps) + 1,
			Texts:          p.Texts(),
			AvailableLinks: p.AllChoices(),
		}
		step.Warnings = ps.generateWarnings(p)
		result.Steps = append(result.Steps, step)
	})
	eng.OnError(func(err error) {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
	})

	if _, err := eng.LoadStory(ps.story); err != nil {
		return result
	}

	// il load parte sempre da "Start" (o dal primo passaggio):
	// il salto iniziale non fa parte del percorso né della cronologia
	skip := 0
	if eng.Current().Name != path[0] {
		result.Steps = result.Steps[:0]
		if err := eng.Navigate(path[0]); err != nil {
			return result
		}
		skip = len(eng.History())
	}

	for _, target := range path[1:] {
		if err := eng.MakeChoice(target); err != nil {
			break
		}
	}

	for _, step := range result.Steps {
		result.TotalWarnings += len(step.Warnings)
	}
	result.FinalPassage = eng.Current().Name
	result.History = eng.History()[skip:]
	return result
}

// generateWarnings genera warning per un passaggio
func (ps *PathSimulator) generateWarnings(p *parser.Passage) []string {
	warnings := []string{}

	choices := p.AllChoices()
	if len(choices) == 0 {
		warnings = append(warnings, fmt.Sprintf("⚠️ '%s' non ha scelte: fine della storia", p.Name))
	}

	seen := make(map[string]bool)
	for _, c := range choices {
		if seen[c.Label] {
			warnings = append(warnings, fmt.Sprintf("⚠️ '%s' ha l'etichetta duplicata '%s'", p.Name, c.Label))
		}
		seen[c.Label] = true
		if _, ok := ps.story.Lookup(c.Target); !ok {
			warnings = append(warnings, fmt.Sprintf("⚠️ la scelta '%s' porta a '%s', che non esiste", c.Label, c.Target))
		}
	}

	return warnings
}

// GetSuggestedPaths suggerisce percorsi validi dato un punto di partenza
func (ps *PathSimulator) GetSuggestedPaths(startPassage string, maxDepth int) [][]string {
	if maxDepth <= 0 || maxDepth > MaxDepthLimit {
		maxDepth = DefaultMaxDepth
	}

	paths := [][]string{}
	if _, ok := ps.story.Lookup(startPassage); !ok {
		return paths
	}

	// BFS per trovare i percorsi possibili
	queue := [][]string{{startPassage}}

	for len(queue) > 0 && len(paths) < maxSuggestedPaths {
		currentPath := queue[0]
		queue = queue[1:]

		if len(currentPath) >= maxDepth {
			paths = append(paths, currentPath)
			continue
		}

		last := currentPath[len(currentPath)-1]
		passage, exists := ps.story.Lookup(last)
		if !exists {
			continue
		}

		choices := passage.AllChoices()
		if len(choices) == 0 {
			// fine del percorso
			paths = append(paths, currentPath)
			continue
		}

		for _, choice := range choices {
			newPath := make([]string, len(currentPath), len(currentPath)+1)
			copy(newPath, currentPath)
			newPath = append(newPath, choice.Target)
			queue = append(queue, newPath)
		}
	}

	return paths
}

func targets(choices []parser.Choice) []string {
	names := make([]string, 0, len(choices))
	for _, c := range choices {
		names = append(names, c.Target)
	}
	return names
}
