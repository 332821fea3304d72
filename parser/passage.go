package parser

// Campi del documento JSON della storia
const (
	TitleField    = "story_name"
	PassagesField = "passages"
	NameField     = "name"
	ContentField  = "content"
	ChoicesField  = "choices"

	// StartPassage è il passaggio da cui parte ogni storia (se presente)
	StartPassage = "Start"
)

// Story rappresenta l'intera storia caricata.
// Una Story non viene mai modificata dopo il caricamento: un nuovo load la sostituisce.
type Story struct {
	Title    string
	Passages []*Passage

	// Raw contiene il testo JSON compatto del documento originale
	Raw []byte
}

// Passage rappresenta un singolo passaggio della storia
type Passage struct {
	Name    string
	Content []ContentItem
}

// ContentItem è un elemento del contenuto: testo oppure un insieme di scelte.
// Esattamente uno tra Text e Choices è valorizzato.
type ContentItem struct {
	Text    string
	Choices ChoiceSet
}

// IsChoiceSet indica se l'elemento è un insieme di scelte
func (ci ContentItem) IsChoiceSet() bool {
	return ci.Choices != nil
}

// Choice è un collegamento etichettato verso un altro passaggio
type Choice struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// ChoiceSet mantiene l'ordine delle etichette come nel documento
type ChoiceSet []Choice

// Text crea un elemento di testo
func Text(s string) ContentItem {
	return ContentItem{Text: s}
}

// Choices crea un insieme di scelte da coppie etichetta/destinazione
func Choices(choices ...Choice) ContentItem {
	set := make(ChoiceSet, len(choices))
	copy(set, choices)
	return ContentItem{Choices: set}
}

// Lookup cerca un passaggio per nome: scansione lineare, vince il primo trovato
func (s *Story) Lookup(name string) (*Passage, bool) {
	if s == nil {
		return nil, false
	}
	for _, p := range s.Passages {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// StartingPassage restituisce "Start" se esiste, altrimenti il primo passaggio
func (s *Story) StartingPassage() *Passage {
	if p, ok := s.Lookup(StartPassage); ok {
		return p
	}
	if s == nil || len(s.Passages) == 0 {
		return nil
	}
	return s.Passages[0]
}

// AllChoices restituisce tutte le scelte del passaggio, nell'ordine di visualizzazione
func (p *Passage) AllChoices() []Choice {
	var choices []Choice
	for _, item := range p.Content {
		choices = append(choices, item.Choices...)
	}
	return choices
}

// HasChoice verifica se il passaggio offre una scelta verso target
func (p *Passage) HasChoice(target string) bool {
	for _, c := range p.AllChoices() {
		if c.Target == target {
			return true
		}
	}
	return false
}

// Texts restituisce solo gli elementi di testo del passaggio
func (p *Passage) Texts() []string {
	var texts []string
	for _, item := range p.Content {
		if !item.IsChoiceSet() {
			texts = append(texts, item.Text)
		}
	}
	return texts
}
