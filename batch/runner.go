package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"story-json-editor/formats"
	"story-json-editor/sharing"
)

const (
	// ReportFile nome del report scritto nella cartella di output
	ReportFile = "report.json"
	// DefaultOutputDir sottocartella del sorgente usata se OutputDir è vuoto
	DefaultOutputDir = "out"
)

// Runner converte in blocco una cartella di sorgenti nel documento JSON
// canonico, accompagnato dal token di condivisione
type Runner struct {
	sourceDir    string
	outputDir    string
	shareBaseURL string
	log          *zap.SugaredLogger
}

// Config configurazione del runner
type Config struct {
	SourceDir    string
	OutputDir    string // default: SourceDir/out
	ShareBaseURL string // se vuoto non viene generato l'URL
	Logger       *zap.SugaredLogger
}

// FileResult esito della conversione di un singolo file
type FileResult struct {
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	ConvertedAt  string `json:"converted_at"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Title        string `json:"title,omitempty"`
	PassageCount int    `json:"passage_count"`
	Output       string `json:"output,omitempty"`
	TokenFile    string `json:"token_file,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Summary riassunto della conversione
type Summary struct {
	SourceDir  string        `json:"source_dir"`
	OutputDir  string        `json:"output_dir"`
	TotalFiles int           `json:"total_files"`
	Converted  int           `json:"converted"`
	Failed     int           `json:"failed"`
	Duration   string        `json:"duration"`
	Files      []*FileResult `json:"files"`
}

// NewRunner crea un nuovo runner
func NewRunner(config Config) *Runner {
	if config.OutputDir == "" {
		config.OutputDir = filepath.Join(config.SourceDir, DefaultOutputDir)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	return &Runner{
		sourceDir:    config.SourceDir,
		outputDir:    config.OutputDir,
		shareBaseURL: config.ShareBaseURL,
		log:          config.Logger,
	}
}

// Run converte tutti i file riconosciuti.
// Gli errori dei singoli file non interrompono la conversione e vengono
// restituiti tutti insieme; il riassunto è sempre valorizzato.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	startTime := time.Now()

	if info, err := os.Stat(r.sourceDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("cartella sorgente %s non trovata", r.sourceDir)
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("impossibile creare cartella di output: %w", err)
	}

	files, err := r.findStoryFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("nessuna storia trovata in %s", r.sourceDir)
	}

	summary := &Summary{
		SourceDir:  r.sourceDir,
		OutputDir:  r.outputDir,
		TotalFiles: len(files),
	}
	r.log.Infof("📁 Trovati %d file in %s", len(files), r.sourceDir)

	// nessun file di output può sovrascrivere un sorgente
	sources := make(map[string]bool, len(files))
	for _, file := range files {
		abs, _ := filepath.Abs(file)
		sources[abs] = true
	}

	var errs error
	written := make(map[string]string)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		result := r.convertFile(file, written, sources)
		summary.Files = append(summary.Files, result)
		if result.Success {
			summary.Converted++
			r.log.Infof("✅ %s → %s (%d passaggi)", result.Filename, result.Output, result.PassageCount)
			continue
		}

		summary.Failed++
		r.log.Warnf("❌ %s: %s", result.Filename, result.Error)
		errs = multierr.Append(errs, fmt.Errorf("%s: %s", result.Filename, result.Error))
	}

	summary.Duration = time.Since(startTime).String()

	if err := saveJSON(filepath.Join(r.outputDir, ReportFile), summary); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("errore salvataggio report: %w", err))
	}

	r.log.Infof("📊 Convertiti %d/%d file in %s", summary.Converted, summary.TotalFiles, summary.Duration)
	return summary, errs
}

// findStoryFiles trova i file con un formato registrato, esclusa la cartella di output
func (r *Runner) findStoryFiles() ([]string, error) {
	var files []string
	outAbs, _ := filepath.Abs(r.outputDir)
	srcAbs, _ := filepath.Abs(r.sourceDir)

	err := filepath.WalkDir(r.sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			abs, _ := filepath.Abs(path)
			if abs == outAbs && abs != srcAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ReportFile {
			return nil
		}
		if formats.IsStoryFile(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// convertFile converte un singolo file e scrive documento e token
func (r *Runner) convertFile(path string, written map[string]string, sources map[string]bool) *FileResult {
	result := &FileResult{
		Filename:    filepath.Base(path),
		ConvertedAt: time.Now().Format(time.RFC3339),
	}

	fail := func(err error) *FileResult {
		result.Error = err.Error()
		return result
	}

	format, err := formats.ForFile(path)
	if err != nil {
		return fail(err)
	}
	result.Format = format.GetFormatName()

	source, err := os.ReadFile(path)
	if err != nil {
		return fail(fmt.Errorf("errore lettura file: %w", err))
	}

	story, err := formats.Convert(format, source)
	if err != nil {
		return fail(err)
	}
	result.Title = story.Title
	result.PassageCount = len(story.Passages)

	baseName := strings.TrimSuffix(result.Filename, filepath.Ext(result.Filename))
	if other, exists := written[baseName]; exists {
		return fail(fmt.Errorf("%s.json già generato da %s", baseName, other))
	}

	docPath := filepath.Join(r.outputDir, baseName+".json")
	tokenPath := filepath.Join(r.outputDir, baseName+".token")
	for _, out := range []string{docPath, tokenPath} {
		if abs, _ := filepath.Abs(out); sources[abs] {
			return fail(fmt.Errorf("%s sovrascriverebbe un sorgente", filepath.Base(out)))
		}
	}

	doc, err := story.Document()
	if err != nil {
		return fail(err)
	}
	token, err := sharing.Encode(story)
	if err != nil {
		return fail(err)
	}

	result.Output = baseName + ".json"
	if err := os.WriteFile(docPath, doc, 0o644); err != nil {
		return fail(fmt.Errorf("errore scrittura documento: %w", err))
	}
	result.TokenFile = baseName + ".token"
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0o644); err != nil {
		return fail(fmt.Errorf("errore scrittura token: %w", err))
	}

	if r.shareBaseURL != "" {
		if result.URL, err = sharing.ShareURL(r.shareBaseURL, story); err != nil {
			return fail(err)
		}
	}

	written[baseName] = result.Filename
	result.Success = true
	return result
}

// saveJSON salva un oggetto come JSON
func saveJSON(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, jsonData, 0o644)
}
