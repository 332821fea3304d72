package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"story-json-editor/api"
	"story-json-editor/batch"
	"story-json-editor/config"
	"story-json-editor/engine"
	"story-json-editor/formats"
	_ "story-json-editor/formats/jsonstory" // Registra i formati sorgente
	_ "story-json-editor/formats/twee"
	"story-json-editor/formats/yamlstory"
	"story-json-editor/parser"
	"story-json-editor/player"
	"story-json-editor/sharing"
)

// app contiene configurazione e logger condivisi dai comandi
type app struct {
	cfg *config.Config
	log *zap.Logger
}

// prepare legge la configurazione dall'ambiente, applica i flag e crea il logger
func (a *app) prepare(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, fmt.Errorf("configurazione non valida: %w", err)
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	a.cfg = cfg

	if a.log, err = config.NewLogger(cfg.LogLevel, cfg.Debug); err != nil {
		return ctx, err
	}
	a.log.Debug("Program started", zap.Strings("args", os.Args))
	return ctx, nil
}

func (a *app) destroy(_ context.Context, _ *cli.Command) (err error) {
	if a.log != nil {
		// stderr/stdout non supportano sync su tutte le piattaforme
		if er := a.log.Sync(); er != nil && !isSyncUnsupported(er) {
			err = multierr.Append(err, fmt.Errorf("errore chiusura log: %w", er))
		}
	}
	return
}

func isSyncUnsupported(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}

// ============================================
// Comandi
// ============================================

func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	cfg := *a.cfg
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("cors") {
		cfg.EnableCORS = cmd.Bool("cors")
	}
	if cmd.IsSet("share-base") {
		cfg.ShareBaseURL = cmd.String("share-base")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	server := api.NewServer(api.ServerConfig{
		Port:          cfg.Port,
		EnableCORS:    cfg.EnableCORS,
		Debug:         cfg.Debug,
		ShareBaseURL:  cfg.ShareBaseURL,
		WatchDebounce: cfg.WatchDebounce,
		MaxSessions:   cfg.MaxSessions,
		Logger:        a.log,
	})
	return server.Start(ctx)
}

func (a *app) play(_ context.Context, cmd *cli.Command) error {
	var (
		story *parser.Story
		err   error
	)
	if token := cmd.String("token"); token != "" {
		story, err = storyFromToken(token)
	} else {
		story, err = loadStory(cmd.Args().First())
	}
	if err != nil {
		return err
	}

	e := engine.New()
	if _, err := e.LoadStory(story); err != nil {
		return err
	}
	a.log.Debug("Storia caricata", zap.String("title", story.Title), zap.Int("passages", len(story.Passages)))
	return player.Run(e)
}

func (a *app) share(_ context.Context, cmd *cli.Command) error {
	story, err := loadStory(cmd.Args().First())
	if err != nil {
		return err
	}

	if cmd.Bool("token-only") {
		token, err := sharing.Encode(story)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	base := a.cfg.ShareBaseURL
	if cmd.IsSet("base") {
		base = cmd.String("base")
	}
	url, err := sharing.ShareURL(base, story)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

func (a *app) decode(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("indicare un token o un URL condiviso")
	}
	doc := decodeShared(cmd.Args().First())
	if doc == nil {
		return fmt.Errorf("nessuna storia nel token")
	}

	var out bytes.Buffer
	if err := json.Indent(&out, doc, "", "  "); err != nil {
		return err
	}
	fmt.Println(out.String())

	if err := parser.Validate(doc); err != nil {
		a.log.Warn("Il documento decodificato non è una storia valida", zap.Error(err))
	}
	return nil
}

func (a *app) convert(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("indicare il sorgente da convertire")
	}
	source, dest := cmd.Args().Get(0), cmd.Args().Get(1)

	if info, err := os.Stat(source); err == nil && info.IsDir() {
		runner := batch.NewRunner(batch.Config{
			SourceDir:    source,
			OutputDir:    dest,
			ShareBaseURL: a.cfg.ShareBaseURL,
			Logger:       a.log.Sugar(),
		})
		_, err := runner.Run(ctx)
		return err
	}

	story, err := loadStory(source)
	if err != nil {
		return err
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(dest)) {
	case ".yaml", ".yml":
		data, err = yamlstory.FromStory(story)
	default:
		data, err = json.MarshalIndent(story, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}

	if dest == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("errore scrittura %s: %w", dest, err)
	}
	a.log.Info("✅ Storia convertita", zap.String("source", source), zap.String("dest", dest))
	return nil
}

func (a *app) validate(_ context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("indicare almeno un file")
	}

	var errs error
	for _, path := range cmd.Args().Slice() {
		story, err := loadStory(path)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", path, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Printf("✅ %s: %q, %d passaggi\n", path, story.Title, len(story.Passages))
	}
	return errs
}

// ============================================
// Helpers
// ============================================

// loadStory legge un file in uno dei formati registrati; senza path usa la storia di esempio
func loadStory(path string) (*parser.Story, error) {
	if path == "" {
		return parser.SampleStory(), nil
	}
	format, err := formats.ForFile(path)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("errore lettura file: %w", err)
	}
	story, err := formats.Convert(format, source)
	if err != nil {
		return nil, &engine.InvalidStoryError{Reason: err}
	}
	return story, nil
}

func decodeShared(s string) []byte {
	if strings.Contains(s, "://") {
		return sharing.FromURL(s)
	}
	return sharing.Decode(s)
}

func storyFromToken(s string) (*parser.Story, error) {
	doc := decodeShared(s)
	if doc == nil {
		return nil, fmt.Errorf("nessuna storia nel token")
	}
	story, err := parser.Decode(doc)
	if err != nil {
		return nil, &engine.InvalidStoryError{Reason: err}
	}
	return story, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{}
	cmd := &cli.Command{
		Name:            "story-json-editor",
		Usage:           "motore di navigazione per storie interattive in JSON",
		Version:         api.Version,
		HideHelpCommand: true,
		Before:          a.prepare,
		After:           a.destroy,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log di sviluppo a livello debug (env STORY_DEBUG)"},
			&cli.StringFlag{Name: "log-level", Usage: "`LEVEL` di log: debug, info, warn, error (env STORY_LOG_LEVEL)"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Avvia il server HTTP/WebSocket",
				Action: a.serve,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "`PORT` di ascolto (env STORY_PORT)"},
					&cli.BoolFlag{Name: "cors", Usage: "abilita CORS (env STORY_CORS)"},
					&cli.StringFlag{Name: "share-base", Usage: "`URL` base dei link condivisi (env STORY_SHARE_BASE_URL)"},
				},
			},
			{
				Name:      "play",
				Usage:     "Gioca una storia nel terminale (default: storia di esempio)",
				Action:    a.play,
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Aliases: []string{"t"}, Usage: "carica la storia da un `TOKEN` o URL condiviso"},
				},
			},
			{
				Name:      "share",
				Usage:     "Genera il link condivisibile di una storia",
				Action:    a.share,
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "base", Usage: "`URL` base del link (env STORY_SHARE_BASE_URL)"},
					&cli.BoolFlag{Name: "token-only", Usage: "stampa solo il token"},
				},
			},
			{
				Name:      "decode",
				Usage:     "Decodifica un token o un URL condiviso",
				Action:    a.decode,
				ArgsUsage: "TOKEN|URL",
			},
			{
				Name:      "convert",
				Usage:     "Converte un sorgente (json, yaml, twee) o una cartella di sorgenti (default: SOURCE/out)",
				Action:    a.convert,
				ArgsUsage: "SOURCE [DESTINATION]",
			},
			{
				Name:      "validate",
				Usage:     "Valida uno o più file",
				Action:    a.validate,
				ArgsUsage: "FILE...",
			},
		},
	}

	err := cmd.Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Errore: %v\n", err)
		os.Exit(1)
	}
}
