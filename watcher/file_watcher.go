package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"story-json-editor/formats"
)

// Tipi di evento del watcher
const (
	EventCreated   = "created"
	EventModified  = "modified"
	EventDeleted   = "deleted"
	EventRenamed   = "renamed"
	EventReloaded  = "reloaded"
	EventLoadError = "load_error"
)

// ReloadFunc riceve il documento JSON convertito di un file modificato.
// Un errore restituito viene segnalato come evento load_error.
type ReloadFunc func(path string, document []byte) error

// FileWatcher monitora i file delle storie e li ricarica quando cambiano
type FileWatcher struct {
	watcher      *fsnotify.Watcher
	watchedPaths []string
	files        map[string]bool // file singoli monitorati (percorso assoluto)
	dirs         map[string]bool // directory monitorate per intero
	onReload     ReloadFunc
	debounceTime time.Duration
	log          *zap.SugaredLogger

	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	eventChan   chan WatchEvent
	stopChan    chan struct{}
	doneChan    chan struct{}
	isRunning   bool
}

// WatchEvent rappresenta un evento del watcher
type WatchEvent struct {
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WatcherConfig configurazione per il watcher
type WatcherConfig struct {
	Paths        []string           // File o directory da monitorare
	OnReload     ReloadFunc         // Chiamata con il documento convertito
	DebounceTime time.Duration      // Tempo di debounce (default: 500ms)
	Logger       *zap.SugaredLogger // Logger (default: nop)
}

// NewFileWatcher crea un nuovo file watcher
func NewFileWatcher(config WatcherConfig) (*FileWatcher, error) {
	if len(config.Paths) == 0 {
		return nil, fmt.Errorf("nessun path da monitorare")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("errore creazione watcher: %w", err)
	}

	if config.DebounceTime == 0 {
		config.DebounceTime = 500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}

	fw := &FileWatcher{
		watcher:      watcher,
		files:        make(map[string]bool),
		dirs:         make(map[string]bool),
		onReload:     config.OnReload,
		debounceTime: config.DebounceTime,
		log:          config.Logger,
		debounceMap:  make(map[string]*time.Timer),
		eventChan:    make(chan WatchEvent, 100),
	}

	for _, path := range config.Paths {
		if err := fw.AddPath(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start avvia il file watcher
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.isRunning {
		return fmt.Errorf("watcher già in esecuzione")
	}

	fw.isRunning = true
	fw.stopChan = make(chan struct{})
	fw.doneChan = make(chan struct{})
	fw.log.Info("🚀 File watcher avviato!")

	go fw.loop(fw.stopChan, fw.doneChan)
	return nil
}

func (fw *FileWatcher) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Errorw("❌ Errore watcher", "error", err)

		case <-stop:
			fw.log.Info("🛑 File watcher fermato")
			return
		}
	}
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	path, err := filepath.Abs(event.Name)
	if err != nil || !fw.isWatched(path) {
		return
	}

	var eventType string
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreated
	case event.Has(fsnotify.Write):
		eventType = EventModified
	case event.Has(fsnotify.Remove):
		eventType = EventDeleted
	case event.Has(fsnotify.Rename):
		eventType = EventRenamed
	default:
		return
	}

	fw.log.Debugw("📝 File cambiato", "type", eventType, "file", filepath.Base(path))
	fw.send(WatchEvent{Type: eventType, Path: path, Timestamp: time.Now()})

	if eventType != EventModified && eventType != EventCreated {
		return
	}

	// Debounce: gli editor scrivono spesso più volte di seguito
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if timer, exists := fw.debounceMap[path]; exists {
		timer.Stop()
	}
	fw.debounceMap[path] = time.AfterFunc(fw.debounceTime, func() {
		fw.mu.Lock()
		delete(fw.debounceMap, path)
		fw.mu.Unlock()
		fw.reload(path)
	})
}

// isWatched verifica che il file sia una storia monitorata
func (fw *FileWatcher) isWatched(path string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.files[path] {
		return true
	}
	return fw.dirs[filepath.Dir(path)] && formats.IsStoryFile(path)
}

// Reload ricarica subito il file indicato, senza attendere eventi
func (fw *FileWatcher) Reload(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path non valido: %w", err)
	}
	return fw.reload(abs)
}

// reload converte il file con il suo formato e lo passa a onReload
func (fw *FileWatcher) reload(path string) error {
	fw.log.Infof("🔄 Ricaricamento: %s", filepath.Base(path))

	err := fw.loadFile(path)
	if err != nil {
		fw.log.Warnf("❌ Ricaricamento fallito per %s: %v", filepath.Base(path), err)
		fw.send(WatchEvent{Type: EventLoadError, Path: path, Error: err.Error(), Timestamp: time.Now()})
		return err
	}

	fw.log.Infof("✅ Storia ricaricata: %s", filepath.Base(path))
	fw.send(WatchEvent{Type: EventReloaded, Path: path, Timestamp: time.Now()})
	return nil
}

func (fw *FileWatcher) loadFile(path string) error {
	format, err := formats.ForFile(path)
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("errore lettura file: %w", err)
	}
	doc, err := format.ToDocument(source)
	if err != nil {
		return err
	}
	if fw.onReload == nil {
		return nil
	}
	return fw.onReload(path, doc)
}

// send non blocca mai: se nessuno legge gli eventi vengono scartati
func (fw *FileWatcher) send(event WatchEvent) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.eventChan == nil {
		return
	}
	select {
	case fw.eventChan <- event:
	default:
		fw.log.Debugw("evento scartato, canale pieno", "type", event.Type)
	}
}

// Stop ferma il file watcher e chiude il canale degli eventi
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.isRunning {
		fw.mu.Unlock()
		return fmt.Errorf("watcher non in esecuzione")
	}
	fw.isRunning = false
	close(fw.stopChan)
	done := fw.doneChan
	for path, timer := range fw.debounceMap {
		timer.Stop()
		delete(fw.debounceMap, path)
	}
	fw.mu.Unlock()

	<-done

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("errore chiusura watcher: %w", err)
	}

	fw.mu.Lock()
	close(fw.eventChan)
	fw.eventChan = nil
	fw.mu.Unlock()
	return nil
}

// Events restituisce il canale degli eventi
func (fw *FileWatcher) Events() <-chan WatchEvent {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.eventChan
}

// IsRunning verifica se il watcher è attivo
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.isRunning
}

// WatchedPaths restituisce i path monitorati
func (fw *FileWatcher) WatchedPaths() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	paths := make([]string, len(fw.watchedPaths))
	copy(paths, fw.watchedPaths)
	return paths
}

// AddPath aggiunge un file o una directory da monitorare.
// Per i file viene monitorata la directory che li contiene, così le
// sostituzioni atomiche fatte dagli editor non fanno perdere il file.
func (fw *FileWatcher) AddPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path non valido: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("errore aggiunta path %s: %w", path, err)
	}

	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("errore aggiunta path %s: %w", path, err)
	}

	fw.mu.Lock()
	if info.IsDir() {
		fw.dirs[abs] = true
	} else {
		fw.files[abs] = true
	}
	fw.watchedPaths = append(fw.watchedPaths, abs)
	fw.mu.Unlock()

	fw.log.Infof("👀 Watching: %s", abs)
	return nil
}

// RemovePath rimuove un path dal monitoraggio.
// La cartella resta osservata finché serve ad altri path.
func (fw *FileWatcher) RemovePath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path non valido: %w", err)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	dir := abs
	switch {
	case fw.dirs[abs]:
		delete(fw.dirs, abs)
	case fw.files[abs]:
		delete(fw.files, abs)
		dir = filepath.Dir(abs)
	default:
		return fmt.Errorf("path non monitorato: %s", path)
	}

	for i, p := range fw.watchedPaths {
		if p == abs {
			fw.watchedPaths = append(fw.watchedPaths[:i], fw.watchedPaths[i+1:]...)
			break
		}
	}

	if !fw.needsDir(dir) {
		if err := fw.watcher.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			return fmt.Errorf("errore rimozione path: %w", err)
		}
	}

	fw.log.Infof("👁️  Stopped watching: %s", abs)
	return nil
}

// needsDir indica se la cartella serve ancora; richiede fw.mu
func (fw *FileWatcher) needsDir(dir string) bool {
	if fw.dirs[dir] {
		return true
	}
	for file := range fw.files {
		if filepath.Dir(file) == dir {
			return true
		}
	}
	return false
}
