package formats

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// formatRegistry mantiene i formati registrati
var (
	registry     = make(map[string]func() StoryFormat)
	registryLock sync.RWMutex
)

// RegisterFormat registra un nuovo formato
// Chiamato dai package dei singoli formati nel loro init()
func RegisterFormat(name string, factory func() StoryFormat) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[strings.ToLower(name)] = factory
}

// GetRegisteredFormat restituisce il formato registrato con quel nome
func GetRegisteredFormat(name string) StoryFormat {
	registryLock.RLock()
	defer registryLock.RUnlock()

	factory, exists := registry[strings.ToLower(name)]
	if !exists {
		return nil
	}
	return factory()
}

// GetAvailableFormats restituisce i nomi dei formati registrati, ordinati
func GetAvailableFormats() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	formats := make([]string, 0, len(registry))
	for name := range registry {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// IsFormatRegistered verifica se un formato è registrato
func IsFormatRegistered(name string) bool {
	registryLock.RLock()
	defer registryLock.RUnlock()

	_, exists := registry[strings.ToLower(name)]
	return exists
}

// ForFile trova il formato in base all'estensione del file
func ForFile(path string) (StoryFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))

	registryLock.RLock()
	defer registryLock.RUnlock()

	for _, factory := range registry {
		format := factory()
		for _, e := range format.Extensions() {
			if e == ext {
				return format, nil
			}
		}
	}
	return nil, fmt.Errorf("nessun formato registrato per l'estensione %q", ext)
}

// IsStoryFile verifica se il file ha un'estensione gestita da un formato registrato
func IsStoryFile(path string) bool {
	_, err := ForFile(path)
	return err == nil
}
