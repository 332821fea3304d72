package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"story-json-editor/formats"
	"story-json-editor/watcher"
)

// ============================================
// Live reload
// ============================================

// StartWatcherRequest richiesta avvio watcher
type StartWatcherRequest struct {
	Paths   []string `json:"paths" binding:"required,min=1"`
	Session string   `json:"session"`
}

// startWatcher avvia il file watcher: ogni file modificato viene
// ricaricato nella sessione indicata (o in una nuova sessione)
func (s *Server) startWatcher(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher != nil && s.watcher.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Watcher già in esecuzione"})
		return
	}

	var req StartWatcherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Una sessione creata qui viene rimossa se il watcher non parte
	var sess *Session
	created := req.Session == ""
	if created {
		sess = s.sessions.Create()
	} else {
		var ok bool
		if sess, ok = s.sessions.Get(req.Session); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "sessione non trovata"})
			return
		}
	}
	discard := func() {
		if created {
			_ = s.sessions.Delete(sess.ID)
		}
	}

	fw, err := watcher.NewFileWatcher(watcher.WatcherConfig{
		Paths:        req.Paths,
		DebounceTime: s.debounce,
		Logger:       s.log.Named("watcher"),
		OnReload: func(path string, doc []byte) error {
			return sess.Load(doc)
		},
	})
	if err != nil {
		discard()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := fw.Start(); err != nil {
		discard()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.watcher = fw
	s.watchSession = sess.ID

	// Invia eventi ai client WebSocket della sessione
	go s.broadcastWatcherEvents(fw.Events(), sess)

	// Caricamento iniziale dei file indicati singolarmente
	for _, path := range fw.WatchedPaths() {
		if formats.IsStoryFile(path) {
			_ = fw.Reload(path)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher avviato",
		"paths":   fw.WatchedPaths(),
		"session": sess.View(),
	})
}

// stopWatcher ferma il file watcher
func (s *Server) stopWatcher(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher == nil || !s.watcher.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Watcher non in esecuzione"})
		return
	}

	if err := s.watcher.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.watcher = nil
	s.watchSession = ""

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher fermato",
	})
}

// RemoveWatchPathRequest richiesta rimozione di un percorso osservato
type RemoveWatchPathRequest struct {
	Path string `json:"path" binding:"required"`
}

// removeWatchPath smette di osservare un file o una cartella
func (s *Server) removeWatchPath(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher == nil || !s.watcher.IsRunning() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Watcher non in esecuzione"})
		return
	}

	var req RemoveWatchPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.watcher.RemovePath(req.Path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"paths":   s.watcher.WatchedPaths(),
	})
}

// getWatcherStatus ottiene lo stato del watcher
func (s *Server) getWatcherStatus(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	isRunning := s.watcher != nil && s.watcher.IsRunning()
	status := gin.H{"running": isRunning}
	if isRunning {
		status["paths"] = s.watcher.WatchedPaths()
		status["session"] = s.watchSession
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) stopWatcherIfRunning() {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher != nil && s.watcher.IsRunning() {
		if err := s.watcher.Stop(); err != nil {
			s.log.Warnw("errore arresto watcher", "error", err)
		}
	}
	s.watcher = nil
}

// broadcastWatcherEvents inoltra gli eventi del watcher alla sessione.
// Termina quando il watcher viene fermato e il canale chiuso.
func (s *Server) broadcastWatcherEvents(events <-chan watcher.WatchEvent, sess *Session) {
	for event := range events {
		event.Path = filepath.Base(event.Path)
		sess.Notify(Notification{Type: NotifyWatch, Watch: event})
	}
}
