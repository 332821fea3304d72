package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"story-json-editor/engine"
	"story-json-editor/formats"
	_ "story-json-editor/formats/jsonstory" // Registra i formati sorgente
	_ "story-json-editor/formats/twee"
	_ "story-json-editor/formats/yamlstory"
	"story-json-editor/watcher"
)

// Version versione dell'API
const Version = "0.2.0"

// Server rappresenta il server API
type Server struct {
	router       *gin.Engine
	sessions     *SessionStore
	watcher      *watcher.FileWatcher
	watchSession string
	watcherMutex sync.Mutex
	wsUpgrader   websocket.Upgrader
	port         int
	shareBaseURL string
	debounce     time.Duration
	log          *zap.SugaredLogger
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port          int
	EnableCORS    bool
	Debug         bool
	ShareBaseURL  string
	WatchDebounce time.Duration
	MaxSessions   int
	Logger        *zap.Logger
}

// NewServer crea un nuovo server API
func NewServer(config ServerConfig) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	log := config.Logger.Sugar()

	router := gin.New()
	router.Use(requestLogger(config.Logger), gin.Recovery())

	// CORS se abilitato
	if config.EnableCORS {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: false,
		}))
	}

	server := &Server{
		router:   router,
		sessions: NewSessionStore(config.MaxSessions, log),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return config.EnableCORS || r.Header.Get("Origin") == ""
			},
		},
		port:         config.Port,
		shareBaseURL: config.ShareBaseURL,
		debounce:     config.WatchDebounce,
		log:          log,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configura tutti gli endpoint
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
		api.GET("/formats", s.getFormats)
		api.GET("/sample", s.getSample)

		// Story endpoints
		api.POST("/story/validate", s.validateStory)
		api.POST("/story/convert", s.convertStory)

		// Session endpoints (un engine per sessione)
		api.POST("/sessions", s.createSession)
		api.GET("/sessions/:id", s.getSession)
		api.DELETE("/sessions/:id", s.deleteSession)
		api.POST("/sessions/:id/load", s.loadSession)
		api.POST("/sessions/:id/navigate", s.navigate)
		api.POST("/sessions/:id/choose", s.makeChoice)
		api.POST("/sessions/:id/back", s.goBack)
		api.POST("/sessions/:id/reset", s.reset)
		api.GET("/sessions/:id/share", s.shareSession)

		// Sharing endpoints
		api.POST("/share/encode", s.encodeShare)
		api.POST("/share/decode", s.decodeShare)

		// Path Simulator endpoints
		api.POST("/simulator/replay", s.simulatePath)
		api.POST("/simulator/suggest", s.suggestPaths)

		// Watcher endpoints
		api.POST("/watch/start", s.startWatcher)
		api.POST("/watch/stop", s.stopWatcher)
		api.POST("/watch/remove", s.removeWatchPath)
		api.GET("/watch/status", s.getWatcherStatus)
	}

	// WebSocket endpoint
	s.router.GET("/ws/:id", s.handleWebSocket)
}

// Handler restituisce l'http.Handler del server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions restituisce lo store delle sessioni
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Start avvia il server e si ferma quando ctx viene cancellato
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("🚀 Server avviato su http://localhost%s", addr)
	s.log.Infof("📚 API disponibile su http://localhost%s/api", addr)
	s.log.Infof("🔌 WebSocket su ws://localhost%s/ws/:id", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("🛑 Arresto del server...")
	s.stopWatcherIfRunning()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("errore arresto server: %w", err)
	}
	return nil
}

// requestLogger registra ogni richiesta HTTP con zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remoteAddr", c.ClientIP()),
		)
	}
}

// errorStatus traduce gli errori dell'engine in codici HTTP
func errorStatus(err error) int {
	switch {
	case engine.IsInvalidStory(err):
		return http.StatusBadRequest
	case engine.IsPassageNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoHistory):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNoStory):
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

// ============================================
// Handlers
// ============================================

// healthCheck verifica lo stato del server
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  Version,
		"sessions": s.sessions.Len(),
	})
}

// getFormats restituisce i formati sorgente disponibili
func (s *Server) getFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"formats": formats.GetAvailableFormats(),
	})
}
