package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"story-json-editor/engine"
	"story-json-editor/formats"
	"story-json-editor/parser"
	"story-json-editor/sharing"
	"story-json-editor/simulator"
)

// DocumentRequest richiesta con un documento della storia.
// In alternativa al documento si può passare un token di condivisione
// oppure un sorgente con il suo formato.
type DocumentRequest struct {
	Document json.RawMessage `json:"document"`
	Token    string          `json:"token"`
	Format   string          `json:"format"`
	Source   string          `json:"source"`
}

// resolve restituisce il documento JSON della richiesta; nil se vuota
func (r *DocumentRequest) resolve() ([]byte, error) {
	switch {
	case len(r.Document) > 0 && string(r.Document) != "null":
		return r.Document, nil
	case r.Token != "":
		doc := sharing.Decode(r.Token)
		if doc == nil {
			return nil, fmt.Errorf("token di condivisione non valido")
		}
		return doc, nil
	case r.Source != "":
		name := r.Format
		if name == "" {
			name = "json"
		}
		format := formats.GetRegisteredFormat(name)
		if format == nil {
			return nil, fmt.Errorf("formato %q non supportato", name)
		}
		return format.ToDocument([]byte(r.Source))
	}
	return nil, nil
}

// bindDocument legge la richiesta e restituisce il documento (o la storia di esempio)
func bindDocument(c *gin.Context) ([]byte, bool) {
	var req DocumentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
	}
	doc, err := req.resolve()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if doc == nil {
		doc = parser.SampleDocument()
	}
	return doc, true
}

// getSample restituisce la storia di esempio
func (s *Server) getSample(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", parser.SampleDocument())
}

// validateStory valida un documento
func (s *Server) validateStory(c *gin.Context) {
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := req.resolve()
	if err == nil && doc == nil {
		err = fmt.Errorf("nessun documento da validare")
	}
	if err == nil {
		err = parser.Validate(doc)
	}
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// ConvertRequest richiesta di conversione da un formato sorgente
type ConvertRequest struct {
	Format string `json:"format" binding:"required"`
	Source string `json:"source" binding:"required"`
}

// convertStory converte un sorgente nel documento JSON canonico
func (s *Server) convertStory(c *gin.Context) {
	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format := formats.GetRegisteredFormat(req.Format)
	if format == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("formato %q non supportato", req.Format)})
		return
	}

	story, err := formats.Convert(format, []byte(req.Source))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := story.Document()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"title":    story.Title,
		"count":    len(story.Passages),
		"document": json.RawMessage(doc),
	})
}

// ============================================
// Sessions
// ============================================

func (s *Server) session(c *gin.Context) (*Session, bool) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "sessione non trovata"})
		return nil, false
	}
	return sess, true
}

// createSession crea una sessione e carica il documento (default: storia di esempio)
func (s *Server) createSession(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	// valida prima di creare la sessione: niente sessioni vuote
	if err := parser.Validate(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": (&engine.InvalidStoryError{Reason: err}).Error()})
		return
	}

	sess := s.sessions.Create()
	if err := sess.Load(doc); err != nil {
		_ = s.sessions.Delete(sess.ID)
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	s.log.Infow("📖 Sessione creata", "session", sess.ID, "sessions", s.sessions.Len())
	c.JSON(http.StatusCreated, sess.View())
}

// getSession restituisce lo stato della sessione
func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// deleteSession elimina la sessione
func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// loadSession sostituisce la storia della sessione
func (s *Server) loadSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	s.runOnSession(c, sess, func(e *engine.Engine) error {
		_, err := e.Load(doc)
		return err
	})
}

// TargetRequest richiesta di navigazione verso un passaggio
type TargetRequest struct {
	Target string `json:"target" binding:"required"`
}

// navigate sposta la sessione sul passaggio indicato
func (s *Server) navigate(c *gin.Context) {
	s.moveTo(c, (*engine.Engine).Navigate)
}

// makeChoice applica la scelta dell'utente
func (s *Server) makeChoice(c *gin.Context) {
	s.moveTo(c, (*engine.Engine).MakeChoice)
}

func (s *Server) moveTo(c *gin.Context, move func(*engine.Engine, string) error) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.runOnSession(c, sess, func(e *engine.Engine) error {
		return move(e, req.Target)
	})
}

// goBack torna al passaggio precedente
func (s *Server) goBack(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	s.runOnSession(c, sess, (*engine.Engine).GoBack)
}

// reset torna al passaggio "Start"
func (s *Server) reset(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	s.runOnSession(c, sess, (*engine.Engine).Reset)
}

// runOnSession esegue l'operazione e risponde con lo stato aggiornato.
// In caso di errore lo stato restituito è quello invariato.
func (s *Server) runOnSession(c *gin.Context, sess *Session, op func(*engine.Engine) error) {
	var view gin.H
	err := sess.Do(func(e *engine.Engine) error {
		err := op(e)
		view = sess.viewLocked()
		return err
	})
	if err != nil {
		view["error"] = err.Error()
		c.JSON(errorStatus(err), view)
		return
	}
	c.JSON(http.StatusOK, view)
}

// shareSession genera token e URL condivisibile della storia della sessione
func (s *Server) shareSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	base := c.DefaultQuery("base", s.shareBaseURL)
	var token, url string
	err := sess.Do(func(e *engine.Engine) error {
		if !e.Loaded() {
			return engine.ErrNoStory
		}
		var err error
		if token, err = sharing.Encode(e.Story()); err != nil {
			return err
		}
		url, err = sharing.ShareURL(base, e.Story())
		return err
	})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "url": url})
}

// ============================================
// Sharing
// ============================================

// encodeShare codifica un documento in token e URL
func (s *Server) encodeShare(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}
	story, err := parser.Decode(doc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := sharing.Encode(story)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	url, err := sharing.ShareURL(c.DefaultQuery("base", s.shareBaseURL), story)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "url": url})
}

// DecodeRequest richiesta di decodifica di un token o di un URL condiviso
type DecodeRequest struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// decodeShare decodifica un token; un token malformato non è un errore
func (s *Server) decodeShare(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var doc []byte
	if req.URL != "" {
		doc = sharing.FromURL(req.URL)
	} else {
		doc = sharing.Decode(req.Token)
	}

	if doc == nil {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":    true,
		"valid":    parser.Valid(doc),
		"document": json.RawMessage(doc),
	})
}

// ============================================
// Path Simulator Handlers
// ============================================

// SimulatePathRequest richiesta di simulazione path
type SimulatePathRequest struct {
	DocumentRequest
	Path []string `json:"path" binding:"required,min=1"`
}

// simulatePath simula l'esecuzione di un percorso
func (s *Server) simulatePath(c *gin.Context) {
	var req SimulatePathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	story, ok := s.requestStory(c, &req.DocumentRequest)
	if !ok {
		return
	}

	sim := simulator.NewPathSimulator(story)
	c.JSON(http.StatusOK, sim.SimulatePath(req.Path))
}

// SuggestPathsRequest richiesta di suggerimento percorsi
type SuggestPathsRequest struct {
	DocumentRequest
	StartPassage string `json:"start_passage"`
	MaxDepth     int    `json:"max_depth"`
}

// suggestPaths suggerisce percorsi validi
func (s *Server) suggestPaths(c *gin.Context) {
	var req SuggestPathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	story, ok := s.requestStory(c, &req.DocumentRequest)
	if !ok {
		return
	}

	if req.StartPassage == "" {
		req.StartPassage = story.StartingPassage().Name
	}
	if req.MaxDepth <= 0 || req.MaxDepth > simulator.MaxDepthLimit {
		req.MaxDepth = simulator.DefaultMaxDepth
	}

	sim := simulator.NewPathSimulator(story)
	paths := sim.GetSuggestedPaths(req.StartPassage, req.MaxDepth)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"start_passage": req.StartPassage,
		"max_depth":     req.MaxDepth,
		"paths":         paths,
		"count":         len(paths),
	})
}

func (s *Server) requestStory(c *gin.Context, req *DocumentRequest) (*parser.Story, bool) {
	doc, err := req.resolve()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if doc == nil {
		return parser.SampleStory(), true
	}
	story, err := parser.Decode(doc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return story, true
}
