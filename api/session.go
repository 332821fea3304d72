package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"story-json-editor/engine"
	"story-json-editor/parser"
)

// Tipi di notifica inviati ai client WebSocket
const (
	NotifyPassageChanged = "passageChanged"
	NotifyStoryLoaded    = "storyLoaded"
	NotifyError          = "error"
	NotifyState          = "state"
	NotifyWatch          = "watch"
)

// Notification è il messaggio inviato ai client della sessione
type Notification struct {
	Type    string       `json:"type"`
	Session string       `json:"session"`
	Passage *PassageView `json:"passage,omitempty"`
	Title   string       `json:"title,omitempty"`
	Error   string       `json:"error,omitempty"`
	Watch   any          `json:"watch,omitempty"`
	State   engine.State `json:"state"`
}

// PassageView è la rappresentazione di un passaggio per il presentation layer
type PassageView struct {
	Name    string          `json:"name"`
	Texts   []string        `json:"texts"`
	Choices []parser.Choice `json:"choices"`
	Content *parser.Passage `json:"content"`
}

func newPassageView(p *parser.Passage) *PassageView {
	if p == nil {
		return nil
	}
	view := &PassageView{
		Name:    p.Name,
		Texts:   p.Texts(),
		Choices: p.AllChoices(),
		Content: p,
	}
	if view.Texts == nil {
		view.Texts = []string{}
	}
	if view.Choices == nil {
		view.Choices = []parser.Choice{}
	}
	return view
}

// Session possiede un engine di navigazione e i client collegati.
// Tutte le operazioni sull'engine passano da Do, che le serializza.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	engine    *engine.Engine
	clients   map[*websocket.Conn]bool
	lastError string
	log       *zap.SugaredLogger
}

func newSession(log *zap.SugaredLogger) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		engine:    engine.New(),
		clients:   make(map[*websocket.Conn]bool),
	}
	s.log = log.With("session", s.ID)

	s.engine.
		OnStoryLoaded(func(story *parser.Story) {
			s.lastError = ""
			s.broadcast(Notification{Type: NotifyStoryLoaded, Title: story.Title})
		}).
		OnPassageChanged(func(p *parser.Passage) {
			s.broadcast(Notification{Type: NotifyPassageChanged, Passage: newPassageView(p)})
		}).
		OnError(func(err error) {
			s.lastError = err.Error()
			s.log.Debugw("errore di navigazione", "error", err)
			s.broadcast(Notification{Type: NotifyError, Error: err.Error()})
		})

	return s
}

// Do esegue fn con l'engine della sessione, in esclusiva
func (s *Session) Do(fn func(e *engine.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Load carica un documento nella sessione
func (s *Session) Load(doc []byte) error {
	return s.Do(func(e *engine.Engine) error {
		_, err := e.Load(doc)
		return err
	})
}

// View restituisce lo stato e il passaggio corrente
func (s *Session) View() gin.H {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() gin.H {
	view := gin.H{
		"id":      s.ID,
		"state":   s.engine.Snapshot(),
		"passage": newPassageView(s.engine.Current()),
		"clients": len(s.clients),
	}
	if s.lastError != "" {
		view["last_error"] = s.lastError
	}
	return view
}

// broadcast invia la notifica a tutti i client collegati.
// Va chiamata con s.mu acquisito (le notifiche dell'engine arrivano dentro Do).
func (s *Session) broadcast(n Notification) {
	n.Session = s.ID
	n.State = s.engine.Snapshot()

	for client := range s.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(n); err != nil {
			s.log.Warnw("errore invio WebSocket", "error", err)
			client.Close()
			delete(s.clients, client)
		}
	}
}

// Notify invia una notifica esterna all'engine (es: eventi del watcher)
func (s *Session) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast(n)
}

func (s *Session) addClient(conn *websocket.Conn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[conn] = true

	// stato iniziale al nuovo client
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(Notification{
		Type:    NotifyState,
		Session: s.ID,
		Title:   s.engine.Title(),
		Passage: newPassageView(s.engine.Current()),
		State:   s.engine.Snapshot(),
	}); err != nil {
		delete(s.clients, conn)
	}
	return len(s.clients)
}

func (s *Session) removeClient(conn *websocket.Conn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
	return len(s.clients)
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}

// SessionStore mantiene le sessioni attive, con un limite massimo.
// Oltre il limite viene eliminata la sessione più vecchia.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	max      int
	log      *zap.SugaredLogger
}

// NewSessionStore crea uno store con capacità max
func NewSessionStore(max int, log *zap.SugaredLogger) *SessionStore {
	if max <= 0 {
		max = 1000
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		max:      max,
		log:      log,
	}
}

// Create crea una nuova sessione vuota
func (st *SessionStore) Create() *Session {
	s := newSession(st.log)

	st.mu.Lock()
	var evicted *Session
	if len(st.order) >= st.max {
		oldest := st.order[0]
		st.order = st.order[1:]
		evicted = st.sessions[oldest]
		delete(st.sessions, oldest)
	}
	st.sessions[s.ID] = s
	st.order = append(st.order, s.ID)
	st.mu.Unlock()

	if evicted != nil {
		st.log.Infow("sessione eliminata per capacità", "session", evicted.ID)
		evicted.close()
	}
	return s
}

// Get restituisce la sessione con quell'id
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete elimina la sessione
func (st *SessionStore) Delete(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if !ok {
		st.mu.Unlock()
		return fmt.Errorf("sessione %s non trovata", id)
	}
	delete(st.sessions, id)
	for i, sid := range st.order {
		if sid == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	st.mu.Unlock()

	s.close()
	return nil
}

// Len restituisce il numero di sessioni attive
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
