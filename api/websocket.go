package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"story-json-editor/engine"
)

// ============================================
// WebSocket
// ============================================

const writeWait = 10 * time.Second

// Azioni accettate dai client WebSocket
const (
	ActionNavigate = "navigate"
	ActionChoose   = "choose"
	ActionBack     = "back"
	ActionReset    = "reset"
)

// ClientMessage messaggio inviato dal client sulla WebSocket
type ClientMessage struct {
	Action string `json:"action"`
	Target string `json:"target"`
}

var errUnknownAction = errors.New("azione sconosciuta")

// apply esegue l'azione sull'engine.
// Gli errori dell'engine arrivano già ai client tramite la notifica "error".
func (m ClientMessage) apply(e *engine.Engine) error {
	switch m.Action {
	case ActionNavigate:
		return e.Navigate(m.Target)
	case ActionChoose:
		return e.MakeChoice(m.Target)
	case ActionBack:
		return e.GoBack()
	case ActionReset:
		return e.Reset()
	}
	return fmt.Errorf("%w: %q", errUnknownAction, m.Action)
}

// handleWebSocket collega un client alle notifiche di una sessione
func (s *Server) handleWebSocket(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	conn, err := s.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnw("Errore upgrade WebSocket", "error", err)
		return
	}
	defer conn.Close()

	total := sess.addClient(conn)
	s.log.Infof("🔌 Client WebSocket connesso alla sessione %s (totale: %d)", sess.ID, total)

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.log.Debugw("lettura WebSocket interrotta", "error", err)
			}
			break
		}

		err := sess.Do(msg.apply)
		if errors.Is(err, errUnknownAction) {
			// non passa dall'engine: la notifica va inviata qui
			sess.Notify(Notification{Type: NotifyError, Error: err.Error()})
		}
	}

	total = sess.removeClient(conn)
	s.log.Infof("🔌 Client WebSocket disconnesso dalla sessione %s (totale: %d)", sess.ID, total)
}
