package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"codeberg.org/sajtmaskin/server/internal/logger"
)

// Watcher is one websocket connection following a project's progress feed.
// The feed is one-directional; the read pump only services control frames.
type Watcher struct {
	ID        string
	ProjectID string

	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte
	mu     sync.RWMutex
	closed bool
}

func NewWatcher(id, projectID string, conn *websocket.Conn, hub *Hub) *Watcher {
	return &Watcher{
		ID:        id,
		ProjectID: projectID,
		conn:      conn,
		hub:       hub,
		send:      make(chan []byte, 64),
	}
}

// ReadPump drains the connection until the peer goes away. Watchers send
// nothing meaningful; reading is what surfaces disconnects and pongs.
func (w *Watcher) ReadPump() {
	defer func() {
		w.hub.Unregister <- w
		w.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: websocket setup
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // G104: pong handler
		return nil
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error",
					"watcher_id", w.ID,
					"project_id", w.ProjectID,
					"error", err,
				)
			}

			return
		}
	}
}

// WritePump forwards hub messages to the connection and keeps it alive with
// pings.
func (w *Watcher) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		w.conn.Close() //nolint:errcheck,gosec // G104: defer cleanup
	}()

	for {
		select {
		case message, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket timing

			if !ok {
				// hub closed the channel
				w.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck,gosec // G104: close message
				return
			}

			if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // G104: websocket ping timing

			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues a message for the watcher.
func (w *Watcher) Send(msg *Message) (err error) {
	// recover from panic if channel is closed
	defer func() {
		if r := recover(); r != nil {
			err = ErrConnectionClosed
		}
	}()

	w.mu.RLock()

	if w.closed {
		w.mu.RUnlock()
		return ErrConnectionClosed
	}

	w.mu.RUnlock()

	messageBytes, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return marshalErr
	}

	select {
	case w.send <- messageBytes:
		return nil
	default:
		// a watcher that cannot keep up with a progress feed is not
		// worth buffering for
		w.Close()
		return ErrConnectionClosed
	}
}

func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed {
		w.closed = true
		close(w.send)
	}
}
