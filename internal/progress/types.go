package progress

import (
	"encoding/json"
	"errors"
	"time"
)

// message type constants for the progress feed
const (
	// model reasoning text streamed during generation
	TypeThinking = "thinking"

	// a build step milestone
	TypeProgress = "progress"

	// generation finished and artifacts are available
	TypeComplete = "complete"

	// generation failed
	TypeError = "error"

	// sent by server before shutdown
	TypeServerShutdown = "server_shutdown"
)

// watcher connection constants
const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// watchers only receive; inbound frames beyond control traffic are small
	maxMessageSize = 1024
)

const maxWatchersPerProject = 16

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrProjectFull      = errors.New("too many watchers for project")
)

// one message on a project's progress feed
type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"project_id"`
	Timestamp time.Time       `json:"timestamp"`
	Sequence  uint64          `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

type ThinkingPayload struct {
	Text string `json:"text"`
}

type ProgressPayload struct {
	Step string `json:"step"`
}

type CompletePayload struct {
	Success    bool   `json:"success"`
	DemoURL    string `json:"demo_url,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
	Reconciled bool   `json:"reconciled,omitempty"`
	Applied    bool   `json:"applied"`
	Message    string `json:"message,omitempty"`
}

type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ServerShutdownPayload struct {
	Reason string `json:"reason"`
}

func NewMessage(messageType, projectID string, payload any) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		ProjectID: projectID,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}
