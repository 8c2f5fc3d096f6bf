package v0

import (
	"codeberg.org/sajtmaskin/server/internal/intent"
)

// a project file included in the generation payload or returned as an artifact
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// carried with a submission that answers a pending clarification question,
// so the remote service keeps the thread of a multi-turn disambiguation
type ClarifyPayload struct {
	OriginalPrompt  string `json:"originalPrompt"`
	ClarifyQuestion string `json:"clarifyQuestion"`
	UserResponse    string `json:"userResponse"`
}

// the generation payload. the same shape is sent to the streaming and the
// synchronous endpoint.
type GenerateRequest struct {
	Prompt  string          `json:"message"`
	Quality string          `json:"quality,omitempty"` // "fast" or "premium"
	ChatID  string          `json:"chatId,omitempty"`  // existing conversation to continue
	Code    string          `json:"currentCode,omitempty"`
	Files   []File          `json:"files,omitempty"`
	Clarify *ClarifyPayload `json:"clarifyContext,omitempty"`
}

// Result is the generation outcome, streaming or synchronous.
type Result struct {
	Success         bool          `json:"success"`
	Intent          intent.Intent `json:"intent,omitempty"`
	Code            string        `json:"code,omitempty"`
	Files           []File        `json:"files,omitempty"`
	ChatID          string        `json:"chatId,omitempty"`
	DemoURL         string        `json:"demoUrl,omitempty"`
	Message         string        `json:"message,omitempty"`
	ClarifyQuestion string        `json:"clarifyQuestion,omitempty"`
	Credits         *int          `json:"creditsRemaining,omitempty"`

	// set when the result was synthesized from the durable project record
	// after an ambiguous transport failure, not received from the service
	Reconciled bool `json:"reconciled,omitempty"`

	// set by the coordinator after intent routing
	Applied bool `json:"applied"`
}

// ProjectRecord is the durable, authoritative record of a project's remote
// state: its last known conversation, preview, and code snapshot.
type ProjectRecord struct {
	ProjectID string `json:"projectId"`
	ChatID    string `json:"chatId"`
	DemoURL   string `json:"demoUrl,omitempty"`
	Code      string `json:"code,omitempty"`
}

// callbacks invoked as stream frames arrive. nil callbacks are skipped.
type StreamCallbacks struct {
	OnThinking func(text string)
	OnProgress func(step string)
}
