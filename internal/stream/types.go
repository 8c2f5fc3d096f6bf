package stream

import (
	"encoding/json"
	"fmt"
)

// event tags carried on the wire in "event:" lines
const (
	TagThinking  = "thinking"
	TagProgress  = "progress"
	TagHeartbeat = "heartbeat"
	TagComplete  = "complete"
	TagError     = "error"
)

// a single decoded protocol event. exactly one of the payload fields is
// meaningful, selected by Tag. Complete and Error are terminal: the parser
// emits nothing after either.
type Event struct {
	Tag string

	// thinking text fragment (TagThinking)
	Text string

	// progress step description (TagProgress)
	Step string

	// remote failure message (TagError)
	Message string

	// raw completion payload, decoded by the transport (TagComplete)
	Result json.RawMessage
}

// payload shapes for the structured data lines
type thinkingPayload struct {
	Text string `json:"text"`
}

type progressPayload struct {
	Step string `json:"step"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// reports a data payload that could not be decoded for its event tag.
// the preview is bounded so malformed frames never flood logs.
type FrameError struct {
	Tag     string
	Preview string
	Err     error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed %q frame: %v (payload: %s)", e.Tag, e.Err, e.Preview)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

const previewLimit = 120

// truncates a payload for inclusion in error messages
func preview(data []byte) string {
	if len(data) <= previewLimit {
		return string(data)
	}

	return string(data[:previewLimit]) + "..."
}
