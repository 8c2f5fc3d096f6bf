package stream

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Parser decodes an event stream incrementally. Chunks may split lines (and
// even multi-byte runes) at arbitrary points; Feed carries the partial tail
// across calls so the produced event sequence is identical however the bytes
// are chunked.
//
// Frame format: an "event:" line naming the tag, one or more "data:" lines,
// and a blank line terminating the frame. Frames with unknown tags are
// dropped. After a terminal frame (complete or error) all further input is
// ignored.
type Parser struct {
	partial []byte   // unterminated trailing line from the previous chunk
	tag     string   // current frame's event tag
	data    [][]byte // accumulated data lines for the current frame
	done    bool     // terminal frame seen
}

func NewParser() *Parser {
	return &Parser{}
}

// decodes all complete frames available after appending chunk.
// returns the events in arrival order; a FrameError aborts decoding.
func (p *Parser) Feed(chunk []byte) ([]Event, error) {
	if p.done {
		return nil, nil
	}

	buf := append(p.partial, chunk...)

	var events []Event

	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}

		line := buf[:idx]
		buf = buf[idx+1:]

		// tolerate CRLF line endings
		line = bytes.TrimSuffix(line, []byte{'\r'})

		ev, emitted, err := p.consumeLine(line)
		if err != nil {
			p.partial = nil
			return events, err
		}

		if emitted {
			events = append(events, ev)

			if p.done {
				p.partial = nil
				return events, nil
			}
		}
	}

	// keep the unterminated tail for the next chunk
	p.partial = append([]byte(nil), buf...)

	return events, nil
}

// signals end of input. a frame still being accumulated at close (no
// terminating blank line arrived) is discarded: the stream ended mid-frame
// and the transport reports that as an incomplete stream.
func (p *Parser) Close() {
	p.partial = nil
	p.tag = ""
	p.data = nil
}

// reports whether a terminal event (complete or error) has been emitted
func (p *Parser) Terminal() bool {
	return p.done
}

// processes one full line; emits an event when a frame boundary is reached
func (p *Parser) consumeLine(line []byte) (Event, bool, error) {
	if len(line) == 0 {
		// blank line terminates the frame
		return p.dispatchFrame()
	}

	if rest, ok := fieldValue(line, "event"); ok {
		p.tag = string(rest)
		return Event{}, false, nil
	}

	if rest, ok := fieldValue(line, "data"); ok {
		p.data = append(p.data, append([]byte(nil), rest...))
		return Event{}, false, nil
	}

	// unrecognized field lines are ignored, same as unknown tags
	return Event{}, false, nil
}

// extracts the value of a "field: value" line, trimming one leading space
func fieldValue(line []byte, field string) ([]byte, bool) {
	prefix := field + ":"
	if !bytes.HasPrefix(line, []byte(prefix)) {
		return nil, false
	}

	rest := line[len(prefix):]
	if len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}

	return rest, true
}

// decodes the accumulated frame into a typed event
func (p *Parser) dispatchFrame() (Event, bool, error) {
	tag := p.tag
	payload := bytes.Join(p.data, []byte{'\n'})

	p.tag = ""
	p.data = nil

	switch strings.TrimSpace(tag) {
	case TagThinking:
		var body thinkingPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			return Event{}, false, &FrameError{Tag: TagThinking, Preview: preview(payload), Err: err}
		}

		return Event{Tag: TagThinking, Text: body.Text}, true, nil

	case TagProgress:
		var body progressPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			return Event{}, false, &FrameError{Tag: TagProgress, Preview: preview(payload), Err: err}
		}

		return Event{Tag: TagProgress, Step: body.Step}, true, nil

	case TagHeartbeat:
		// payload is irrelevant; the event only resets the activity clock
		return Event{Tag: TagHeartbeat}, true, nil

	case TagError:
		var body errorPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			return Event{}, false, &FrameError{Tag: TagError, Preview: preview(payload), Err: err}
		}

		p.done = true

		return Event{Tag: TagError, Message: body.Message}, true, nil

	case TagComplete:
		if !json.Valid(payload) {
			return Event{}, false, &FrameError{Tag: TagComplete, Preview: preview(payload), Err: errInvalidJSON}
		}

		p.done = true

		return Event{Tag: TagComplete, Result: json.RawMessage(payload)}, true, nil

	case "":
		// stray blank line between frames
		return Event{}, false, nil

	default:
		// unknown event tags are ignored
		return Event{}, false, nil
	}
}
