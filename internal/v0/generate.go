package v0

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"codeberg.org/sajtmaskin/server/internal/stream"
)

// cancellation cause used by the inactivity watchdog
var errInactive = errors.New("no stream activity within inactivity window")

// Generate issues the generation request on the streaming endpoint, decoding
// frames as they arrive and invoking callbacks for thinking and progress
// events. It returns the embedded result on a complete frame and stops
// reading immediately.
//
// Two clocks bound the call: the overall timeout covers the whole request,
// and a separate inactivity watchdog aborts the read when no bytes arrive
// for the inactivity window before a terminal frame is seen. An inactivity
// abort does not mean the remote side failed - the caller must reconcile.
func (c *Client) Generate(ctx context.Context, genReq GenerateRequest, cb StreamCallbacks) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.OverallTimeout)
	defer cancel()

	streamCtx, cancelStream := context.WithCancelCause(ctx)
	defer cancelStream(nil)

	req, err := c.newRequest(streamCtx, http.MethodPost, "/chats/stream", genReq)
	if err != nil {
		return nil, &TransportError{Kind: KindHTTP, Err: err}
	}

	req.Header.Set("Accept", "text/event-stream")

	if err := v0RateLimiter.Wait(streamCtx); err != nil {
		return nil, &TransportError{Kind: KindHTTP, Err: fmt.Errorf("rate limiter error: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyStreamFailure(streamCtx, err)
	}

	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	// last-activity clock, shared with the watchdog goroutine
	var lastActivity atomic.Int64

	lastActivity.Store(time.Now().UnixNano())

	go c.watchInactivity(streamCtx, cancelStream, &lastActivity)

	parser := stream.NewParser()
	buf := make([]byte, 4096)

	for {
		n, readErr := resp.Body.Read(buf)

		if n > 0 {
			lastActivity.Store(time.Now().UnixNano())

			events, parseErr := parser.Feed(buf[:n])

			for _, ev := range events {
				result, done, evErr := c.handleEvent(ev, cb)
				if evErr != nil {
					return nil, evErr
				}

				if done {
					return result, nil
				}
			}

			if parseErr != nil {
				return nil, &TransportError{Kind: KindParse, Err: parseErr}
			}
		}

		if readErr != nil {
			parser.Close()

			if errors.Is(readErr, io.EOF) {
				// connection closed without ever observing a terminal frame
				return nil, &TransportError{Kind: KindIncompleteStream, Message: "stream ended before a terminal frame"}
			}

			return nil, c.classifyStreamFailure(streamCtx, readErr)
		}
	}
}

// processes one decoded event; done is true for a terminal complete frame
func (c *Client) handleEvent(ev stream.Event, cb StreamCallbacks) (*Result, bool, error) {
	switch ev.Tag {
	case stream.TagThinking:
		if cb.OnThinking != nil {
			cb.OnThinking(ev.Text)
		}

	case stream.TagProgress:
		if cb.OnProgress != nil {
			cb.OnProgress(ev.Step)
		}

	case stream.TagHeartbeat:
		// activity clock already reset by the bytes themselves

	case stream.TagError:
		return nil, false, &TransportError{Kind: KindRemote, Message: ev.Message}

	case stream.TagComplete:
		var result Result
		if err := json.Unmarshal(ev.Result, &result); err != nil {
			return nil, false, &TransportError{Kind: KindParse, Err: fmt.Errorf("failed to decode completion result: %w", err)}
		}

		return &result, true, nil
	}

	return nil, false, nil
}

// cancels the stream when no bytes arrive within the inactivity window
func (c *Client) watchInactivity(ctx context.Context, cancel context.CancelCauseFunc, lastActivity *atomic.Int64) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			last := time.Unix(0, lastActivity.Load())

			if time.Since(last) > c.config.InactivityTimeout {
				cancel(errInactive)
				return
			}
		}
	}
}

// maps a failed read or request to a transport error kind using the
// cancellation cause
func (c *Client) classifyStreamFailure(ctx context.Context, err error) error {
	cause := context.Cause(ctx)

	if errors.Is(cause, errInactive) {
		return &TransportError{Kind: KindReadTimeout, Message: "no stream activity within inactivity window", Err: err}
	}

	if errors.Is(cause, context.DeadlineExceeded) {
		// the overall ceiling elapsed mid-stream; outcome is just as unknown
		// as an inactivity abort
		return &TransportError{Kind: KindReadTimeout, Message: "overall timeout elapsed", Err: err}
	}

	return &TransportError{Kind: KindHTTP, Err: err}
}
