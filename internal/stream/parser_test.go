package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = "event: thinking\n" +
	"data: {\"text\":\"planning the hero section\"}\n" +
	"\n" +
	"event: progress\n" +
	"data: {\"step\":\"generating components\"}\n" +
	"\n" +
	"event: heartbeat\n" +
	"data: {}\n" +
	"\n" +
	"event: complete\n" +
	"data: {\"success\":true,\n" +
	"data: \"chatId\":\"chat-42\"}\n" +
	"\n"

// feeds the whole stream in one call and collects events
func parseAll(t *testing.T, p *Parser, input string, chunkSize int) []Event {
	t.Helper()

	var events []Event

	for start := 0; start < len(input); start += chunkSize {
		end := min(start+chunkSize, len(input))

		batch, err := p.Feed([]byte(input[start:end]))
		require.NoError(t, err)

		events = append(events, batch...)
	}

	return events
}

func TestParser_SingleChunk(t *testing.T) {
	events := parseAll(t, NewParser(), sampleStream, len(sampleStream))

	require.Len(t, events, 4)
	assert.Equal(t, TagThinking, events[0].Tag)
	assert.Equal(t, "planning the hero section", events[0].Text)
	assert.Equal(t, TagProgress, events[1].Tag)
	assert.Equal(t, "generating components", events[1].Step)
	assert.Equal(t, TagHeartbeat, events[2].Tag)
	assert.Equal(t, TagComplete, events[3].Tag)

	// multi-line data payloads are joined with newlines
	assert.JSONEq(t, `{"success":true,"chatId":"chat-42"}`, string(events[3].Result))
}

func TestParser_ChunkBoundaryInvariance(t *testing.T) {
	reference := parseAll(t, NewParser(), sampleStream, len(sampleStream))

	for _, size := range []int{1, 2, 3, 5, 7, 16, 64} {
		t.Run(fmt.Sprintf("chunk_%d", size), func(t *testing.T) {
			events := parseAll(t, NewParser(), sampleStream, size)
			assert.Equal(t, reference, events, "event sequence must not depend on chunking")
		})
	}
}

func TestParser_CRLFLines(t *testing.T) {
	input := "event: progress\r\ndata: {\"step\":\"deploying\"}\r\n\r\n"
	events := parseAll(t, NewParser(), input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, "deploying", events[0].Step)
}

func TestParser_UnknownTagIgnored(t *testing.T) {
	input := "event: telemetry\ndata: {\"cpu\":99}\n\n" +
		"event: progress\ndata: {\"step\":\"building\"}\n\n"

	events := parseAll(t, NewParser(), input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, TagProgress, events[0].Tag)
}

func TestParser_NothingAfterComplete(t *testing.T) {
	input := "event: complete\ndata: {\"success\":true}\n\n" +
		"event: progress\ndata: {\"step\":\"late\"}\n\n"

	p := NewParser()
	events := parseAll(t, p, input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, TagComplete, events[0].Tag)
	assert.True(t, p.Terminal())

	// further feeds are ignored entirely
	more, err := p.Feed([]byte("event: thinking\ndata: {\"text\":\"x\"}\n\n"))
	require.NoError(t, err)
	assert.Empty(t, more)
}

func TestParser_ErrorFrameIsTerminal(t *testing.T) {
	input := "event: error\ndata: {\"message\":\"model overloaded\"}\n\n"

	p := NewParser()
	events := parseAll(t, p, input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, TagError, events[0].Tag)
	assert.Equal(t, "model overloaded", events[0].Message)
	assert.True(t, p.Terminal())
}

func TestParser_MalformedPayload(t *testing.T) {
	input := "event: thinking\ndata: {not json at all\n\n"

	_, err := NewParser().Feed([]byte(input))

	require.Error(t, err)

	var frameErr *FrameError
	require.ErrorAs(t, err, &frameErr)
	assert.Equal(t, TagThinking, frameErr.Tag)
	assert.Contains(t, frameErr.Preview, "{not json")
	assert.Contains(t, err.Error(), "thinking")
}

func TestParser_MalformedPayloadPreviewBounded(t *testing.T) {
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'x'
	}

	input := "event: complete\ndata: " + string(long) + "\n\n"

	_, err := NewParser().Feed([]byte(input))

	var frameErr *FrameError
	require.ErrorAs(t, err, &frameErr)
	assert.LessOrEqual(t, len(frameErr.Preview), previewLimit+3)
}

func TestParser_BlankLinesBetweenFrames(t *testing.T) {
	input := "\n\nevent: heartbeat\ndata: {}\n\n\n"
	events := parseAll(t, NewParser(), input, len(input))

	require.Len(t, events, 1)
	assert.Equal(t, TagHeartbeat, events[0].Tag)
}
