package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/sajtmaskin/server/internal/v0"
)

func newTestWatcher(id, projectID string, hub *Hub) *Watcher {
	return &Watcher{
		ID:        id,
		ProjectID: projectID,
		hub:       hub,
		send:      make(chan []byte, 64),
	}
}

func receiveMessage(t *testing.T, w *Watcher) *Message {
	t.Helper()

	select {
	case raw := <-w.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestHubCreation(t *testing.T) {
	hub := NewHub()
	require.NotNil(t, hub)
	assert.NotNil(t, hub.Register)
	assert.NotNil(t, hub.Unregister)
}

func TestHubRegisterWatcher(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	watcher := newTestWatcher("watcher-1", "proj-1", hub)

	hub.Register <- watcher
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, hub.WatcherCount("proj-1"))
}

func TestHubUnregisterWatcher(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	watcher := newTestWatcher("watcher-1", "proj-1", hub)

	hub.Register <- watcher
	time.Sleep(100 * time.Millisecond)

	hub.Unregister <- watcher
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, hub.WatcherCount("proj-1"))
}

func TestHubPublishScopedToProject(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	watcher1 := newTestWatcher("watcher-1", "proj-1", hub)
	watcher2 := newTestWatcher("watcher-2", "proj-1", hub)
	other := newTestWatcher("watcher-3", "proj-2", hub)

	hub.Register <- watcher1
	hub.Register <- watcher2
	hub.Register <- other
	time.Sleep(100 * time.Millisecond)

	msg, err := NewMessage(TypeProgress, "proj-1", ProgressPayload{Step: "deploying"})
	require.NoError(t, err)
	hub.Publish("proj-1", msg)

	for _, w := range []*Watcher{watcher1, watcher2} {
		got := receiveMessage(t, w)
		assert.Equal(t, TypeProgress, got.Type)
		assert.Equal(t, "proj-1", got.ProjectID)
	}

	assert.Empty(t, other.send)
}

func TestHubPublishAssignsSequence(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	watcher := newTestWatcher("watcher-1", "proj-1", hub)
	hub.Register <- watcher
	time.Sleep(100 * time.Millisecond)

	for range 3 {
		msg, err := NewMessage(TypeThinking, "proj-1", ThinkingPayload{Text: "hm"})
		require.NoError(t, err)
		hub.Publish("proj-1", msg)
	}

	for want := uint64(1); want <= 3; want++ {
		got := receiveMessage(t, watcher)
		assert.Equal(t, want, got.Sequence)
	}
}

func TestHubCallbacksPublishStreamEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	watcher := newTestWatcher("watcher-1", "proj-1", hub)
	hub.Register <- watcher
	time.Sleep(100 * time.Millisecond)

	cb := hub.Callbacks("proj-1")
	cb.OnThinking("considering layout")
	cb.OnProgress("generating")

	got := receiveMessage(t, watcher)
	assert.Equal(t, TypeThinking, got.Type)

	var thinking ThinkingPayload
	require.NoError(t, json.Unmarshal(got.Payload, &thinking))
	assert.Equal(t, "considering layout", thinking.Text)

	got = receiveMessage(t, watcher)
	assert.Equal(t, TypeProgress, got.Type)

	var progress ProgressPayload
	require.NoError(t, json.Unmarshal(got.Payload, &progress))
	assert.Equal(t, "generating", progress.Step)
}

func TestHubCompletePublishesTerminalMessage(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	watcher := newTestWatcher("watcher-1", "proj-1", hub)
	hub.Register <- watcher
	time.Sleep(100 * time.Millisecond)

	hub.Complete("proj-1", &v0.Result{
		Success:    true,
		DemoURL:    "https://demo.example",
		ChatID:     "chat-1",
		Reconciled: true,
		Applied:    true,
	})

	got := receiveMessage(t, watcher)
	assert.Equal(t, TypeComplete, got.Type)

	var payload CompletePayload
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.True(t, payload.Success)
	assert.True(t, payload.Reconciled)
	assert.True(t, payload.Applied)
	assert.Equal(t, "https://demo.example", payload.DemoURL)
}

func TestHubPublishWithoutWatchersIsNoop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	msg, err := NewMessage(TypeProgress, "proj-1", ProgressPayload{Step: "planning"})
	require.NoError(t, err)

	// must not panic or block
	hub.Publish("proj-1", msg)
}

func TestHubWatcherLimit(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	for i := range maxWatchersPerProject {
		hub.Register <- newTestWatcher(string(rune('a'+i)), "proj-1", hub)
	}
	time.Sleep(100 * time.Millisecond)

	assert.False(t, hub.CanAcceptWatcher("proj-1"))
	assert.True(t, hub.CanAcceptWatcher("proj-2"))
}
