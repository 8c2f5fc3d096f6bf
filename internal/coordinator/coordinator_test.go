package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/sajtmaskin/server/internal/clarify"
	"codeberg.org/sajtmaskin/server/internal/kv"
	"codeberg.org/sajtmaskin/server/internal/lock"
	"codeberg.org/sajtmaskin/server/internal/reconcile"
	"codeberg.org/sajtmaskin/server/internal/v0"
)

type mockTransport struct {
	GenerateFunc     func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error)
	GenerateSyncFunc func(ctx context.Context, req v0.GenerateRequest) (*v0.Result, error)

	generateCalls []v0.GenerateRequest
	syncCalls     []v0.GenerateRequest
}

func (m *mockTransport) Generate(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
	m.generateCalls = append(m.generateCalls, req)
	return m.GenerateFunc(ctx, req, cb)
}

func (m *mockTransport) GenerateSync(ctx context.Context, req v0.GenerateRequest) (*v0.Result, error) {
	m.syncCalls = append(m.syncCalls, req)
	if m.GenerateSyncFunc == nil {
		return nil, assert.AnError
	}
	return m.GenerateSyncFunc(ctx, req)
}

type mockRecordSource struct {
	ProjectRecordFunc func(ctx context.Context, projectID string) (*v0.ProjectRecord, error)
	calls             int
}

func (m *mockRecordSource) ProjectRecord(ctx context.Context, projectID string) (*v0.ProjectRecord, error) {
	m.calls++
	return m.ProjectRecordFunc(ctx, projectID)
}

type mockApplier struct {
	applied map[string]*v0.Result
}

func (m *mockApplier) ApplyResult(ctx context.Context, projectID string, result *v0.Result) error {
	if m.applied == nil {
		m.applied = make(map[string]*v0.Result)
	}
	m.applied[projectID] = result
	return nil
}

type testHarness struct {
	coord     *Coordinator
	transport *mockTransport
	records   *mockRecordSource
	applier   *mockApplier
	store     *kv.MemoryStore
	clarify   *clarify.Store
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	transport := &mockTransport{
		GenerateFunc: func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
			return &v0.Result{Success: true, ChatID: "chat-1", Code: "<html/>"}, nil
		},
	}
	records := &mockRecordSource{
		ProjectRecordFunc: func(ctx context.Context, projectID string) (*v0.ProjectRecord, error) {
			return &v0.ProjectRecord{ProjectID: projectID}, nil
		},
	}
	applier := &mockApplier{}
	store := kv.NewMemoryStore()
	clarifyStore := clarify.NewStore(store)

	coord := New(
		transport,
		lock.NewController(store, lock.Config{Cooldown: 30 * time.Second, StaleCeiling: 10 * time.Minute}),
		clarifyStore,
		reconcile.NewReconciler(records),
		applier,
	)

	return &testHarness{
		coord:     coord,
		transport: transport,
		records:   records,
		applier:   applier,
		store:     store,
		clarify:   clarifyStore,
	}
}

func TestSubmitAppliesSuccessfulGeneration(t *testing.T) {
	h := newHarness(t)

	result, err := h.coord.Submit(context.Background(), Request{
		ProjectID: "proj-1",
		Category:  "portfolio",
		Prompt:    "build me a portfolio site",
	}, v0.StreamCallbacks{})

	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, "chat-1", result.ChatID)
	require.Contains(t, h.applier.applied, "proj-1")
	assert.Equal(t, result, h.applier.applied["proj-1"])
}

func TestSubmitReleasesLockAfterCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.coord.Submit(ctx, Request{ProjectID: "proj-1", Prompt: "first"}, v0.StreamCallbacks{})
	require.NoError(t, err)

	// a different prompt right after completion must not hit the
	// in-progress refusal, only the cooldown applies to identical keys
	_, err = h.coord.Submit(ctx, Request{ProjectID: "proj-1", Prompt: "second"}, v0.StreamCallbacks{})
	require.NoError(t, err)
	assert.Len(t, h.transport.generateCalls, 2)
}

func TestSubmitCooldownSkipsNetwork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := Request{ProjectID: "proj-1", Prompt: "same prompt"}

	_, err := h.coord.Submit(ctx, req, v0.StreamCallbacks{})
	require.NoError(t, err)

	// the instance guard refuses first; strip it to exercise the
	// persisted cooldown the way a second instance would see it
	h.coord.guard = newInstanceGuard(30 * time.Second)

	_, err = h.coord.Submit(ctx, req, v0.StreamCallbacks{})
	assert.ErrorIs(t, err, lock.ErrCooldown)
	assert.Len(t, h.transport.generateCalls, 1)
}

func TestSubmitDuplicateGuardSkipsNetwork(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := Request{ProjectID: "proj-1", Prompt: "same prompt"}

	_, err := h.coord.Submit(ctx, req, v0.StreamCallbacks{})
	require.NoError(t, err)

	_, err = h.coord.Submit(ctx, req, v0.StreamCallbacks{})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, h.transport.generateCalls, 1)
}

func TestSubmitGuardScopedPerProject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.coord.Submit(ctx, Request{ProjectID: "proj-1", Prompt: "same prompt"}, v0.StreamCallbacks{})
	require.NoError(t, err)

	// identical prompt against a different project is a different request
	_, err = h.coord.Submit(ctx, Request{ProjectID: "proj-2", Prompt: "same prompt"}, v0.StreamCallbacks{})
	require.NoError(t, err)
	assert.Len(t, h.transport.generateCalls, 2)
}

func TestSubmitAdmitsAgainAfterCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := Request{ProjectID: "proj-1", Prompt: "same prompt"}

	_, err := h.coord.Submit(ctx, req, v0.StreamCallbacks{})
	require.NoError(t, err)

	// a deliberate resubmission after the cooldown window is legitimate
	later := time.Now().Add(time.Minute)
	h.coord.guard.now = func() time.Time { return later }
	h.coord.admission.WithClock(func() time.Time { return later })

	_, err = h.coord.Submit(ctx, req, v0.StreamCallbacks{})
	require.NoError(t, err)
	assert.Len(t, h.transport.generateCalls, 2)
}

func TestSubmitReconcilesIncompleteStream(t *testing.T) {
	h := newHarness(t)
	h.transport.GenerateFunc = func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
		return nil, &v0.TransportError{Kind: v0.KindIncompleteStream, Message: "stream ended without a terminal frame"}
	}
	h.records.ProjectRecordFunc = func(ctx context.Context, projectID string) (*v0.ProjectRecord, error) {
		return &v0.ProjectRecord{ProjectID: projectID, ChatID: "chat-2", DemoURL: "https://demo", Code: "<html/>"}, nil
	}

	result, err := h.coord.Submit(context.Background(), Request{
		ProjectID: "proj-1",
		Prompt:    "add a contact form",
		ChatID:    "chat-1",
	}, v0.StreamCallbacks{})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Reconciled)
	assert.True(t, result.Applied)
	assert.Equal(t, "chat-2", result.ChatID)

	// the work was proven done remotely, so no second generation call
	assert.Len(t, h.transport.generateCalls, 1)
	assert.Empty(t, h.transport.syncCalls)
}

func TestSubmitFallsBackWhenUnresolved(t *testing.T) {
	h := newHarness(t)
	h.transport.GenerateFunc = func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
		return nil, &v0.TransportError{Kind: v0.KindReadTimeout, Message: "no stream activity"}
	}
	h.transport.GenerateSyncFunc = func(ctx context.Context, req v0.GenerateRequest) (*v0.Result, error) {
		return &v0.Result{Success: true, ChatID: "chat-2", Code: "<html/>"}, nil
	}
	h.records.ProjectRecordFunc = func(ctx context.Context, projectID string) (*v0.ProjectRecord, error) {
		// record still shows the prior conversation, nothing advanced
		return &v0.ProjectRecord{ProjectID: projectID, ChatID: "chat-1"}, nil
	}

	result, err := h.coord.Submit(context.Background(), Request{
		ProjectID: "proj-1",
		Prompt:    "add a contact form",
		ChatID:    "chat-1",
	}, v0.StreamCallbacks{})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Reconciled)
	assert.Equal(t, 1, h.records.calls)
	require.Len(t, h.transport.syncCalls, 1)
	assert.Equal(t, h.transport.generateCalls[0], h.transport.syncCalls[0])
}

func TestSubmitUnambiguousFailureDoesNotFallBack(t *testing.T) {
	h := newHarness(t)
	h.transport.GenerateFunc = func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
		return nil, &v0.TransportError{Kind: v0.KindRemote, Message: "insufficient credits", StatusCode: 402}
	}

	_, err := h.coord.Submit(context.Background(), Request{ProjectID: "proj-1", Prompt: "x"}, v0.StreamCallbacks{})
	require.Error(t, err)
	assert.Equal(t, v0.KindRemote, v0.Kind(err))
	assert.Equal(t, 0, h.records.calls)
	assert.Empty(t, h.transport.syncCalls)
}

func TestSubmitClarifyRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.transport.GenerateFunc = func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
		return &v0.Result{Success: true, Intent: "clarify", ClarifyQuestion: "dark or light theme?"}, nil
	}

	result, err := h.coord.Submit(ctx, Request{ProjectID: "proj-1", Prompt: "make it pretty"}, v0.StreamCallbacks{})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Empty(t, h.applier.applied)

	pending, err := h.clarify.Get(ctx, "proj-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "make it pretty", pending.OriginalPrompt)
	assert.Equal(t, "dark or light theme?", pending.ClarifyQuestion)

	// the follow-up answer carries the clarify context to the service
	h.transport.GenerateFunc = func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
		require.NotNil(t, req.Clarify)
		assert.Equal(t, "make it pretty", req.Clarify.OriginalPrompt)
		assert.Equal(t, "dark or light theme?", req.Clarify.ClarifyQuestion)
		assert.Equal(t, "dark theme", req.Clarify.UserResponse)
		return &v0.Result{Success: true, ChatID: "chat-1", Code: "<html/>"}, nil
	}

	result, err = h.coord.Submit(ctx, Request{ProjectID: "proj-1", Prompt: "dark theme"}, v0.StreamCallbacks{})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	// answered context is cleared, it must not leak into later requests
	pending, err = h.clarify.Get(ctx, "proj-1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestSubmitRespondIntentNotApplied(t *testing.T) {
	h := newHarness(t)

	h.transport.GenerateFunc = func(ctx context.Context, req v0.GenerateRequest, cb v0.StreamCallbacks) (*v0.Result, error) {
		return &v0.Result{Success: true, Intent: "respond", Message: "your site has three pages"}, nil
	}

	result, err := h.coord.Submit(context.Background(), Request{ProjectID: "proj-1", Prompt: "how many pages?"}, v0.StreamCallbacks{})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Empty(t, h.applier.applied)
}

func TestSubmitAbsentIntentApplies(t *testing.T) {
	h := newHarness(t)

	result, err := h.coord.Submit(context.Background(), Request{ProjectID: "proj-1", Prompt: "build it"}, v0.StreamCallbacks{})
	require.NoError(t, err)
	assert.True(t, result.Applied)
}

func TestRequestKeyNormalization(t *testing.T) {
	assert.Equal(t,
		RequestKey("portfolio", "build me a site", "tmpl-1"),
		RequestKey("portfolio", "  build me a site  ", "tmpl-1"),
	)
	assert.NotEqual(t,
		RequestKey("portfolio", "build me a site", "tmpl-1"),
		RequestKey("portfolio", "build me a site", "tmpl-2"),
	)
	// component boundaries must not be forgeable by concatenation
	assert.NotEqual(t,
		RequestKey("ab", "c", ""),
		RequestKey("a", "bc", ""),
	)
}
