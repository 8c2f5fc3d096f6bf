package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/sajtmaskin/server/internal/kv"
)

// fixed-epoch adjustable clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestController(clock *fakeClock) *Controller {
	return NewController(kv.NewMemoryStore(), Config{
		Cooldown:     30 * time.Second,
		StaleCeiling: 10 * time.Minute,
	}).WithClock(clock.Now)
}

func TestTryAdmit_FirstRequest(t *testing.T) {
	ctx := context.Background()
	c := newTestController(newFakeClock())

	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))

	state, err := c.Peek(ctx, "proj")
	require.NoError(t, err)
	assert.True(t, state.InProgress)
	assert.Equal(t, "key-a", state.LastKey)
}

func TestTryAdmit_RejectsWhileInProgress(t *testing.T) {
	ctx := context.Background()
	c := newTestController(newFakeClock())

	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))

	// any key is refused while a generation is in flight
	assert.ErrorIs(t, c.TryAdmit(ctx, "proj", "key-a"), ErrAlreadyRunning)
	assert.ErrorIs(t, c.TryAdmit(ctx, "proj", "key-b"), ErrAlreadyRunning)
}

func TestTryAdmit_CooldownAfterRelease(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestController(clock)

	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))
	c.Release(ctx, "proj")

	clock.Advance(5 * time.Second)
	assert.ErrorIs(t, c.TryAdmit(ctx, "proj", "key-a"), ErrCooldown)

	// a different key is not subject to the cooldown
	require.NoError(t, c.TryAdmit(ctx, "proj", "key-b"))
}

func TestTryAdmit_CooldownExpires(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestController(clock)

	// scenario: admit at t=0, release at t=3s, identical key at t=5s is
	// refused, identical key at t=40s is admitted
	require.NoError(t, c.TryAdmit(ctx, "landing-x", "landing-x"))

	clock.Advance(3 * time.Second)
	c.Release(ctx, "landing-x")

	clock.Advance(2 * time.Second)
	assert.ErrorIs(t, c.TryAdmit(ctx, "landing-x", "landing-x"), ErrCooldown)

	clock.Advance(35 * time.Second)
	require.NoError(t, c.TryAdmit(ctx, "landing-x", "landing-x"))
}

func TestTryAdmit_SelfHealsAbandonedLock(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestController(clock)

	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))

	// holder vanishes without releasing; past the ceiling any key may enter
	clock.Advance(11 * time.Minute)

	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))

	state, err := c.Peek(ctx, "proj")
	require.NoError(t, err)
	assert.True(t, state.InProgress)
}

func TestTryAdmit_StaleLockNotHealedBeforeCeiling(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestController(clock)

	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))

	clock.Advance(9 * time.Minute)

	assert.ErrorIs(t, c.TryAdmit(ctx, "proj", "key-b"), ErrAlreadyRunning)
}

func TestTryAdmit_MutualExclusionUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	const contenders = 24

	var wg sync.WaitGroup
	admitted := make(chan int, contenders)

	for i := range contenders {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// each goroutine gets its own controller: independent execution
			// contexts coordinating only through the shared store
			c := NewController(store, Config{
				Cooldown:     30 * time.Second,
				StaleCeiling: 10 * time.Minute,
			})

			if err := c.TryAdmit(ctx, "proj", "same-key"); err == nil {
				admitted <- i
			}
		}()
	}

	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}

	assert.Equal(t, 1, count, "exactly one contender may hold the lock")
}

func TestRelease_PreservesKeyAndRefreshesTimestamp(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestController(clock)

	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))

	admittedAt := clock.Now()

	clock.Advance(90 * time.Second)
	c.Release(ctx, "proj")

	state, err := c.Peek(ctx, "proj")
	require.NoError(t, err)
	assert.False(t, state.InProgress)
	assert.Equal(t, "key-a", state.LastKey)
	assert.True(t, state.Timestamp.After(admittedAt), "release must refresh the timestamp")
}

func TestRelease_WithoutAdmissionIsHarmless(t *testing.T) {
	ctx := context.Background()
	c := newTestController(newFakeClock())

	c.Release(ctx, "proj") // no lock written yet

	state, err := c.Peek(ctx, "proj")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestTryAdmit_CorruptLockDoesNotWedge(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "genlock:proj", []byte("{not json")))

	c := NewController(store, Config{
		Cooldown:     30 * time.Second,
		StaleCeiling: 10 * time.Minute,
	})

	// corrupt state decodes as absent; the stored bytes are replaced by CAS
	require.NoError(t, c.TryAdmit(ctx, "proj", "key-a"))

	state, err := c.Peek(ctx, "proj")
	require.NoError(t, err)
	assert.True(t, state.InProgress)
}
