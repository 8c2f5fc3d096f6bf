package lock

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/sajtmaskin/server/internal/kv"
	"codeberg.org/sajtmaskin/server/internal/logger"
)

const (
	// storage key prefix; one lock per project
	keyPrefix = "genlock:"

	// CAS attempts before giving up on a contended lock
	maxAttempts = 4
)

type Config struct {
	// minimum gap between two admissions of the same request key
	Cooldown time.Duration

	// an in-progress lock older than this is abandoned and self-heals
	StaleCeiling time.Duration
}

// Controller arbitrates admission to the generation path.
type Controller struct {
	store  kv.Store
	config Config
	now    func() time.Time // injectable clock for tests
}

func NewController(store kv.Store, config Config) *Controller {
	return &Controller{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// TryAdmit grants or refuses permission to start a generation for the given
// request key. On success the lock is held and the caller must call Release
// exactly once, on every path out of the admitted region.
//
// Refusals are ErrAlreadyRunning, ErrCooldown, or ErrContention; all are
// non-fatal and must never surface to the user.
func (c *Controller) TryAdmit(ctx context.Context, projectID, key string) error {
	storageKey := keyPrefix + projectID

	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := c.store.Get(ctx, storageKey)
		if err != nil {
			return fmt.Errorf("failed to read generation lock: %w", err)
		}

		current, err := decode(raw)
		if err != nil {
			// a corrupt lock must not wedge generation forever; treat the
			// state as absent but CAS against the stored bytes so they are
			// replaced, not raced past
			logger.Warn("discarding corrupt generation lock",
				"project_id", projectID,
				"error", err,
			)

			current = nil
		}

		now := c.now()

		if current != nil && current.InProgress {
			age := now.Sub(current.Timestamp)

			if age <= c.config.StaleCeiling {
				return ErrAlreadyRunning
			}

			// self-healing: an in-progress lock past the ceiling was
			// abandoned by a crashed or vanished holder
			logger.Warn("clearing abandoned generation lock",
				"project_id", projectID,
				"age", age.String(),
				"last_key", current.LastKey,
			)
		} else if current != nil && current.LastKey == key {
			if now.Sub(current.Timestamp) < c.config.Cooldown {
				return ErrCooldown
			}
		}

		next := &Lock{
			LastKey:    key,
			InProgress: true,
			Timestamp:  now,
		}

		swapped, err := c.store.CompareAndSwap(ctx, storageKey, raw, encode(next))
		if err != nil {
			return fmt.Errorf("failed to admit generation: %w", err)
		}

		if swapped {
			return nil
		}
		// another instance transitioned the lock between our read and the
		// swap; re-read and re-evaluate
	}

	return ErrContention
}

// Release ends the admitted region: clears InProgress while preserving the
// key and refreshing the timestamp so the cooldown window starts counting
// from completion. It must run exactly once per admission, regardless of
// success, transport failure, or cancellation; callers defer it with a
// context that survives cancellation of the request.
func (c *Controller) Release(ctx context.Context, projectID string) {
	storageKey := keyPrefix + projectID

	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := c.store.Get(ctx, storageKey)
		if err != nil {
			logger.ErrorErr(err, "failed to read lock during release", "project_id", projectID)
			return
		}

		current, err := decode(raw)
		if err != nil || current == nil {
			// nothing sane to release; the stale ceiling is the backstop
			return
		}

		next := &Lock{
			LastKey:    current.LastKey,
			InProgress: false,
			Timestamp:  c.now(),
		}

		swapped, err := c.store.CompareAndSwap(ctx, storageKey, raw, encode(next))
		if err != nil {
			logger.ErrorErr(err, "failed to release generation lock", "project_id", projectID)
			return
		}

		if swapped {
			return
		}
	}

	logger.Error("gave up releasing contended generation lock; stale ceiling will self-heal",
		"project_id", projectID,
	)
}

// Cooldown reports the configured duplicate-suppression window.
func (c *Controller) Cooldown() time.Duration {
	return c.config.Cooldown
}

// Peek returns the current lock state for a project, or nil when no lock has
// ever been written. Read-only, used by status endpoints.
func (c *Controller) Peek(ctx context.Context, projectID string) (*Lock, error) {
	raw, err := c.store.Get(ctx, keyPrefix+projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation lock: %w", err)
	}

	return decode(raw)
}

// WithClock replaces the controller's clock. Test hook.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}
