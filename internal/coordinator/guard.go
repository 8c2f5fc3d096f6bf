package coordinator

import (
	"sync"
	"time"
)

// instanceGuard prevents this process from re-submitting a key it has already
// completed for the same project, for as long as the admission cooldown
// lasts. It backstops the persisted lock against same-instance re-render
// storms, where a duplicate can be re-derived faster than the shared store
// round-trips. Entries are scoped per project so identical prompts on
// different projects never collide, and they expire with the cooldown window
// so a deliberate resubmission later is admitted normally.
type instanceGuard struct {
	mu   sync.Mutex
	done map[string]time.Time
	ttl  time.Duration
	now  func() time.Time // injectable clock for tests
}

func newInstanceGuard(ttl time.Duration) *instanceGuard {
	return &instanceGuard{
		done: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// NUL separator keeps project/key boundaries unambiguous
func guardKey(projectID, key string) string {
	return projectID + "\x00" + key
}

// reports whether the key completed for this project within the ttl
func (g *instanceGuard) completed(projectID, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.done[guardKey(projectID, key)]
	if !ok {
		return false
	}

	if g.now().Sub(at) >= g.ttl {
		delete(g.done, guardKey(projectID, key))
		return false
	}

	return true
}

// records a successfully completed key and drops expired entries so the map
// stays bounded by the number of completions inside one ttl window
func (g *instanceGuard) markCompleted(projectID, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	for k, at := range g.done {
		if now.Sub(at) >= g.ttl {
			delete(g.done, k)
		}
	}

	g.done[guardKey(projectID, key)] = now
}
