package forum

import (
	"sync"
	"time"
)

// submissionKey identifies a submission for duplicate detection. Exact
// match only; near-duplicates with trivial edits are allowed through.
type submissionKey struct {
	sessionID string
	content   string
	category  string
}

// DuplicateGuard rejects repeat submissions of the same content by the
// same session within a trailing window. State is in-memory; a restart
// clears it, which is acceptable for an abuse brake.
type DuplicateGuard struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[submissionKey]time.Time
	now    func() time.Time
}

// NewDuplicateGuard creates a guard with the given trailing window. A
// non-positive window disables the guard.
func NewDuplicateGuard(window time.Duration) *DuplicateGuard {
	return &DuplicateGuard{
		window: window,
		seen:   make(map[submissionKey]time.Time),
		now:    time.Now,
	}
}

// Seen reports whether an identical submission was recorded within the
// window.
func (g *DuplicateGuard) Seen(sessionID, content, category string) bool {
	if g.window <= 0 {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.prune(now)

	key := submissionKey{sessionID: sessionID, content: content, category: category}
	at, ok := g.seen[key]
	return ok && now.Sub(at) < g.window
}

// Record marks a submission as seen. Called only after the post has
// been persisted so a failed write never blocks a retry.
func (g *DuplicateGuard) Record(sessionID, content, category string) {
	if g.window <= 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := submissionKey{sessionID: sessionID, content: content, category: category}
	g.seen[key] = g.now()
}

func (g *DuplicateGuard) prune(now time.Time) {
	for key, at := range g.seen {
		if now.Sub(at) >= g.window {
			delete(g.seen, key)
		}
	}
}
