package services

import (
	"context"
	"fmt"
	"sync"
)

const (
	// MaxQAAttempts is the number of QA generations allowed per story
	MaxQAAttempts = 3

	// MaxQAResults is the number of QA tests kept per story
	MaxQAResults = 50
)

// AttemptStore persists QA generation counters across runs
type AttemptStore interface {
	QAAttempts(ctx context.Context) (map[int64]int, error)
	SetQAAttempts(ctx context.Context, attempts map[int64]int) error
}

// RegenerationGuard bounds QA generation per story
type RegenerationGuard struct {
	mu       sync.Mutex
	store    AttemptStore
	attempts map[int64]int
}

// NewRegenerationGuard loads the persisted counters
func NewRegenerationGuard(ctx context.Context, store AttemptStore) (*RegenerationGuard, error) {
	attempts, err := store.QAAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load QA attempts: %w", err)
	}
	return &RegenerationGuard{store: store, attempts: attempts}, nil
}

// Attempts returns the number of successful QA generations for a story
func (g *RegenerationGuard) Attempts(storyID int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts[storyID]
}

// CanGenerate reports whether another QA generation is allowed
func (g *RegenerationGuard) CanGenerate(storyID int64, resultCount int) bool {
	return g.Check(storyID, resultCount) == nil
}

// Check returns a *CapError when a limit is hit
func (g *RegenerationGuard) Check(storyID int64, resultCount int) error {
	attempts := g.Attempts(storyID)
	if attempts >= MaxQAAttempts || resultCount > MaxQAResults {
		return &CapError{StoryID: storyID, Attempts: attempts, Results: resultCount}
	}
	return nil
}

// Record counts one successful generation
func (g *RegenerationGuard) Record(ctx context.Context, storyID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts[storyID]++
	return g.persist(ctx)
}

// Reset sets the counter of a story back to zero
func (g *RegenerationGuard) Reset(ctx context.Context, storyID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.attempts[storyID]; !ok {
		return nil
	}
	delete(g.attempts, storyID)
	return g.persist(ctx)
}

// forget drops every counter in memory. The session removes the persisted copy.
func (g *RegenerationGuard) forget() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts = map[int64]int{}
}

func (g *RegenerationGuard) persist(ctx context.Context) error {
	snapshot := make(map[int64]int, len(g.attempts))
	for id, n := range g.attempts {
		snapshot[id] = n
	}
	if err := g.store.SetQAAttempts(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save QA attempts: %w", err)
	}
	return nil
}
