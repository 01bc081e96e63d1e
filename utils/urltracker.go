package utils

import (
	"strings"
	"sync"
)

// URLTracker remembers raw product links seen during one mall run
type URLTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewURLTracker creates a new tracker
func NewURLTracker() *URLTracker {
	return &URLTracker{seen: make(map[string]struct{})}
}

// Add returns true if the key is new, false if it was already seen.
// Keys are compared after trimming surrounding whitespace; empty keys are always new.
func (t *URLTracker) Add(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.seen[key]; exists {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

// Count returns the number of tracked keys
func (t *URLTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
