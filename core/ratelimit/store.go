package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed     bool
	Count       int
	WindowStart time.Time
}

// Store holds the per-provider window state. Admit must be atomic per
// provider: resetting an elapsed window, comparing against the limit and
// incrementing happen as one step.
type Store interface {
	// Admit resets the window if it has elapsed at now, then admits the
	// request and increments the count if count < limit.
	Admit(ctx context.Context, provider string, limit int, now time.Time, window time.Duration) (Decision, error)

	// Window returns the current count and window start without mutating them.
	// A provider never seen returns a zero count and zero time.
	Window(ctx context.Context, provider string) (count int, start time.Time, err error)

	// AddTokens accumulates tokens and returns the new total.
	AddTokens(ctx context.Context, provider string, tokens int64) (int64, error)

	// Tokens returns the accumulated token total.
	Tokens(ctx context.Context, provider string) (int64, error)

	// Reset clears the state of one provider.
	Reset(ctx context.Context, provider string) error

	// ResetAll clears every provider.
	ResetAll(ctx context.Context) error
}

// MemoryStore keeps window state in process. Each provider has its own lock,
// so callers for different providers never contend.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	mu     sync.Mutex
	count  int
	start  time.Time
	tokens int64
}

func (w *memoryWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count = 0
	w.start = time.Time{}
	w.tokens = 0
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*memoryWindow)}
}

func (s *MemoryStore) window(provider string) *memoryWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[provider]
	if !ok {
		w = &memoryWindow{}
		s.windows[provider] = w
	}
	return w
}

func (s *MemoryStore) Admit(_ context.Context, provider string, limit int, now time.Time, window time.Duration) (Decision, error) {
	w := s.window(provider)
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.start.IsZero() || now.Sub(w.start) >= window {
		w.start = now
		w.count = 0
	}
	allowed := w.count < limit
	if allowed {
		w.count++
	}
	return Decision{Allowed: allowed, Count: w.count, WindowStart: w.start}, nil
}

func (s *MemoryStore) Window(_ context.Context, provider string) (int, time.Time, error) {
	w := s.window(provider)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count, w.start, nil
}

func (s *MemoryStore) AddTokens(_ context.Context, provider string, tokens int64) (int64, error) {
	w := s.window(provider)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tokens += tokens
	return w.tokens, nil
}

func (s *MemoryStore) Tokens(_ context.Context, provider string) (int64, error) {
	w := s.window(provider)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tokens, nil
}

// Reset zeroes the window in place, so an Admit already holding it is
// counted against the fresh window rather than lost.
func (s *MemoryStore) Reset(_ context.Context, provider string) error {
	s.mu.Lock()
	w, ok := s.windows[provider]
	s.mu.Unlock()
	if ok {
		w.reset()
	}
	return nil
}

func (s *MemoryStore) ResetAll(context.Context) error {
	s.mu.Lock()
	windows := make([]*memoryWindow, 0, len(s.windows))
	for _, w := range s.windows {
		windows = append(windows, w)
	}
	s.mu.Unlock()
	for _, w := range windows {
		w.reset()
	}
	return nil
}
