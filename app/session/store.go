package session

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

const DefaultOwner = "default"

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Context
	lookback time.Duration
	ttl      time.Duration
	now      func() time.Time
}

// NewStore keeps sessions until they have been idle for ttl. New sessions
// start with the given lookback window.
func NewStore(lookback, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Context),
		lookback: lookback,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Store) Create(owner string) *Context {
	ctx := newContext(uuid.NewString(), cmp.Or(owner, DefaultOwner), s.lookback, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ctx.ID] = ctx

	slog.Debug("Session created", "session", ctx.ID, "owner", ctx.Owner)
	return ctx
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Context, error) {
	s.mu.RLock()
	ctx, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, id)
	}
	ctx.touch(s.now())
	return ctx, nil
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Live returns every session currently in live mode.
func (s *Store) Live() []*Context {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var live []*Context
	for _, ctx := range s.sessions {
		if ctx.IsLive() {
			live = append(live, ctx)
		}
	}
	return live
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the store's ttl and returns how
// many were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, ctx := range s.sessions {
		if ctx.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
