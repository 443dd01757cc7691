package memory

import (
	"context"
	"sync"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

var (
	_ store.TableStore  = (*Store)(nil)
	_ store.StaleLister = (*Store)(nil)
)

// Store keeps session tables in process memory. Tables are cloned on the way
// in and out so callers never share rows with the store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]store.Snapshot
	now      func() time.Time
}

func New() *Store {
	return &Store{sessions: make(map[string]store.Snapshot), now: time.Now}
}

func (s *Store) Get(_ context.Context, sessionID string) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.sessions[sessionID]
	if !ok {
		return store.Snapshot{}, store.ErrNotFound
	}
	return copySnapshot(snap), nil
}

func (s *Store) Put(_ context.Context, sessionID string, t core.Table) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(sessionID, t), nil
}

func (s *Store) Update(ctx context.Context, sessionID string, empty core.Table, fn store.Mutation) (store.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return store.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := empty
	if snap, ok := s.sessions[sessionID]; ok {
		current = snap.Table
	}
	next, err := fn(current.Clone())
	if err != nil {
		return store.Snapshot{}, err
	}
	return s.writeLocked(sessionID, next), nil
}

func (s *Store) Ping(context.Context) error { return nil }

// ListStale returns the sessions written at or after since.
func (s *Store) ListStale(_ context.Context, since time.Time) ([]store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Snapshot
	for _, snap := range s.sessions {
		if !snap.UpdatedAt.Before(since) {
			out = append(out, copySnapshot(snap))
		}
	}
	return out, nil
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) writeLocked(sessionID string, t core.Table) store.Snapshot {
	snap := store.Snapshot{
		SessionID: sessionID,
		Version:   s.sessions[sessionID].Version + 1,
		Table:     t.Clone(),
		UpdatedAt: s.now().UTC(),
	}
	s.sessions[sessionID] = snap
	return copySnapshot(snap)
}

func copySnapshot(s store.Snapshot) store.Snapshot {
	s.Table = s.Table.Clone()
	return s
}
