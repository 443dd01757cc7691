// Package store defines the per-session table storage port shared by the
// in-memory and SQLite backends.
package store

import (
	"context"
	"errors"
	"time"

	"cashflow/internal/core"
)

// ErrNotFound is returned by Get for a session that has never been written.
var ErrNotFound = errors.New("session not found")

// Snapshot is one stored version of a session's table.
type Snapshot struct {
	SessionID string
	Version   int64
	Table     core.Table
	UpdatedAt time.Time
}

// Mutation computes the next table from the current one. It must not retain
// or mutate its argument.
type Mutation func(current core.Table) (core.Table, error)

type (
	// TableStore owns one Table per session. Every successful write bumps the
	// session's version by one, starting at 1.
	TableStore interface {
		Get(ctx context.Context, sessionID string) (Snapshot, error)
		// Put replaces the session's table.
		Put(ctx context.Context, sessionID string, t core.Table) (Snapshot, error)
		// Update applies fn to the current table (or to empty when the session
		// is new) as one atomic read-modify-write. An error from fn leaves the
		// stored table unchanged and is returned as is.
		Update(ctx context.Context, sessionID string, empty core.Table, fn Mutation) (Snapshot, error)
		Ping(ctx context.Context) error
	}

	// StaleLister is implemented by stores that can report the sessions
	// changed since a point in time, for periodic resync.
	StaleLister interface {
		ListStale(ctx context.Context, since time.Time) ([]Snapshot, error)
	}
)
