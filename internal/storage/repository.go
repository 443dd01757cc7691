// Package storage persists session table snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/store"

	_ "modernc.org/sqlite"
)

var (
	_ store.TableStore  = (*SQLiteRepository)(nil)
	_ store.StaleLister = (*SQLiteRepository)(nil)
)

// SQLiteRepository stores one CSV-encoded snapshot per session. Writes are
// serialized through a single connection so Update is a true
// read-modify-write.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get implements store.TableStore
func (r *SQLiteRepository) Get(ctx context.Context, sessionID string) (store.Snapshot, error) {
	row, err := r.queries.GetSnapshot(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("get snapshot %s: %w", sessionID, err)
	}
	return decodeSnapshot(row)
}

// Put implements store.TableStore
func (r *SQLiteRepository) Put(ctx context.Context, sessionID string, t core.Table) (store.Snapshot, error) {
	return r.write(ctx, r.queries, sessionID, t)
}

// Update implements store.TableStore
func (r *SQLiteRepository) Update(ctx context.Context, sessionID string, empty core.Table, fn store.Mutation) (store.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	current := empty
	row, err := q.GetSnapshot(ctx, sessionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return store.Snapshot{}, fmt.Errorf("get snapshot %s: %w", sessionID, err)
	default:
		snap, err := decodeSnapshot(row)
		if err != nil {
			return store.Snapshot{}, err
		}
		current = snap.Table
	}

	next, err := fn(current)
	if err != nil {
		return store.Snapshot{}, err
	}

	snap, err := r.write(ctx, q, sessionID, next)
	if err != nil {
		return store.Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Snapshot{}, fmt.Errorf("commit snapshot %s: %w", sessionID, err)
	}
	return snap, nil
}

// ListStale implements store.StaleLister
func (r *SQLiteRepository) ListStale(ctx context.Context, since time.Time) ([]store.Snapshot, error) {
	rows, err := r.queries.ListSnapshotsSince(ctx, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list snapshots since %s: %w", since.Format(time.RFC3339), err)
	}
	out := make([]store.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := decodeSnapshot(row)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// MirroredVersion returns the last snapshot version written to the
// spreadsheet mirror for sessionID, or 0 when it was never mirrored.
func (r *SQLiteRepository) MirroredVersion(ctx context.Context, sessionID string) (int64, error) {
	v, err := r.queries.GetMirroredVersion(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get mirrored version %s: %w", sessionID, err)
	}
	return v, nil
}

// MarkMirrored records version as mirrored. Older versions never overwrite
// newer ones.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, sessionID string, version int64) error {
	err := r.queries.MarkMirrored(ctx, MarkMirroredParams{
		SessionID:  sessionID,
		Version:    version,
		MirroredAt: r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("mark mirrored %s@%d: %w", sessionID, version, err)
	}
	return nil
}

func (r *SQLiteRepository) write(ctx context.Context, q *Queries, sessionID string, t core.Table) (store.Snapshot, error) {
	payload, err := core.ToCSV(t)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("encode snapshot %s: %w", sessionID, err)
	}
	now := r.now().UTC()
	version, err := q.UpsertSnapshot(ctx, UpsertSnapshotParams{
		SessionID:  sessionID,
		SchemaName: t.Schema.Name,
		Payload:    string(payload),
		RowCount:   int64(t.Len()),
		UpdatedAt:  now.UnixMilli(),
	})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("save snapshot %s: %w", sessionID, err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite",
		"session_id", sessionID,
		"version", version,
		"rows", t.Len())

	return store.Snapshot{
		SessionID: sessionID,
		Version:   version,
		Table:     t.Clone(),
		UpdatedAt: now.Truncate(time.Millisecond),
	}, nil
}

func decodeSnapshot(row SnapshotRow) (store.Snapshot, error) {
	schema, err := core.SchemaByName(row.SchemaName)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("snapshot %s: %w", row.SessionID, err)
	}
	t, err := core.LoadCSV([]byte(row.Payload), schema)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", row.SessionID, err)
	}
	return store.Snapshot{
		SessionID: row.SessionID,
		Version:   row.Version,
		Table:     t,
		UpdatedAt: time.UnixMilli(row.UpdatedAt).UTC(),
	}, nil
}
