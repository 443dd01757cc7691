package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// SnapshotRow is a stored snapshot as laid out in the snapshots table.
type SnapshotRow struct {
	SessionID  string
	Version    int64
	SchemaName string
	Payload    string
	RowCount   int64
	UpdatedAt  int64
}

const getSnapshot = `
SELECT session_id, version, schema_name, payload, row_count, updated_at
FROM snapshots
WHERE session_id = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, sessionID string) (SnapshotRow, error) {
	var s SnapshotRow
	err := q.db.QueryRowContext(ctx, getSnapshot, sessionID).Scan(
		&s.SessionID, &s.Version, &s.SchemaName, &s.Payload, &s.RowCount, &s.UpdatedAt,
	)
	return s, err
}

const upsertSnapshot = `
INSERT INTO snapshots (session_id, version, schema_name, payload, row_count, updated_at)
VALUES (?, 1, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    version     = snapshots.version + 1,
    schema_name = excluded.schema_name,
    payload     = excluded.payload,
    row_count   = excluded.row_count,
    updated_at  = excluded.updated_at
RETURNING version
`

type UpsertSnapshotParams struct {
	SessionID  string
	SchemaName string
	Payload    string
	RowCount   int64
	UpdatedAt  int64
}

// UpsertSnapshot writes the snapshot and returns its new version.
func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, upsertSnapshot,
		arg.SessionID, arg.SchemaName, arg.Payload, arg.RowCount, arg.UpdatedAt,
	).Scan(&version)
	return version, err
}

const listSnapshotsSince = `
SELECT session_id, version, schema_name, payload, row_count, updated_at
FROM snapshots
WHERE updated_at >= ?
ORDER BY updated_at, session_id
`

func (q *Queries) ListSnapshotsSince(ctx context.Context, since int64) ([]SnapshotRow, error) {
	rows, err := q.db.QueryContext(ctx, listSnapshotsSince, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		if err := rows.Scan(&s.SessionID, &s.Version, &s.SchemaName, &s.Payload, &s.RowCount, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const getMirroredVersion = `
SELECT version FROM mirror_state WHERE session_id = ?
`

func (q *Queries) GetMirroredVersion(ctx context.Context, sessionID string) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, getMirroredVersion, sessionID).Scan(&version)
	return version, err
}

const markMirrored = `
INSERT INTO mirror_state (session_id, version, mirrored_at)
VALUES (?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    version     = excluded.version,
    mirrored_at = excluded.mirrored_at
WHERE excluded.version > mirror_state.version
`

type MarkMirroredParams struct {
	SessionID  string
	Version    int64
	MirroredAt int64
}

func (q *Queries) MarkMirrored(ctx context.Context, arg MarkMirroredParams) error {
	_, err := q.db.ExecContext(ctx, markMirrored, arg.SessionID, arg.Version, arg.MirroredAt)
	return err
}
