package services

import (
	"context"
	"errors"
	"fmt"

	"cashflow/internal/cache"
	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/store"
)

// SnapshotPublisher announces new snapshot versions to downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, sessionID string, version int64) error
}

// TableService orchestrates the per-session editing workflow: it applies the
// core edit operations through the store and announces every new version.
type TableService struct {
	store     store.TableStore
	publisher SnapshotPublisher
	timelines *cache.Timelines
	schema    core.Schema
	logger    *log.Logger
}

// NewTableService wires the service. publisher and timelines may be nil.
func NewTableService(s store.TableStore, publisher SnapshotPublisher, timelines *cache.Timelines, schema core.Schema, logger *log.Logger) *TableService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TableService{
		store:     s,
		publisher: publisher,
		timelines: timelines,
		schema:    schema,
		logger:    logger.WithComponent(log.ComponentTable),
	}
}

// DefaultSchema is the schema new sessions start with.
func (s *TableService) DefaultSchema() core.Schema { return s.schema }

// Current returns the session's snapshot. A session that was never written
// has version 0 and the default schema's empty table.
func (s *TableService) Current(ctx context.Context, sessionID string) (store.Snapshot, error) {
	snap, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Snapshot{SessionID: sessionID, Table: s.schema.EmptyTable()}, nil
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load session table: %w", err)
	}
	return snap, nil
}

// Timeline returns the session's snapshot together with its aggregation.
func (s *TableService) Timeline(ctx context.Context, sessionID string) (store.Snapshot, core.Aggregation, error) {
	snap, err := s.Current(ctx, sessionID)
	if err != nil {
		return store.Snapshot{}, core.Aggregation{}, err
	}
	if s.timelines == nil || snap.Version == 0 {
		return snap, core.Aggregate(snap.Table), nil
	}
	return snap, s.timelines.Aggregate(sessionID, snap.Version, snap.Table), nil
}

// Upload replaces the session table with the parsed file. When the file
// cannot be loaded the session falls back to an empty table of schema and
// the load error is returned alongside the new snapshot.
func (s *TableService) Upload(ctx context.Context, sessionID, filename string, data []byte, schema core.Schema) (store.Snapshot, error) {
	t, loadErr := core.Load(data, filename, schema)
	fields := log.NewFields().WithOperation(log.OpLoad)
	fields[log.FieldFilename] = filename
	fields[log.FieldSessionID] = sessionID
	if loadErr != nil {
		s.logger.WarnContext(ctx, "Upload rejected", fields.WithError(loadErr).ToSlice()...)
		t = schema.EmptyTable()
	}

	snap, err := s.put(ctx, sessionID, t, log.OpLoad)
	if err != nil {
		return store.Snapshot{}, err
	}
	if loadErr == nil {
		s.logger.InfoContext(ctx, "Table uploaded", fields.WithTable(t.Len(), 0).ToSlice()...)
	}
	return snap, loadErr
}

// AddRow appends row, or a blank row when row is the zero Row.
func (s *TableService) AddRow(ctx context.Context, sessionID string, row core.Row) (store.Snapshot, error) {
	return s.update(ctx, sessionID, log.OpAdd, func(t core.Table) (core.Table, error) {
		return core.AddRow(t, row), nil
	})
}

// AppendRow adds a row built from column-keyed cells. The cells follow the
// same parsing rules as UpdateRow, and a malformed date leaves the table as it was.
func (s *TableService) AppendRow(ctx context.Context, sessionID string, fields map[string]string) (store.Snapshot, error) {
	return s.update(ctx, sessionID, log.OpAdd, func(t core.Table) (core.Table, error) {
		t = core.BlankRow(t)
		return core.UpdateRow(t, t.Len()-1, fields)
	})
}

// UpdateRow sets the given cells of row index.
func (s *TableService) UpdateRow(ctx context.Context, sessionID string, index int, fields map[string]string) (store.Snapshot, error) {
	return s.update(ctx, sessionID, log.OpUpdate, func(t core.Table) (core.Table, error) {
		return core.UpdateRow(t, index, fields)
	})
}

// DeleteRow removes row index.
func (s *TableService) DeleteRow(ctx context.Context, sessionID string, index int) (store.Snapshot, error) {
	return s.update(ctx, sessionID, log.OpDelete, func(t core.Table) (core.Table, error) {
		return core.DeleteRow(t, index)
	})
}

// Reset replaces the session table with the empty table of schema.
func (s *TableService) Reset(ctx context.Context, sessionID string, schema core.Schema) (store.Snapshot, error) {
	return s.put(ctx, sessionID, schema.EmptyTable(), log.OpReset)
}

// Export encodes the session's raw table in format.
func (s *TableService) Export(ctx context.Context, sessionID string, format core.ExportFormat) ([]byte, error) {
	snap, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	data, err := format.Encode(snap.Table)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format.Ext, err)
	}
	return data, nil
}

// Ping checks the backing store.
func (s *TableService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *TableService) put(ctx context.Context, sessionID string, t core.Table, op string) (store.Snapshot, error) {
	snap, err := s.store.Put(ctx, sessionID, t)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("save session table: %w", err)
	}
	s.announce(ctx, snap, op)
	return snap, nil
}

func (s *TableService) update(ctx context.Context, sessionID, op string, fn store.Mutation) (store.Snapshot, error) {
	snap, err := s.store.Update(ctx, sessionID, s.schema.EmptyTable(), fn)
	if err != nil {
		return store.Snapshot{}, err
	}
	s.announce(ctx, snap, op)
	return snap, nil
}

// announce drops the superseded timeline and publishes the new version. The
// edit is already saved, so a publish failure is only logged.
func (s *TableService) announce(ctx context.Context, snap store.Snapshot, op string) {
	fields := log.NewFields().WithOperation(op).WithSession(snap.SessionID, snap.Version)
	s.logger.DebugContext(ctx, "Session table saved", fields.ToSlice()...)

	if s.timelines != nil && snap.Version > 1 {
		s.timelines.Forget(snap.SessionID, snap.Version-1)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSnapshot(ctx, snap.SessionID, snap.Version); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish snapshot message", fields.WithError(err).ToSlice()...)
	}
}
