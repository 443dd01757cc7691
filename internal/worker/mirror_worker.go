// Package worker mirrors session timelines from the snapshot store into the
// spreadsheet, driven by AMQP notifications and a periodic resync.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/sheets"
	"cashflow/internal/store"
)

// SnapshotSource is the read side of the snapshot store the worker needs.
type SnapshotSource interface {
	Get(ctx context.Context, sessionID string) (store.Snapshot, error)
	store.StaleLister
}

// MirrorState remembers the last version mirrored per session.
type MirrorState interface {
	MirroredVersion(ctx context.Context, sessionID string) (int64, error)
	MarkMirrored(ctx context.Context, sessionID string, version int64) error
}

// resyncParallelism bounds concurrent spreadsheet writes during a resync.
const resyncParallelism = 4

// MirrorWorker writes the aggregated timeline of each changed session to the
// spreadsheet mirror. Versions at or below the last mirrored one are skipped.
type MirrorWorker struct {
	source SnapshotSource
	state  MirrorState
	writer sheets.TimelineWriter
	logger *log.Logger
	now    func() time.Time
}

func NewMirrorWorker(source SnapshotSource, state MirrorState, writer sheets.TimelineWriter, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		source: source,
		state:  state,
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleSnapshotMessage processes one AMQP notification. A returned error
// makes the consumer requeue the message.
func (w *MirrorWorker) HandleSnapshotMessage(ctx context.Context, msg *amqp.SnapshotMessage) error {
	mirrored, err := w.state.MirroredVersion(ctx, msg.SessionID)
	if err != nil {
		return err
	}
	if msg.Version <= mirrored {
		w.logger.DebugContext(ctx, "Skipping stale snapshot message",
			log.NewFields().WithSession(msg.SessionID, msg.Version).ToSlice()...)
		return nil
	}

	snap, err := w.source.Get(ctx, msg.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.WarnContext(ctx, "Snapshot message for unknown session", log.FieldSessionID, msg.SessionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	// The stored snapshot may already be newer than the message; mirror it.
	if snap.Version <= mirrored {
		return nil
	}
	return w.mirror(ctx, snap)
}

// Resync mirrors every session written at or after since whose latest
// version has not been mirrored yet. It returns how many were mirrored.
func (w *MirrorWorker) Resync(ctx context.Context, since time.Time) (int, error) {
	snaps, err := w.source.ListStale(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list stale snapshots: %w", err)
	}

	var pending []store.Snapshot
	for _, snap := range snaps {
		mirrored, err := w.state.MirroredVersion(ctx, snap.SessionID)
		if err != nil {
			return 0, err
		}
		if snap.Version > mirrored {
			pending = append(pending, snap)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resyncParallelism)
	for _, snap := range pending {
		g.Go(func() error { return w.mirror(gctx, snap) })
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// RunResync calls Resync every interval until ctx is done. The first pass
// covers all sessions; later passes overlap the previous window by one
// interval so nothing written during a pass is missed.
func (w *MirrorWorker) RunResync(ctx context.Context, interval time.Duration) error {
	var since time.Time
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		started := w.now()
		n, err := w.Resync(ctx, since)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.LogError(ctx, "Periodic resync failed", err, log.OpMirror, nil)
		} else {
			since = started.Add(-interval)
			if n > 0 {
				w.logger.InfoContext(ctx, "Periodic resync mirrored sessions", "count", n)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *MirrorWorker) mirror(ctx context.Context, snap store.Snapshot) error {
	agg := core.Aggregate(snap.Table)
	if err := w.writer.WriteTimeline(ctx, snap.SessionID, agg.Records()); err != nil {
		return fmt.Errorf("write timeline %s@%d: %w", snap.SessionID, snap.Version, err)
	}
	if err := w.state.MarkMirrored(ctx, snap.SessionID, snap.Version); err != nil {
		return err
	}

	fields := log.NewFields().
		WithOperation(log.OpMirror).
		WithSession(snap.SessionID, snap.Version).
		WithTable(len(agg.Rows), agg.Excluded)
	fields[log.FieldBalance] = agg.Totals.Net.String()
	w.logger.InfoContext(ctx, "Timeline mirrored", fields.ToSlice()...)
	return nil
}
