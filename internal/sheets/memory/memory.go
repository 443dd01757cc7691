package memory

import (
	"context"
	"slices"
	"sync"

	ports "cashflow/internal/sheets"
)

var _ ports.TimelineWriter = (*Writer)(nil)

// Writer keeps mirrored timelines in memory, keyed by session.
type Writer struct {
	mu     sync.Mutex
	sheets map[string][][]string
	writes int
}

func New() *Writer {
	return &Writer{sheets: make(map[string][][]string)}
}

func (w *Writer) WriteTimeline(ctx context.Context, sessionID string, records [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sheets[sessionID] = cloneRecords(records)
	w.writes++
	return nil
}

// Timeline returns the records last written for sessionID.
func (w *Writer) Timeline(sessionID string) ([][]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	recs, ok := w.sheets[sessionID]
	return cloneRecords(recs), ok
}

// Writes returns how many timelines were written in total.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func cloneRecords(in [][]string) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = slices.Clone(r)
	}
	return out
}
