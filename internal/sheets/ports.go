// Package sheets defines the spreadsheet mirror port. The worker writes each
// session's aggregated timeline through it.
package sheets

import "context"

// TimelineWriter replaces the mirrored timeline of one session with records,
// a header row followed by one row per timeline entry.
type TimelineWriter interface {
	WriteTimeline(ctx context.Context, sessionID string, records [][]string) error
}
