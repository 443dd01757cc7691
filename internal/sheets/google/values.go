package google

import (
	"fmt"
	"strings"
)

// maxTabName is the longest sheet title the Sheets API accepts.
const maxTabName = 100

// tabName derives the tab title for a session. Characters Sheets rejects in
// titles are replaced and the result is cut to the API limit.
func tabName(prefix, sessionID string) string {
	id := sessionID
	if len(id) > 12 {
		id = id[:12]
	}
	name := strings.TrimSpace(fmt.Sprintf("%s %s", prefix, id))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':':
			return '_'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > maxTabName {
		name = string(r[:maxTabName])
	}
	return name
}

// quoteSheet quotes a sheet title for use in A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toValues(records [][]string) [][]any {
	out := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		out[i] = row
	}
	return out
}
