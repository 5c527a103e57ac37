package service

import (
	"sort"
	"time"

	"internhub/internal/model"

	"github.com/google/uuid"
)

// ScopeSelector narrows scope resolution for SELECTED (explicit ids) and
// WEEKLY/MONTHLY (optional explicit date range) request kinds.
type ScopeSelector struct {
	EntryIDs []uuid.UUID
	From     *time.Time
	To       *time.Time
}

// ResolveScope selects the log entries an approval request will govern.
// It is a pure function over a snapshot of the student's unapproved entries
// so the window defaults (which depend on now) stay deterministic in tests.
// Entries must already be filtered to the requesting student; ids in a
// SELECTED selector that are not in the snapshot are silently dropped, which
// is what keeps one student from approving another student's records.
func ResolveScope(entries []model.LogEntry, requestKind string, sel ScopeSelector, now time.Time) []model.LogEntry {
	sorted := sortByWorkDate(entries)

	switch requestKind {
	case model.RequestKindSingle:
		if len(sorted) == 0 {
			return nil
		}
		return sorted[len(sorted)-1:]

	case model.RequestKindSelected:
		wanted := make(map[uuid.UUID]bool, len(sel.EntryIDs))
		for _, id := range sel.EntryIDs {
			wanted[id] = true
		}
		var scope []model.LogEntry
		for _, e := range sorted {
			if wanted[e.ID] {
				scope = append(scope, e)
			}
		}
		return scope

	case model.RequestKindWeekly:
		from, to := rangeOrDefault(sel, now, 7)
		return filterByDate(sorted, from, to)

	case model.RequestKindMonthly:
		from, to := rangeOrDefault(sel, now, 30)
		return filterByDate(sorted, from, to)

	case model.RequestKindFull:
		return sorted

	default:
		return nil
	}
}

// rangeOrDefault returns the selector's explicit range, or the default
// window of days ending today: [startOfDay(now-days), endOfDay(now)].
func rangeOrDefault(sel ScopeSelector, now time.Time, days int) (time.Time, time.Time) {
	if sel.From != nil && sel.To != nil {
		return startOfDay(*sel.From), endOfDay(*sel.To)
	}
	return startOfDay(now.AddDate(0, 0, -days)), endOfDay(now)
}

func filterByDate(entries []model.LogEntry, from, to time.Time) []model.LogEntry {
	var scope []model.LogEntry
	for _, e := range entries {
		if !e.WorkDate.Before(from) && !e.WorkDate.After(to) {
			scope = append(scope, e)
		}
	}
	return scope
}

func sortByWorkDate(entries []model.LogEntry) []model.LogEntry {
	sorted := make([]model.LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].WorkDate.Before(sorted[j].WorkDate)
	})
	return sorted
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}
