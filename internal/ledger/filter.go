package ledger

import (
	"sort"

	"github.com/kozaktomas/face-attendance/internal/names"
)

// Filter selects records. Empty fields match everything; set fields are AND-composed.
type Filter struct {
	Names  []string // display names, matched case-insensitively
	Date   string   // YYYY-MM-DD
	Status Status
}

// Match reports whether r satisfies every criterion of f.
func (f Filter) Match(r Record) bool {
	return f.matcher()(r)
}

func (f Filter) matcher() func(Record) bool {
	set := names.NewSet(f.Names...)
	return func(r Record) bool {
		if len(set) > 0 && !set.Contains(r.Name) {
			return false
		}
		if f.Date != "" && r.Date != f.Date {
			return false
		}
		if f.Status != "" && r.Status != f.Status {
			return false
		}
		return true
	}
}

// Apply returns the matching records in their original order.
func (f Filter) Apply(records []Record) []Record {
	match := f.matcher()
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortNewestFirst orders records by date and time descending, keeping ledger
// order among equal stamps.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].Time > records[j].Time
	})
}

// ComputeStats aggregates records.
func ComputeStats(records []Record) Stats {
	st := Stats{Total: len(records)}
	seen := make(names.Set)
	for _, r := range records {
		seen[names.Key(r.Name)] = struct{}{}
		switch r.Status {
		case StatusPresent:
			st.PresentCount++
		case StatusAbsent:
			st.AbsentCount++
		}
	}
	st.UniqueIdentities = len(seen)
	return st
}

// hasPresent reports whether records contain a Present row for the name key on date.
func hasPresent(records []Record, key, date string) (Record, bool) {
	for _, r := range records {
		if r.Status == StatusPresent && r.Date == date && names.Key(r.Name) == key {
			return r, true
		}
	}
	return Record{}, false
}
