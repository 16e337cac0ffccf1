package model

import (
	"math"
	"sort"
	"time"

	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// Incident represents one reported crime event as loaded from the data store
type Incident struct {
	ID        types.IncidentID // Upstream identifier, unique per record
	Date      time.Time        // Occurrence date (time part kept when present)
	DateValid bool             // False when the upstream date could not be parsed
	District  types.District   // Alcaldía name
	CrimeType types.CrimeType  // Crime-type label
	Latitude  float64          // NaN when NULL upstream
	Longitude float64          // NaN when NULL upstream
}

// HasLocation reports whether both coordinates are present
func (i Incident) HasLocation() bool {
	return !math.IsNaN(i.Latitude) && !math.IsNaN(i.Longitude)
}

// Day returns the calendar day of the incident
func (i Incident) Day() time.Time {
	return CalendarDay(i.Date)
}

// CalendarDay truncates t to midnight UTC of its own calendar date.
// Comparisons between calendar days are independent of the source location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Table is the read-only result set produced by the loader
type Table struct {
	Rows []Incident
}

// NewTable creates a table over rows. A nil slice yields an empty table.
func NewTable(rows []Incident) *Table {
	if rows == nil {
		rows = []Incident{}
	}
	return &Table{Rows: rows}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Districts returns the sorted distinct district names
func (t *Table) Districts() []types.District {
	if t == nil {
		return []types.District{}
	}
	seen := make(map[types.District]struct{})
	result := []types.District{}
	for _, row := range t.Rows {
		if _, ok := seen[row.District]; ok {
			continue
		}
		seen[row.District] = struct{}{}
		result = append(result, row.District)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// CrimeTypes returns the sorted distinct crime-type labels
func (t *Table) CrimeTypes() []types.CrimeType {
	if t == nil {
		return []types.CrimeType{}
	}
	seen := make(map[types.CrimeType]struct{})
	result := []types.CrimeType{}
	for _, row := range t.Rows {
		if _, ok := seen[row.CrimeType]; ok {
			continue
		}
		seen[row.CrimeType] = struct{}{}
		result = append(result, row.CrimeType)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// DateRange returns the earliest and latest valid calendar days.
// ok is false when the table holds no valid dates.
func (t *Table) DateRange() (minDay, maxDay time.Time, ok bool) {
	if t == nil {
		return time.Time{}, time.Time{}, false
	}
	for _, row := range t.Rows {
		if !row.DateValid {
			continue
		}
		day := row.Day()
		if !ok || day.Before(minDay) {
			minDay = day
		}
		if !ok || day.After(maxDay) {
			maxDay = day
		}
		ok = true
	}
	return minDay, maxDay, ok
}
