package model

import (
	"time"

	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// DefaultLookback is how far back the default start date reaches from today
const DefaultLookback = 60 * 24 * time.Hour

// DateLayout is the layout used for start/end dates in requests
const DateLayout = "2006-01-02"

// Criteria is the user's current filter selection.
// Empty district or crime-type sets select nothing.
type Criteria struct {
	Districts  []types.District
	CrimeTypes []types.CrimeType
	Start      time.Time // Inclusive calendar day
	End        time.Time // Inclusive calendar day
}

// DefaultCriteria selects every district and crime type of table
// over the last DefaultLookback days ending today
func DefaultCriteria(table *Table, today time.Time) Criteria {
	end := CalendarDay(today)
	return Criteria{
		Districts:  table.Districts(),
		CrimeTypes: table.CrimeTypes(),
		Start:      CalendarDay(end.Add(-DefaultLookback)),
		End:        end,
	}
}

// FilteredRow is an incident that passed the filter, with its display attributes
type FilteredRow struct {
	Incident
	Color     *Color // nil when the crime type has no palette entry
	DateLabel string // dd-mm-yyyy
}

// FilteredTable is the subset of loaded records matching the criteria
type FilteredTable struct {
	Rows []FilteredRow
}

// Len returns the number of rows
func (t *FilteredTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// BarGroup is one bar of the grouped chart: incidents per district and crime type
type BarGroup struct {
	District  types.District  `json:"district"`
	CrimeType types.CrimeType `json:"crime_type"`
	Total     int             `json:"total"`
}

// Selection is a possibly partial filter request. A nil district or
// crime-type slice selects everything; a non-nil empty slice selects
// nothing. A zero Start or End falls back to the default range.
type Selection struct {
	Districts  []types.District
	CrimeTypes []types.CrimeType
	Start      time.Time
	End        time.Time
}

// Criteria completes the selection with the defaults for table
func (s Selection) Criteria(table *Table, today time.Time) Criteria {
	criteria := DefaultCriteria(table, today)
	if s.Districts != nil {
		criteria.Districts = s.Districts
	}
	if s.CrimeTypes != nil {
		criteria.CrimeTypes = s.CrimeTypes
	}
	if !s.Start.IsZero() {
		criteria.Start = CalendarDay(s.Start)
	}
	if !s.End.IsZero() {
		criteria.End = CalendarDay(s.End)
	}
	return criteria
}
