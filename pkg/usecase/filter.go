package usecase

import (
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// DateLabelLayout formats the display date (dd-mm-yyyy)
const DateLabelLayout = "02-01-2006"

// Filter returns the rows of table matching every predicate of criteria,
// in input order, with their display color and date label. Rows without
// a valid date never match.
func Filter(table *model.Table, criteria model.Criteria, palette model.Palette) *model.FilteredTable {
	result := &model.FilteredTable{Rows: []model.FilteredRow{}}
	if table.Len() == 0 || len(criteria.Districts) == 0 || len(criteria.CrimeTypes) == 0 {
		return result
	}

	start := model.CalendarDay(criteria.Start)
	end := model.CalendarDay(criteria.End)
	if start.After(end) {
		return result
	}

	districts := make(map[types.District]struct{}, len(criteria.Districts))
	for _, d := range criteria.Districts {
		districts[d] = struct{}{}
	}
	crimeTypes := make(map[types.CrimeType]struct{}, len(criteria.CrimeTypes))
	for _, c := range criteria.CrimeTypes {
		crimeTypes[c] = struct{}{}
	}

	for _, row := range table.Rows {
		if !row.DateValid {
			continue
		}
		if _, ok := districts[row.District]; !ok {
			continue
		}
		if _, ok := crimeTypes[row.CrimeType]; !ok {
			continue
		}
		day := row.Day()
		if day.Before(start) || day.After(end) {
			continue
		}

		result.Rows = append(result.Rows, model.FilteredRow{
			Incident:  row,
			Color:     palette.Lookup(row.CrimeType),
			DateLabel: row.Date.Format(DateLabelLayout),
		})
	}

	return result
}
