package usecase

import (
	"sort"

	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// CountByDistrictAndType counts filtered rows per (district, crime type),
// sorted by district and then crime type
func CountByDistrictAndType(filtered *model.FilteredTable) []model.BarGroup {
	type key struct {
		district  types.District
		crimeType types.CrimeType
	}

	counts := make(map[key]int)
	if filtered != nil {
		for _, row := range filtered.Rows {
			counts[key{row.District, row.CrimeType}]++
		}
	}

	groups := make([]model.BarGroup, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, model.BarGroup{
			District:  k.district,
			CrimeType: k.crimeType,
			Total:     n,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].District != groups[j].District {
			return groups[i].District < groups[j].District
		}
		return groups[i].CrimeType < groups[j].CrimeType
	})

	return groups
}
