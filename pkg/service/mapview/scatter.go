package mapview

import (
	"github.com/secmon-lab/crimemap/pkg/domain/model"
)

// Fixed camera and layer settings over Mexico City
const (
	MapStyle  = "light"
	Latitude  = 19.35
	Longitude = -99.15
	Zoom      = 10
	Pitch     = 40
	Radius    = 250
)

// TooltipHTML is rendered by the map for the hovered point. Placeholders
// refer to ScatterPoint JSON fields.
const TooltipHTML = "<b>Delito:</b> {crime_type}<br/><b>Alcaldía:</b> {district}<br/><b>Fecha:</b> {date}"

// Build converts filtered rows into the scatter layer document.
// Rows without coordinates are not plotted.
func Build(filtered *model.FilteredTable) model.MapLayer {
	layer := model.MapLayer{
		MapStyle: MapStyle,
		ViewState: model.ViewState{
			Latitude:  Latitude,
			Longitude: Longitude,
			Zoom:      Zoom,
			Pitch:     Pitch,
		},
		Radius:   Radius,
		Pickable: true,
		Tooltip: model.Tooltip{
			HTML: TooltipHTML,
			Style: map[string]string{
				"backgroundColor": "steelblue",
				"color":           "white",
			},
		},
		Points: []model.ScatterPoint{},
	}

	if filtered == nil {
		return layer
	}

	for _, row := range filtered.Rows {
		if !row.HasLocation() {
			continue
		}
		layer.Points = append(layer.Points, model.ScatterPoint{
			Position:  [2]float64{row.Longitude, row.Latitude},
			Color:     row.Color,
			CrimeType: row.CrimeType.String(),
			District:  row.District.String(),
			DateLabel: row.DateLabel,
		})
	}

	return layer
}
