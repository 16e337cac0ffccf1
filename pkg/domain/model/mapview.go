package model

// ViewState is the initial camera of the map
type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
}

// Tooltip describes the hover card shown for a point
type Tooltip struct {
	HTML  string            `json:"html"`
	Style map[string]string `json:"style"`
}

// ScatterPoint is one incident on the map
type ScatterPoint struct {
	Position  [2]float64 `json:"position"` // [longitude, latitude]
	Color     *Color     `json:"color"`
	CrimeType string     `json:"crime_type"`
	District  string     `json:"district"`
	DateLabel string     `json:"date"`
}

// MapLayer is the complete scatter-map document handed to the frontend
type MapLayer struct {
	MapStyle  string         `json:"map_style"`
	ViewState ViewState      `json:"initial_view_state"`
	Radius    float64        `json:"radius"`
	Pickable  bool           `json:"pickable"`
	Tooltip   Tooltip        `json:"tooltip"`
	Points    []ScatterPoint `json:"points"`
}
