package http

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
	"github.com/secmon-lab/crimemap/pkg/service/chart"
	"github.com/secmon-lab/crimemap/pkg/service/export"
	"github.com/secmon-lab/crimemap/pkg/usecase"
)

// DashboardHandler serves the views of a connected session
type DashboardHandler struct {
	dashboard usecase.DashboardUseCase
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard usecase.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

type optionsDTO struct {
	Districts  []string `json:"districts"`
	CrimeTypes []string `json:"crime_types"`
	MinDate    string   `json:"min_date,omitempty"`
	MaxDate    string   `json:"max_date,omitempty"`
}

type criteriaDTO struct {
	Districts  []string `json:"districts"`
	CrimeTypes []string `json:"crime_types"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
}

type incidentDTO struct {
	ID        int64        `json:"id"`
	Date      string       `json:"fecha"`
	DateLabel string       `json:"fecha_str"`
	District  string       `json:"alcaldia"`
	CrimeType string       `json:"tipo_delito"`
	Latitude  *float64     `json:"latitud"`
	Longitude *float64     `json:"longitud"`
	Color     *model.Color `json:"color"`
}

type dashboardResponse struct {
	Store    string                 `json:"store"`
	Driver   string                 `json:"driver"`
	Options  optionsDTO             `json:"options"`
	Criteria criteriaDTO            `json:"criteria"`
	Loaded   int                    `json:"loaded"`
	Count    int                    `json:"count"`
	Rows     []incidentDTO          `json:"rows"`
	Groups   []model.BarGroup       `json:"groups"`
	Palette  map[string]model.Color `json:"palette"`
	Colors   map[string]model.Color `json:"colors"`
	Warning  string                 `json:"warning,omitempty"`
}

// HandleDashboard returns filter options, the filtered rows and the bar groups
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sel, ok := selectionFromRequest(w, r)
	if !ok {
		return
	}

	view := h.dashboard.View(r.Context(), storeFromContext(r.Context()), sel)
	writeJSON(w, http.StatusOK, newDashboardResponse(view, h.dashboard.Palette()))
}

// HandleMap returns the scatter map document
func (h *DashboardHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	sel, ok := selectionFromRequest(w, r)
	if !ok {
		return
	}

	layer, _ := h.dashboard.MapLayer(r.Context(), storeFromContext(r.Context()), sel)
	writeJSON(w, http.StatusOK, layer)
}

// HandleChart returns the grouped bar chart image in format
func (h *DashboardHandler) HandleChart(format chart.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, ok := selectionFromRequest(w, r)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := h.dashboard.RenderChart(r.Context(), &buf, storeFromContext(r.Context()), sel, format); err != nil {
			ctxlog.From(r.Context()).Error("Failed to render chart", "error", err)
			writeError(w, err, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			ctxlog.From(r.Context()).Error("Failed to write chart", "error", err)
		}
	}
}

// HandleExport returns the filtered rows as a download in format
func (h *DashboardHandler) HandleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, ok := selectionFromRequest(w, r)
		if !ok {
			return
		}

		data, err := h.dashboard.Export(r.Context(), storeFromContext(r.Context()), sel, format)
		if err != nil {
			ctxlog.From(r.Context()).Error("Failed to export", "error", err, "format", format)
			writeError(w, err, http.StatusInternalServerError)
			return
		}

		logger := ctxlog.From(r.Context())
		if session := sessionFromContext(r.Context()); session != nil {
			logger = logger.With("session_id", session.ID)
		}
		logger.Info("Export served",
			"format", format,
			"bytes", len(data),
		)

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			ctxlog.From(r.Context()).Error("Failed to write export", "error", err)
		}
	}
}

// selectionFromRequest parses the filter query or answers 400
func selectionFromRequest(w http.ResponseWriter, r *http.Request) (model.Selection, bool) {
	sel, err := parseSelection(r)
	if err != nil {
		ctxlog.From(r.Context()).Debug("Invalid filter query", "error", err)
		writeMessage(w, http.StatusBadRequest, MsgInvalidDate+r.URL.RawQuery)
		return sel, false
	}
	return sel, true
}

// parseSelection reads repeated "district" and "type" values and the
// "start"/"end" dates. A parameter that is absent keeps the default;
// present but empty selects nothing.
func parseSelection(r *http.Request) (model.Selection, error) {
	var sel model.Selection
	q := r.URL.Query()

	if values, ok := q["district"]; ok {
		sel.Districts = []types.District{}
		for _, v := range values {
			if v != "" {
				sel.Districts = append(sel.Districts, types.District(v))
			}
		}
	}

	if values, ok := q["type"]; ok {
		sel.CrimeTypes = []types.CrimeType{}
		for _, v := range values {
			if v != "" {
				sel.CrimeTypes = append(sel.CrimeTypes, types.CrimeType(v))
			}
		}
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"start", &sel.Start},
		{"end", &sel.End},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			return sel, goerr.Wrap(err, "invalid date", goerr.V("param", p.name), goerr.V("value", raw))
		}
		*p.dst = t
	}

	return sel, nil
}

func newDashboardResponse(view *usecase.View, palette model.Palette) dashboardResponse {
	resp := dashboardResponse{
		Store:  view.Store.String(),
		Driver: view.Driver,
		Options: optionsDTO{
			Districts:  districtStrings(view.Table.Districts()),
			CrimeTypes: crimeTypeStrings(view.Table.CrimeTypes()),
		},
		Criteria: criteriaDTO{
			Districts:  districtStrings(view.Criteria.Districts),
			CrimeTypes: crimeTypeStrings(view.Criteria.CrimeTypes),
			Start:      view.Criteria.Start.Format(model.DateLayout),
			End:        view.Criteria.End.Format(model.DateLayout),
		},
		Loaded:  view.Table.Len(),
		Count:   view.Filtered.Len(),
		Rows:    make([]incidentDTO, 0, view.Filtered.Len()),
		Groups:  view.Groups,
		Palette: make(map[string]model.Color, len(palette)),
		Colors:  make(map[string]model.Color, len(view.Colors)),
		Warning: loadWarning(view.LoadErr),
	}

	if minDay, maxDay, ok := view.Table.DateRange(); ok {
		resp.Options.MinDate = minDay.Format(model.DateLayout)
		resp.Options.MaxDate = maxDay.Format(model.DateLayout)
	}

	for _, row := range view.Filtered.Rows {
		resp.Rows = append(resp.Rows, incidentDTO{
			ID:        int64(row.ID),
			Date:      row.Date.Format(time.RFC3339),
			DateLabel: row.DateLabel,
			District:  row.District.String(),
			CrimeType: row.CrimeType.String(),
			Latitude:  finite(row.Latitude),
			Longitude: finite(row.Longitude),
			Color:     row.Color,
		})
	}

	for label, color := range palette {
		resp.Palette[label.String()] = color
	}
	for label, color := range view.Colors {
		resp.Colors[label.String()] = color
	}

	return resp
}

// loadWarning renders a query failure as the inline message
func loadWarning(err error) string {
	if err == nil {
		return ""
	}
	var storeErr *model.StoreError
	if errors.As(err, &storeErr) {
		return MsgQueryFailed + storeErr.Cause.Error()
	}
	return MsgQueryFailed + err.Error()
}

// finite maps NaN to nil because JSON has no NaN
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func districtStrings(in []types.District) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.String()
	}
	return out
}

func crimeTypeStrings(in []types.CrimeType) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.String()
	}
	return out
}
