package usecase

import (
	"context"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
	"github.com/secmon-lab/crimemap/pkg/service/chart"
	"github.com/secmon-lab/crimemap/pkg/service/export"
	"github.com/secmon-lab/crimemap/pkg/service/mapview"
)

// Dashboard runs the load, filter and render pipeline for one request
type Dashboard struct {
	loader   *Loader
	exporter *Exporter
	palette  model.Palette
	now      func() time.Time
}

// DashboardOption configures a Dashboard
type DashboardOption func(*Dashboard)

// WithPalette replaces the default crime-type colors
func WithPalette(palette model.Palette) DashboardOption {
	return func(d *Dashboard) {
		if len(palette) > 0 {
			d.palette = palette
		}
	}
}

// WithClock sets the source of "today" for the default date range
func WithClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) {
		d.now = now
	}
}

// NewDashboard creates a new Dashboard
func NewDashboard(loader *Loader, exporter *Exporter, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		loader:   loader,
		exporter: exporter,
		palette:  model.DefaultPalette(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Palette returns the crime-type colors in use
func (d *Dashboard) Palette() model.Palette {
	return d.palette
}

// View is the pipeline output shared by every dashboard component
type View struct {
	Store    types.StoreName
	Driver   string
	Table    *model.Table
	Criteria model.Criteria
	Filtered *model.FilteredTable
	Groups   []model.BarGroup

	// Colors covers every crime type of Table and is used by the chart and
	// its legend
	Colors model.Palette

	// LoadErr is set when the incident query failed; Table is then empty
	LoadErr error
}

// View loads the store's table, completes sel with the defaults and filters.
// A query failure does not stop the pipeline; it is reported in LoadErr.
func (d *Dashboard) View(ctx context.Context, store interfaces.Store, sel model.Selection) *View {
	table, err := d.loader.Load(ctx, store)

	criteria := sel.Criteria(table, d.now())
	filtered := Filter(table, criteria, d.palette)

	view := &View{
		Table:    table,
		Criteria: criteria,
		Filtered: filtered,
		Groups:   CountByDistrictAndType(filtered),
		Colors:   chart.Colors(d.palette, table.CrimeTypes()),
		LoadErr:  err,
	}
	if store != nil {
		view.Store = store.Name()
		view.Driver = store.Driver()
	}
	return view
}

// MapLayer returns the scatter map document of the filtered rows
func (d *Dashboard) MapLayer(ctx context.Context, store interfaces.Store, sel model.Selection) (model.MapLayer, *View) {
	view := d.View(ctx, store, sel)
	return mapview.Build(view.Filtered), view
}

// RenderChart draws the grouped bar chart of the filtered rows into w
func (d *Dashboard) RenderChart(ctx context.Context, w io.Writer, store interfaces.Store, sel model.Selection, format chart.Format) error {
	view := d.View(ctx, store, sel)
	if err := chart.RenderGroupedBars(w, view.Groups, view.Colors, format); err != nil {
		return goerr.Wrap(err, "failed to render chart", goerr.V("store", view.Store))
	}
	return nil
}

// Export serializes the filtered rows, served from the export memo when the
// same content was exported before
func (d *Dashboard) Export(ctx context.Context, store interfaces.Store, sel model.Selection, format export.Format) ([]byte, error) {
	view := d.View(ctx, store, sel)
	return d.exporter.Export(ctx, view.Filtered, format)
}
