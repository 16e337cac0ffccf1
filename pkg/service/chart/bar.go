package chart

import (
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an image encoding supported by the renderer
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

const (
	// Title is drawn above the bars
	Title = "Delitos por alcaldía y tipo de delito"

	// NoDataLabel replaces the bars when nothing matched the filter
	NoDataLabel = "Sin datos"

	barWidth   = 24
	barSpacing = 4
	groupGap   = 20
	minWidth   = 960
	height     = 540
)

// Bar is one drawn bar. Spacer bars separate district groups.
type Bar struct {
	Label  string
	Value  float64
	Color  drawing.Color
	Spacer bool
}

// Colors returns the chart colors of a table: every palette entry, plus a
// default series color for each crime type the palette lacks. The default is
// picked by the crime type's position in crimeTypes, so with the table's
// sorted crime types a label keeps its color under any filter.
func Colors(palette model.Palette, crimeTypes []types.CrimeType) model.Palette {
	colors := make(model.Palette, len(palette)+len(crimeTypes))
	for label, c := range palette {
		colors[label] = c
	}
	for i, ct := range crimeTypes {
		if _, ok := colors[ct]; ok {
			continue
		}
		c := gochart.GetDefaultColor(i)
		colors[ct] = model.Color{R: c.R, G: c.G, B: c.B, A: c.A}
	}
	return colors
}

// Layout arranges groups into bars: one bar per crime type inside each
// district, districts in input order, crime types colored from colors.
// A crime type missing from colors gets the first default series color.
func Layout(groups []model.BarGroup, colors model.Palette) []Bar {
	colorOf := func(ct types.CrimeType) drawing.Color {
		if c := colors.Lookup(ct); c != nil {
			return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
		}
		return gochart.GetDefaultColor(0)
	}

	var bars []Bar
	var current types.District
	for i, g := range groups {
		label := ""
		if i == 0 || g.District != current {
			if i > 0 {
				bars = append(bars, Bar{Spacer: true, Color: drawing.ColorTransparent})
			}
			current = g.District
			label = g.District.String()
		}
		bars = append(bars, Bar{
			Label: label,
			Value: float64(g.Total),
			Color: colorOf(g.CrimeType),
		})
	}
	return bars
}

// RenderGroupedBars draws the grouped bar chart of groups into w, colored
// from colors. An empty group list draws a single empty "no data" bar.
func RenderGroupedBars(w io.Writer, groups []model.BarGroup, colors model.Palette, format Format) error {
	bars := Layout(groups, colors)
	if len(bars) == 0 {
		bars = []Bar{{Label: NoDataLabel, Color: drawing.ColorTransparent}}
	}

	maxValue := 1.0
	values := make([]gochart.Value, 0, len(bars))
	for _, b := range bars {
		if b.Value > maxValue {
			maxValue = b.Value
		}
		values = append(values, gochart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: gochart.Style{
				FillColor:   b.Color,
				StrokeColor: b.Color,
				StrokeWidth: 0,
			},
		})
	}

	width := len(bars)*(barWidth+barSpacing) + 2*groupGap + 120
	if width < minWidth {
		width = minWidth
	}

	graph := gochart.BarChart{
		Title:      Title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 48, Left: groupGap, Right: groupGap, Bottom: 24},
		},
		XAxis: gochart.Style{FontSize: 8},
		YAxis: gochart.YAxis{
			Name:  "Total",
			Range: &gochart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
		},
		Bars: values,
	}

	var err error
	switch format {
	case FormatSVG:
		err = graph.Render(gochart.SVG, w)
	case FormatPNG, "":
		err = graph.Render(gochart.PNG, w)
	default:
		return goerr.New("unsupported chart format", goerr.V("format", format))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to render bar chart",
			goerr.V("format", format),
			goerr.V("bars", len(bars)))
	}
	return nil
}
