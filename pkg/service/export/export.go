package export

import (
	"math"
	"strconv"

	"github.com/secmon-lab/crimemap/pkg/domain/model"
)

// Download names of the exported artifacts
const (
	CSVFilename  = "datos_filtrados.csv"
	XLSXFilename = "datos_filtrados.xlsx"
	SheetName    = "datos_filtrados"
)

// Content types of the exported artifacts
const (
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Header is the fixed column order of every export
var Header = []string{"id", "Fecha", "Alcaldía", "Tipo de delito", "Latitud", "Longitud"}

// Format identifies an export serialization
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Filename returns the download name for the format
func (f Format) Filename() string {
	if f == FormatXLSX {
		return XLSXFilename
	}
	return CSVFilename
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return XLSXContentType
	}
	return CSVContentType
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// dateLayoutOf picks one layout for the whole Fecha column: the time of day
// is written for every row as soon as one row has one.
func dateLayoutOf(filtered *model.FilteredTable) string {
	if filtered == nil {
		return dateLayout
	}
	for _, row := range filtered.Rows {
		t := row.Date
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
			return dateTimeLayout
		}
	}
	return dateLayout
}

func formatCoordinate(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func record(row model.FilteredRow, layout string) []string {
	return []string{
		row.ID.String(),
		row.Date.Format(layout),
		row.District.String(),
		row.CrimeType.String(),
		formatCoordinate(row.Latitude),
		formatCoordinate(row.Longitude),
	}
}
