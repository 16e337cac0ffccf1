package export

import (
	"io"
	"math"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/xuri/excelize/v2"
)

// XLSX writes the filtered table into a single styled sheet
func XLSX(w io.Writer, filtered *model.FilteredTable) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return goerr.Wrap(err, "failed to create sheet")
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return goerr.Wrap(err, "failed to delete default sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4682B4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to create header style")
	}

	for col, name := range Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return goerr.Wrap(err, "invalid header cell", goerr.V("column", col))
		}
		if err := f.SetCellValue(SheetName, cell, name); err != nil {
			return goerr.Wrap(err, "failed to write header", goerr.V("cell", cell))
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return goerr.Wrap(err, "failed to style header", goerr.V("cell", cell))
		}
	}

	if filtered != nil {
		layout := dateLayoutOf(filtered)
		for i, row := range filtered.Rows {
			values := []any{
				int64(row.ID),
				row.Date.Format(layout),
				row.District.String(),
				row.CrimeType.String(),
				coordinateCell(row.Latitude),
				coordinateCell(row.Longitude),
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return goerr.Wrap(err, "invalid row cell", goerr.V("row", i))
			}
			if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
				return goerr.Wrap(err, "failed to write row", goerr.V("row", i))
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "F", 18); err != nil {
		return goerr.Wrap(err, "failed to set column width")
	}

	if err := f.Write(w); err != nil {
		return goerr.Wrap(err, "failed to write workbook")
	}
	return nil
}

// coordinateCell leaves missing coordinates blank
func coordinateCell(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
