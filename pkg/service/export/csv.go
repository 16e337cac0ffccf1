package export

import (
	"encoding/csv"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
)

// CSV writes the filtered table as UTF-8 comma-separated text with a header
// row and one line per record
func CSV(w io.Writer, filtered *model.FilteredTable) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return goerr.Wrap(err, "failed to write CSV header")
	}

	if filtered != nil {
		layout := dateLayoutOf(filtered)
		for i, row := range filtered.Rows {
			if err := cw.Write(record(row, layout)); err != nil {
				return goerr.Wrap(err, "failed to write CSV row", goerr.V("index", i))
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush CSV")
	}
	return nil
}
