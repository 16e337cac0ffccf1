package usecase

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/service/export"
	"github.com/zeebo/xxh3"
)

type exportKey struct {
	format      export.Format
	fingerprint xxh3.Uint128
}

// Exporter serializes filtered tables and memoizes the bytes per table
// content. Entries are never evicted.
type Exporter struct {
	mu   sync.RWMutex
	memo map[exportKey][]byte
}

// NewExporter creates a new Exporter
func NewExporter() *Exporter {
	return &Exporter{memo: make(map[exportKey][]byte)}
}

// Export returns the serialized table. Identical content returns the
// identical byte slice; callers must not modify it.
func (e *Exporter) Export(ctx context.Context, filtered *model.FilteredTable, format export.Format) ([]byte, error) {
	logger := ctxlog.From(ctx)

	var write func(*bytes.Buffer, *model.FilteredTable) error
	switch format {
	case export.FormatCSV:
		write = func(b *bytes.Buffer, t *model.FilteredTable) error { return export.CSV(b, t) }
	case export.FormatXLSX:
		write = func(b *bytes.Buffer, t *model.FilteredTable) error { return export.XLSX(b, t) }
	default:
		return nil, goerr.New("unsupported export format", goerr.V("format", format))
	}

	key := exportKey{format: format, fingerprint: Fingerprint(filtered)}

	e.mu.RLock()
	data, ok := e.memo[key]
	e.mu.RUnlock()
	if ok {
		logger.Debug("Export served from memo",
			"format", format,
			"rows", filtered.Len(),
		)
		return data, nil
	}

	var buf bytes.Buffer
	if err := write(&buf, filtered); err != nil {
		return nil, goerr.Wrap(err, "failed to export table",
			goerr.V("format", format),
			goerr.V("rows", filtered.Len()))
	}
	data = buf.Bytes()

	e.mu.Lock()
	if existing, ok := e.memo[key]; ok {
		data = existing
	} else {
		e.memo[key] = data
	}
	e.mu.Unlock()

	logger.Info("Table exported",
		"format", format,
		"rows", filtered.Len(),
		"bytes", len(data),
	)

	return data, nil
}

// Fingerprint hashes every exported field of the filtered rows in order
func Fingerprint(filtered *model.FilteredTable) xxh3.Uint128 {
	h := xxh3.New()
	var num [8]byte

	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(num[:], uint64(v))
		_, _ = h.Write(num[:])
	}
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(num[:], math.Float64bits(v))
		_, _ = h.Write(num[:])
	}
	writeString := func(s string) {
		writeInt(int64(len(s)))
		_, _ = h.WriteString(s)
	}

	if filtered != nil {
		writeInt(int64(len(filtered.Rows)))
		for _, row := range filtered.Rows {
			writeInt(int64(row.ID))
			writeString(row.Date.Format(time.RFC3339Nano))
			writeString(row.District.String())
			writeString(row.CrimeType.String())
			writeFloat(row.Latitude)
			writeFloat(row.Longitude)
		}
	}

	return h.Sum128()
}
