package datastore

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	_ "github.com/go-sql-driver/mysql"   // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib"   // PostgreSQL driver
	_ "modernc.org/sqlite"               // SQLite driver
)

// IncidentQuery is the fixed join over incidents and district names.
// Columns are read by position: id, date, district, crime type, latitude, longitude.
const IncidentQuery = `SELECT d.id, d.fecha, a.nombre, d.tipo_delito, d.latitud, d.longitud
FROM delitos d
JOIN alcaldias a ON d.alcaldia_id = a.id
ORDER BY d.id`

// Opener opens SQL stores by name
type Opener struct{}

var _ interfaces.StoreOpener = (*Opener)(nil)

// NewOpener creates a new store opener
func NewOpener() *Opener {
	return &Opener{}
}

// Open resolves name, opens the connection pool and verifies it with a ping
func (o *Opener) Open(ctx context.Context, name types.StoreName) (interfaces.Store, error) {
	target, err := Resolve(name)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database",
			goerr.V("driver", target.Driver))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping database",
			goerr.V("driver", target.Driver),
			goerr.V("dsn", target.Redacted()))
	}

	ctxlog.From(ctx).Info("Store opened",
		"driver", target.Driver,
		"dsn", target.Redacted())

	return NewStore(name, target.Driver, db), nil
}

// Store is an open database/sql connection pool
type Store struct {
	name   types.StoreName
	driver string
	db     *sql.DB
}

var _ interfaces.Store = (*Store)(nil)

// NewStore wraps an already opened database handle
func NewStore(name types.StoreName, driver string, db *sql.DB) *Store {
	return &Store{name: name, driver: driver, db: db}
}

// Name returns the store name the handle was opened with
func (s *Store) Name() types.StoreName {
	return s.name
}

// Driver returns the database/sql driver name
func (s *Store) Driver() string {
	return s.driver
}

// QueryIncidents runs IncidentQuery and converts every row
func (s *Store) QueryIncidents(ctx context.Context) ([]model.Incident, error) {
	rows, err := s.db.QueryContext(ctx, IncidentQuery)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query incidents",
			goerr.V("store", s.name))
	}
	defer rows.Close()

	var incidents []model.Incident
	for rows.Next() {
		var (
			id        int64
			rawDate   any
			district  sql.NullString
			crimeType sql.NullString
			lat, lng  sql.NullFloat64
		)
		if err := rows.Scan(&id, &rawDate, &district, &crimeType, &lat, &lng); err != nil {
			return nil, goerr.Wrap(err, "failed to scan incident",
				goerr.V("store", s.name),
				goerr.V("row", len(incidents)))
		}

		date, ok := parseDate(rawDate)
		incidents = append(incidents, model.Incident{
			ID:        types.IncidentID(id),
			Date:      date,
			DateValid: ok,
			District:  types.District(district.String),
			CrimeType: types.CrimeType(crimeType.String),
			Latitude:  nullFloat(lat),
			Longitude: nullFloat(lng),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate incidents",
			goerr.V("store", s.name))
	}

	return incidents, nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database", goerr.V("store", s.name))
	}
	return nil
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDate normalizes the driver-specific date value. Drivers return
// time.Time for typed columns while SQLite and MySQL without parseTime
// return text.
func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, !d.IsZero()
	case string:
		return parseDateString(d)
	case []byte:
		return parseDateString(string(d))
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
