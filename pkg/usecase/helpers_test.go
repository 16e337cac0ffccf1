package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return ctxlog.With(context.Background(), logger)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// scenarioRows spans 2025-01-01..2025-03-01 over two districts and two crime types
func scenarioRows() []model.Incident {
	return []model.Incident{
		{ID: 1, Date: day(2025, 1, 1), DateValid: true, District: "Cuauhtémoc", CrimeType: "Robo a transeúnte", Latitude: 19.43, Longitude: -99.14},
		{ID: 2, Date: day(2025, 1, 15), DateValid: true, District: "Coyoacán", CrimeType: "Homicidio", Latitude: 19.35, Longitude: -99.16},
		{ID: 3, Date: day(2025, 1, 31), DateValid: true, District: "Cuauhtémoc", CrimeType: "Homicidio", Latitude: 19.42, Longitude: -99.15},
		{ID: 4, Date: day(2025, 2, 1), DateValid: true, District: "Cuauhtémoc", CrimeType: "Robo a transeúnte", Latitude: 19.44, Longitude: -99.13},
		{ID: 5, Date: day(2025, 2, 10), DateValid: true, District: "Coyoacán", CrimeType: "Robo a transeúnte", Latitude: 19.34, Longitude: -99.17},
		{ID: 6, Date: time.Date(2025, 2, 20, 18, 45, 0, 0, time.UTC), DateValid: true, District: "Cuauhtémoc", CrimeType: "Homicidio", Latitude: 19.41, Longitude: -99.16},
		{ID: 7, Date: day(2025, 3, 1), DateValid: true, District: "Cuauhtémoc", CrimeType: "Robo a transeúnte", Latitude: 19.45, Longitude: -99.12},
		{ID: 8, Date: day(2025, 3, 1), DateValid: true, District: "Coyoacán", CrimeType: "Homicidio", Latitude: 19.33, Longitude: -99.18},
		{ID: 9, DateValid: false, District: "Cuauhtémoc", CrimeType: "Homicidio", Latitude: 19.40, Longitude: -99.15},
	}
}

// fakeStore is an in-memory interfaces.Store counting its queries
type fakeStore struct {
	name    types.StoreName
	rows    []model.Incident
	err     error
	delay   time.Duration
	queries atomic.Int32
	closed  atomic.Bool
}

func newFakeStore(rows []model.Incident) *fakeStore {
	return &fakeStore{name: "incidencia_cdmx.db", rows: rows}
}

func (s *fakeStore) Name() types.StoreName { return s.name }

func (s *fakeStore) Driver() string { return "fake" }

func (s *fakeStore) QueryIncidents(ctx context.Context) ([]model.Incident, error) {
	s.queries.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	rows := make([]model.Incident, len(s.rows))
	copy(rows, s.rows)
	return rows, nil
}

func (s *fakeStore) Close() error {
	s.closed.Store(true)
	return nil
}

// fakeOpener hands out fakeStores and records every open
type fakeOpener struct {
	mu     sync.Mutex
	rows   []model.Incident
	err    error
	opened []*fakeStore
}

func (o *fakeOpener) Open(ctx context.Context, name types.StoreName) (interfaces.Store, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.err != nil {
		return nil, o.err
	}
	store := newFakeStore(o.rows)
	store.name = name
	o.opened = append(o.opened, store)
	return store, nil
}

func (o *fakeOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

var errDriver = errors.New("no such table: delitos")
