package http_test

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	httpCtrl "github.com/secmon-lab/crimemap/pkg/controller/http"
	"github.com/secmon-lab/crimemap/pkg/datastore"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
	"github.com/secmon-lab/crimemap/pkg/repository"
	"github.com/secmon-lab/crimemap/pkg/usecase"
)

const testSecret = "admin-secret"

type testEnv struct {
	server *httptest.Server
	client *http.Client
	store  string
	opener *countingOpener
}

// countingOpener tracks how many opened store handles are still open
type countingOpener struct {
	inner interfaces.StoreOpener
	open  atomic.Int32
	total atomic.Int32
}

func (o *countingOpener) Open(ctx context.Context, name types.StoreName) (interfaces.Store, error) {
	store, err := o.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	o.open.Add(1)
	o.total.Add(1)
	return &countedStore{Store: store, opener: o}, nil
}

type countedStore struct {
	interfaces.Store
	opener *countingOpener
	once   sync.Once
}

func (s *countedStore) Close() error {
	s.once.Do(func() { s.opener.open.Add(-1) })
	return s.Store.Close()
}

func createTestStore(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "incidencia_cdmx.db")
	db, err := sql.Open(datastore.DriverSQLite, path)
	gt.NoError(t, err).Required()
	defer db.Close()

	stmts := []string{
		`CREATE TABLE alcaldias (id INTEGER PRIMARY KEY, nombre TEXT)`,
		`CREATE TABLE delitos (id INTEGER PRIMARY KEY, fecha TEXT, alcaldia_id INTEGER, tipo_delito TEXT, latitud REAL, longitud REAL)`,
		`INSERT INTO alcaldias VALUES (1, 'Cuauhtémoc'), (2, 'Coyoacán')`,
		`INSERT INTO delitos VALUES
			(1, '2025-01-01', 1, 'Robo a transeúnte', 19.43, -99.14),
			(2, '2025-01-20', 2, 'Homicidio', 19.35, -99.16),
			(3, '2025-02-01', 1, 'Homicidio', 19.42, -99.15),
			(4, '2025-02-14', 1, 'Robo a transeúnte', 19.44, -99.13),
			(5, '2025-02-28', 2, 'Robo a transeúnte', 19.34, -99.17),
			(6, '2025-03-01', 1, 'Fraude', NULL, NULL)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		gt.NoError(t, err).Required()
	}
	return path
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := ctxlog.With(context.Background(), logger)

	opener := &countingOpener{inner: datastore.NewOpener()}
	loader := usecase.NewLoader()
	gate := usecase.NewGate(testSecret, opener, repository.NewMemory(),
		usecase.WithSessionTTL(time.Hour),
		usecase.WithLoader(loader),
	)
	t.Cleanup(func() { _ = gate.Close() })

	clock := func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	dashboard := usecase.NewDashboard(loader, usecase.NewExporter(), usecase.WithClock(clock))

	tokens, err := httpCtrl.NewTokenSigner([]byte("test-signing-key-test-signing-key"))
	gt.NoError(t, err).Required()

	srv, err := httpCtrl.NewServer(ctx, ":0", gate, dashboard, tokens,
		httpCtrl.WithFrontend(testFrontendFS()),
		httpCtrl.WithDefaultStore("incidencia_cdmx.db"),
	)
	gt.NoError(t, err).Required()

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	jar := newCookieJar(t)
	return &testEnv{
		server: ts,
		client: &http.Client{Jar: jar},
		store:  createTestStore(t),
		opener: opener,
	}
}

func (e *testEnv) connect(t *testing.T, store, secret string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"store": store, "secret": secret})
	gt.NoError(t, err).Required()

	resp, err := e.client.Post(e.server.URL+"/api/connect", "application/json", strings.NewReader(string(body)))
	gt.NoError(t, err).Required()
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	gt.NoError(t, err).Required()
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(v)).Required()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health")
	gt.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	gt.Equal(t, "healthy", body["status"])
	gt.Equal(t, "crimemap", body["service"])
}

func TestLockedState(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/session")
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	var session map[string]any
	decodeBody(t, resp, &session)
	gt.Equal(t, false, session["connected"])
	gt.Equal(t, httpCtrl.MsgNotConnected, session["message"])
	gt.Equal(t, "incidencia_cdmx.db", session["default_store"])

	for _, path := range []string{"/api/dashboard", "/api/map", "/api/chart.png", "/api/export.csv", "/api/export.xlsx"} {
		resp := env.get(t, path)
		resp.Body.Close()
		gt.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestConnectFailures(t *testing.T) {
	env := newTestEnv(t)

	t.Run("wrong secret", func(t *testing.T) {
		resp := env.connect(t, env.store, "admin123")
		gt.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body map[string]string
		decodeBody(t, resp, &body)
		gt.Equal(t, httpCtrl.MsgAuthFailed, body["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := env.connect(t, "", testSecret)
		gt.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body map[string]string
		decodeBody(t, resp, &body)
		gt.Equal(t, httpCtrl.MsgMissingFields, body["error"])
	})

	t.Run("missing store", func(t *testing.T) {
		resp := env.connect(t, filepath.Join(t.TempDir(), "nope.db"), testSecret)
		gt.Equal(t, http.StatusBadGateway, resp.StatusCode)
		var body map[string]string
		decodeBody(t, resp, &body)
		gt.S(t, body["error"]).Contains(httpCtrl.MsgConnectFailed)
	})

	// Still locked after every failure
	resp := env.get(t, "/api/dashboard")
	resp.Body.Close()
	gt.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectWithForm(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.PostForm(env.server.URL+"/api/connect", url.Values{
		"store":  {env.store},
		"secret": {testSecret},
	})
	gt.NoError(t, err).Required()
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestConnectedDashboard(t *testing.T) {
	env := newTestEnv(t)

	resp := env.connect(t, env.store, testSecret)
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	var connected map[string]any
	decodeBody(t, resp, &connected)
	gt.Equal(t, true, connected["connected"])
	gt.S(t, connected["message"].(string)).Contains(env.store)

	t.Run("session", func(t *testing.T) {
		var session map[string]any
		decodeBody(t, env.get(t, "/api/session"), &session)
		gt.Equal(t, true, session["connected"])
		gt.Equal[any](t, env.store, session["store"])
	})

	t.Run("defaults", func(t *testing.T) {
		var body struct {
			Options struct {
				Districts  []string `json:"districts"`
				CrimeTypes []string `json:"crime_types"`
				MinDate    string   `json:"min_date"`
				MaxDate    string   `json:"max_date"`
			} `json:"options"`
			Criteria struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"criteria"`
			Driver string `json:"driver"`
			Loaded int    `json:"loaded"`
			Count  int    `json:"count"`
			Rows   []struct {
				ID        int64    `json:"id"`
				DateLabel string   `json:"fecha_str"`
				Latitude  *float64 `json:"latitud"`
				Color     []int    `json:"color"`
			} `json:"rows"`
			Warning string `json:"warning"`
		}
		resp := env.get(t, "/api/dashboard")
		gt.Equal(t, http.StatusOK, resp.StatusCode)
		decodeBody(t, resp, &body)

		gt.Equal(t, []string{"Coyoacán", "Cuauhtémoc"}, body.Options.Districts)
		gt.Equal(t, []string{"Fraude", "Homicidio", "Robo a transeúnte"}, body.Options.CrimeTypes)
		gt.Equal(t, "2025-01-01", body.Options.MinDate)
		gt.Equal(t, "2025-03-01", body.Options.MaxDate)
		gt.Equal(t, "2024-12-31", body.Criteria.Start)
		gt.Equal(t, "2025-03-01", body.Criteria.End)
		gt.Equal(t, datastore.DriverSQLite, body.Driver)
		gt.Equal(t, 6, body.Loaded)
		gt.Equal(t, 6, body.Count)
		gt.Equal(t, "", body.Warning)

		gt.Equal(t, "01-01-2025", body.Rows[0].DateLabel)
		gt.Equal(t, []int{255, 0, 0, 160}, body.Rows[0].Color)
		gt.V(t, body.Rows[5].Latitude).Nil()
		gt.V(t, body.Rows[5].Color).Nil()
	})

	t.Run("legend colors", func(t *testing.T) {
		type colorsBody struct {
			Colors map[string][]int `json:"colors"`
		}
		var full, narrowed colorsBody
		decodeBody(t, env.get(t, "/api/dashboard"), &full)
		q := url.Values{"district": {"Cuauhtémoc"}, "type": {"Fraude"}}
		decodeBody(t, env.get(t, "/api/dashboard?"+q.Encode()), &narrowed)

		gt.Equal(t, []int{255, 0, 0, 160}, full.Colors["Robo a transeúnte"])
		gt.A(t, full.Colors["Fraude"]).Length(4)
		gt.Equal(t, full.Colors["Fraude"], narrowed.Colors["Fraude"])
	})

	t.Run("scenario filter", func(t *testing.T) {
		var body struct {
			Count int `json:"count"`
			Rows  []struct {
				ID int64 `json:"id"`
			} `json:"rows"`
		}
		q := url.Values{"district": {"Cuauhtémoc"}, "start": {"2025-02-01"}, "end": {"2025-03-01"}}
		decodeBody(t, env.get(t, "/api/dashboard?"+q.Encode()), &body)
		gt.Equal(t, 3, body.Count)
		gt.Equal(t, int64(3), body.Rows[0].ID)
		gt.Equal(t, int64(4), body.Rows[1].ID)
		gt.Equal(t, int64(6), body.Rows[2].ID)
	})

	t.Run("empty selection", func(t *testing.T) {
		var body struct {
			Count int `json:"count"`
		}
		decodeBody(t, env.get(t, "/api/dashboard?district="), &body)
		gt.Equal(t, 0, body.Count)
	})

	t.Run("invalid date", func(t *testing.T) {
		resp := env.get(t, "/api/dashboard?start=ayer")
		resp.Body.Close()
		gt.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("map", func(t *testing.T) {
		var layer struct {
			ViewState struct {
				Latitude float64 `json:"latitude"`
				Zoom     float64 `json:"zoom"`
				Pitch    float64 `json:"pitch"`
			} `json:"initial_view_state"`
			Radius float64 `json:"radius"`
			Points []struct {
				Position [2]float64 `json:"position"`
			} `json:"points"`
		}
		decodeBody(t, env.get(t, "/api/map"), &layer)
		gt.Equal(t, 19.35, layer.ViewState.Latitude)
		gt.Equal(t, 10.0, layer.ViewState.Zoom)
		gt.Equal(t, 40.0, layer.ViewState.Pitch)
		gt.Equal(t, 250.0, layer.Radius)
		// The Fraude row has no coordinates
		gt.A(t, layer.Points).Length(5)
		gt.Equal(t, [2]float64{-99.14, 19.43}, layer.Points[0].Position)
	})

	t.Run("chart", func(t *testing.T) {
		resp := env.get(t, "/api/chart.png")
		defer resp.Body.Close()
		gt.Equal(t, http.StatusOK, resp.StatusCode)
		gt.Equal(t, "image/png", resp.Header.Get("Content-Type"))

		svg := env.get(t, "/api/chart.svg")
		defer svg.Body.Close()
		gt.Equal(t, http.StatusOK, svg.StatusCode)
		gt.Equal(t, "image/svg+xml", svg.Header.Get("Content-Type"))
	})

	t.Run("csv export", func(t *testing.T) {
		resp := env.get(t, "/api/export.csv?type=Homicidio")
		defer resp.Body.Close()
		gt.Equal(t, http.StatusOK, resp.StatusCode)
		gt.S(t, resp.Header.Get("Content-Disposition")).Contains("datos_filtrados.csv")
		gt.S(t, resp.Header.Get("Content-Type")).Contains("text/csv")

		records, err := csv.NewReader(resp.Body).ReadAll()
		gt.NoError(t, err).Required()
		gt.Equal(t, [][]string{
			{"id", "Fecha", "Alcaldía", "Tipo de delito", "Latitud", "Longitud"},
			{"2", "2025-01-20", "Coyoacán", "Homicidio", "19.35", "-99.16"},
			{"3", "2025-02-01", "Cuauhtémoc", "Homicidio", "19.42", "-99.15"},
		}, records)
	})

	t.Run("xlsx export", func(t *testing.T) {
		resp := env.get(t, "/api/export.xlsx")
		defer resp.Body.Close()
		gt.Equal(t, http.StatusOK, resp.StatusCode)
		gt.S(t, resp.Header.Get("Content-Disposition")).Contains("datos_filtrados.xlsx")
	})
}

func TestQueryFailureKeepsDashboardUp(t *testing.T) {
	env := newTestEnv(t)

	// A store without the expected relations
	path := filepath.Join(t.TempDir(), "vacia.db")
	db, err := sql.Open(datastore.DriverSQLite, path)
	gt.NoError(t, err).Required()
	_, err = db.Exec(`CREATE TABLE otra (id INTEGER)`)
	gt.NoError(t, err).Required()
	gt.NoError(t, db.Close())

	resp := env.connect(t, path, testSecret)
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var body struct {
		Count   int    `json:"count"`
		Warning string `json:"warning"`
	}
	resp = env.get(t, "/api/dashboard")
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	gt.Equal(t, 0, body.Count)
	gt.S(t, body.Warning).Contains(httpCtrl.MsgQueryFailed)

	csvResp := env.get(t, "/api/export.csv")
	defer csvResp.Body.Close()
	gt.Equal(t, http.StatusOK, csvResp.StatusCode)
}

func TestFrontendServed(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/some/client/route")
	defer resp.Body.Close()
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	gt.S(t, resp.Header.Get("Content-Type")).Contains("text/html")
}

func TestResponsesAreCompressed(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest("GET", env.server.URL+"/health", nil)
	gt.NoError(t, err).Required()
	req.Header.Set("Accept-Encoding", "gzip")

	// Use a bare transport so the response is not transparently decompressed
	resp, err := (&http.Transport{DisableCompression: true}).RoundTrip(req)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	gt.S(t, resp.Header.Get("Vary")).Contains("Accept-Encoding")
}

func TestReconnectReleasesPreviousStore(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		resp := env.connect(t, env.store, testSecret)
		gt.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.get(t, "/api/dashboard")
		gt.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	gt.Equal(t, int32(5), env.opener.total.Load())
	gt.Equal(t, int32(1), env.opener.open.Load())

	// A failed attempt keeps the live session
	resp := env.connect(t, env.store, "wrong")
	gt.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.get(t, "/api/dashboard")
	gt.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	gt.Equal(t, int32(1), env.opener.open.Load())
}
