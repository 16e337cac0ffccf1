package http_test

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	httpCtrl "github.com/secmon-lab/crimemap/pkg/controller/http"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

func TestIsSecureRequest(t *testing.T) {
	testCases := []struct {
		name     string
		proto    string
		tls      bool
		expected bool
	}{
		{"plain", "", false, false},
		{"tls", "", true, true},
		{"forwarded https", "https", false, true},
		{"forwarded chain", "https, http", false, true},
		{"forwarded http", "http", false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			if tc.tls {
				req.TLS = &tls.ConnectionState{}
			}
			gt.Equal(t, tc.expected, httpCtrl.IsSecureRequest(req))
		})
	}
}

func TestParseSelection(t *testing.T) {
	t.Run("absent parameters keep defaults", func(t *testing.T) {
		sel, err := httpCtrl.ParseSelection(httptest.NewRequest("GET", "/api/dashboard", nil))
		gt.NoError(t, err).Required()
		gt.V(t, sel.Districts).Nil()
		gt.V(t, sel.CrimeTypes).Nil()
		gt.True(t, sel.Start.IsZero())
		gt.True(t, sel.End.IsZero())
	})

	t.Run("repeated values and dates", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/dashboard?district=Cuauht%C3%A9moc&district=Coyoac%C3%A1n&type=Homicidio&start=2025-02-01&end=2025-03-01", nil)
		sel, err := httpCtrl.ParseSelection(req)
		gt.NoError(t, err).Required()
		gt.Equal(t, []types.District{"Cuauhtémoc", "Coyoacán"}, sel.Districts)
		gt.Equal(t, []types.CrimeType{"Homicidio"}, sel.CrimeTypes)
		gt.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), sel.Start)
		gt.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), sel.End)
	})

	t.Run("explicit empty selects nothing", func(t *testing.T) {
		sel, err := httpCtrl.ParseSelection(httptest.NewRequest("GET", "/api/dashboard?district=&type=", nil))
		gt.NoError(t, err).Required()
		gt.True(t, sel.Districts != nil)
		gt.Equal(t, 0, len(sel.Districts))
		gt.True(t, sel.CrimeTypes != nil)
		gt.Equal(t, 0, len(sel.CrimeTypes))
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := httpCtrl.ParseSelection(httptest.NewRequest("GET", "/api/dashboard?start=01-02-2025", nil))
		gt.Error(t, err)
	})
}

func TestConnectFailure(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"missing", goerr.Wrap(model.ErrMissingFields, "x"), http.StatusBadRequest, httpCtrl.MsgMissingFields},
		{"auth", goerr.Wrap(model.ErrAuthFailed, "x"), http.StatusUnauthorized, httpCtrl.MsgAuthFailed},
		{
			"connection",
			goerr.Wrap(&model.StoreError{Kind: model.ErrConnectionFailed, Cause: errors.New("unable to open database file")}, "x"),
			http.StatusBadGateway,
			httpCtrl.MsgConnectFailed + "unable to open database file",
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, httpCtrl.MsgCouldNotConnect},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, message := httpCtrl.ConnectFailure(tc.err)
			gt.Equal(t, tc.status, status)
			gt.Equal(t, tc.message, message)
		})
	}
}
