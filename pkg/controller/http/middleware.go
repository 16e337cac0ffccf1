package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/usecase"
)

// SessionCookieName is the cookie holding the signed session token
const SessionCookieName = "crimemap_session"

type ctxKey int

const (
	ctxKeySession ctxKey = iota
	ctxKeyStore
)

// Middleware provides session middleware
type Middleware struct {
	gate   usecase.GateUseCase
	tokens *TokenSigner
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(gate usecase.GateUseCase, tokens *TokenSigner) *Middleware {
	return &Middleware{
		gate:   gate,
		tokens: tokens,
	}
}

// RequireSession rejects requests without a live session and puts the
// session and its store handle into the request context (chi compatible)
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, store, ok := m.lookup(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, MsgNotConnected)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, session)
		ctx = context.WithValue(ctx, ctxKeyStore, store)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookup resolves the session of the request cookie
func (m *Middleware) lookup(r *http.Request) (*model.Session, interfaces.Store, bool) {
	logger := ctxlog.From(r.Context())

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil, false
	}

	sessionID, err := m.tokens.Verify(cookie.Value)
	if err != nil {
		logger.Debug("Session token rejected", "error", err)
		return nil, nil, false
	}

	session, store, err := m.gate.Resolve(r.Context(), sessionID)
	if err != nil {
		logger.Debug("Session validation failed",
			"error", err,
			"sessionID", sessionID,
		)
		return nil, nil, false
	}

	return session, store, true
}

// sessionFromContext returns the session stored by RequireSession
func sessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(ctxKeySession).(*model.Session)
	return session
}

// storeFromContext returns the store handle stored by RequireSession
func storeFromContext(ctx context.Context) interfaces.Store {
	store, _ := ctx.Value(ctxKeyStore).(interfaces.Store)
	return store
}

// LoggingMiddleware creates a chi-compatible logging middleware
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Embed logger from the initial context into request context
			logger := ctxlog.From(ctx).With("request_id", middleware.GetReqID(r.Context()))
			r = r.WithContext(ctxlog.With(r.Context(), logger))
			start := time.Now()

			// Wrap response writer to capture status
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}
