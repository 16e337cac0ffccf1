package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
)

// DefaultSessionTTL is the lifetime of a connected session
const DefaultSessionTTL = 12 * time.Hour

// Gate checks the shared secret and owns the store handle of every session
type Gate struct {
	secret []byte
	opener interfaces.StoreOpener
	repo   interfaces.Repository
	loader *Loader
	ttl    time.Duration

	mu     sync.Mutex
	stores map[types.SessionID]interfaces.Store
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithSessionTTL sets the session lifetime
func WithSessionTTL(ttl time.Duration) GateOption {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithLoader lets the gate drop memoized tables of closed stores
func WithLoader(loader *Loader) GateOption {
	return func(g *Gate) {
		g.loader = loader
	}
}

// NewGate creates a new Gate
func NewGate(secret string, opener interfaces.StoreOpener, repo interfaces.Repository, opts ...GateOption) *Gate {
	g := &Gate{
		secret: []byte(secret),
		opener: opener,
		repo:   repo,
		ttl:    DefaultSessionTTL,
		stores: make(map[types.SessionID]interfaces.Store),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect opens storeName when secret matches. One attempt, no retry.
// Errors match model.ErrMissingFields, model.ErrAuthFailed or
// model.ErrConnectionFailed; no session exists after a failure.
func (g *Gate) Connect(ctx context.Context, storeName types.StoreName, secret string) (*model.Session, error) {
	logger := ctxlog.From(ctx)

	if strings.TrimSpace(storeName.String()) == "" || secret == "" {
		logger.Info("Connection attempt rejected", "reason", "missing fields")
		return nil, goerr.Wrap(model.ErrMissingFields, "incomplete connection form")
	}

	if len(g.secret) == 0 || subtle.ConstantTimeCompare([]byte(secret), g.secret) != 1 {
		logger.Warn("Connection attempt rejected",
			"reason", "incorrect secret",
			"store", storeName,
		)
		return nil, goerr.Wrap(model.ErrAuthFailed, "secret mismatch", goerr.V("store", storeName))
	}

	store, err := g.opener.Open(ctx, storeName)
	if err != nil {
		logger.Warn("Connection attempt failed",
			"store", storeName,
			"error", err,
		)
		return nil, goerr.Wrap(&model.StoreError{Kind: model.ErrConnectionFailed, Store: storeName, Cause: err},
			"failed to open store", goerr.V("store", storeName))
	}

	session, err := model.NewSession(storeName, g.ttl)
	if err != nil {
		_ = store.Close()
		return nil, goerr.Wrap(err, "failed to create session")
	}

	if err := g.repo.SaveSession(ctx, session); err != nil {
		_ = store.Close()
		return nil, goerr.Wrap(err, "failed to save session")
	}

	g.mu.Lock()
	g.stores[session.ID] = store
	g.mu.Unlock()

	logger.Info("Connected to store",
		"sessionID", session.ID,
		"store", storeName,
		"expiresAt", session.ExpiresAt,
	)

	return session, nil
}

// Resolve returns the live session and its store handle. Unknown and
// expired sessions match model.ErrSessionNotFound; an expired session's
// store is closed.
func (g *Gate) Resolve(ctx context.Context, id types.SessionID) (*model.Session, interfaces.Store, error) {
	if id == "" {
		return nil, nil, goerr.Wrap(model.ErrSessionNotFound, "session ID is empty")
	}

	session, err := g.repo.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !session.IsValid() {
		g.release(ctx, id)
		return nil, nil, goerr.Wrap(model.ErrSessionNotFound, "session expired",
			goerr.V("session_id", id))
	}

	g.mu.Lock()
	store, ok := g.stores[id]
	g.mu.Unlock()
	if !ok {
		return nil, nil, goerr.Wrap(model.ErrSessionNotFound, "session has no store",
			goerr.V("session_id", id))
	}

	return session, store, nil
}

// Release ends session id: its store is closed, its memoized table
// forgotten and the session deleted. Unknown IDs are ignored.
func (g *Gate) Release(ctx context.Context, id types.SessionID) {
	if id == "" {
		return
	}
	g.release(ctx, id)
}

// release closes the store of id and removes the session
func (g *Gate) release(ctx context.Context, id types.SessionID) {
	logger := ctxlog.From(ctx)

	g.mu.Lock()
	store, ok := g.stores[id]
	delete(g.stores, id)
	g.mu.Unlock()

	if ok {
		if g.loader != nil {
			g.loader.Forget(store)
		}
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close store", "sessionID", id, "error", err)
		}
	}

	if err := g.repo.DeleteSession(ctx, id); err != nil && !errors.Is(err, model.ErrSessionNotFound) {
		logger.Warn("Failed to delete session", "sessionID", id, "error", err)
	}

	logger.Info("Session released", "sessionID", id)
}

// Sweep releases every expired session and returns how many were released
func (g *Gate) Sweep(ctx context.Context) int {
	g.mu.Lock()
	ids := make([]types.SessionID, 0, len(g.stores))
	for id := range g.stores {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	released := 0
	for _, id := range ids {
		session, err := g.repo.GetSession(ctx, id)
		if err == nil && session.IsValid() {
			continue
		}
		g.release(ctx, id)
		released++
	}

	if released > 0 {
		ctxlog.From(ctx).Info("Expired sessions swept", "count", released)
	}
	return released
}

// Close closes every open store
func (g *Gate) Close() error {
	g.mu.Lock()
	stores := g.stores
	g.stores = make(map[types.SessionID]interfaces.Store)
	g.mu.Unlock()

	var errs []error
	for _, store := range stores {
		if g.loader != nil {
			g.loader.Forget(store)
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return goerr.Wrap(errors.Join(errs...), "failed to close stores")
	}
	return nil
}
