package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"golang.org/x/sync/singleflight"
)

// Loader runs the incident query and memoizes the table per store handle
type Loader struct {
	mu    sync.Mutex
	memo  map[interfaces.Store]*model.Table
	keys  map[interfaces.Store]string
	seq   uint64
	group singleflight.Group
}

// NewLoader creates a new Loader with an empty memo
func NewLoader() *Loader {
	return &Loader{
		memo: make(map[interfaces.Store]*model.Table),
		keys: make(map[interfaces.Store]string),
	}
}

// Load returns the incident table of store. The first successful result is
// reused for every later call with the same handle. On failure Load returns
// an empty table together with an error matching model.ErrQueryFailed, and
// nothing is memoized.
func (l *Loader) Load(ctx context.Context, store interfaces.Store) (*model.Table, error) {
	logger := ctxlog.From(ctx)

	if store == nil {
		return model.NewTable(nil), goerr.New("store is nil")
	}

	l.mu.Lock()
	if table, ok := l.memo[store]; ok {
		l.mu.Unlock()
		logger.Debug("Incident table served from memo",
			"store", store.Name(),
			"rows", table.Len(),
		)
		return table, nil
	}
	key := l.keyFor(store)
	l.mu.Unlock()

	// The query is shared by concurrent callers, so one caller leaving must
	// not cancel it for the rest
	queryCtx := context.WithoutCancel(ctx)
	v, err, shared := l.group.Do(key, func() (any, error) {
		started := time.Now()
		rows, err := store.QueryIncidents(queryCtx)
		if err != nil {
			return nil, err
		}

		table := model.NewTable(rows)
		l.mu.Lock()
		if _, live := l.keys[store]; live {
			l.memo[store] = table
		}
		l.mu.Unlock()

		logger.Info("Incident table loaded",
			"store", store.Name(),
			"rows", table.Len(),
			"duration", time.Since(started),
		)
		return table, nil
	})
	if err != nil {
		logger.Warn("Incident query failed",
			"store", store.Name(),
			"error", err,
		)
		return model.NewTable(nil), goerr.Wrap(&model.StoreError{Kind: model.ErrQueryFailed, Store: store.Name(), Cause: err},
			"failed to load incidents", goerr.V("store", store.Name()))
	}
	if shared {
		logger.Debug("Incident query shared with concurrent caller", "store", store.Name())
	}

	return v.(*model.Table), nil
}

// Forget drops the memo entry of store. Call it before closing the handle.
func (l *Loader) Forget(store interfaces.Store) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if key, ok := l.keys[store]; ok {
		l.group.Forget(key)
	}
	delete(l.memo, store)
	delete(l.keys, store)
}

// keyFor returns the singleflight key of store. Caller must hold l.mu.
func (l *Loader) keyFor(store interfaces.Store) string {
	if key, ok := l.keys[store]; ok {
		return key
	}
	l.seq++
	key := strconv.FormatUint(l.seq, 10)
	l.keys[store] = key
	return key
}
