package usecase

import (
	"context"
	"io"

	"github.com/secmon-lab/crimemap/pkg/domain/interfaces"
	"github.com/secmon-lab/crimemap/pkg/domain/model"
	"github.com/secmon-lab/crimemap/pkg/domain/types"
	"github.com/secmon-lab/crimemap/pkg/service/chart"
	"github.com/secmon-lab/crimemap/pkg/service/export"
)

// GateUseCase defines the interface for the credential gate
type GateUseCase interface {
	// Connect checks the secret and opens the named store
	Connect(ctx context.Context, storeName types.StoreName, secret string) (*model.Session, error)

	// Resolve returns a live session and its store handle
	Resolve(ctx context.Context, id types.SessionID) (*model.Session, interfaces.Store, error)

	// Release ends a session and closes its store
	Release(ctx context.Context, id types.SessionID)

	// Sweep releases expired sessions
	Sweep(ctx context.Context) int

	// Close closes every open store
	Close() error
}

// DashboardUseCase defines the interface for the dashboard pipeline
type DashboardUseCase interface {
	Palette() model.Palette
	View(ctx context.Context, store interfaces.Store, sel model.Selection) *View
	MapLayer(ctx context.Context, store interfaces.Store, sel model.Selection) (model.MapLayer, *View)
	RenderChart(ctx context.Context, w io.Writer, store interfaces.Store, sel model.Selection, format chart.Format) error
	Export(ctx context.Context, store interfaces.Store, sel model.Selection, format export.Format) ([]byte, error)
}

var (
	_ GateUseCase      = (*Gate)(nil)
	_ DashboardUseCase = (*Dashboard)(nil)
)
