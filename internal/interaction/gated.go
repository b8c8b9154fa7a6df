package interaction

import (
	"context"
	"sync/atomic"

	"github.com/drug-interaction/backend/internal/storage/models"
)

// GatedSource serves lookups from primary only after it has been marked
// ready, and from fallback otherwise. Used for a graph that must be synced
// from the catalog before its answers mean anything.
type GatedSource struct {
	primary  InteractionSource
	fallback InteractionSource
	ready    atomic.Bool
}

func NewGatedSource(primary, fallback InteractionSource) *GatedSource {
	return &GatedSource{primary: primary, fallback: fallback}
}

func (g *GatedSource) SetReady(ready bool) { g.ready.Store(ready) }

func (g *GatedSource) Ready() bool { return g.ready.Load() }

func (g *GatedSource) GetInteraction(ctx context.Context, drug1ID, drug2ID int64) (*models.InteractionRecord, error) {
	if g.ready.Load() {
		return g.primary.GetInteraction(ctx, drug1ID, drug2ID)
	}
	return g.fallback.GetInteraction(ctx, drug1ID, drug2ID)
}
