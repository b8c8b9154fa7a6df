package builder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/logger"
)

const batchSize = 500

type CatalogReader interface {
	ListAllDrugs(ctx context.Context) ([]models.DrugRecord, error)
	ListInteractions(ctx context.Context) ([]models.InteractionRecord, error)
}

type GraphWriter interface {
	UpsertDrugs(ctx context.Context, drugs []models.DrugRecord) error
	UpsertInteractions(ctx context.Context, interactions []models.InteractionRecord) error
}

// Builder projects the relational catalog into the interaction graph.
type Builder struct {
	catalog CatalogReader
	graph   GraphWriter
}

type SyncStats struct {
	Drugs        int
	Interactions int
	Duration     time.Duration
}

func NewBuilder(catalog CatalogReader, graph GraphWriter) *Builder {
	return &Builder{catalog: catalog, graph: graph}
}

// Sync writes every drug, then every interaction. Nodes go first so the
// relationship MATCH clauses find both ends.
func (b *Builder) Sync(ctx context.Context) (*SyncStats, error) {
	start := time.Now()
	logger.Info("Syncing catalog to KG")

	drugs, err := b.catalog.ListAllDrugs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list drugs: %w", err)
	}
	interactions, err := b.catalog.ListInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}

	for i := 0; i < len(drugs); i += batchSize {
		end := min(i+batchSize, len(drugs))
		if err := b.graph.UpsertDrugs(ctx, drugs[i:end]); err != nil {
			return nil, fmt.Errorf("failed to sync drugs: %w", err)
		}
	}

	for i := 0; i < len(interactions); i += batchSize {
		end := min(i+batchSize, len(interactions))
		if err := b.graph.UpsertInteractions(ctx, interactions[i:end]); err != nil {
			return nil, fmt.Errorf("failed to sync interactions: %w", err)
		}
	}

	stats := &SyncStats{
		Drugs:        len(drugs),
		Interactions: len(interactions),
		Duration:     time.Since(start),
	}

	logger.Info("KG sync complete",
		zap.Int("drugs", stats.Drugs),
		zap.Int("interactions", stats.Interactions),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}
