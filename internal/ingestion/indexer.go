package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/internal/vector/zilliz"
	"github.com/drug-interaction/backend/pkg/logger"
)

const defaultBatchSize = 100

type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	DeleteAll(ctx context.Context) error
	Insert(ctx context.Context, rows []zilliz.NameVector) error
}

// Indexer embeds every catalog name so the semantic strategy can search them.
type Indexer struct {
	embedder  BatchEmbedder
	store     VectorStore
	batchSize int
}

func NewIndexer(embedder BatchEmbedder, store VectorStore) *Indexer {
	return &Indexer{
		embedder:  embedder,
		store:     store,
		batchSize: defaultBatchSize,
	}
}

// IndexCatalog replaces the vector store contents with one row per distinct
// generic or brand name. It returns the number of rows written.
func (x *Indexer) IndexCatalog(ctx context.Context, drugs []models.DrugRecord) (int, error) {
	start := time.Now()
	entries := catalogEntries(drugs)
	logger.Info("Indexing catalog names", zap.Int("drugs", len(drugs)), zap.Int("names", len(entries)))

	if err := x.store.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear vector store: %w", err)
	}

	written := 0
	for i := 0; i < len(entries); i += x.batchSize {
		end := min(i+x.batchSize, len(entries))
		batch := entries[i:end]

		texts := make([]string, len(batch))
		for j, e := range batch {
			texts[j] = e.Name
		}

		embeddings, err := x.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("failed to embed names: %w", err)
		}
		if len(embeddings) != len(batch) {
			return written, fmt.Errorf("embedding count mismatch: got %d for %d names", len(embeddings), len(batch))
		}

		rows := make([]zilliz.NameVector, len(batch))
		for j, e := range batch {
			rows[j] = zilliz.NameVector{Name: e.Name, DrugID: e.DrugID, Embedding: embeddings[j]}
		}
		if err := x.store.Insert(ctx, rows); err != nil {
			return written, fmt.Errorf("failed to insert names: %w", err)
		}
		written += len(rows)
	}

	logger.Info("Catalog names indexed",
		zap.Int("rows", written),
		zap.Duration("duration", time.Since(start)),
	)
	return written, nil
}

type entry struct {
	Name   string
	DrugID int64
}

func catalogEntries(drugs []models.DrugRecord) []entry {
	seen := make(map[string]bool)
	var out []entry
	for i := range drugs {
		for _, name := range drugs[i].Names() {
			name = strings.TrimSpace(name)
			key := fmt.Sprintf("%d\x1f%s", drugs[i].ID, strings.ToLower(name))
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, entry{Name: name, DrugID: drugs[i].ID})
		}
	}
	return out
}
