package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/logger"
)

type SeedFile struct {
	Drugs        []models.DrugRecord        `json:"drugs"`
	Interactions []models.InteractionRecord `json:"interactions"`
}

// SeedFromJSON loads drugs and interactions in a single transaction.
func (c *Client) SeedFromJSON(ctx context.Context, r io.Reader) error {
	var seed SeedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("failed to decode seed file: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range seed.Drugs {
		if err := upsertDrug(ctx, tx, &seed.Drugs[i]); err != nil {
			return err
		}
	}
	for i := range seed.Interactions {
		if err := upsertInteraction(ctx, tx, &seed.Interactions[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	logger.Info("Catalog seeded",
		zap.Int("drugs", len(seed.Drugs)),
		zap.Int("interactions", len(seed.Interactions)),
	)
	return nil
}
