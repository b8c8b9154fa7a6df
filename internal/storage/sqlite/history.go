package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/logger"
)

func (c *Client) InsertCheck(ctx context.Context, rec *models.CheckRecord) error {
	names, err := json.Marshal(rec.InputNames)
	if err != nil {
		return fmt.Errorf("failed to marshal input names: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO interaction_checks (id, input_names, matched_count, alert_count, max_risk_score,
			risk_level, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		string(names),
		rec.MatchedCount,
		rec.AlertCount,
		rec.MaxRiskScore,
		rec.RiskLevel,
		rec.LatencyMS,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert check record: %w", err)
	}

	logger.Info("Interaction check recorded",
		zap.String("check_id", rec.ID),
		zap.Int("alerts", rec.AlertCount),
		zap.String("risk_level", rec.RiskLevel),
	)
	return nil
}

func (c *Client) GetCheckHistory(ctx context.Context, limit int) ([]models.CheckRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, input_names, matched_count, alert_count, max_risk_score, risk_level, latency_ms, created_at
		FROM interaction_checks
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get check history: %w", err)
	}
	defer rows.Close()

	records := make([]models.CheckRecord, 0)
	for rows.Next() {
		rec, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate check history: %w", err)
	}
	return records, nil
}

func (c *Client) GetCheck(ctx context.Context, id string) (*models.CheckRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, input_names, matched_count, alert_count, max_risk_score, risk_level, latency_ms, created_at
		FROM interaction_checks WHERE id = ?`, id)

	rec, err := scanCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func scanCheck(row rowScanner) (*models.CheckRecord, error) {
	var rec models.CheckRecord
	var names string
	var createdAt int64

	err := row.Scan(&rec.ID, &names, &rec.MatchedCount, &rec.AlertCount, &rec.MaxRiskScore,
		&rec.RiskLevel, &rec.LatencyMS, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan check record: %w", err)
	}

	if err := json.Unmarshal([]byte(names), &rec.InputNames); err != nil {
		return nil, fmt.Errorf("failed to decode input names: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return &rec, nil
}
