package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/logger"
)

const interactionColumns = `id, drug1_id, drug2_id, severity, interaction_type, mechanism, clinical_effect,
	management, evidence_level, documentation_quality, frequency, onset, source`

func (c *Client) ListAllDrugs(ctx context.Context) ([]models.DrugRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, canonical_name, generic_name, drug_class, rxcui FROM drugs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list drugs: %w", err)
	}
	defer rows.Close()

	var drugs []models.DrugRecord
	byID := make(map[int64]int)
	for rows.Next() {
		var d models.DrugRecord
		if err := rows.Scan(&d.ID, &d.CanonicalName, &d.GenericName, &d.DrugClass, &d.RxCUI); err != nil {
			return nil, fmt.Errorf("failed to scan drug: %w", err)
		}
		byID[d.ID] = len(drugs)
		drugs = append(drugs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drugs: %w", err)
	}

	brands, err := c.db.QueryContext(ctx,
		`SELECT drug_id, brand_name FROM drug_brand_names ORDER BY drug_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brand names: %w", err)
	}
	defer brands.Close()

	for brands.Next() {
		var drugID int64
		var name string
		if err := brands.Scan(&drugID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan brand name: %w", err)
		}
		if i, ok := byID[drugID]; ok {
			drugs[i].BrandNames = append(drugs[i].BrandNames, name)
		}
	}
	if err := brands.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate brand names: %w", err)
	}

	logger.Debug("Catalog drugs listed", zap.Int("count", len(drugs)))
	return drugs, nil
}

// GetDrug returns nil, nil when the id is unknown.
func (c *Client) GetDrug(ctx context.Context, id int64) (*models.DrugRecord, error) {
	var d models.DrugRecord
	err := c.db.QueryRowContext(ctx,
		`SELECT id, canonical_name, generic_name, drug_class, rxcui FROM drugs WHERE id = ?`, id,
	).Scan(&d.ID, &d.CanonicalName, &d.GenericName, &d.DrugClass, &d.RxCUI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get drug: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT brand_name FROM drug_brand_names WHERE drug_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get brand names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan brand name: %w", err)
		}
		d.BrandNames = append(d.BrandNames, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate brand names: %w", err)
	}

	return &d, nil
}

// GetInteraction matches the pair in either stored order and returns nil, nil
// when no record exists.
func (c *Client) GetInteraction(ctx context.Context, drug1ID, drug2ID int64) (*models.InteractionRecord, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions
		WHERE (drug1_id = ? AND drug2_id = ?) OR (drug1_id = ? AND drug2_id = ?)
		ORDER BY id LIMIT 1`

	rec, err := scanInteraction(c.db.QueryRowContext(ctx, query, drug1ID, drug2ID, drug2ID, drug1ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return rec, nil
}

func (c *Client) ListInteractions(ctx context.Context) ([]models.InteractionRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+interactionColumns+` FROM interactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var out []models.InteractionRecord
	for rows.Next() {
		rec, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row rowScanner) (*models.InteractionRecord, error) {
	var rec models.InteractionRecord
	var severity, evidence, documentation, frequency, onset string

	err := row.Scan(
		&rec.ID,
		&rec.Drug1ID,
		&rec.Drug2ID,
		&severity,
		&rec.InteractionType,
		&rec.Mechanism,
		&rec.ClinicalEffect,
		&rec.Management,
		&evidence,
		&documentation,
		&frequency,
		&onset,
		&rec.Source,
	)
	if err != nil {
		return nil, err
	}

	if rec.Severity, err = models.ParseSeverity(severity); err != nil {
		return nil, fmt.Errorf("interaction %d: %w", rec.ID, err)
	}
	if rec.EvidenceLevel, err = models.ParseEvidenceLevel(evidence); err != nil {
		return nil, fmt.Errorf("interaction %d: %w", rec.ID, err)
	}
	if rec.DocumentationQuality, err = models.ParseDocumentationQuality(documentation); err != nil {
		return nil, fmt.Errorf("interaction %d: %w", rec.ID, err)
	}
	if rec.Frequency, err = models.ParseFrequency(frequency); err != nil {
		return nil, fmt.Errorf("interaction %d: %w", rec.ID, err)
	}
	if rec.Onset, err = models.ParseOnset(onset); err != nil {
		return nil, fmt.Errorf("interaction %d: %w", rec.ID, err)
	}

	return &rec, nil
}

func (c *Client) UpsertDrug(ctx context.Context, drug *models.DrugRecord) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertDrug(ctx, tx, drug); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit drug: %w", err)
	}
	return nil
}

func upsertDrug(ctx context.Context, ex execer, drug *models.DrugRecord) error {
	canonical := drug.CanonicalName
	if canonical == "" {
		canonical = drug.GenericName
	}
	now := time.Now().Unix()

	if drug.ID == 0 {
		res, err := ex.ExecContext(ctx,
			`INSERT INTO drugs (canonical_name, generic_name, drug_class, rxcui, created_at) VALUES (?, ?, ?, ?, ?)`,
			canonical, drug.GenericName, drug.DrugClass, drug.RxCUI, now)
		if err != nil {
			return fmt.Errorf("failed to insert drug: %w", err)
		}
		if drug.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read drug id: %w", err)
		}
	} else {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO drugs (id, canonical_name, generic_name, drug_class, rxcui, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				canonical_name = excluded.canonical_name,
				generic_name = excluded.generic_name,
				drug_class = excluded.drug_class,
				rxcui = excluded.rxcui`,
			drug.ID, canonical, drug.GenericName, drug.DrugClass, drug.RxCUI, now)
		if err != nil {
			return fmt.Errorf("failed to upsert drug: %w", err)
		}
	}
	drug.CanonicalName = canonical

	if _, err := ex.ExecContext(ctx, `DELETE FROM drug_brand_names WHERE drug_id = ?`, drug.ID); err != nil {
		return fmt.Errorf("failed to clear brand names: %w", err)
	}
	for i, brand := range drug.BrandNames {
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO drug_brand_names (drug_id, position, brand_name) VALUES (?, ?, ?)`,
			drug.ID, i, brand); err != nil {
			return fmt.Errorf("failed to insert brand name: %w", err)
		}
	}

	logger.Debug("Drug upserted", zap.Int64("drug_id", drug.ID), zap.String("generic_name", drug.GenericName))
	return nil
}

func (c *Client) UpsertInteraction(ctx context.Context, rec *models.InteractionRecord) error {
	return upsertInteraction(ctx, c.db, rec)
}

// upsertInteraction stores the pair with the smaller id first so the unique
// constraint covers both orders.
func upsertInteraction(ctx context.Context, ex execer, rec *models.InteractionRecord) error {
	if rec.Drug1ID == rec.Drug2ID {
		return fmt.Errorf("interaction must reference two distinct drugs, got %d twice", rec.Drug1ID)
	}
	if rec.Severity.String() == "unknown" {
		return fmt.Errorf("interaction %d-%d has no valid severity", rec.Drug1ID, rec.Drug2ID)
	}

	a, b := rec.Drug1ID, rec.Drug2ID
	if a > b {
		a, b = b, a
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO interactions (drug1_id, drug2_id, severity, interaction_type, mechanism, clinical_effect,
			management, evidence_level, documentation_quality, frequency, onset, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(drug1_id, drug2_id) DO UPDATE SET
			severity = excluded.severity,
			interaction_type = excluded.interaction_type,
			mechanism = excluded.mechanism,
			clinical_effect = excluded.clinical_effect,
			management = excluded.management,
			evidence_level = excluded.evidence_level,
			documentation_quality = excluded.documentation_quality,
			frequency = excluded.frequency,
			onset = excluded.onset,
			source = excluded.source`,
		a, b,
		rec.Severity.String(),
		rec.InteractionType,
		rec.Mechanism,
		rec.ClinicalEffect,
		rec.Management,
		rec.EvidenceLevel.String(),
		rec.DocumentationQuality.String(),
		string(rec.Frequency),
		string(rec.Onset),
		rec.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert interaction: %w", err)
	}

	logger.Debug("Interaction upserted",
		zap.Int64("drug1_id", a),
		zap.Int64("drug2_id", b),
		zap.String("severity", rec.Severity.String()),
	)
	return nil
}
