package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/circuitbreaker"
	"github.com/drug-interaction/backend/pkg/logger"
	"github.com/drug-interaction/backend/pkg/retry"
)

// Client mirrors the catalog as (:Drug)-[:INTERACTS_WITH]-(:Drug).
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	cb       *circuitbreaker.Breaker
	policy   retry.Policy
}

func NewClient(uri, username, password, database string) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		uri,
		neo4j.BasicAuth(username, password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity: %w", err)
	}

	cb := circuitbreaker.New("neo4j", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		CoolDown:         20 * time.Second,
		Logger:           logger.GetLogger(),
	})

	policy := retry.Policy{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if database == "" {
		database = "neo4j"
	}

	logger.Info("Neo4j client initialized", zap.String("uri", uri), zap.String("database", database))

	return &Client{
		driver:   driver,
		database: database,
		cb:       cb,
		policy:   policy,
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Client) executeWithRetry(ctx context.Context, operation func(ctx context.Context, session neo4j.SessionWithContext) error) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return c.cb.Execute(func() error {
		return retry.Do(ctx, c.policy, func(ctx context.Context) error {
			session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
			defer session.Close(ctx)
			return operation(ctx, session)
		})
	})
}

func (c *Client) EnsureConstraints(ctx context.Context) error {
	return c.executeWithRetry(ctx, func(ctx context.Context, session neo4j.SessionWithContext) error {
		_, err := session.Run(ctx, `CREATE CONSTRAINT drug_id IF NOT EXISTS FOR (d:Drug) REQUIRE d.id IS UNIQUE`, nil)
		if err != nil {
			return fmt.Errorf("failed to create drug constraint: %w", err)
		}
		return nil
	})
}

func (c *Client) UpsertDrugs(ctx context.Context, drugs []models.DrugRecord) error {
	if len(drugs) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, len(drugs))
	for i, d := range drugs {
		rows[i] = drugParams(d)
	}

	err := c.executeWithRetry(ctx, func(ctx context.Context, session neo4j.SessionWithContext) error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			_, err := tx.Run(ctx, `
				UNWIND $drugs AS drug
				MERGE (d:Drug {id: drug.id})
				SET d.name = drug.name,
				    d.generic_name = drug.generic_name,
				    d.brand_names = drug.brand_names,
				    d.drug_class = drug.drug_class,
				    d.updated_at = timestamp()
			`, map[string]interface{}{"drugs": rows})
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to upsert drugs: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Drugs written to KG", zap.Int("count", len(drugs)))
	return nil
}

func (c *Client) UpsertInteractions(ctx context.Context, interactions []models.InteractionRecord) error {
	if len(interactions) == 0 {
		return nil
	}

	rows := make([]map[string]interface{}, len(interactions))
	for i, rec := range interactions {
		rows[i] = interactionParams(rec)
	}

	err := c.executeWithRetry(ctx, func(ctx context.Context, session neo4j.SessionWithContext) error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			_, err := tx.Run(ctx, `
				UNWIND $interactions AS ix
				MATCH (a:Drug {id: ix.drug1_id})
				MATCH (b:Drug {id: ix.drug2_id})
				MERGE (a)-[r:INTERACTS_WITH]->(b)
				SET r += ix, r.updated_at = timestamp()
			`, map[string]interface{}{"interactions": rows})
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to upsert interactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Debug("Interactions written to KG", zap.Int("count", len(interactions)))
	return nil
}

// GetInteraction matches the relationship in either direction and returns nil
// when the drugs are not connected.
func (c *Client) GetInteraction(ctx context.Context, drug1ID, drug2ID int64) (*models.InteractionRecord, error) {
	var rec *models.InteractionRecord

	err := c.executeWithRetry(ctx, func(ctx context.Context, session neo4j.SessionWithContext) error {
		out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			result, err := tx.Run(ctx, `
				MATCH (:Drug {id: $a})-[r:INTERACTS_WITH]-(:Drug {id: $b})
				RETURN properties(r) AS props
				ORDER BY r.id
				LIMIT 1
			`, map[string]interface{}{"a": drug1ID, "b": drug2ID})
			if err != nil {
				return nil, err
			}
			if !result.Next(ctx) {
				return nil, result.Err()
			}
			props, _ := result.Record().Get("props")
			m, _ := props.(map[string]interface{})
			return interactionFromProps(m)
		})
		if err != nil {
			return fmt.Errorf("failed to get interaction: %w", err)
		}
		rec, _ = out.(*models.InteractionRecord)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func drugParams(d models.DrugRecord) map[string]interface{} {
	brands := d.BrandNames
	if brands == nil {
		brands = []string{}
	}
	return map[string]interface{}{
		"id":           d.ID,
		"name":         d.CanonicalName,
		"generic_name": d.GenericName,
		"brand_names":  brands,
		"drug_class":   d.DrugClass,
	}
}

func interactionParams(rec models.InteractionRecord) map[string]interface{} {
	lo, hi := rec.Drug1ID, rec.Drug2ID
	if lo > hi {
		lo, hi = hi, lo
	}
	return map[string]interface{}{
		"id":                    rec.ID,
		"drug1_id":              lo,
		"drug2_id":              hi,
		"severity":              rec.Severity.String(),
		"interaction_type":      rec.InteractionType,
		"mechanism":             rec.Mechanism,
		"clinical_effect":       rec.ClinicalEffect,
		"management":            rec.Management,
		"evidence_level":        rec.EvidenceLevel.String(),
		"documentation_quality": rec.DocumentationQuality.String(),
		"frequency":             string(rec.Frequency),
		"onset":                 string(rec.Onset),
		"source":                rec.Source,
	}
}

func interactionFromProps(p map[string]interface{}) (*models.InteractionRecord, error) {
	str := func(k string) string {
		s, _ := p[k].(string)
		return s
	}
	num := func(k string) int64 {
		n, _ := p[k].(int64)
		return n
	}

	severity, err := models.ParseSeverity(str("severity"))
	if err != nil {
		return nil, err
	}
	evidence, err := models.ParseEvidenceLevel(str("evidence_level"))
	if err != nil {
		return nil, err
	}
	doc, err := models.ParseDocumentationQuality(str("documentation_quality"))
	if err != nil {
		return nil, err
	}
	freq, err := models.ParseFrequency(str("frequency"))
	if err != nil {
		return nil, err
	}
	onset, err := models.ParseOnset(str("onset"))
	if err != nil {
		return nil, err
	}

	return &models.InteractionRecord{
		ID:                   num("id"),
		Drug1ID:              num("drug1_id"),
		Drug2ID:              num("drug2_id"),
		Severity:             severity,
		InteractionType:      str("interaction_type"),
		Mechanism:            str("mechanism"),
		ClinicalEffect:       str("clinical_effect"),
		Management:           str("management"),
		EvidenceLevel:        evidence,
		DocumentationQuality: doc,
		Frequency:            freq,
		Onset:                onset,
		Source:               str("source"),
	}, nil
}
