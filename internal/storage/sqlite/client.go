package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/pkg/logger"
)

var ErrNotFound = errors.New("record not found")

type Client struct {
	db *sql.DB
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would otherwise see its own database.
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite catalog initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

// NewClientFromDB wraps an existing handle without touching pragmas.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS drugs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		canonical_name TEXT NOT NULL,
		generic_name TEXT NOT NULL,
		drug_class TEXT NOT NULL DEFAULT '',
		rxcui TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_drugs_generic ON drugs(generic_name);
	CREATE INDEX IF NOT EXISTS idx_drugs_class ON drugs(drug_class);

	CREATE TABLE IF NOT EXISTS drug_brand_names (
		drug_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		brand_name TEXT NOT NULL,
		PRIMARY KEY (drug_id, position),
		FOREIGN KEY (drug_id) REFERENCES drugs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		drug1_id INTEGER NOT NULL,
		drug2_id INTEGER NOT NULL,
		severity TEXT NOT NULL,
		interaction_type TEXT NOT NULL DEFAULT '',
		mechanism TEXT NOT NULL DEFAULT '',
		clinical_effect TEXT NOT NULL DEFAULT '',
		management TEXT NOT NULL DEFAULT '',
		evidence_level TEXT NOT NULL DEFAULT '',
		documentation_quality TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL DEFAULT '',
		onset TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		UNIQUE (drug1_id, drug2_id),
		CHECK (drug1_id <> drug2_id),
		FOREIGN KEY (drug1_id) REFERENCES drugs(id) ON DELETE CASCADE,
		FOREIGN KEY (drug2_id) REFERENCES drugs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_drug2 ON interactions(drug2_id);

	CREATE TABLE IF NOT EXISTS interaction_checks (
		id TEXT PRIMARY KEY,
		input_names TEXT NOT NULL,
		matched_count INTEGER NOT NULL,
		alert_count INTEGER NOT NULL,
		max_risk_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		latency_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_checks_created ON interaction_checks(created_at);
	`

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}
