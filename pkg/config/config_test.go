package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.70, cfg.Matching.FuzzyThreshold)
	assert.Equal(t, 0.70, cfg.Matching.VectorThreshold)
	assert.Equal(t, 0.70, cfg.Matching.ConfidenceFloor)
	assert.Equal(t, 500, cfg.Matching.SemanticTimeoutMs)
	assert.False(t, cfg.Neo4j.Enabled)
	assert.Equal(t, "drug_names", cfg.Zilliz.CollectionName)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DRUGINT_MATCHING_FUZZYTHRESHOLD", "0.85")
	t.Setenv("DRUGINT_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.85, cfg.Matching.FuzzyThreshold)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yaml")
	content := []byte("sqlite:\n  path: /tmp/catalog.db\nmatching:\n  confidenceFloor: 0.8\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/catalog.db", cfg.SQLite.Path)
	assert.Equal(t, 0.8, cfg.Matching.ConfidenceFloor)
	assert.Equal(t, 0.70, cfg.Matching.FuzzyThreshold)
}

func TestLoadRejectsOutOfRangeThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matching:\n  vectorThreshold: 1.5\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matching.vectorThreshold")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
