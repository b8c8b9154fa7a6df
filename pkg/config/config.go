package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Zilliz     ZillizConfig
	Neo4j      Neo4jConfig
	LLM        LLMConfig
	RxNorm     RxNormConfig
	Matching   MatchingConfig
	RateLimit  RateLimitConfig
	Validation ValidationConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins string
	Environment    string
}

type SQLiteConfig struct {
	Path     string
	SeedPath string
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	CacheTTLSec int
}

type ZillizConfig struct {
	Enabled        bool
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type Neo4jConfig struct {
	Enabled  bool
	URI      string
	Username string
	Password string
	Database string
}

type LLMConfig struct {
	APIKey         string
	EmbeddingModel string
	EmbeddingDim   int
	TimeoutSec     int
}

type RxNormConfig struct {
	Enabled    bool
	BaseURL    string
	TimeoutSec int
}

// MatchingConfig mirrors matching.Config; cmd/api converts between them.
type MatchingConfig struct {
	FuzzyThreshold    float64
	VectorThreshold   float64
	ConfidenceFloor   float64
	SemanticEnabled   bool
	SemanticThreshold float64
	SemanticTimeoutMs int
	SemanticTopK      int
	Workers           int
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type ValidationConfig struct {
	MaxNames      int
	MaxNameLength int
	MaxTextLength int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/drug-interaction")

	return load(v)
}

// LoadFile reads an explicit config file; used by cmd/evaluate.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("DRUGINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	m := c.Matching
	for name, v := range map[string]float64{
		"matching.fuzzyThreshold":    m.FuzzyThreshold,
		"matching.vectorThreshold":   m.VectorThreshold,
		"matching.confidenceFloor":   m.ConfidenceFloor,
		"matching.semanticThreshold": m.SemanticThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("invalid config: %s must be within [0,1], got %v", name, v)
		}
	}
	if m.SemanticTimeoutMs <= 0 {
		return fmt.Errorf("invalid config: matching.semanticTimeoutMs must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", "*")
	v.SetDefault("server.environment", "production")

	v.SetDefault("sqlite.path", "./data/drugs.db")
	v.SetDefault("sqlite.seedPath", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cacheTTLSec", 600)

	v.SetDefault("zilliz.enabled", false)
	v.SetDefault("zilliz.endpoint", "localhost:19530")
	v.SetDefault("zilliz.collectionName", "drug_names")
	v.SetDefault("zilliz.vectorDim", 1536)

	v.SetDefault("neo4j.enabled", false)
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	v.SetDefault("llm.embeddingDim", 1536)
	v.SetDefault("llm.timeoutSec", 15)

	v.SetDefault("rxnorm.enabled", false)
	v.SetDefault("rxnorm.baseURL", "https://rxnav.nlm.nih.gov/REST")
	v.SetDefault("rxnorm.timeoutSec", 10)

	v.SetDefault("matching.fuzzyThreshold", 0.70)
	v.SetDefault("matching.vectorThreshold", 0.70)
	v.SetDefault("matching.confidenceFloor", 0.70)
	v.SetDefault("matching.semanticEnabled", false)
	v.SetDefault("matching.semanticThreshold", 0.70)
	v.SetDefault("matching.semanticTimeoutMs", 500)
	v.SetDefault("matching.semanticTopK", 5)
	v.SetDefault("matching.workers", 8)

	v.SetDefault("ratelimit.requestsPerMinute", 120)

	v.SetDefault("validation.maxNames", 50)
	v.SetDefault("validation.maxNameLength", 200)
	v.SetDefault("validation.maxTextLength", 20000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
