package matching

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput         = errors.New("invalid drug name")
	ErrIndexNotBuilt        = errors.New("catalog index has not been built")
	ErrEmbeddingUnavailable = errors.New("embedding capability unavailable")
	ErrEmbeddingTimeout     = errors.New("embedding capability timed out")
)

type Method string

const (
	MethodExact    Method = "exact"
	MethodFuzzy    Method = "fuzzy"
	MethodVector   Method = "vector"
	MethodSemantic Method = "semantic"
	MethodNone     Method = "none"
)

// Priority orders methods for tie-breaks; lower wins.
func (m Method) Priority() int {
	switch m {
	case MethodExact:
		return 0
	case MethodFuzzy:
		return 1
	case MethodVector:
		return 2
	case MethodSemantic:
		return 3
	default:
		return 4
	}
}

// Candidate is one strategy's proposal. Key is the normalized catalog name
// and resolves to a drug through CatalogIndex.Lookup.
type Candidate struct {
	Key        string
	Confidence float64
	Method     Method
}

type DrugMatch struct {
	InputName   string   `json:"input_name"`
	MatchedName string   `json:"matched_name"`
	Confidence  float64  `json:"confidence"`
	DrugID      *int64   `json:"drug_id"`
	Method      Method   `json:"method"`
	GenericName string   `json:"generic_name,omitempty"`
	BrandNames  []string `json:"brand_names,omitempty"`
}

func (m DrugMatch) Matched() bool { return m.DrugID != nil }

// InputError reports a raw name excluded from the batch.
type InputError struct {
	Input    string `json:"input"`
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

type ResolveResult struct {
	Matches      []DrugMatch  `json:"matches"`
	Rejected     []InputError `json:"rejected"`
	IndexVersion uint64       `json:"index_version"`
}

type Config struct {
	FuzzyThreshold    float64
	VectorThreshold   float64
	ConfidenceFloor   float64
	SemanticThreshold float64
	SemanticTimeout   time.Duration
	SemanticTopK      int
	Workers           int
	// OnDegraded is called when a strategy contributes nothing because of an error.
	OnDegraded func(method Method, err error)
}

func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:    0.70,
		VectorThreshold:   0.70,
		ConfidenceFloor:   0.70,
		SemanticThreshold: 0.70,
		SemanticTimeout:   500 * time.Millisecond,
		SemanticTopK:      5,
		Workers:           8,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
