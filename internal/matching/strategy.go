package matching

import (
	"context"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Strategy proposes candidates for an already normalized name. Implementations
// must not mutate the index and must be safe for concurrent use.
type Strategy interface {
	Method() Method
	FindCandidates(ctx context.Context, name string, idx *CatalogIndex) ([]Candidate, error)
}

type ExactStrategy struct{}

func (ExactStrategy) Method() Method { return MethodExact }

func (ExactStrategy) FindCandidates(_ context.Context, name string, idx *CatalogIndex) ([]Candidate, error) {
	if _, ok := idx.Lookup(name); !ok {
		return nil, nil
	}
	return []Candidate{{Key: name, Confidence: 1.0, Method: MethodExact}}, nil
}

// FuzzyStrategy scores every catalog name by normalized Levenshtein ratio.
type FuzzyStrategy struct {
	Threshold float64
}

func (FuzzyStrategy) Method() Method { return MethodFuzzy }

func (s FuzzyStrategy) FindCandidates(ctx context.Context, name string, idx *CatalogIndex) ([]Candidate, error) {
	var out []Candidate
	for i, key := range idx.Names() {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if r := Ratio(name, key); r >= s.Threshold {
			out = append(out, Candidate{Key: key, Confidence: r, Method: MethodFuzzy})
		}
	}
	return out, nil
}

// Ratio is 1 - distance/max(len) over runes; identical strings score 1.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return clamp01(1 - float64(d)/float64(longest))
}

// VectorStrategy compares tf-idf n-gram vectors fit on the catalog corpus.
type VectorStrategy struct {
	Threshold float64
}

func (VectorStrategy) Method() Method { return MethodVector }

func (s VectorStrategy) FindCandidates(ctx context.Context, name string, idx *CatalogIndex) ([]Candidate, error) {
	q := idx.tfidf.transform(name)
	if len(q) == 0 {
		return nil, nil
	}

	var out []Candidate
	for i, doc := range idx.tfidf.docs {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if sim := clamp01(q.dot(doc)); sim >= s.Threshold {
			out = append(out, Candidate{Key: idx.keys[i], Confidence: sim, Method: MethodVector})
		}
	}
	return out, nil
}

func DefaultStrategies(cfg Config) []Strategy {
	return []Strategy{
		ExactStrategy{},
		FuzzyStrategy{Threshold: cfg.FuzzyThreshold},
		VectorStrategy{Threshold: cfg.VectorThreshold},
	}
}
