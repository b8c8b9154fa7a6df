package matching

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NameHit is a vector store neighbour of a query embedding. Score is a
// cosine similarity.
type NameHit struct {
	Name   string
	DrugID int64
	Score  float32
}

type NameSearcher interface {
	SearchNames(ctx context.Context, embedding []float32, topK int) ([]NameHit, error)
}

// DisabledEmbedder always reports the capability as unavailable.
type DisabledEmbedder struct{}

func (DisabledEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrEmbeddingUnavailable
}

// SemanticStrategy embeds the query and asks the vector store for neighbours.
// The whole call is bounded by Timeout even if the backend ignores ctx.
type SemanticStrategy struct {
	embedder  Embedder
	searcher  NameSearcher
	threshold float64
	timeout   time.Duration
	topK      int
}

func NewSemanticStrategy(embedder Embedder, searcher NameSearcher, cfg Config) *SemanticStrategy {
	timeout := cfg.SemanticTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().SemanticTimeout
	}
	topK := cfg.SemanticTopK
	if topK <= 0 {
		topK = DefaultConfig().SemanticTopK
	}
	return &SemanticStrategy{
		embedder:  embedder,
		searcher:  searcher,
		threshold: cfg.SemanticThreshold,
		timeout:   timeout,
		topK:      topK,
	}
}

func (*SemanticStrategy) Method() Method { return MethodSemantic }

type semanticResult struct {
	hits []NameHit
	err  error
}

func (s *SemanticStrategy) FindCandidates(ctx context.Context, name string, idx *CatalogIndex) ([]Candidate, error) {
	if s.embedder == nil || s.searcher == nil {
		return nil, ErrEmbeddingUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan semanticResult, 1)
	go func() {
		vec, err := s.embedder.Embed(ctx, name)
		if err != nil {
			done <- semanticResult{err: err}
			return
		}
		hits, err := s.searcher.SearchNames(ctx, vec, s.topK)
		done <- semanticResult{hits: hits, err: err}
	}()

	var res semanticResult
	select {
	case <-ctx.Done():
		return nil, s.classify(ctx, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return nil, s.classify(ctx, res.err)
	}

	var out []Candidate
	for _, hit := range res.hits {
		key := indexKey(hit.Name)
		rec, ok := idx.Lookup(key)
		// Stale vector rows for names that left the catalog are ignored.
		if !ok || rec.ID != hit.DrugID {
			continue
		}
		if conf := clamp01(float64(hit.Score)); conf >= s.threshold {
			out = append(out, Candidate{Key: key, Confidence: conf, Method: MethodSemantic})
		}
	}
	return out, nil
}

func (s *SemanticStrategy) classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrEmbeddingTimeout) || errors.Is(err, ErrEmbeddingUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrEmbeddingTimeout, s.timeout)
	}
	return fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
}
