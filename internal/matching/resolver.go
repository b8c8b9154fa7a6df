package matching

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drug-interaction/backend/pkg/logger"
)

type IndexSource interface {
	Current() *CatalogIndex
}

type Resolver struct {
	indexes    IndexSource
	strategies []Strategy
	cfg        Config
}

// NewResolver uses DefaultStrategies when none are given.
func NewResolver(indexes IndexSource, cfg Config, strategies ...Strategy) *Resolver {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(cfg)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	return &Resolver{indexes: indexes, strategies: strategies, cfg: cfg}
}

func (r *Resolver) Config() Config { return r.cfg }

// Resolve matches every raw name against one index snapshot. Names that fail
// normalization are reported in Rejected; matches resolving to the same drug
// collapse to the most confident one, kept at its input position.
func (r *Resolver) Resolve(ctx context.Context, raw []string) (*ResolveResult, error) {
	idx := r.indexes.Current()
	if idx == nil {
		return nil, ErrIndexNotBuilt
	}
	return r.ResolveWith(ctx, idx, raw)
}

func (r *Resolver) ResolveWith(ctx context.Context, idx *CatalogIndex, raw []string) (*ResolveResult, error) {
	result := &ResolveResult{
		Matches:      make([]DrugMatch, 0, len(raw)),
		Rejected:     make([]InputError, 0),
		IndexVersion: idx.Version(),
	}

	normalized := make([]string, len(raw))
	valid := make([]bool, len(raw))
	for i, name := range raw {
		n, err := Normalize(name)
		if err != nil {
			result.Rejected = append(result.Rejected, InputError{Input: name, Position: i, Reason: err.Error()})
			continue
		}
		normalized[i] = n
		valid[i] = true
	}

	resolved := make([]DrugMatch, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := range raw {
		if !valid[i] {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resolved[i] = r.resolveOne(gctx, raw[i], normalized[i], idx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keep := make([]bool, len(raw))
	bestFor := make(map[int64]int)
	for i := range raw {
		if !valid[i] {
			continue
		}
		m := resolved[i]
		if !m.Matched() {
			keep[i] = true
			continue
		}
		prev, seen := bestFor[*m.DrugID]
		if !seen {
			bestFor[*m.DrugID] = i
			keep[i] = true
			continue
		}
		if m.Confidence > resolved[prev].Confidence {
			keep[prev] = false
			keep[i] = true
			bestFor[*m.DrugID] = i
		}
	}
	for i := range raw {
		if keep[i] {
			result.Matches = append(result.Matches, resolved[i])
		}
	}

	return result, nil
}

func (r *Resolver) resolveOne(ctx context.Context, input, name string, idx *CatalogIndex) DrugMatch {
	results := make([][]Candidate, len(r.strategies))

	var wg sync.WaitGroup
	for i, s := range r.strategies {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()
			candidates, err := s.FindCandidates(ctx, name, idx)
			if err != nil {
				r.degraded(s.Method(), name, err)
				return
			}
			results[i] = candidates
		}(i, s)
	}
	wg.Wait()

	var all []Candidate
	for _, c := range results {
		all = append(all, c...)
	}

	match := Rank(input, all, idx, r.cfg.ConfidenceFloor)
	logger.Debug("Drug name resolved",
		zap.String("input", input),
		zap.String("normalized", name),
		zap.String("matched", match.MatchedName),
		zap.String("method", string(match.Method)),
		zap.Float64("confidence", match.Confidence),
	)
	return match
}

func (r *Resolver) degraded(method Method, name string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.Warn("Match strategy contributed no candidates",
		zap.String("strategy", string(method)),
		zap.String("name", name),
		zap.Error(err),
	)
	if r.cfg.OnDegraded != nil {
		r.cfg.OnDegraded(method, err)
	}
}
