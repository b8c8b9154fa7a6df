package interaction

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/pkg/logger"
)

const lookupWorkers = 8

// Checker resolves raw names and screens every matched pair.
type Checker struct {
	indexes  matching.IndexSource
	resolver *matching.Resolver
	lookup   *Lookup
}

func NewChecker(indexes matching.IndexSource, resolver *matching.Resolver, lookup *Lookup) *Checker {
	return &Checker{indexes: indexes, resolver: resolver, lookup: lookup}
}

// Check composes resolve, pair, lookup, score and aggregate against a single
// index snapshot. A catalog failure aborts the whole call with an error
// wrapping ErrCatalogUnavailable; an empty alert list means nothing was found.
func (c *Checker) Check(ctx context.Context, raw []string) (*Report, error) {
	idx := c.indexes.Current()
	if idx == nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, matching.ErrIndexNotBuilt)
	}

	res, err := c.resolver.ResolveWith(ctx, idx, raw)
	if err != nil {
		return nil, err
	}

	pairs := GeneratePairs(res.Matches)
	findings := make([]*Finding, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupWorkers)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			f, err := c.lookup.Find(gctx, p, idx)
			if err != nil {
				return err
			}
			findings[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Error("Interaction lookup failed", zap.Error(err))
		return nil, err
	}

	alerts := make([]Alert, 0, len(pairs))
	for i, f := range findings {
		if f != nil {
			alerts = append(alerts, NewAlert(pairs[i], f))
		}
	}

	report := Aggregate(res, alerts)
	logger.Info("Interaction check complete",
		zap.Int("inputs", len(raw)),
		zap.Int("matched", len(res.Matches)),
		zap.Int("pairs", len(pairs)),
		zap.Int("alerts", report.TotalInteractions),
		zap.Float64("max_risk", report.MaxRiskScore),
	)
	return report, nil
}
