package screening

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/extraction"
	"github.com/drug-interaction/backend/internal/external/rxnorm"
	"github.com/drug-interaction/backend/internal/interaction"
	"github.com/drug-interaction/backend/internal/kg/builder"
	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/metrics"
	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/logger"
	"github.com/drug-interaction/backend/pkg/utils"
)

type Catalog interface {
	ListAllDrugs(ctx context.Context) ([]models.DrugRecord, error)
	InsertCheck(ctx context.Context, rec *models.CheckRecord) error
	GetCheckHistory(ctx context.Context, limit int) ([]models.CheckRecord, error)
	Ping(ctx context.Context) error
}

type ReportCache interface {
	GetReport(ctx context.Context, key string, dest interface{}) (bool, error)
	SetReport(ctx context.Context, key string, report interface{}, ttl time.Duration) error
	InvalidateReports(ctx context.Context) error
}

type NameIndexer interface {
	IndexCatalog(ctx context.Context, drugs []models.DrugRecord) (int, error)
}

type GraphSyncer interface {
	Sync(ctx context.Context) (*builder.SyncStats, error)
}

// GraphGate is told whether the graph holds a complete copy of the catalog.
type GraphGate interface {
	SetReady(ready bool)
}

type ExternalLookup interface {
	Search(ctx context.Context, name string) ([]rxnorm.Concept, error)
}

// Options carries the optional collaborators. Nil fields disable the feature.
type Options struct {
	Cache     ReportCache
	CacheTTL  time.Duration
	Indexer   NameIndexer
	Graph     GraphSyncer
	// GraphGate keeps interaction lookups off the graph until a sync succeeds.
	GraphGate GraphGate
	External  ExternalLookup
}

type Service struct {
	catalog  Catalog
	indexes  *matching.IndexHolder
	resolver *matching.Resolver
	checker  *interaction.Checker
	opts     Options
}

type CheckResult struct {
	CheckID string `json:"check_id"`
	Cached  bool   `json:"cached"`
	interaction.Report
}

type ScanResult struct {
	Extracted []string     `json:"extracted"`
	Report    *CheckResult `json:"report"`
}

type LookupResult struct {
	Match    matching.DrugMatch `json:"match"`
	External []rxnorm.Concept   `json:"external"`
}

type ReloadResult struct {
	Version      uint64 `json:"version"`
	Drugs        int    `json:"drugs"`
	NamesIndexed int    `json:"names_indexed"`
	GraphSynced  bool   `json:"graph_synced"`
}

func NewService(catalog Catalog, indexes *matching.IndexHolder, resolver *matching.Resolver, checker *interaction.Checker, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Service{
		catalog:  catalog,
		indexes:  indexes,
		resolver: resolver,
		checker:  checker,
		opts:     opts,
	}
}

// Check screens names for interactions. Cache and history failures are
// logged and never fail the call.
func (s *Service) Check(ctx context.Context, names []string) (*CheckResult, error) {
	start := time.Now()

	var key string
	if idx := s.indexes.Current(); idx != nil && s.opts.Cache != nil {
		key = reportKey(idx.Version(), names)
		var cached CheckResult
		found, err := s.opts.Cache.GetReport(ctx, key, &cached)
		switch {
		case err != nil:
			logger.Warn("Report cache read failed", zap.Error(err))
		case found:
			metrics.CacheHits.WithLabelValues("report").Inc()
			metrics.CheckDuration.WithLabelValues("cached").Observe(time.Since(start).Seconds())
			cached.Cached = true
			return &cached, nil
		default:
			metrics.CacheMisses.WithLabelValues("report").Inc()
		}
	}

	report, err := s.checker.Check(ctx, names)
	if err != nil {
		metrics.CheckDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	result := &CheckResult{CheckID: uuid.NewString(), Report: *report}
	elapsed := time.Since(start)
	metrics.CheckDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	observeMatches(&matching.ResolveResult{Matches: report.Matches, Rejected: report.Rejected})
	for _, a := range report.Alerts {
		metrics.InteractionAlerts.WithLabelValues(a.Severity.String(), a.Source).Inc()
	}

	rec := &models.CheckRecord{
		ID:           result.CheckID,
		InputNames:   names,
		MatchedCount: matchedCount(report.Matches),
		AlertCount:   report.TotalInteractions,
		MaxRiskScore: report.MaxRiskScore,
		RiskLevel:    report.RiskLevel,
		LatencyMS:    elapsed.Milliseconds(),
		CreatedAt:    start,
	}
	if err := s.catalog.InsertCheck(ctx, rec); err != nil {
		logger.Warn("Failed to record check history", zap.String("check_id", rec.ID), zap.Error(err))
	}

	if s.opts.Cache != nil {
		key = reportKey(report.IndexVersion, names)
		if err := s.opts.Cache.SetReport(ctx, key, result, s.opts.CacheTTL); err != nil {
			logger.Warn("Report cache write failed", zap.Error(err))
		}
	}

	return result, nil
}

func (s *Service) Resolve(ctx context.Context, names []string) (*matching.ResolveResult, error) {
	res, err := s.resolver.Resolve(ctx, names)
	if err != nil {
		return nil, err
	}
	observeMatches(res)
	return res, nil
}

// ScanText extracts candidate names from free text and checks them. Candidates
// that match no drug are dropped from the report since most are label noise.
func (s *Service) ScanText(ctx context.Context, text string) (*ScanResult, error) {
	var known func(string) bool
	if idx := s.indexes.Current(); idx != nil {
		known = func(phrase string) bool {
			_, ok := idx.LookupName(phrase)
			return ok
		}
	}

	extracted, err := extraction.ExtractKnown(text, known)
	if err != nil {
		return nil, err
	}

	result, err := s.Check(ctx, extracted)
	if err != nil {
		return nil, err
	}

	matched := make([]matching.DrugMatch, 0, len(result.Matches))
	for _, m := range result.Matches {
		if m.Matched() {
			matched = append(matched, m)
		}
	}
	result.Matches = matched

	return &ScanResult{Extracted: extracted, Report: result}, nil
}

// Lookup resolves a single name and, when it is unmatched, asks the external
// drug database about it.
func (s *Service) Lookup(ctx context.Context, name string) (*LookupResult, error) {
	res, err := s.Resolve(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	if len(res.Rejected) > 0 {
		return nil, fmt.Errorf("%w: %s", matching.ErrInvalidInput, res.Rejected[0].Reason)
	}

	out := &LookupResult{Match: res.Matches[0], External: []rxnorm.Concept{}}
	if out.Match.Matched() || s.opts.External == nil {
		return out, nil
	}

	concepts, err := s.opts.External.Search(ctx, name)
	if err != nil {
		logger.Warn("External lookup failed", zap.String("name", name), zap.Error(err))
		return out, nil
	}
	out.External = concepts
	return out, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]models.CheckRecord, error) {
	return s.catalog.GetCheckHistory(ctx, limit)
}

// ReloadCatalog swaps in a fresh index, then refreshes the cached reports,
// the vector store and the graph. Only the index rebuild can fail the call.
func (s *Service) ReloadCatalog(ctx context.Context) (*ReloadResult, error) {
	idx, err := s.indexes.Rebuild(ctx, s.catalog)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interaction.ErrCatalogUnavailable, err)
	}
	metrics.IndexRebuilds.Inc()
	metrics.CatalogDrugs.Set(float64(idx.DrugCount()))

	result := &ReloadResult{Version: idx.Version(), Drugs: idx.DrugCount()}

	if s.opts.Cache != nil {
		if err := s.opts.Cache.InvalidateReports(ctx); err != nil {
			logger.Warn("Failed to invalidate report cache", zap.Error(err))
		}
	}

	if s.opts.Indexer != nil {
		n, err := s.opts.Indexer.IndexCatalog(ctx, idx.Drugs())
		if err != nil {
			logger.Warn("Failed to index catalog names", zap.Error(err))
		}
		result.NamesIndexed = n
	}

	if s.opts.Graph != nil {
		if _, err := s.opts.Graph.Sync(ctx); err != nil {
			logger.Warn("Failed to sync interaction graph, serving interactions from catalog", zap.Error(err))
		} else {
			result.GraphSynced = true
		}
		if s.opts.GraphGate != nil {
			s.opts.GraphGate.SetReady(result.GraphSynced)
		}
	}

	return result, nil
}

// Ready reports whether checks can be served.
func (s *Service) Ready(ctx context.Context) error {
	if s.indexes.Current() == nil {
		return matching.ErrIndexNotBuilt
	}
	return s.catalog.Ping(ctx)
}

func (s *Service) IndexVersion() uint64 {
	if idx := s.indexes.Current(); idx != nil {
		return idx.Version()
	}
	return 0
}

// ObserveDegraded is installed as matching.Config.OnDegraded.
func ObserveDegraded(method matching.Method, err error) {
	reason := "error"
	switch {
	case errors.Is(err, matching.ErrEmbeddingTimeout):
		reason = "timeout"
	case errors.Is(err, matching.ErrEmbeddingUnavailable):
		reason = "unavailable"
	}
	metrics.StrategyDegraded.WithLabelValues(string(method), reason).Inc()
}

func observeMatches(res *matching.ResolveResult) {
	metrics.ResolutionRejected.Add(float64(len(res.Rejected)))
	for _, m := range res.Matches {
		metrics.ResolutionTotal.WithLabelValues(string(m.Method)).Inc()
		if m.Matched() {
			metrics.MatchConfidence.Observe(m.Confidence)
		}
	}
}

func matchedCount(matches []matching.DrugMatch) int {
	n := 0
	for _, m := range matches {
		if m.Matched() {
			n++
		}
	}
	return n
}

// reportKey covers the raw names in order since reports echo inputs and
// their positions.
func reportKey(version uint64, names []string) string {
	parts := make([]string, 0, len(names)+1)
	parts = append(parts, fmt.Sprintf("v%d", version))
	parts = append(parts, names...)
	return utils.CacheKey(parts...)
}
