package screening

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/drug-interaction/backend/internal/external/rxnorm"
	"github.com/drug-interaction/backend/internal/interaction"
	"github.com/drug-interaction/backend/internal/kg/builder"
	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/internal/storage/sqlite"
)

const seedJSON = `{
  "drugs": [
    {"id": 1, "generic_name": "lisinopril", "brand_names": ["Zestril", "Prinivil"], "drug_class": "antihypertensive"},
    {"id": 2, "generic_name": "warfarin", "brand_names": ["Coumadin"], "drug_class": "anticoagulant"},
    {"id": 3, "generic_name": "aspirin", "brand_names": ["Bayer"], "drug_class": "nsaid"}
  ],
  "interactions": [
    {"drug1_id": 2, "drug2_id": 3, "severity": "major", "interaction_type": "pharmacodynamic",
     "mechanism": "additive bleeding risk", "clinical_effect": "increased bleeding",
     "management": "avoid combination", "evidence_level": "clinical_trial",
     "documentation_quality": "good", "source": "curated"}
  ]
}`

var errBoom = errors.New("boom")

type mockCache struct{ mock.Mock }

func (m *mockCache) GetReport(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) SetReport(ctx context.Context, key string, report interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, report, ttl).Error(0)
}

func (m *mockCache) InvalidateReports(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockIndexer struct{ mock.Mock }

func (m *mockIndexer) IndexCatalog(ctx context.Context, drugs []models.DrugRecord) (int, error) {
	args := m.Called(ctx, drugs)
	return args.Int(0), args.Error(1)
}

type mockGraph struct{ mock.Mock }

func (m *mockGraph) Sync(ctx context.Context) (*builder.SyncStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*builder.SyncStats)
	return stats, args.Error(1)
}

type mockExternal struct{ mock.Mock }

func (m *mockExternal) Search(ctx context.Context, name string) ([]rxnorm.Concept, error) {
	args := m.Called(ctx, name)
	concepts, _ := args.Get(0).([]rxnorm.Concept)
	return concepts, args.Error(1)
}

// failingLister lets a rebuild fail while checks still hit the real catalog.
type failingLister struct {
	*sqlite.Client
	fail bool
}

func (f *failingLister) ListAllDrugs(ctx context.Context) ([]models.DrugRecord, error) {
	if f.fail {
		return nil, errBoom
	}
	return f.Client.ListAllDrugs(ctx)
}

type fixture struct {
	catalog *failingLister
	holder  *matching.IndexHolder
	service *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	return newFixtureWithSource(t, opts, nil)
}

// newFixtureWithSource lets the test swap the interaction source; wrap
// receives the sqlite client and may also fill in opts.
func newFixtureWithSource(t *testing.T, opts Options, wrap func(*sqlite.Client, *Options) interaction.InteractionSource) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema(ctx))
	require.NoError(t, db.SeedFromJSON(ctx, strings.NewReader(seedJSON)))

	catalog := &failingLister{Client: db}
	holder := matching.NewIndexHolder()
	_, err = holder.Rebuild(ctx, catalog)
	require.NoError(t, err)

	cfg := matching.DefaultConfig()
	resolver := matching.NewResolver(holder, cfg, matching.DefaultStrategies(cfg)...)
	var source interaction.InteractionSource = db
	if wrap != nil {
		source = wrap(db, &opts)
	}
	checker := interaction.NewChecker(holder, resolver, interaction.NewLookup(source, db))

	return &fixture{
		catalog: catalog,
		holder:  holder,
		service: NewService(catalog, holder, resolver, checker, opts),
	}
}

func TestCheckRecordsHistory(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	res, err := f.service.Check(ctx, []string{"Coumadin", "aspirin", "lisinopril"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.CheckID)
	assert.False(t, res.Cached)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.SeverityMajor, res.Alerts[0].Severity)
	assert.Equal(t, interaction.SourceDatabase, res.Alerts[0].Source)

	history, err := f.service.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.CheckID, history[0].ID)
	assert.Equal(t, []string{"Coumadin", "aspirin", "lisinopril"}, history[0].InputNames)
	assert.Equal(t, 3, history[0].MatchedCount)
	assert.Equal(t, 1, history[0].AlertCount)
	assert.Equal(t, res.RiskLevel, history[0].RiskLevel)
}

func TestCheckServesCachedReport(t *testing.T) {
	cache := new(mockCache)
	f := newFixture(t, Options{Cache: cache})
	names := []string{"warfarin", "aspirin"}

	cache.On("GetReport", mock.Anything, reportKey(1, names), mock.AnythingOfType("*screening.CheckResult")).
		Run(func(args mock.Arguments) {
			dest := args.Get(2).(*CheckResult)
			dest.CheckID = "earlier"
			dest.RiskLevel = "low"
		}).
		Return(true, nil)

	res, err := f.service.Check(context.Background(), names)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, "earlier", res.CheckID)

	history, err := f.service.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	cache.AssertNotCalled(t, "SetReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckStoresReportOnMiss(t *testing.T) {
	cache := new(mockCache)
	f := newFixture(t, Options{Cache: cache, CacheTTL: time.Minute})
	names := []string{"warfarin", "aspirin"}
	key := reportKey(1, names)

	cache.On("GetReport", mock.Anything, key, mock.Anything).Return(false, nil)
	cache.On("SetReport", mock.Anything, key, mock.AnythingOfType("*screening.CheckResult"), time.Minute).Return(nil)

	res, err := f.service.Check(context.Background(), names)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, res.Alerts, 1)
	cache.AssertExpectations(t)
}

func TestCheckIgnoresCacheFailures(t *testing.T) {
	cache := new(mockCache)
	f := newFixture(t, Options{Cache: cache})

	cache.On("GetReport", mock.Anything, mock.Anything, mock.Anything).Return(false, errBoom)
	cache.On("SetReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errBoom)

	res, err := f.service.Check(context.Background(), []string{"warfarin", "aspirin"})
	require.NoError(t, err)
	assert.Len(t, res.Alerts, 1)
}

func TestReportKeyFollowsInputOrder(t *testing.T) {
	assert.NotEqual(t, reportKey(1, []string{"a", "b"}), reportKey(1, []string{"b", "a"}))
	assert.NotEqual(t, reportKey(1, []string{"a"}), reportKey(2, []string{"a"}))
	assert.Equal(t, reportKey(3, []string{"a", "b"}), reportKey(3, []string{"a", "b"}))
}

func TestCheckWithoutIndex(t *testing.T) {
	f := newFixture(t, Options{})
	f.holder.Store(nil)

	_, err := f.service.Check(context.Background(), []string{"warfarin", "aspirin"})
	assert.ErrorIs(t, err, interaction.ErrCatalogUnavailable)
	assert.ErrorIs(t, f.service.Ready(context.Background()), matching.ErrIndexNotBuilt)
}

func TestScanTextDropsUnmatchedCandidates(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.service.ScanText(context.Background(), "Patient takes Coumadin daily and Bayer aspirin for pain, also Zyxqor.")
	require.NoError(t, err)
	assert.Contains(t, res.Extracted, "Coumadin")
	assert.Contains(t, res.Extracted, "Zyxqor")

	for _, m := range res.Report.Matches {
		assert.True(t, m.Matched(), m.InputName)
	}
	require.Len(t, res.Report.Alerts, 1)
	assert.Equal(t, "Coumadin", res.Report.Alerts[0].Drug1)
}

func TestScanTextJoinsTwoWordCatalogNames(t *testing.T) {
	f := newFixture(t, Options{})
	drugs := append(f.holder.Current().Drugs(), models.DrugRecord{
		ID: 4, CanonicalName: "Insulin Glargine", GenericName: "insulin glargine", BrandNames: []string{"Lantus"}, DrugClass: "insulin",
	})
	f.holder.Store(matching.BuildIndex(drugs, 7))

	res, err := f.service.ScanText(context.Background(), "Insulin glargine at bedtime with warfarin.")
	require.NoError(t, err)
	assert.Contains(t, res.Extracted, "Insulin glargine")
	assert.NotContains(t, res.Extracted, "Insulin")
	assert.NotContains(t, res.Extracted, "glargine")

	ids := make([]int64, 0, len(res.Report.Matches))
	for _, m := range res.Report.Matches {
		ids = append(ids, *m.DrugID)
	}
	assert.ElementsMatch(t, []int64{4, 2}, ids)
}

func TestLookupMatched(t *testing.T) {
	external := new(mockExternal)
	f := newFixture(t, Options{External: external})

	res, err := f.service.Lookup(context.Background(), "Zestril")
	require.NoError(t, err)
	require.True(t, res.Match.Matched())
	assert.Equal(t, int64(1), *res.Match.DrugID)
	assert.Empty(t, res.External)
	external.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestLookupFallsBackToExternal(t *testing.T) {
	external := new(mockExternal)
	external.On("Search", mock.Anything, "atorvastatin").
		Return([]rxnorm.Concept{{RxCUI: "83367", Name: "atorvastatin", TTY: "IN"}}, nil)
	f := newFixture(t, Options{External: external})

	res, err := f.service.Lookup(context.Background(), "atorvastatin")
	require.NoError(t, err)
	assert.False(t, res.Match.Matched())
	require.Len(t, res.External, 1)
	assert.Equal(t, "83367", res.External[0].RxCUI)
}

func TestLookupExternalFailureIsSoft(t *testing.T) {
	external := new(mockExternal)
	external.On("Search", mock.Anything, mock.Anything).Return(nil, errBoom)
	f := newFixture(t, Options{External: external})

	res, err := f.service.Lookup(context.Background(), "atorvastatin")
	require.NoError(t, err)
	assert.Empty(t, res.External)
}

func TestLookupRejectsInvalidName(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.service.Lookup(context.Background(), "10mg")
	assert.ErrorIs(t, err, matching.ErrInvalidInput)
}

func TestReloadCatalogRefreshesEverything(t *testing.T) {
	cache := new(mockCache)
	indexer := new(mockIndexer)
	graph := new(mockGraph)
	f := newFixture(t, Options{Cache: cache, Indexer: indexer, Graph: graph})

	cache.On("InvalidateReports", mock.Anything).Return(nil)
	indexer.On("IndexCatalog", mock.Anything, mock.MatchedBy(func(drugs []models.DrugRecord) bool {
		return len(drugs) == 3 && drugs[0].ID == 1
	})).Return(7, nil)
	graph.On("Sync", mock.Anything).Return(&builder.SyncStats{Drugs: 3, Interactions: 1}, nil)

	res, err := f.service.ReloadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ReloadResult{Version: 2, Drugs: 3, NamesIndexed: 7, GraphSynced: true}, res)
	assert.Equal(t, uint64(2), f.service.IndexVersion())

	cache.AssertExpectations(t)
	indexer.AssertExpectations(t)
	graph.AssertExpectations(t)
}

func TestReloadCatalogBestEffortSideEffects(t *testing.T) {
	indexer := new(mockIndexer)
	graph := new(mockGraph)
	f := newFixture(t, Options{Indexer: indexer, Graph: graph})

	indexer.On("IndexCatalog", mock.Anything, mock.Anything).Return(0, errBoom)
	graph.On("Sync", mock.Anything).Return(nil, errBoom)

	res, err := f.service.ReloadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Version)
	assert.False(t, res.GraphSynced)
	assert.Zero(t, res.NamesIndexed)
}

// emptyGraph stands in for a graph that was never populated.
type emptyGraph struct{ calls atomic.Int32 }

func (g *emptyGraph) GetInteraction(context.Context, int64, int64) (*models.InteractionRecord, error) {
	g.calls.Add(1)
	return nil, nil
}

func TestFailedGraphSyncFallsBackToCatalog(t *testing.T) {
	graph := new(mockGraph)
	empty := &emptyGraph{}
	var gated *interaction.GatedSource
	f := newFixtureWithSource(t, Options{Graph: graph}, func(db *sqlite.Client, opts *Options) interaction.InteractionSource {
		gated = interaction.NewGatedSource(empty, db)
		opts.GraphGate = gated
		return gated
	})

	graph.On("Sync", mock.Anything).Return(nil, errBoom).Once()
	res, err := f.service.ReloadCatalog(context.Background())
	require.NoError(t, err)
	assert.False(t, res.GraphSynced)
	assert.False(t, gated.Ready())

	check, err := f.service.Check(context.Background(), []string{"warfarin", "aspirin"})
	require.NoError(t, err)
	require.Len(t, check.Alerts, 1)
	assert.Equal(t, models.SeverityMajor, check.Alerts[0].Severity)
	assert.Zero(t, empty.calls.Load())

	graph.On("Sync", mock.Anything).Return(&builder.SyncStats{}, nil).Once()
	res, err = f.service.ReloadCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, res.GraphSynced)
	assert.True(t, gated.Ready())

	_, err = f.service.Check(context.Background(), []string{"lisinopril", "aspirin"})
	require.NoError(t, err)
	assert.Positive(t, empty.calls.Load())
	graph.AssertExpectations(t)
}

func TestReloadCatalogFailureKeepsIndex(t *testing.T) {
	f := newFixture(t, Options{})
	f.catalog.fail = true

	_, err := f.service.ReloadCatalog(context.Background())
	assert.ErrorIs(t, err, interaction.ErrCatalogUnavailable)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, uint64(1), f.service.IndexVersion())
	assert.NoError(t, f.service.Ready(context.Background()))
}

func TestObserveDegradedAcceptsEveryReason(t *testing.T) {
	assert.NotPanics(t, func() {
		ObserveDegraded(matching.MethodSemantic, matching.ErrEmbeddingTimeout)
		ObserveDegraded(matching.MethodSemantic, matching.ErrEmbeddingUnavailable)
		ObserveDegraded(matching.MethodFuzzy, errBoom)
	})
}
