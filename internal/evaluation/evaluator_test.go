package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/storage/models"
)

const datasetJSON = `{"items": [
  {"input": "Lisinopril", "expected_drug_id": 1},
  {"input": "Lisinoprill", "expected_drug_id": 1},
  {"input": "COUMADIN 5mg", "expected_drug_id": 2},
  {"input": "Zestril", "expected_drug_id": 2},
  {"input": "asprin", "expected_drug_id": 3},
  {"input": "xylophonium", "expected_drug_id": null},
  {"input": "warfarn", "expected_drug_id": null},
  {"input": "zzqq", "expected_drug_id": 3}
]}`

func newResolver() *matching.Resolver {
	idx := matching.BuildIndex([]models.DrugRecord{
		{ID: 1, GenericName: "lisinopril", BrandNames: []string{"Zestril"}},
		{ID: 2, GenericName: "warfarin", BrandNames: []string{"Coumadin"}},
		{ID: 3, GenericName: "aspirin"},
	}, 1)
	holder := matching.NewIndexHolder()
	holder.Store(idx)

	cfg := matching.DefaultConfig()
	return matching.NewResolver(holder, cfg, matching.DefaultStrategies(cfg)...)
}

func TestLoadDataset(t *testing.T) {
	ds, err := LoadDataset(strings.NewReader(datasetJSON))
	require.NoError(t, err)
	require.Len(t, ds.Items, 8)
	assert.Nil(t, ds.Items[5].ExpectedDrugID)
	assert.Equal(t, int64(2), *ds.Items[2].ExpectedDrugID)

	_, err = LoadDataset(strings.NewReader(`{"items": []}`))
	assert.Error(t, err)
	_, err = LoadDataset(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	ds, err := LoadDataset(strings.NewReader(datasetJSON))
	require.NoError(t, err)

	report, err := NewEvaluator(newResolver()).Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 8, report.Total)
	assert.Equal(t, 5, report.Correct)
	assert.Equal(t, 1, report.WrongDrug)
	assert.Equal(t, 1, report.FalsePositives)
	assert.Equal(t, 1, report.FalseNegatives)
	assert.InDelta(t, 5.0/8.0, report.Accuracy, 1e-9)
	assert.Equal(t, 3, report.ByMethod[matching.MethodExact])
	assert.Equal(t, 3, report.ByMethod[matching.MethodFuzzy])
	assert.Greater(t, report.MeanCorrectConfidence, 0.7)
	assert.LessOrEqual(t, report.MeanCorrectConfidence, 1.0)

	require.Len(t, report.Failures, 3)
	assert.Equal(t, "Zestril", report.Failures[0].Item.Input)
	assert.Equal(t, OutcomeWrongDrug, report.Failures[0].Outcome)
	assert.Equal(t, OutcomeFalsePositive, report.Failures[1].Outcome)
	assert.Equal(t, OutcomeFalseNegative, report.Failures[2].Outcome)

	text := report.Render()
	assert.Contains(t, text, "Correct: 5 (62.5%)")
	assert.Contains(t, text, "- fuzzy: 3")
	assert.Contains(t, text, `"warfarn": warfarin (id 2, fuzzy`)
	assert.Contains(t, text, `"zzqq": unmatched, expected id 3 [false_negative]`)
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, []string) (*matching.ResolveResult, error) {
	return nil, matching.ErrIndexNotBuilt
}

func TestRunStopsOnResolverError(t *testing.T) {
	_, err := NewEvaluator(failingResolver{}).Run(context.Background(), &Dataset{Items: []DatasetItem{{Input: "a"}}})
	assert.True(t, errors.Is(err, matching.ErrIndexNotBuilt))
}

func TestClassify(t *testing.T) {
	id := int64(4)
	other := int64(5)
	matched := matching.DrugMatch{DrugID: &id}

	assert.Equal(t, OutcomeCorrect, classify(DatasetItem{}, matching.Unmatched("x")))
	assert.Equal(t, OutcomeFalsePositive, classify(DatasetItem{}, matched))
	assert.Equal(t, OutcomeFalseNegative, classify(DatasetItem{ExpectedDrugID: &id}, matching.Unmatched("x")))
	assert.Equal(t, OutcomeCorrect, classify(DatasetItem{ExpectedDrugID: &id}, matched))
	assert.Equal(t, OutcomeWrongDrug, classify(DatasetItem{ExpectedDrugID: &other}, matched))
}
