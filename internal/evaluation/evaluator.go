package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/pkg/logger"
)

type Resolver interface {
	Resolve(ctx context.Context, names []string) (*matching.ResolveResult, error)
}

// Evaluator scores the resolver against a labelled dataset.
type Evaluator struct {
	resolver Resolver
}

type Dataset struct {
	Items []DatasetItem `json:"items"`
}

// DatasetItem with a nil ExpectedDrugID should resolve to nothing.
type DatasetItem struct {
	Input          string `json:"input"`
	ExpectedDrugID *int64 `json:"expected_drug_id"`
	Category       string `json:"category,omitempty"`
}

type Outcome string

const (
	OutcomeCorrect       Outcome = "correct"
	OutcomeFalsePositive Outcome = "false_positive"
	OutcomeFalseNegative Outcome = "false_negative"
	OutcomeWrongDrug     Outcome = "wrong_drug"
)

type ItemResult struct {
	Item    DatasetItem        `json:"item"`
	Match   matching.DrugMatch `json:"match"`
	Outcome Outcome            `json:"outcome"`
}

type Report struct {
	Total                 int                     `json:"total"`
	Correct               int                     `json:"correct"`
	FalsePositives        int                     `json:"false_positives"`
	FalseNegatives        int                     `json:"false_negatives"`
	WrongDrug             int                     `json:"wrong_drug"`
	Accuracy              float64                 `json:"accuracy"`
	ByMethod              map[matching.Method]int `json:"by_method"`
	MeanCorrectConfidence float64                 `json:"mean_correct_confidence"`
	Failures              []ItemResult            `json:"failures"`
}

func NewEvaluator(resolver Resolver) *Evaluator {
	return &Evaluator{resolver: resolver}
}

func LoadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if len(ds.Items) == 0 {
		return nil, fmt.Errorf("dataset has no items")
	}
	return &ds, nil
}

// Run resolves each item on its own so batch deduplication cannot merge
// items that name the same drug.
func (e *Evaluator) Run(ctx context.Context, ds *Dataset) (*Report, error) {
	logger.Info("Running resolution evaluation", zap.Int("items", len(ds.Items)))

	report := &Report{
		Total:    len(ds.Items),
		ByMethod: make(map[matching.Method]int),
		Failures: make([]ItemResult, 0),
	}

	var confSum float64
	var matchedCorrect int
	for _, item := range ds.Items {
		res, err := e.resolver.Resolve(ctx, []string{item.Input})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", item.Input, err)
		}

		match := matching.Unmatched(item.Input)
		if len(res.Matches) > 0 {
			match = res.Matches[0]
		}

		result := ItemResult{Item: item, Match: match, Outcome: classify(item, match)}
		if match.Matched() {
			report.ByMethod[match.Method]++
		}

		switch result.Outcome {
		case OutcomeCorrect:
			report.Correct++
			if match.Matched() {
				confSum += match.Confidence
				matchedCorrect++
			}
		case OutcomeFalsePositive:
			report.FalsePositives++
		case OutcomeFalseNegative:
			report.FalseNegatives++
		case OutcomeWrongDrug:
			report.WrongDrug++
		}
		if result.Outcome != OutcomeCorrect {
			report.Failures = append(report.Failures, result)
		}
	}

	if report.Total > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Total)
	}
	if matchedCorrect > 0 {
		report.MeanCorrectConfidence = confSum / float64(matchedCorrect)
	}

	logger.Info("Resolution evaluation completed",
		zap.Int("total", report.Total),
		zap.Int("correct", report.Correct),
		zap.Float64("accuracy", report.Accuracy),
	)

	return report, nil
}

func classify(item DatasetItem, m matching.DrugMatch) Outcome {
	switch {
	case item.ExpectedDrugID == nil && !m.Matched():
		return OutcomeCorrect
	case item.ExpectedDrugID == nil:
		return OutcomeFalsePositive
	case !m.Matched():
		return OutcomeFalseNegative
	case *m.DrugID == *item.ExpectedDrugID:
		return OutcomeCorrect
	default:
		return OutcomeWrongDrug
	}
}

var methodOrder = []matching.Method{
	matching.MethodExact,
	matching.MethodFuzzy,
	matching.MethodVector,
	matching.MethodSemantic,
}

func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nResolution Evaluation Report\n")
	fmt.Fprintf(&b, "============================\n\n")
	fmt.Fprintf(&b, "Total Items: %d\n", r.Total)
	fmt.Fprintf(&b, "Correct: %d (%.1f%%)\n\n", r.Correct, r.Accuracy*100)

	fmt.Fprintf(&b, "Errors:\n")
	fmt.Fprintf(&b, "- False positives: %d\n", r.FalsePositives)
	fmt.Fprintf(&b, "- False negatives: %d\n", r.FalseNegatives)
	fmt.Fprintf(&b, "- Wrong drug: %d\n\n", r.WrongDrug)

	fmt.Fprintf(&b, "Winning Method:\n")
	for _, m := range methodOrder {
		fmt.Fprintf(&b, "- %s: %d\n", m, r.ByMethod[m])
	}

	fmt.Fprintf(&b, "\nMean confidence of correct matches: %.3f\n", r.MeanCorrectConfidence)

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\nFailures:\n")
		for _, f := range r.Failures {
			got := "unmatched"
			if f.Match.Matched() {
				got = fmt.Sprintf("%s (id %d, %s %.2f)", f.Match.MatchedName, *f.Match.DrugID, f.Match.Method, f.Match.Confidence)
			}
			want := "no match"
			if f.Item.ExpectedDrugID != nil {
				want = fmt.Sprintf("id %d", *f.Item.ExpectedDrugID)
			}
			fmt.Fprintf(&b, "- %q: %s, expected %s [%s]\n", f.Item.Input, got, want, f.Outcome)
		}
	}

	return b.String()
}
