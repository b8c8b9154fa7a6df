package interaction

import (
	"sort"

	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/storage/models"
)

type Alert struct {
	Drug1          string          `json:"drug1"`
	Drug2          string          `json:"drug2"`
	Drug1ID        int64           `json:"drug1_id"`
	Drug2ID        int64           `json:"drug2_id"`
	Severity       models.Severity `json:"severity"`
	Confidence     float64         `json:"confidence"`
	RiskScore      float64         `json:"risk_score"`
	Description    string          `json:"description"`
	ClinicalEffect string          `json:"clinical_effect,omitempty"`
	Management     string          `json:"management"`
	Source         string          `json:"source"`
}

type SeverityBuckets struct {
	Critical []Alert `json:"critical"`
	Major    []Alert `json:"major"`
	Moderate []Alert `json:"moderate"`
	Minor    []Alert `json:"minor"`
}

type Report struct {
	Matches           []matching.DrugMatch  `json:"matches"`
	Rejected          []matching.InputError `json:"rejected"`
	Alerts            []Alert               `json:"alerts"`
	BySeverity        SeverityBuckets       `json:"by_severity"`
	TotalInteractions int                   `json:"total_interactions"`
	MaxRiskScore      float64               `json:"max_risk_score"`
	RiskLevel         string                `json:"risk_level"`
	Recommendations   []string              `json:"recommendations"`
	IndexVersion      uint64                `json:"index_version"`
}

func NewAlert(p Pair, f *Finding) Alert {
	conf := clamp01(p.Confidence())
	return Alert{
		Drug1:          p.A.MatchedName,
		Drug2:          p.B.MatchedName,
		Drug1ID:        *p.A.DrugID,
		Drug2ID:        *p.B.DrugID,
		Severity:       f.Record.Severity,
		Confidence:     conf,
		RiskScore:      RiskScore(&f.Record, conf),
		Description:    f.Record.Mechanism,
		ClinicalEffect: f.Record.ClinicalEffect,
		Management:     f.Record.Management,
		Source:         f.Source,
	}
}

// SortAlerts orders by severity then risk, both descending. Ties keep their
// pair order.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if si, sj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank(); si != sj {
			return si > sj
		}
		return alerts[i].RiskScore > alerts[j].RiskScore
	})
}

// Partition splits already sorted alerts by severity.
func Partition(alerts []Alert) SeverityBuckets {
	b := SeverityBuckets{
		Critical: []Alert{},
		Major:    []Alert{},
		Moderate: []Alert{},
		Minor:    []Alert{},
	}
	for _, a := range alerts {
		switch a.Severity {
		case models.SeverityCritical:
			b.Critical = append(b.Critical, a)
		case models.SeverityMajor:
			b.Major = append(b.Major, a)
		case models.SeverityModerate:
			b.Moderate = append(b.Moderate, a)
		case models.SeverityMinor:
			b.Minor = append(b.Minor, a)
		}
	}
	return b
}

func RiskLevel(maxRisk float64) string {
	switch {
	case maxRisk >= 0.8:
		return "high"
	case maxRisk >= 0.6:
		return "moderate"
	case maxRisk >= 0.3:
		return "low"
	default:
		return "minimal"
	}
}

func Recommendations(b SeverityBuckets, total int) []string {
	if total == 0 {
		return []string{"No significant drug interactions detected."}
	}

	var recs []string
	if len(b.Critical) > 0 {
		recs = append(recs, "URGENT: Critical drug interactions detected. Consult healthcare provider immediately.")
	}
	if len(b.Major) > 0 {
		recs = append(recs, "Important: Major drug interactions found. Medical review recommended.")
	}
	return append(recs,
		"Always inform your healthcare provider about all medications you are taking.",
		"Monitor for unusual symptoms or side effects.",
	)
}

// Aggregate sorts alerts in place and assembles the report summary.
func Aggregate(res *matching.ResolveResult, alerts []Alert) *Report {
	SortAlerts(alerts)

	maxRisk := 0.0
	for _, a := range alerts {
		if a.RiskScore > maxRisk {
			maxRisk = a.RiskScore
		}
	}

	buckets := Partition(alerts)
	return &Report{
		Matches:           res.Matches,
		Rejected:          res.Rejected,
		Alerts:            alerts,
		BySeverity:        buckets,
		TotalInteractions: len(alerts),
		MaxRiskScore:      maxRisk,
		RiskLevel:         RiskLevel(maxRisk),
		Recommendations:   Recommendations(buckets, len(alerts)),
		IndexVersion:      res.IndexVersion,
	}
}
