package models

import (
	"fmt"
	"strings"
	"time"
)

type DrugRecord struct {
	ID            int64    `json:"id"`
	CanonicalName string   `json:"canonical_name"`
	GenericName   string   `json:"generic_name"`
	BrandNames    []string `json:"brand_names"`
	DrugClass     string   `json:"drug_class,omitempty"`
	RxCUI         string   `json:"rxcui,omitempty"`
}

// Names returns the generic name followed by brand names, skipping blanks.
func (d *DrugRecord) Names() []string {
	names := make([]string, 0, len(d.BrandNames)+1)
	if d.GenericName != "" {
		names = append(names, d.GenericName)
	}
	for _, b := range d.BrandNames {
		if strings.TrimSpace(b) != "" {
			names = append(names, b)
		}
	}
	return names
}

type InteractionRecord struct {
	ID                   int64                `json:"id"`
	Drug1ID              int64                `json:"drug1_id"`
	Drug2ID              int64                `json:"drug2_id"`
	Severity             Severity             `json:"severity"`
	InteractionType      string               `json:"interaction_type"`
	Mechanism            string               `json:"mechanism"`
	ClinicalEffect       string               `json:"clinical_effect"`
	Management           string               `json:"management"`
	EvidenceLevel        EvidenceLevel        `json:"evidence_level,omitempty"`
	DocumentationQuality DocumentationQuality `json:"documentation_quality,omitempty"`
	Frequency            Frequency            `json:"frequency,omitempty"`
	Onset                Onset                `json:"onset,omitempty"`
	Source               string               `json:"source"`
}

type CheckRecord struct {
	ID           string    `json:"id"`
	InputNames   []string  `json:"input_names"`
	MatchedCount int       `json:"matched_count"`
	AlertCount   int       `json:"alert_count"`
	MaxRiskScore float64   `json:"max_risk_score"`
	RiskLevel    string    `json:"risk_level"`
	LatencyMS    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

type Severity int

const (
	SeverityMinor Severity = iota + 1
	SeverityModerate
	SeverityMajor
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityMinor:    "minor",
	SeverityModerate: "moderate",
	SeverityMajor:    "major",
	SeverityCritical: "critical",
}

func (s Severity) Rank() int { return int(s) }

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return "unknown"
}

func ParseSeverity(v string) (Severity, error) {
	for s, n := range severityNames {
		if strings.EqualFold(strings.TrimSpace(v), n) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", v)
}

func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// EvidenceLevel zero value means the catalog did not record one.
type EvidenceLevel int

const (
	EvidenceTheoretical EvidenceLevel = iota + 1
	EvidenceCaseReport
	EvidenceObservational
	EvidenceClinicalTrial
	EvidenceSystematicReview
)

var evidenceNames = map[EvidenceLevel]string{
	EvidenceTheoretical:      "theoretical",
	EvidenceCaseReport:       "case_report",
	EvidenceObservational:    "observational",
	EvidenceClinicalTrial:    "clinical_trial",
	EvidenceSystematicReview: "systematic_review",
}

func (e EvidenceLevel) Rank() int { return int(e) }

func (e EvidenceLevel) String() string { return evidenceNames[e] }

func ParseEvidenceLevel(v string) (EvidenceLevel, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	for e, n := range evidenceNames {
		if strings.EqualFold(v, n) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown evidence level %q", v)
}

func (e EvidenceLevel) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *EvidenceLevel) UnmarshalText(b []byte) error {
	v, err := ParseEvidenceLevel(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// DocumentationQuality zero value means absent.
type DocumentationQuality int

const (
	DocumentationPoor DocumentationQuality = iota + 1
	DocumentationFair
	DocumentationGood
	DocumentationExcellent
)

var documentationNames = map[DocumentationQuality]string{
	DocumentationPoor:      "poor",
	DocumentationFair:      "fair",
	DocumentationGood:      "good",
	DocumentationExcellent: "excellent",
}

func (d DocumentationQuality) Rank() int { return int(d) }

func (d DocumentationQuality) String() string { return documentationNames[d] }

func ParseDocumentationQuality(v string) (DocumentationQuality, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	for d, n := range documentationNames {
		if strings.EqualFold(v, n) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown documentation quality %q", v)
}

func (d DocumentationQuality) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *DocumentationQuality) UnmarshalText(b []byte) error {
	v, err := ParseDocumentationQuality(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

type Frequency string

const (
	FrequencyRare   Frequency = "rare"
	FrequencyCommon Frequency = "common"
)

type Onset string

const (
	OnsetDelayed Onset = "delayed"
	OnsetRapid   Onset = "rapid"
)

func ParseFrequency(v string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(v))); f {
	case "", FrequencyRare, FrequencyCommon:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", v)
}

func ParseOnset(v string) (Onset, error) {
	switch o := Onset(strings.ToLower(strings.TrimSpace(v))); o {
	case "", OnsetDelayed, OnsetRapid:
		return o, nil
	}
	return "", fmt.Errorf("unknown onset %q", v)
}
