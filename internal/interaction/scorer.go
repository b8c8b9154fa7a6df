package interaction

import "github.com/drug-interaction/backend/internal/storage/models"

const (
	defaultEvidenceScore      = 0.5
	defaultDocumentationScore = 0.6
)

// RiskScore combines the record's severity, evidence and documentation with
// the pair's match confidence. The result is in [0,1].
func RiskScore(rec *models.InteractionRecord, confidence float64) float64 {
	severity := 0.0
	if r := rec.Severity.Rank(); r >= models.SeverityMinor.Rank() && r <= models.SeverityCritical.Rank() {
		severity = float64(r) / float64(models.SeverityCritical.Rank())
	}

	evidence := defaultEvidenceScore
	if r := rec.EvidenceLevel.Rank(); r >= 1 && r <= models.EvidenceSystematicReview.Rank() {
		evidence = float64(r) / float64(models.EvidenceSystematicReview.Rank())
	}

	documentation := defaultDocumentationScore
	if r := rec.DocumentationQuality.Rank(); r >= 1 && r <= models.DocumentationExcellent.Rank() {
		documentation = float64(r) / float64(models.DocumentationExcellent.Rank())
	}

	base := (evidence + documentation) / 2

	frequency := 1.0
	switch rec.Frequency {
	case models.FrequencyCommon:
		frequency = 1.2
	case models.FrequencyRare:
		frequency = 0.8
	}

	onset := 1.0
	if rec.Onset == models.OnsetRapid {
		onset = 1.1
	}

	return clamp01(severity * base * frequency * onset * clamp01(confidence))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
