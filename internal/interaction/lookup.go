package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/storage/models"
)

var ErrCatalogUnavailable = errors.New("drug catalog unavailable")

const (
	SourceDatabase  = "database"
	SourceHeuristic = "heuristic"
)

// InteractionSource returns the record for an unordered drug pair, or nil
// when none is known.
type InteractionSource interface {
	GetInteraction(ctx context.Context, drug1ID, drug2ID int64) (*models.InteractionRecord, error)
}

type DrugSource interface {
	GetDrug(ctx context.Context, id int64) (*models.DrugRecord, error)
}

// Finding is an interaction record together with where it came from.
type Finding struct {
	Record models.InteractionRecord
	Source string
}

type Lookup struct {
	interactions InteractionSource
	drugs        DrugSource
}

// NewLookup builds a Lookup. drugs may be nil, in which case drug classes
// come only from the index snapshot.
func NewLookup(interactions InteractionSource, drugs DrugSource) *Lookup {
	return &Lookup{interactions: interactions, drugs: drugs}
}

// Find looks up the pair in the catalog and falls back to the same-class
// heuristic. It returns nil when neither applies.
func (l *Lookup) Find(ctx context.Context, p Pair, idx *matching.CatalogIndex) (*Finding, error) {
	lo, hi := p.IDs()

	rec, err := l.interactions.GetInteraction(ctx, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("%w: get interaction %d/%d: %w", ErrCatalogUnavailable, lo, hi, err)
	}
	if rec != nil {
		return &Finding{Record: *rec, Source: SourceDatabase}, nil
	}

	classA, err := l.drugClass(ctx, lo, idx)
	if err != nil {
		return nil, err
	}
	classB, err := l.drugClass(ctx, hi, idx)
	if err != nil {
		return nil, err
	}
	if classA == "" || !strings.EqualFold(classA, classB) {
		return nil, nil
	}
	return &Finding{Record: sameClassRecord(lo, hi, classA), Source: SourceHeuristic}, nil
}

func (l *Lookup) drugClass(ctx context.Context, id int64, idx *matching.CatalogIndex) (string, error) {
	if idx != nil {
		if rec, ok := idx.Drug(id); ok {
			return strings.TrimSpace(rec.DrugClass), nil
		}
	}
	if l.drugs == nil {
		return "", nil
	}
	rec, err := l.drugs.GetDrug(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: get drug %d: %w", ErrCatalogUnavailable, id, err)
	}
	if rec == nil {
		return "", nil
	}
	return strings.TrimSpace(rec.DrugClass), nil
}

func sameClassRecord(drug1ID, drug2ID int64, class string) models.InteractionRecord {
	return models.InteractionRecord{
		Drug1ID:         drug1ID,
		Drug2ID:         drug2ID,
		Severity:        models.SeverityModerate,
		InteractionType: "pharmacodynamic",
		Mechanism:       fmt.Sprintf("Potential interaction between drugs of the same class (%s)", class),
		ClinicalEffect:  "May have additive effects or increased risk of adverse reactions",
		Management:      "Monitor patient closely for signs of increased drug effects",
		EvidenceLevel:   models.EvidenceTheoretical,
		Source:          SourceHeuristic,
	}
}
