package interaction

import "github.com/drug-interaction/backend/internal/matching"

// Pair is an unordered combination of two distinct matched drugs. A precedes
// B in resolution order.
type Pair struct {
	A matching.DrugMatch
	B matching.DrugMatch
}

// GeneratePairs emits every pair of matched drugs in input order, skipping
// unmatched entries and pairs of the same drug. Fewer than two matched drugs
// yields an empty slice.
func GeneratePairs(matches []matching.DrugMatch) []Pair {
	matched := make([]matching.DrugMatch, 0, len(matches))
	for _, m := range matches {
		if m.Matched() {
			matched = append(matched, m)
		}
	}

	pairs := make([]Pair, 0)
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if *matched[i].DrugID == *matched[j].DrugID {
				continue
			}
			pairs = append(pairs, Pair{A: matched[i], B: matched[j]})
		}
	}
	return pairs
}

// IDs returns the pair's drug ids with the smaller first.
func (p Pair) IDs() (int64, int64) {
	a, b := *p.A.DrugID, *p.B.DrugID
	if a > b {
		return b, a
	}
	return a, b
}

// Confidence is the weaker of the two identifications.
func (p Pair) Confidence() float64 {
	if p.A.Confidence < p.B.Confidence {
		return p.A.Confidence
	}
	return p.B.Confidence
}
