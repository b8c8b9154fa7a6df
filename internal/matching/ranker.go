package matching

// better reports whether a should replace b: higher confidence, then method
// priority, then the lexically smaller key.
func better(a, b Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if pa, pb := a.Method.Priority(), b.Method.Priority(); pa != pb {
		return pa < pb
	}
	return a.Key < b.Key
}

// Rank merges all strategies' candidates for one input into a single match.
// Candidates are grouped by the drug they resolve to, keeping the best per
// drug, and the best drug wins. Below floor the result is unmatched.
func Rank(input string, candidates []Candidate, idx *CatalogIndex, floor float64) DrugMatch {
	type group struct {
		drugID int64
		best   Candidate
	}
	groups := make(map[int64]*group)

	for _, c := range candidates {
		rec, ok := idx.Lookup(c.Key)
		if !ok {
			continue
		}
		c.Confidence = clamp01(c.Confidence)
		if g, seen := groups[rec.ID]; !seen {
			groups[rec.ID] = &group{drugID: rec.ID, best: c}
		} else if better(c, g.best) {
			g.best = c
		}
	}

	// Across drugs: confidence, method priority, then lower drug id.
	var winner *group
	for _, g := range groups {
		if winner == nil {
			winner = g
			continue
		}
		a, b := g.best, winner.best
		switch {
		case a.Confidence != b.Confidence:
			if a.Confidence > b.Confidence {
				winner = g
			}
		case a.Method.Priority() != b.Method.Priority():
			if a.Method.Priority() < b.Method.Priority() {
				winner = g
			}
		case g.drugID < winner.drugID:
			winner = g
		}
	}

	if winner == nil || winner.best.Confidence < floor {
		return Unmatched(input)
	}

	rec, _ := idx.Drug(winner.drugID)
	id := rec.ID
	return DrugMatch{
		InputName:   input,
		MatchedName: idx.DisplayName(winner.best.Key),
		Confidence:  winner.best.Confidence,
		DrugID:      &id,
		Method:      winner.best.Method,
		GenericName: rec.GenericName,
		BrandNames:  append([]string(nil), rec.BrandNames...),
	}
}

func Unmatched(input string) DrugMatch {
	return DrugMatch{
		InputName:   input,
		MatchedName: input,
		Confidence:  0,
		Method:      MethodNone,
	}
}
