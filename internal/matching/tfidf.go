package matching

import (
	"math"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

const maxNGram = 3

// tfidfModel is fit once over the catalog name corpus: word n-grams 1..3,
// smoothed idf, L2-normalized document vectors.
type tfidfModel struct {
	idf  map[string]float64
	docs []sparseVector
}

type sparseVector map[string]float64

func fitTFIDF(corpus []string) *tfidfModel {
	df := make(map[string]int)
	counts := make([]map[string]int, len(corpus))
	for i, doc := range corpus {
		counts[i] = termCounts(doc)
		for term := range counts[i] {
			df[term]++
		}
	}

	n := float64(len(corpus))
	idf := make(map[string]float64, len(df))
	for term, d := range df {
		idf[term] = math.Log((1+n)/(1+float64(d))) + 1
	}

	m := &tfidfModel{idf: idf, docs: make([]sparseVector, len(corpus))}
	for i, c := range counts {
		m.docs[i] = m.weigh(c)
	}
	return m
}

// transform ignores terms outside the fitted vocabulary.
func (m *tfidfModel) transform(text string) sparseVector {
	return m.weigh(termCounts(text))
}

func (m *tfidfModel) weigh(counts map[string]int) sparseVector {
	v := make(sparseVector, len(counts))
	var norm float64
	for term, c := range counts {
		w, ok := m.idf[term]
		if !ok {
			continue
		}
		x := float64(c) * w
		v[term] = x
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for term := range v {
		v[term] /= norm
	}
	return v
}

func (v sparseVector) dot(o sparseVector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var s float64
	for term, x := range v {
		s += x * o[term]
	}
	return s
}

func termCounts(text string) map[string]int {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	counts := make(map[string]int)
	for n := 1; n <= maxNGram; n++ {
		for i := 0; i+n <= len(words); i++ {
			counts[strings.Join(words[i:i+n], " ")]++
		}
	}
	return counts
}
