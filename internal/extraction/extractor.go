package extraction

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

const minTokenLength = 3

// Label and direction words that appear on prescription labels but never name a drug.
var stopWords = map[string]bool{
	"take": true, "takes": true, "taking": true, "tablet": true, "tablets": true,
	"capsule": true, "capsules": true, "daily": true, "twice": true, "once": true,
	"every": true, "hours": true, "hour": true, "refill": true, "refills": true,
	"pharmacy": true, "qty": true, "quantity": true, "mouth": true, "oral": true,
	"orally": true, "dose": true, "doses": true, "with": true, "without": true,
	"food": true, "water": true, "and": true, "the": true, "for": true, "per": true,
	"day": true, "days": true, "morning": true, "evening": true, "night": true,
	"bedtime": true, "needed": true, "pain": true, "patient": true, "prescriber": true,
	"doctor": true, "date": true, "filled": true, "expires": true, "exp": true,
	"directions": true, "use": true, "apply": true, "one": true, "two": true,
	"three": true, "each": true, "before": true, "after": true, "meals": true,
	"may": true, "cause": true, "drowsiness": true, "again": true, "not": true,
	"from": true, "sig": true, "bid": true, "tid": true, "qid": true, "prn": true,
}

// Extract returns candidate medication names from free text in first-seen
// order, case-insensitively deduplicated.
func Extract(text string) ([]string, error) {
	return ExtractKnown(text, nil)
}

// ExtractKnown is Extract that also emits two-word names. When two adjacent
// candidates form a phrase accepted by known, the phrase replaces both words.
func ExtractKnown(text string, known func(phrase string) bool) ([]string, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize text: %w", err)
	}

	words := joinHyphenated(doc.Tokens())

	seen := make(map[string]bool)
	out := make([]string, 0)
	for i := 0; i < len(words); i++ {
		w := words[i]
		if !usable(w) {
			continue
		}
		if known != nil && i+1 < len(words) && usable(words[i+1]) {
			if phrase := w + " " + words[i+1]; known(phrase) {
				w = phrase
				i++
			}
		}
		lower := strings.ToLower(w)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, w)
	}
	return out, nil
}

func usable(w string) bool {
	return !stopWords[strings.ToLower(w)] && candidate(w)
}

// joinHyphenated rejoins hyphenated names the tokenizer split. A token with
// trailing punctuation is followed by an empty word so phrases never span it.
func joinHyphenated(tokens []prose.Token) []string {
	words := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		w := trimEdges(tokens[i].Text)
		if w == "-" && len(words) > 0 && words[len(words)-1] != "" && i+1 < len(tokens) {
			words[len(words)-1] += "-" + trimEdges(tokens[i+1].Text)
			i++
			continue
		}
		words = append(words, w)
		if w != "" && w != "-" && w != tokens[i].Text && !endsAlnum(tokens[i].Text) {
			words = append(words, "")
		}
	}
	return words
}

func endsAlnum(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func trimEdges(s string) string {
	if s == "-" {
		return s
	}
	return strings.TrimFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

func candidate(w string) bool {
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == '-':
		default:
			return false
		}
	}
	return letters >= minTokenLength && !strings.HasPrefix(w, "-") && !strings.HasSuffix(w, "-")
}
