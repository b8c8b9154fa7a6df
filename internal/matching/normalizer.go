package matching

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	dosagePattern      = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*(?:mcg|µg|ug|mg|ml|iu|units?|g)\b`)
	formPattern        = regexp.MustCompile(`\b(?:tablets?|tabs?|capsules?|caps?|injections?|solutions?|creams?|ointments?|mg|mcg|ml|g|units?)\b`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	numberPattern      = regexp.MustCompile(`\b\d+\b`)
)

// Normalize canonicalizes a raw medication string for matching. It lowercases,
// strips dosage and dosage-form tokens, drops punctuation and collapses
// whitespace. Results shorter than two characters yield ErrInvalidInput.
func Normalize(raw string) (string, error) {
	s := strings.ToLower(raw)
	s = dosagePattern.ReplaceAllString(s, " ")
	s = punctuationPattern.ReplaceAllString(s, " ")
	s = formPattern.ReplaceAllString(s, " ")
	s = numberPattern.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) < 2 {
		return "", fmt.Errorf("%w: %q normalizes to %q", ErrInvalidInput, raw, s)
	}
	return s, nil
}
