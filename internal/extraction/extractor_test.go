package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	text := "Take Warfarin 5mg tablet daily. Refill: Lisinopril (Zestril) with aspirin, and WARFARIN again."

	got, err := Extract(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"Warfarin", "Lisinopril", "Zestril", "aspirin"}, got)
}

func TestExtractKeepsHyphenatedNames(t *testing.T) {
	got, err := Extract("Co-trimoxazole twice daily")
	require.NoError(t, err)
	assert.Equal(t, []string{"Co-trimoxazole"}, got)
}

func TestExtractDropsShortAndNumericTokens(t *testing.T) {
	got, err := Extract("Rx 123456 Qty 30 of IV 81mg")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractEmpty(t *testing.T) {
	got, err := Extract("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractKnownJoinsTwoWordNames(t *testing.T) {
	known := func(phrase string) bool { return strings.EqualFold(phrase, "insulin glargine") }

	got, err := ExtractKnown("Insulin Glargine 10 units at bedtime. Insulin pen, warfarin and aspirin.", known)
	require.NoError(t, err)
	assert.Equal(t, []string{"Insulin Glargine", "units", "Insulin", "pen", "warfarin", "aspirin"}, got)
}

func TestExtractKnownDoesNotJoinAcrossPunctuation(t *testing.T) {
	known := func(string) bool { return true }

	got, err := ExtractKnown("Warfarin. Aspirin", known)
	require.NoError(t, err)
	assert.Equal(t, []string{"Warfarin", "Aspirin"}, got)
}
