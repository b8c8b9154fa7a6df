package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	assert.Less(t, SeverityMinor.Rank(), SeverityModerate.Rank())
	assert.Less(t, SeverityModerate.Rank(), SeverityMajor.Rank())
	assert.Less(t, SeverityMajor.Rank(), SeverityCritical.Rank())
	assert.Equal(t, 4, SeverityCritical.Rank())
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity(" Major ")
	require.NoError(t, err)
	assert.Equal(t, SeverityMajor, s)

	_, err = ParseSeverity("")
	assert.Error(t, err)
	_, err = ParseSeverity("severe")
	assert.Error(t, err)
}

func TestOptionalEnumsAcceptBlank(t *testing.T) {
	e, err := ParseEvidenceLevel("")
	require.NoError(t, err)
	assert.Zero(t, e)

	d, err := ParseDocumentationQuality("GOOD")
	require.NoError(t, err)
	assert.Equal(t, DocumentationGood, d)

	_, err = ParseFrequency("sometimes")
	assert.Error(t, err)

	o, err := ParseOnset("Rapid")
	require.NoError(t, err)
	assert.Equal(t, OnsetRapid, o)
}

func TestInteractionRecordJSONUsesNames(t *testing.T) {
	rec := InteractionRecord{
		Drug1ID:              1,
		Drug2ID:              2,
		Severity:             SeverityMajor,
		EvidenceLevel:        EvidenceClinicalTrial,
		DocumentationQuality: DocumentationGood,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"severity":"major"`)
	assert.Contains(t, string(data), `"evidence_level":"clinical_trial"`)

	var back InteractionRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestDrugNamesSkipsBlankBrands(t *testing.T) {
	d := DrugRecord{GenericName: "warfarin", BrandNames: []string{"Coumadin", " ", "Jantoven"}}
	assert.Equal(t, []string{"warfarin", "Coumadin", "Jantoven"}, d.Names())
}
