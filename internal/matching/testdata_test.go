package matching

import (
	"context"
	"errors"

	"github.com/drug-interaction/backend/internal/storage/models"
)

func testDrugs() []models.DrugRecord {
	return []models.DrugRecord{
		{ID: 1, CanonicalName: "Lisinopril", GenericName: "lisinopril", BrandNames: []string{"Zestril", "Prinivil"}, DrugClass: "antihypertensive"},
		{ID: 2, CanonicalName: "Warfarin", GenericName: "warfarin", BrandNames: []string{"Coumadin"}, DrugClass: "anticoagulant"},
		{ID: 3, CanonicalName: "Aspirin", GenericName: "aspirin", BrandNames: []string{"Bayer"}, DrugClass: "nsaid"},
		{ID: 4, CanonicalName: "Metoprolol", GenericName: "metoprolol", BrandNames: []string{"Lopressor"}, DrugClass: "antihypertensive"},
		{ID: 5, CanonicalName: "Ibuprofen", GenericName: "ibuprofen", BrandNames: []string{"Advil", "Motrin"}, DrugClass: "nsaid"},
	}
}

func testIndex() *CatalogIndex {
	return BuildIndex(testDrugs(), 1)
}

type staticIndex struct{ idx *CatalogIndex }

func (s staticIndex) Current() *CatalogIndex { return s.idx }

type fakeLister struct {
	drugs []models.DrugRecord
	err   error
}

func (f *fakeLister) ListAllDrugs(context.Context) ([]models.DrugRecord, error) {
	return f.drugs, f.err
}

var errBoom = errors.New("boom")
