package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/drug-interaction/backend/internal/storage/models"
)

const seedJSON = `{
  "drugs": [
    {"id": 1, "generic_name": "lisinopril", "brand_names": ["Zestril", "Prinivil"], "drug_class": "antihypertensive"},
    {"id": 2, "generic_name": "warfarin", "brand_names": ["Coumadin"], "drug_class": "anticoagulant"},
    {"id": 3, "generic_name": "aspirin", "brand_names": ["Bayer"], "drug_class": "nsaid"}
  ],
  "interactions": [
    {"drug1_id": 3, "drug2_id": 2, "severity": "major", "interaction_type": "pharmacodynamic",
     "mechanism": "additive anticoagulant effect", "evidence_level": "clinical_trial",
     "documentation_quality": "good", "source": "curated"}
  ]
}`

type CatalogSuite struct {
	suite.Suite
	client *Client
	ctx    context.Context
}

func (s *CatalogSuite) SetupTest() {
	s.ctx = context.Background()
	client, err := NewClient(":memory:")
	s.Require().NoError(err)
	s.Require().NoError(client.InitSchema(s.ctx))
	s.Require().NoError(client.SeedFromJSON(s.ctx, strings.NewReader(seedJSON)))
	s.client = client
}

func (s *CatalogSuite) TearDownTest() {
	s.client.Close()
}

func (s *CatalogSuite) TestListAllDrugsOrderedWithBrands() {
	drugs, err := s.client.ListAllDrugs(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(drugs, 3)

	s.Equal(int64(1), drugs[0].ID)
	s.Equal("lisinopril", drugs[0].CanonicalName)
	s.Equal([]string{"Zestril", "Prinivil"}, drugs[0].BrandNames)
	s.Equal("antihypertensive", drugs[0].DrugClass)
	s.Equal([]string{"Coumadin"}, drugs[1].BrandNames)
}

func (s *CatalogSuite) TestGetDrug() {
	d, err := s.client.GetDrug(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().NotNil(d)
	s.Equal("warfarin", d.GenericName)
	s.Equal([]string{"Coumadin"}, d.BrandNames)

	missing, err := s.client.GetDrug(s.ctx, 99)
	s.NoError(err)
	s.Nil(missing)
}

func (s *CatalogSuite) TestGetInteractionIsOrderIndependent() {
	ab, err := s.client.GetInteraction(s.ctx, 2, 3)
	s.Require().NoError(err)
	ba, err := s.client.GetInteraction(s.ctx, 3, 2)
	s.Require().NoError(err)

	s.Require().NotNil(ab)
	s.Equal(ab, ba)
	s.Equal(int64(2), ab.Drug1ID)
	s.Equal(models.SeverityMajor, ab.Severity)
	s.Equal(models.EvidenceClinicalTrial, ab.EvidenceLevel)
	s.Equal(models.DocumentationGood, ab.DocumentationQuality)
}

func (s *CatalogSuite) TestGetInteractionAbsent() {
	rec, err := s.client.GetInteraction(s.ctx, 1, 2)
	s.NoError(err)
	s.Nil(rec)
}

func (s *CatalogSuite) TestUpsertInteractionReplacesEitherOrder() {
	err := s.client.UpsertInteraction(s.ctx, &models.InteractionRecord{
		Drug1ID: 2, Drug2ID: 3, Severity: models.SeverityCritical, Source: "update",
	})
	s.Require().NoError(err)

	all, err := s.client.ListInteractions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(models.SeverityCritical, all[0].Severity)
	s.Equal(models.EvidenceLevel(0), all[0].EvidenceLevel)
}

func (s *CatalogSuite) TestUpsertInteractionRejectsSelfPair() {
	err := s.client.UpsertInteraction(s.ctx, &models.InteractionRecord{
		Drug1ID: 1, Drug2ID: 1, Severity: models.SeverityMinor,
	})
	s.Error(err)
}

func (s *CatalogSuite) TestUpsertDrugAssignsID() {
	d := &models.DrugRecord{GenericName: "metoprolol", BrandNames: []string{"Lopressor"}}
	s.Require().NoError(s.client.UpsertDrug(s.ctx, d))
	s.Equal(int64(4), d.ID)
	s.Equal("metoprolol", d.CanonicalName)
}

func (s *CatalogSuite) TestCheckHistoryNewestFirst() {
	base := time.UnixMilli(1_700_000_000_000)
	for i, id := range []string{"a", "b"} {
		s.Require().NoError(s.client.InsertCheck(s.ctx, &models.CheckRecord{
			ID:         id,
			InputNames: []string{"warfarin", "aspirin"},
			AlertCount: i,
			RiskLevel:  "low",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	history, err := s.client.GetCheckHistory(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("b", history[0].ID)
	s.Equal([]string{"warfarin", "aspirin"}, history[0].InputNames)

	got, err := s.client.GetCheck(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(base, got.CreatedAt)

	_, err = s.client.GetCheck(s.ctx, "zzz")
	s.ErrorIs(err, ErrNotFound)
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func TestListAllDrugsWrapsDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	driverErr := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT id, canonical_name").WillReturnError(driverErr)

	_, err = NewClientFromDB(db).ListAllDrugs(context.Background())
	assert.ErrorIs(t, err, driverErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInteractionRejectsCorruptSeverity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "drug1_id", "drug2_id", "severity", "interaction_type", "mechanism",
		"clinical_effect", "management", "evidence_level", "documentation_quality", "frequency", "onset", "source"}
	mock.ExpectQuery("FROM interactions").
		WithArgs(int64(1), int64(2), int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, 1, 2, "catastrophic", "", "", "", "", "", "", "", "", ""))

	_, err = NewClientFromDB(db).GetInteraction(context.Background(), 1, 2)
	assert.ErrorContains(t, err, "unknown severity")
	assert.NoError(t, mock.ExpectationsWereMet())
}
