package zilliz

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/pkg/logger"
)

const (
	fieldKey       = "name_key"
	fieldDrugID    = "drug_id"
	fieldName      = "name"
	fieldEmbedding = "embedding"

	maxNameLength = 256
)

// Client stores one embedding per catalog name and answers nearest-name
// queries for semantic matching.
type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// NameVector is one row of the names collection.
type NameVector struct {
	Name      string
	DrugID    int64
	Embedding []float32
}

func NewClient(ctx context.Context, endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address: endpoint,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Zilliz/Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (z *Client) Close() error {
	return z.client.Close()
}

func (z *Client) CreateCollection(ctx context.Context) error {
	has, err := z.client.HasCollection(ctx, z.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", z.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: z.collectionName,
		Description:    "Drug name embeddings",
		Fields: []*entity.Field{
			{
				Name:       fieldKey,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxNameLength + 24)},
			},
			{
				Name:     fieldDrugID,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       fieldName,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(maxNameLength)},
			},
			{
				Name:       fieldEmbedding,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(z.vectorDim)},
			},
		},
	}

	if err := z.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
	if err != nil {
		return fmt.Errorf("failed to build index params: %w", err)
	}
	if err := z.client.CreateIndex(ctx, z.collectionName, fieldEmbedding, idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := z.client.LoadCollection(ctx, z.collectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", z.collectionName))
	return nil
}

// Insert writes rows. Names longer than the schema allows are truncated.
func (z *Client) Insert(ctx context.Context, rows []NameVector) error {
	if len(rows) == 0 {
		return nil
	}

	keys, ids, names, embeddings := columns(rows)

	_, err := z.client.Insert(
		ctx,
		z.collectionName,
		"",
		entity.NewColumnVarChar(fieldKey, keys),
		entity.NewColumnInt64(fieldDrugID, ids),
		entity.NewColumnVarChar(fieldName, names),
		entity.NewColumnFloatVector(fieldEmbedding, z.vectorDim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert names: %w", err)
	}

	if err := z.client.Flush(ctx, z.collectionName, false); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Names inserted into vector DB", zap.Int("count", len(rows)))
	return nil
}

// DeleteAll removes every row, used before a full re-index.
func (z *Client) DeleteAll(ctx context.Context) error {
	if err := z.client.Delete(ctx, z.collectionName, "", fieldDrugID+" >= 0"); err != nil {
		return fmt.Errorf("failed to delete names: %w", err)
	}
	return nil
}

// SearchNames returns the topK names nearest to embedding by cosine similarity.
func (z *Client) SearchNames(ctx context.Context, embedding []float32, topK int) ([]matching.NameHit, error) {
	sp, err := entity.NewIndexIvfFlatSearchParam(16)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := z.client.Search(
		ctx,
		z.collectionName,
		[]string{},
		"",
		[]string{fieldDrugID, fieldName},
		[]entity.Vector{entity.FloatVector(embedding)},
		fieldEmbedding,
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits, err := hitsFromResults(results)
	if err != nil {
		return nil, err
	}

	logger.Debug("Vector search completed", zap.Int("topK", topK), zap.Int("results", len(hits)))
	return hits, nil
}

func hitsFromResults(results []client.SearchResult) ([]matching.NameHit, error) {
	hits := make([]matching.NameHit, 0)
	for _, sr := range results {
		if sr.Err != nil {
			return nil, fmt.Errorf("failed to search: %w", sr.Err)
		}
		idCol := sr.Fields.GetColumn(fieldDrugID)
		nameCol := sr.Fields.GetColumn(fieldName)
		if idCol == nil || nameCol == nil {
			return nil, fmt.Errorf("search result missing %s or %s", fieldDrugID, fieldName)
		}

		for i := 0; i < sr.ResultCount; i++ {
			id, err := idCol.GetAsInt64(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", fieldDrugID, err)
			}
			name, err := nameCol.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", fieldName, err)
			}
			hits = append(hits, matching.NameHit{Name: name, DrugID: id, Score: sr.Scores[i]})
		}
	}
	return hits, nil
}

func columns(rows []NameVector) (keys []string, ids []int64, names []string, embeddings [][]float32) {
	keys = make([]string, len(rows))
	ids = make([]int64, len(rows))
	names = make([]string, len(rows))
	embeddings = make([][]float32, len(rows))

	for i, r := range rows {
		name := r.Name
		if runes := []rune(name); len(runes) > maxNameLength/4 {
			// max_length counts bytes; four per rune bounds it.
			name = string(runes[:maxNameLength/4])
		}
		keys[i] = strconv.FormatInt(r.DrugID, 10) + ":" + name
		ids[i] = r.DrugID
		names[i] = name
		embeddings[i] = r.Embedding
	}
	return keys, ids, names, embeddings
}
