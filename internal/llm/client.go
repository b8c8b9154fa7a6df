package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/drug-interaction/backend/pkg/circuitbreaker"
	"github.com/drug-interaction/backend/pkg/logger"
	"github.com/drug-interaction/backend/pkg/retry"
	"github.com/drug-interaction/backend/pkg/utils"
)

const batchSize = 100

type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Client produces text embeddings for drug names via the OpenAI API.
type Client struct {
	client         *openai.Client
	embeddingModel string
	timeout        time.Duration
	cb             *circuitbreaker.Breaker
	policy         retry.Policy

	cache    EmbeddingCache
	cacheTTL time.Duration
}

func NewClient(apiKey, embeddingModel string, timeout time.Duration) *Client {
	return NewClientWithConfig(openai.DefaultConfig(apiKey), embeddingModel, timeout)
}

func NewClientWithConfig(cfg openai.ClientConfig, embeddingModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cb := circuitbreaker.New("llm", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		CoolDown:         30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	policy := retry.Policy{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized", zap.String("embedding_model", embeddingModel))

	return &Client{
		client:         openai.NewClientWithConfig(cfg),
		embeddingModel: embeddingModel,
		timeout:        timeout,
		cb:             cb,
		policy:         policy,
	}
}

// WithCache stores embeddings under a hash of model and text.
func (c *Client) WithCache(cache EmbeddingCache, ttl time.Duration) *Client {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

func (c *Client) WithRetryPolicy(p retry.Policy) *Client {
	c.policy = p
	return c
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := utils.CacheKey(c.embeddingModel, text)
	if c.cache != nil {
		if emb, ok, err := c.cache.GetEmbedding(ctx, hash); err != nil {
			logger.Warn("Embedding cache read failed", zap.Error(err))
		} else if ok {
			return emb, nil
		}
	}

	embeddings, err := c.create(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	if c.cache != nil {
		if err := c.cache.SetEmbedding(ctx, hash, embeddings[0], c.cacheTTL); err != nil {
			logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}
	return embeddings[0], nil
}

// BatchEmbed embeds texts in request batches, preserving input order.
func (c *Client) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.create(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-i {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-i, len(batch))
		}
		embeddings = append(embeddings, batch...)
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))
	return embeddings, nil
}

func (c *Client) create(ctx context.Context, input []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out [][]float32
	err := c.cb.Execute(func() error {
		return retry.Do(ctx, c.policy, func(ctx context.Context) error {
			resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: input,
				Model: openai.EmbeddingModel(c.embeddingModel),
			})
			if err != nil {
				if !retryable(err) {
					return retry.Permanent(fmt.Errorf("failed to generate embeddings: %w", err))
				}
				return fmt.Errorf("failed to generate embeddings: %w", err)
			}

			data := resp.Data
			sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
			out = make([][]float32, len(data))
			for i, d := range data {
				out[i] = d.Embedding
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// retryable keeps client errors other than rate limiting from being retried.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
