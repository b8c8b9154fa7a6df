package rxnorm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/drug-interaction/backend/pkg/circuitbreaker"
	"github.com/drug-interaction/backend/pkg/logger"
	"github.com/drug-interaction/backend/pkg/retry"
)

// Client queries the NLM RxNorm REST API for names the local catalog
// could not resolve.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *circuitbreaker.Breaker
	policy     retry.Policy
}

type Concept struct {
	RxCUI   string `json:"rxcui"`
	Name    string `json:"name"`
	Synonym string `json:"synonym,omitempty"`
	TTY     string `json:"tty"`
}

type drugsResponse struct {
	DrugGroup struct {
		Name         string `json:"name"`
		ConceptGroup []struct {
			TTY               string    `json:"tty"`
			ConceptProperties []Concept `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"drugGroup"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger.Info("RxNorm client initialized", zap.String("base_url", baseURL))

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cb: circuitbreaker.New("rxnorm", circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			CoolDown:         time.Minute,
			Logger:           logger.GetLogger(),
		}),
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialDelay:   200 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

func (c *Client) WithRetryPolicy(p retry.Policy) *Client {
	c.policy = p
	return c
}

// Search returns every concept RxNorm lists for name. An unknown name yields
// an empty slice.
func (c *Client) Search(ctx context.Context, name string) ([]Concept, error) {
	params := url.Values{}
	params.Set("name", name)
	endpoint := fmt.Sprintf("%s/drugs.json?%s", c.baseURL, params.Encode())

	var body []byte
	err := c.cb.Execute(func() error {
		return retry.Do(ctx, c.policy, func(ctx context.Context) error {
			b, err := c.get(ctx, endpoint)
			if err != nil {
				return err
			}
			body = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	var resp drugsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	concepts := make([]Concept, 0)
	for _, group := range resp.DrugGroup.ConceptGroup {
		for _, cp := range group.ConceptProperties {
			if cp.TTY == "" {
				cp.TTY = group.TTY
			}
			concepts = append(concepts, cp)
		}
	}

	logger.Info("RxNorm search completed", zap.String("name", name), zap.Int("concepts", len(concepts)))
	return concepts, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("rxnorm returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Permanent(fmt.Errorf("rxnorm returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
