package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-interaction/backend/internal/matching"
	"github.com/drug-interaction/backend/internal/screening"
	"github.com/drug-interaction/backend/internal/storage/models"
	"github.com/drug-interaction/backend/pkg/config"
)

type stubScreener struct {
	checks int
}

func (s *stubScreener) Check(context.Context, []string) (*screening.CheckResult, error) {
	s.checks++
	return &screening.CheckResult{CheckID: "x"}, nil
}

func (s *stubScreener) Resolve(context.Context, []string) (*matching.ResolveResult, error) {
	return &matching.ResolveResult{}, nil
}

func (s *stubScreener) ScanText(context.Context, string) (*screening.ScanResult, error) {
	return &screening.ScanResult{}, nil
}

func (s *stubScreener) Lookup(_ context.Context, name string) (*screening.LookupResult, error) {
	return &screening.LookupResult{Match: matching.Unmatched(name)}, nil
}

func (s *stubScreener) History(context.Context, int) ([]models.CheckRecord, error) {
	return []models.CheckRecord{}, nil
}

func (s *stubScreener) ReloadCatalog(context.Context) (*screening.ReloadResult, error) {
	return &screening.ReloadResult{Version: 2}, nil
}

func (s *stubScreener) Ready(context.Context) error { return nil }

func (s *stubScreener) IndexVersion() uint64 { return 1 }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:    5,
			WriteTimeout:   5,
			BodyLimit:      1 << 20,
			AllowedOrigins: "*",
			Environment:    "development",
		},
		RateLimit:  config.RateLimitConfig{RequestsPerMinute: 2},
		Validation: config.ValidationConfig{MaxNames: 3, MaxNameLength: 50, MaxTextLength: 100},
	}
}

func newServer(t *testing.T, s *stubScreener) *Server {
	t.Helper()
	srv := New(testConfig(), s)
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func TestRoutesAndHeaders(t *testing.T) {
	srv := newServer(t, &stubScreener{})

	resp, err := srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "no-store", resp.Header.Get(fiber.HeaderCacheControl))

	resp, err = srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/ws", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp, err = srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidationRunsBeforeHandlers(t *testing.T) {
	s := &stubScreener{}
	srv := newServer(t, s)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/interactions/check",
		strings.NewReader(`{"names":["a","b","c","d"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, s.checks)
}

func TestRateLimitSparesHealth(t *testing.T) {
	srv := newServer(t, &stubScreener{})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/interactions/history", nil), -1)
		require.NoError(t, err)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, codes)

	resp, err := srv.App.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
