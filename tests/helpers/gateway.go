package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/gateway"
	"github.com/bizmatters/design-research-gateway/internal/metrics"
	"github.com/bizmatters/design-research-gateway/internal/orchestration"
	"github.com/bizmatters/design-research-gateway/internal/research"
	"github.com/bizmatters/design-research-gateway/internal/session"
)

// Test credentials configured for every key class.
const (
	WorkflowKey = "app-integration-workflow-0001"
	ChatKey     = "app-integration-chat-0002"
	JWTSecret   = "integration-secret-key-for-testing-only"
)

// Gateway is the full HTTP stack wired the way cmd/api wires it, talking to
// a FakeUpstream through the real workflow client.
type Gateway struct {
	Config *config.Config
	Server *httptest.Server
	JWT    *auth.JWTManager
	Store  session.Store
}

// GatewayOption adjusts the configuration before the stack is built.
type GatewayOption func(*config.Config)

// WithSessionStore selects the session backend.
func WithSessionStore(store string) GatewayOption {
	return func(cfg *config.Config) { cfg.Session.Store = store }
}

// WithRedis points the redis store at address.
func WithRedis(address string) GatewayOption {
	return func(cfg *config.Config) { cfg.Redis.Address = address }
}

// WithPostgres points the postgres store at url.
func WithPostgres(url string) GatewayOption {
	return func(cfg *config.Config) { cfg.Postgres.URL = url }
}

// NewGateway builds the stack and serves it on a test server.
func NewGateway(t *testing.T, upstream *FakeUpstream, opts ...GatewayOption) *Gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := NewGatewayConfig(upstream.URL())
	for _, opt := range opts {
		opt(cfg)
	}

	log := zap.NewNop()
	m, err := metrics.NewInvocationMetrics(noop.NewMeterProvider().Meter("integration"))
	require.NoError(t, err)
	validator, err := orchestration.NewRequestValidator(cfg.Workflow.RequiredInputs)
	require.NoError(t, err)

	extractor := extract.New(extract.Policy{
		MinLength: cfg.Extraction.MinLength,
		MaxDepth:  cfg.Extraction.MaxDepth,
		Fields:    cfg.Extraction.Fields,
	})
	service := orchestration.NewService(
		orchestration.NewWorkflowClient(cfg.Upstream, log),
		orchestration.NewKeyResolver(cfg.Upstream.Keys),
		validator,
		extractor,
		m,
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := session.Open(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager, err := auth.NewJWTManager(cfg.Session.JWTSecret, cfg.Session.TokenTTL)
	require.NoError(t, err)

	h := gateway.NewHandler(cfg, service, store, jwtManager, research.NewClient(cfg.OpenAI, log), log)
	server := httptest.NewServer(gateway.NewRouter(h, nil))
	t.Cleanup(server.Close)

	return &Gateway{Config: cfg, Server: server, JWT: jwtManager, Store: store}
}

// NewGatewayConfig returns the configuration NewGateway starts from.
func NewGatewayConfig(upstreamURL string) *config.Config {
	cfg := &config.Config{
		Environment: "test",
		Upstream: config.UpstreamConfig{
			BaseURL:        upstreamURL,
			User:           "integration-test",
			RequestTimeout: 10 * time.Second,
			Keys:           config.KeysConfig{Workflow: WorkflowKey, Chat: ChatKey},
			Breaker: config.BreakerConfig{
				MaxRequests:         1,
				Interval:            time.Minute,
				Timeout:             time.Minute,
				ConsecutiveFailures: 2,
			},
		},
		Extraction: config.ExtractionConfig{
			MinLength: extract.DefaultPolicy().MinLength,
			MaxDepth:  extract.DefaultPolicy().MaxDepth,
			Fields:    extract.DefaultPolicy().Fields,
		},
		Workflow: config.WorkflowConfig{RequiredInputs: []string{"title", "topic", "requirements"}},
		Session: config.SessionConfig{
			Enabled:   true,
			Store:     "memory",
			JWTSecret: JWTSecret,
			TokenTTL:  time.Hour,
		},
	}
	return cfg
}

// NewSession issues a session token through the API.
func (g *Gateway) NewSession(t *testing.T) (token, sessionID string) {
	t.Helper()
	resp, err := http.Post(g.Server.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	claims := DecodeJSON[struct {
		Token     string `json:"token"`
		SessionID string `json:"session_id"`
	}](t, resp.Body)
	return claims.Token, claims.SessionID
}
