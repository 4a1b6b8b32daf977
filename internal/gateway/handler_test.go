package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/auth"
	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/metrics"
	"github.com/bizmatters/design-research-gateway/internal/models"
	"github.com/bizmatters/design-research-gateway/internal/orchestration"
	"github.com/bizmatters/design-research-gateway/internal/session"
)

const testStream = "data: {\"answer\":\"A\"}\n\ndata: {\"answer\":\"B\"}\n\ndata: [DONE]\n\n"

// fakeWorkflowClient replays canned upstream answers.
type fakeWorkflowClient struct {
	mu        sync.Mutex
	raw       string
	stream    func() io.Reader
	err       error
	unhealthy bool
	calls     int
	lastReq   orchestration.RunRequest
}

func (f *fakeWorkflowClient) Run(ctx context.Context, req orchestration.RunRequest) (*orchestration.RunResult, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	return &orchestration.RunResult{Raw: []byte(f.raw), StatusCode: http.StatusOK}, nil
}

func (f *fakeWorkflowClient) Stream(ctx context.Context, req orchestration.RunRequest) (io.ReadCloser, error) {
	f.record(req)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(f.stream()), nil
}

func (f *fakeWorkflowClient) IsHealthy(ctx context.Context) bool {
	return !f.unhealthy
}

func (f *fakeWorkflowClient) record(req orchestration.RunRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
}

func (f *fakeWorkflowClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingReader returns data once and then fails like a dropped connection.
type failingReader struct {
	data []byte
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset by peer")
}

type fakeResearch struct {
	report   *models.ResearchResponse
	image    *models.ImageResponse
	err      error
	lastText string
}

func (f *fakeResearch) Research(ctx context.Context, topic string) (*models.ResearchResponse, error) {
	return f.report, f.err
}

func (f *fakeResearch) GenerateImage(ctx context.Context, text string) (*models.ImageResponse, error) {
	f.lastText = text
	return f.image, f.err
}

type testEnv struct {
	router   *gin.Engine
	client   *fakeWorkflowClient
	research *fakeResearch
	sessions session.Store
	jwt      *auth.JWTManager
}

type envOption func(*config.Config)

func withoutSessions() envOption {
	return func(cfg *config.Config) { cfg.Session.Enabled = false }
}

func withDiagnosticsHash(hash string) envOption {
	return func(cfg *config.Config) { cfg.Diagnostics.TokenHash = hash }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		Upstream: config.UpstreamConfig{
			BaseURL: "https://api.dify.ai/v1",
			Keys:    config.KeysConfig{Workflow: "app-workflow-key-1234", Chat: "app-chat-key-5678"},
		},
		Session: config.SessionConfig{Enabled: true},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := &fakeWorkflowClient{
		raw:    `{"data":{"status":"succeeded","outputs":{"output":"# 报告\n\n\n内容"}}}`,
		stream: func() io.Reader { return strings.NewReader(testStream) },
	}
	validator, err := orchestration.NewRequestValidator([]string{"topic"})
	require.NoError(t, err)
	m, err := metrics.NewInvocationMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	service := orchestration.NewService(client, orchestration.NewKeyResolver(cfg.Upstream.Keys),
		validator, extract.New(extract.DefaultPolicy()), m, zap.NewNop())

	env := &testEnv{
		client: client,
		research: &fakeResearch{
			report: &models.ResearchResponse{Research: "# 研究\n正文", Source: "OpenAI"},
			image:  &models.ImageResponse{Keywords: "机器人, 配送", ImageURL: "https://images.example/1.png", Source: "DALL-E"},
		},
	}
	if cfg.Session.Enabled {
		env.sessions = session.NewMemoryStore(0)
		env.jwt, err = auth.NewJWTManager("test-secret-key-for-testing-purposes-only", time.Hour)
		require.NoError(t, err)
	}

	h := NewHandler(cfg, service, env.sessions, env.jwt, env.research, zap.NewNop())
	env.router = NewRouter(h, nil)
	return env
}

func (e *testEnv) token(t *testing.T) (string, string) {
	t.Helper()
	token, claims, err := e.jwt.GenerateToken(context.Background(), "")
	require.NoError(t, err)
	return token, claims.SessionID
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestInvoke_Blocking(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs":  map[string]string{"topic": "配送机器人"},
		"keyType": "chat",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.InvocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "# 报告\n内容", resp.Answer)
	assert.Equal(t, "# 报告\n\n\n内容", resp.OriginalAnswer)
	assert.Nil(t, resp.Debug)

	assert.Equal(t, "app-chat-key-5678", env.client.lastReq.APIKey)
	assert.Equal(t, "配送机器人研究", env.client.lastReq.Inputs["title"])
}

func TestInvoke_BlockingDebug(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs": map[string]string{"topic": "配送机器人"},
		"debug":  true,
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.InvocationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Debug)
	assert.Equal(t, "提取成功", resp.Debug["extraction_path"])
	assert.Contains(t, resp.Debug, "original_data_summary")
}

func TestInvoke_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		upstreamErr    error
		expectedStatus int
		expectedCode   string
		expectedError  string
		expectCall     bool
	}{
		{
			name:           "invalid_json",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeValidationFailed,
		},
		{
			name:           "missing_inputs",
			body:           map[string]any{"responseMode": "blocking"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeValidationFailed,
		},
		{
			name:           "blank_input",
			body:           map[string]any{"inputs": map[string]string{"topic": "  "}},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeValidationFailed,
			expectedError:  models.MsgInputsRequired,
		},
		{
			name:           "unknown_response_mode",
			body:           map[string]any{"inputs": map[string]string{"topic": "机器人"}, "responseMode": "batch"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeValidationFailed,
		},
		{
			name: "workflow_not_published",
			body: map[string]any{"inputs": map[string]string{"topic": "机器人"}},
			upstreamErr: &orchestration.UpstreamError{
				StatusCode: http.StatusBadRequest,
				Code:       models.CodeWorkflowNotPublished,
				Message:    models.MsgNotPublishedHint,
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeUpstreamFailed,
			expectedError:  "Dify API responded with status 400: " + models.MsgNotPublishedHint,
			expectCall:     true,
		},
		{
			name:           "upstream_unauthorized",
			body:           map[string]any{"inputs": map[string]string{"topic": "机器人"}},
			upstreamErr:    &orchestration.UpstreamError{StatusCode: http.StatusUnauthorized, Message: "Access token is invalid"},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   models.ErrCodeUpstreamFailed,
			expectedError:  "Dify API responded with status 401: Access token is invalid",
			expectCall:     true,
		},
		{
			name:           "breaker_open",
			body:           map[string]any{"inputs": map[string]string{"topic": "机器人"}},
			upstreamErr:    fmt.Errorf("failed to invoke workflow API: %w", gobreaker.ErrOpenState),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   models.ErrCodeUnavailable,
			expectedError:  models.MsgInternalFailure,
			expectCall:     true,
		},
		{
			name:           "transport_failure",
			body:           map[string]any{"inputs": map[string]string{"topic": "机器人"}},
			upstreamErr:    fmt.Errorf("failed to invoke workflow API: %w", errors.New("dial tcp: connection refused")),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   models.ErrCodeInternalError,
			expectedError:  models.MsgInternalFailure,
			expectCall:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.client.err = tt.upstreamErr

			w := env.do(t, http.MethodPost, "/api/dify", tt.body, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.expectedCode, resp.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, resp.Error)
			}
			if tt.expectCall {
				assert.Equal(t, 1, env.client.callCount())
			} else {
				assert.Zero(t, env.client.callCount(), "validation must reject before any upstream call")
			}
		})
	}
}

func TestInvoke_DebugErrorCarriesDiagnostics(t *testing.T) {
	env := newTestEnv(t)
	env.client.err = errors.New("dial tcp: connection refused")

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs": map[string]string{"topic": "机器人"},
		"debug":  true,
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "dial tcp: connection refused", resp.Message)
	require.NotNil(t, resp.Debug)
	assert.Equal(t, "dial tcp: connection refused", resp.Debug["error_message"])
}

func TestInvoke_DebugUpstreamErrorCarriesBody(t *testing.T) {
	env := newTestEnv(t)
	body := `{"code":"invalid_param","message":"topic too long","status":400}`
	env.client.err = orchestration.ParseUpstreamError(http.StatusBadRequest, []byte(body))

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs": map[string]string{"topic": "机器人"},
		"debug":  true,
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.NotNil(t, resp.Debug)
	assert.Equal(t, body, resp.Debug["error_text"])
	assert.Equal(t, "invalid_param", resp.Debug["upstream_code"])
	assert.EqualValues(t, http.StatusBadRequest, resp.Debug["upstream_status"])
}

func TestInvoke_BlockingSavesSession(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.token(t)

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs": map[string]string{"topic": "配送机器人"},
	}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/sessions/research", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var rec models.ResearchSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "配送机器人研究", rec.Title)
	assert.Equal(t, "# 报告\n内容", rec.ResearchText)
	assert.Equal(t, "# 报告\n\n\n内容", rec.OriginalText)
}

func TestInvoke_Streaming(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.token(t)

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs":       map[string]string{"topic": "机器人"},
		"responseMode": "streaming",
	}, bearer(token))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))
	assert.Equal(t, testStream, w.Body.String(), "bytes must be relayed unchanged")

	w = env.do(t, http.MethodGet, "/api/sessions/research", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var rec models.ResearchSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "AB", rec.ResearchText)
}

func TestInvoke_StreamingReadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.client.stream = func() io.Reader {
		return &failingReader{data: []byte("data: {\"answer\":\"A\"}\n\n")}
	}
	token, _ := env.token(t)

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs":       map[string]string{"topic": "机器人"},
		"responseMode": "streaming",
	}, bearer(token))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: {\"answer\":\"A\"}\n\n"))
	assert.Contains(t, body, models.MsgStreamErrorPrefix+"connection reset by peer")
	assert.Contains(t, body, models.MsgStreamRetryAnswer)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	w = env.do(t, http.MethodGet, "/api/sessions/research", nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, w.Code, "a failed stream must not overwrite the session")
}

func TestInvoke_StreamingUpstreamError(t *testing.T) {
	env := newTestEnv(t)
	env.client.err = &orchestration.UpstreamError{StatusCode: http.StatusUnauthorized, Message: "Access token is invalid"}

	w := env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs":       map[string]string{"topic": "机器人"},
		"responseMode": "streaming",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestDescribeConfig(t *testing.T) {
	hash, err := auth.HashToken("diag-secret")
	require.NoError(t, err)

	tests := []struct {
		name           string
		hash           string
		headers        map[string]string
		expectedStatus int
	}{
		{name: "open_without_hash", expectedStatus: http.StatusOK},
		{name: "missing_token", hash: hash, expectedStatus: http.StatusUnauthorized},
		{name: "wrong_token", hash: hash, headers: map[string]string{auth.DiagnosticsHeader: "nope"}, expectedStatus: http.StatusForbidden},
		{name: "valid_token", hash: hash, headers: map[string]string{auth.DiagnosticsHeader: "diag-secret"}, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withDiagnosticsHash(tt.hash))

			w := env.do(t, http.MethodGet, "/api/dify?debug=true&keyType=chat", nil, tt.headers)

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var echo models.ConfigEcho
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &echo))
			assert.Equal(t, "ok", echo.Status)
			assert.Equal(t, "test", echo.Environment)
			assert.Equal(t, "https://api.dify.ai/v1", echo.Config.APIURL)
			assert.Equal(t, "chat", echo.Config.APIKeyType)
			assert.Equal(t, "app-...5678", echo.Config.APIKeyPreview)
			assert.True(t, echo.DebugMode)
			assert.Equal(t, echoMessage, echo.Message)
			assert.NotContains(t, w.Body.String(), "app-chat-key-5678")
		})
	}
}

func TestDescribeConfig_KeyTypeDefault(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		expectedType    string
		expectedPreview string
	}{
		{name: "absent", query: "", expectedType: "workflow", expectedPreview: "app-...1234"},
		{name: "empty", query: "?keyType=", expectedType: "workflow", expectedPreview: "app-...1234"},
		{name: "unknown_falls_back", query: "?keyType=other", expectedType: "other", expectedPreview: "app-...1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodGet, "/api/dify"+tt.query, nil, nil)

			require.Equal(t, http.StatusOK, w.Code)
			var echo models.ConfigEcho
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &echo))
			assert.Equal(t, tt.expectedType, echo.Config.APIKeyType)
			assert.Equal(t, tt.expectedPreview, echo.Config.APIKeyPreview)
		})
	}
}

func TestSessions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Token)
	require.NotEmpty(t, created.SessionID)

	t.Run("refresh_keeps_session", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/sessions", nil, bearer(created.Token))
		require.Equal(t, http.StatusOK, w.Code)
		var refreshed models.CreateSessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
		assert.Equal(t, created.SessionID, refreshed.SessionID)
	})

	t.Run("invalid_token_starts_new_session", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/sessions", nil, bearer("garbage"))
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("research_requires_token", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/sessions/research", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("empty_session_not_found", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/sessions/research", nil, bearer(created.Token))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update_then_read", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/sessions/research", map[string]string{
			"title":         "冰淇淋麦克风",
			"research_text": "编辑后的内容",
		}, bearer(created.Token))
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodGet, "/api/sessions/research", nil, bearer(created.Token))
		require.Equal(t, http.StatusOK, w.Code)
		var rec models.ResearchSession
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.Equal(t, "冰淇淋麦克风", rec.Title)
		assert.Equal(t, "编辑后的内容", rec.ResearchText)
		assert.False(t, rec.UpdatedAt.IsZero())
	})

	t.Run("update_requires_text", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/sessions/research", map[string]string{"title": "x"}, bearer(created.Token))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSessions_Disabled(t *testing.T) {
	env := newTestEnv(t, withoutSessions())

	w := env.do(t, http.MethodPost, "/api/sessions", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/dify", map[string]any{
		"inputs": map[string]string{"topic": "机器人"},
	}, bearer("ignored"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExport(t *testing.T) {
	tests := []struct {
		name            string
		body            any
		expectedStatus  int
		expectedType    string
		expectedFile    string
		expectedPayload string
	}{
		{
			name:            "text",
			body:            map[string]any{"text": "<p>第一行</p>\n\n\n\n第二行", "title": "机器人研究"},
			expectedStatus:  http.StatusOK,
			expectedType:    "text/plain; charset=utf-8",
			expectedFile:    "机器人研究-结果.txt",
			expectedPayload: "第一行\n第二行",
		},
		{
			name:           "docx_default_title",
			body:           map[string]any{"text": "# 标题\n- 要点", "format": "docx", "header": true},
			expectedStatus: http.StatusOK,
			expectedType:   "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			expectedFile:   "研究报告-结果.docx",
		},
		{
			name:           "html",
			body:           map[string]any{"text": "# 标题\n**重点**", "format": "HTML"},
			expectedStatus: http.StatusOK,
			expectedType:   "text/html; charset=utf-8",
			expectedFile:   "研究报告-结果.html",
		},
		{
			name:           "unsupported_format",
			body:           map[string]any{"text": "内容", "format": "pdf"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing_text",
			body:           map[string]any{"format": "txt"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, http.MethodPost, "/api/export", tt.body, nil)

			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.expectedType, w.Header().Get("Content-Type"))
			assert.Equal(t, contentDisposition(tt.expectedFile), w.Header().Get("Content-Disposition"))
			if tt.expectedPayload != "" {
				assert.Equal(t, tt.expectedPayload, w.Body.String())
			}
			if strings.HasSuffix(tt.expectedFile, ".docx") {
				assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "docx must be a zip package")
			}
		})
	}
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t,
		`attachment; filename="_____-__.txt"; filename*=UTF-8''%E6%9C%BA%E5%99%A8%E4%BA%BA%E7%A0%94%E7%A9%B6-%E7%BB%93%E6%9E%9C.txt`,
		contentDisposition("机器人研究-结果.txt"))
	assert.Equal(t, `attachment; filename="report.txt"; filename*=UTF-8''report.txt`, contentDisposition("report.txt"))
}

func TestResearch(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.token(t)

	w := env.do(t, http.MethodPost, "/api/research", map[string]string{"topic": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.MsgTopicRequired, decodeError(t, w).Error)

	w = env.do(t, http.MethodPost, "/api/research", map[string]string{"topic": "配送机器人"}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	var report models.ResearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "# 研究\n正文", report.Research)

	// an empty image request falls back to the saved research
	w = env.do(t, http.MethodPost, "/api/generate-image", map[string]string{}, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# 研究\n正文", env.research.lastText)
	var image models.ImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &image))
	assert.Equal(t, "https://images.example/1.png", image.ImageURL)
}

func TestGenerateImage_RequiresText(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/generate-image", map[string]string{"text": ""}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.MsgTextRequired, decodeError(t, w).Error)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	env.client.unhealthy = true
	w = env.do(t, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, map[string]string{RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	w = env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}
