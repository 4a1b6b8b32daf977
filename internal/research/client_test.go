package research

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

// fakeOpenAI serves chat completions and image generations.
func fakeOpenAI(t *testing.T, chatStatus, imageStatus int) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var chatBodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			chatBodies = append(chatBodies, body)
			w.WriteHeader(chatStatus)
			if chatStatus != http.StatusOK {
				w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
				return
			}
			json.NewEncoder(w).Encode(chatCompletion("# 研究报告\n内容"))
		case strings.HasSuffix(r.URL.Path, "/images/generations"):
			w.WriteHeader(imageStatus)
			if imageStatus != http.StatusOK {
				w.Write([]byte(`{"error":{"message":"no images","type":"server_error"}}`))
				return
			}
			w.Write([]byte(`{"created":1700000000,"data":[{"url":"https://images.example/1.png"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &chatBodies
}

func newTestClient(serverURL string) *Client {
	return NewClient(config.OpenAIConfig{
		APIKey:     "sk-test",
		BaseURL:    serverURL,
		Model:      "gpt-4o",
		ImageModel: "dall-e-3",
	}, zap.NewNop(), option.WithMaxRetries(0))
}

func TestClient_MockWithoutKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "empty_key", key: ""},
		{name: "placeholder_key", key: "your_openai_api_key_here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(config.OpenAIConfig{APIKey: tt.key}, nil)
			assert.False(t, client.Configured())

			report, err := client.Research(t.Context(), "机器人")
			require.NoError(t, err)
			assert.Equal(t, MockResearch, report.Research)
			assert.Equal(t, SourceMock, report.Source)

			image, err := client.GenerateImage(t.Context(), "机器人设计")
			require.NoError(t, err)
			assert.Equal(t, &models.ImageResponse{Keywords: MockKeywords, ImageURL: MockImageURL, Source: SourceMock}, image)
		})
	}
}

func TestClient_RequiresInput(t *testing.T) {
	client := NewClient(config.OpenAIConfig{}, nil)

	_, err := client.Research(t.Context(), "  ")
	assert.EqualError(t, err, models.MsgTopicRequired)

	_, err = client.GenerateImage(t.Context(), "")
	assert.EqualError(t, err, models.MsgTextRequired)
}

func TestClient_Research(t *testing.T) {
	server, bodies := fakeOpenAI(t, http.StatusOK, http.StatusOK)
	client := newTestClient(server.URL)

	report, err := client.Research(t.Context(), "自主配送机器人")
	require.NoError(t, err)
	assert.Equal(t, "# 研究报告\n内容", report.Research)
	assert.Equal(t, SourceOpenAI, report.Source)

	require.Len(t, *bodies, 1)
	body := (*bodies)[0]
	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 0.7, body["temperature"], 0.0001)
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[1].(map[string]any)["content"], "自主配送机器人")
}

func TestClient_ResearchAPIErrorFallsBack(t *testing.T) {
	server, _ := fakeOpenAI(t, http.StatusInternalServerError, http.StatusOK)
	client := newTestClient(server.URL)

	report, err := client.Research(t.Context(), "机器人")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(report.Research, MockResearch))
	assert.Contains(t, report.Research, "## 错误信息")
	assert.Equal(t, SourceMockAPIError, report.Source)
}

func TestClient_GenerateImage(t *testing.T) {
	tests := []struct {
		name        string
		chatStatus  int
		imageStatus int
		expected    models.ImageResponse
	}{
		{
			name:        "success",
			chatStatus:  http.StatusOK,
			imageStatus: http.StatusOK,
			expected:    models.ImageResponse{Keywords: "# 研究报告\n内容", ImageURL: "https://images.example/1.png", Source: SourceDalle},
		},
		{
			name:        "keyword_failure",
			chatStatus:  http.StatusInternalServerError,
			imageStatus: http.StatusOK,
			expected:    models.ImageResponse{Keywords: MockKeywords, ImageURL: MockImageURL, Source: SourceMockAPIError},
		},
		{
			name:        "image_failure_keeps_keywords",
			chatStatus:  http.StatusOK,
			imageStatus: http.StatusInternalServerError,
			expected:    models.ImageResponse{Keywords: "# 研究报告\n内容", ImageURL: MockImageURL, Source: SourceMockImage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := fakeOpenAI(t, tt.chatStatus, tt.imageStatus)
			client := newTestClient(server.URL)

			image, err := client.GenerateImage(t.Context(), "冰淇淋造型的K歌麦克风")
			require.NoError(t, err)
			assert.Equal(t, &tt.expected, image)
		})
	}
}
