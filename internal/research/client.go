// Package research generates standalone research reports and concept images
// through the OpenAI API, degrading to canned content when it is unavailable.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// placeholderKey is the value shipped in sample env files.
const placeholderKey = "your_openai_api_key_here"

const (
	researchSystemPrompt = "你是一个专业的研究员，善于深入分析主题并提供详尽的研究报告。请提供结构清晰、内容全面的研究报告，包含引言、背景、主要论点、分析、结论等部分。"
	keywordSystemPrompt  = "你是一个专业的关键词提取器。请从给定的文本中提取5-10个最重要的关键词，这些关键词将用于生成相关的设计图片。"
)

// Sources reported in responses.
const (
	SourceOpenAI       = "OpenAI"
	SourceDalle        = "DALL-E"
	SourceMock         = "模拟数据"
	SourceMockAPIError = "模拟数据 (API错误)"
	SourceMockImage    = "模拟图片 (API错误)"
)

// ErrEmptyCompletion is returned when the API answers without content.
var ErrEmptyCompletion = errors.New("completion returned no content")

// ClientInterface is implemented by Client
type ClientInterface interface {
	Research(ctx context.Context, topic string) (*models.ResearchResponse, error)
	GenerateImage(ctx context.Context, text string) (*models.ImageResponse, error)
}

// Client talks to the OpenAI chat and image APIs
type Client struct {
	api        *openai.Client
	model      string
	imageModel string
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewClient creates a client. Without a usable API key every call returns
// mock content.
func NewClient(cfg config.OpenAIConfig, log *zap.Logger, opts ...option.RequestOption) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		tracer:     otel.Tracer("research-client"),
		logger:     log,
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" || key == placeholderKey {
		log.Warn("OpenAI API key not configured, research endpoints return mock data")
		return c
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	requestOpts = append(requestOpts, opts...)
	api := openai.NewClient(requestOpts...)
	c.api = &api
	return c
}

// Configured reports whether calls reach the API
func (c *Client) Configured() bool {
	return c.api != nil
}

// Research writes a report on topic. API failures degrade to the mock report
// with an error section appended; only an empty topic is an error.
func (c *Client) Research(ctx context.Context, topic string) (*models.ResearchResponse, error) {
	ctx, span := c.tracer.Start(ctx, "research.report")
	defer span.End()

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New(models.MsgTopicRequired)
	}
	if c.api == nil {
		return &models.ResearchResponse{Research: MockResearch, Source: SourceMock}, nil
	}

	content, err := c.complete(ctx, researchSystemPrompt,
		"请对以下主题进行深入研究并撰写一篇全面的研究报告："+topic, 0.7, 4000)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("OpenAI research call failed", zap.Error(err))
		return &models.ResearchResponse{Research: MockResearch + researchErrorSection, Source: SourceMockAPIError}, nil
	}

	span.SetAttributes(attribute.Int("research.length", len(content)))
	return &models.ResearchResponse{Research: content, Source: SourceOpenAI}, nil
}

// GenerateImage extracts keywords from text and renders a concept image from
// them. Each failing step falls back to mock output.
func (c *Client) GenerateImage(ctx context.Context, text string) (*models.ImageResponse, error) {
	ctx, span := c.tracer.Start(ctx, "research.concept_image")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, errors.New(models.MsgTextRequired)
	}
	if c.api == nil {
		return &models.ImageResponse{Keywords: MockKeywords, ImageURL: MockImageURL, Source: SourceMock}, nil
	}

	keywords, err := c.complete(ctx, keywordSystemPrompt, "请从以下文本中提取关键词，以逗号分隔："+text, 0.3, 100)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("OpenAI keyword extraction failed", zap.Error(err))
		return &models.ImageResponse{Keywords: MockKeywords, ImageURL: MockImageURL, Source: SourceMockAPIError}, nil
	}

	imageURL, err := c.image(ctx, keywords)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("OpenAI image generation failed", zap.Error(err))
		return &models.ImageResponse{Keywords: keywords, ImageURL: MockImageURL, Source: SourceMockImage}, nil
	}

	return &models.ImageResponse{Keywords: keywords, ImageURL: imageURL, Source: SourceDalle}, nil
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64, maxTokens int64) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) image(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.imageModel),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("image generation returned no URL")
	}
	return resp.Data[0].URL, nil
}
