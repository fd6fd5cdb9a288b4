package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trade_console/internal/config"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("llm is not configured")
	ErrNoImages      = errors.New("at least one image is required")
	ErrEmptyAnswer   = errors.New("llm returned empty response")
)

// Image is one picture sent to a vision model.
type Image struct {
	MIMEType string
	Data     []byte
}

func (i Image) dataURL() string {
	mime := strings.TrimSpace(i.MIMEType)
	if mime == "" {
		mime = http.DetectContentType(i.Data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

type Client struct {
	client  *openrouter.Client
	model   string
	logger  *zap.Logger
	enabled bool
}

func NewClient(cfg config.Config, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("llm")
	model := strings.TrimSpace(cfg.LLMModel)
	apiKey := strings.TrimSpace(cfg.LLMAPIKey)

	if model == "" || apiKey == "" {
		logger.Warn("LLM config is incomplete; vision calls will be disabled",
			zap.Bool("has_model", model != ""),
			zap.Bool("has_api_key", apiKey != ""),
		)
		return &Client{
			model:  model,
			logger: logger,
		}, nil
	}

	cfgClient := openrouter.DefaultConfig(apiKey)
	if strings.TrimSpace(cfg.LLMBaseURL) != "" {
		cfgClient.BaseURL = strings.TrimSpace(cfg.LLMBaseURL)
	}
	cfgClient.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:  openrouter.NewClientWithConfig(*cfgClient),
		model:   model,
		logger:  logger,
		enabled: true,
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Vision sends all images in one user message. The prompt is the first part
// and the images follow in the given order.
func (c *Client) Vision(ctx context.Context, prompt string, images []Image) (string, error) {
	if !c.Enabled() || c.client == nil {
		return "", ErrNotConfigured
	}
	if len(images) == 0 {
		return "", ErrNoImages
	}

	parts := make([]openrouter.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openrouter.ChatMessagePart{
		Type: openrouter.ChatMessagePartTypeText,
		Text: prompt,
	})
	for _, img := range images {
		parts = append(parts, openrouter.ChatMessagePart{
			Type:     openrouter.ChatMessagePartTypeImageURL,
			ImageURL: &openrouter.ChatMessageImageURL{URL: img.dataURL()},
		})
	}

	request := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{{
			Role:    openrouter.ChatMessageRoleUser,
			Content: openrouter.Content{Multi: parts},
		}},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		c.logger.Warn("vision request failed",
			zap.Int("images", len(images)),
			zap.Int64("ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		return "", fmt.Errorf("vision request: %w", err)
	}
	c.logUsage(resp, len(images), time.Since(start))

	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content.Text)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

func (c *Client) logUsage(resp openrouter.ChatCompletionResponse, images int, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("model", c.model),
		zap.Int("images", images),
		zap.Int64("ms", elapsed.Milliseconds()),
	}
	if resp.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
			zap.Float64("cost", resp.Usage.Cost),
		)
	}
	c.logger.Info("vision usage", fields...)
}
