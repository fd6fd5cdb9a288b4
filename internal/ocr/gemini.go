package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"trade_console/internal/llm"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

var ErrMissingGeminiKey = errors.New("gemini_api_key is empty")

// GeminiVision answers vision prompts with Google Gemini.
type GeminiVision struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

func NewGeminiVision(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiVision, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingGeminiKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultGeminiModel
	}
	return &GeminiVision{
		client: client,
		model:  client.GenerativeModel(modelName),
		logger: logger.Named("gemini"),
	}, nil
}

func (g *GeminiVision) Close() error {
	return g.client.Close()
}

func (g *GeminiVision) Vision(ctx context.Context, prompt string, images []llm.Image) (string, error) {
	if len(images) == 0 {
		return "", llm.ErrNoImages
	}
	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, img := range images {
		parts = append(parts, genai.ImageData(imageFormat(img), img.Data))
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generation: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", llm.ErrEmptyAnswer
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", llm.ErrEmptyAnswer
	}
	return b.String(), nil
}

// imageFormat returns the subtype genai.ImageData expects, e.g. "png".
func imageFormat(img llm.Image) string {
	mime := strings.TrimSpace(img.MIMEType)
	if mime == "" {
		mime = http.DetectContentType(img.Data)
	}
	mime, _, _ = strings.Cut(mime, ";")
	format := strings.TrimPrefix(mime, "image/")
	if format == "" || format == mime {
		return "jpeg"
	}
	return format
}
