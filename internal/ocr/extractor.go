// Package ocr turns invoice images into structured lines through a vision
// model. The prompt and the answer format are private to this package.
package ocr

import (
	"context"
	"fmt"
	"time"

	"trade_console/internal/llm"

	"go.uber.org/zap"
)

// Vision is a model that answers a text prompt about a set of images.
type Vision interface {
	Vision(ctx context.Context, prompt string, images []llm.Image) (string, error)
}

type Extractor struct {
	vision Vision
	prompt string
	logger *zap.Logger
}

func NewExtractor(vision Vision, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		vision: vision,
		prompt: Prompt(),
		logger: logger.Named("ocr"),
	}
}

// ExtractInvoiceLines sends every image in a single request and parses the
// answer. A malformed answer yields ErrParse.
func (e *Extractor) ExtractInvoiceLines(ctx context.Context, images []llm.Image) (Extraction, error) {
	if len(images) == 0 {
		return Extraction{}, llm.ErrNoImages
	}

	start := time.Now()
	text, err := e.vision.Vision(ctx, e.prompt, images)
	if err != nil {
		return Extraction{}, fmt.Errorf("recognize invoice: %w", err)
	}

	extraction, err := Parse(text)
	if err != nil {
		e.logger.Warn("unparseable ocr answer",
			zap.Int("images", len(images)),
			zap.Int("answer_len", len(text)),
			zap.Error(err),
		)
		return Extraction{}, err
	}

	e.logger.Info("invoice recognized",
		zap.Int("images", len(images)),
		zap.Int("lines", len(extraction.Lines)),
		zap.Int64("ms", time.Since(start).Milliseconds()),
	)
	return extraction, nil
}
