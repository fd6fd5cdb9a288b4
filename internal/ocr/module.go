package ocr

import (
	"context"
	"errors"

	"trade_console/internal/config"
	"trade_console/internal/llm"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"ocr",
		fx.Provide(
			newVision,
			NewExtractor,
		),
	)
}

func newVision(lc fx.Lifecycle, cfg config.Config, client *llm.Client, logger *zap.Logger) (Vision, error) {
	if cfg.OCRProvider != config.OCRProviderGemini {
		return client, nil
	}
	gemini, err := NewGeminiVision(context.Background(), cfg.GeminiKey, cfg.GeminiModel, logger)
	if errors.Is(err, ErrMissingGeminiKey) {
		logger.Warn("gemini is selected but not configured; invoice scanning is disabled")
		return unavailable{err: err}, nil
	}
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return gemini.Close()
		},
	})
	return gemini, nil
}

// unavailable fails every call with the configuration error.
type unavailable struct {
	err error
}

func (u unavailable) Vision(context.Context, string, []llm.Image) (string, error) {
	return "", u.err
}
