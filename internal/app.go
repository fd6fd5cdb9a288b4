package internal

import (
	"context"

	"trade_console/internal/catalog"
	"trade_console/internal/cli"
	"trade_console/internal/config"
	"trade_console/internal/invoice"
	"trade_console/internal/llm"
	"trade_console/internal/logging"
	"trade_console/internal/ocr"
	"trade_console/internal/session"
	"trade_console/internal/xts"

	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Run() error {
	var runner *cli.Runner

	app := fx.New(
		logger.Module(),
		logger.WithFxDefaultLogger(),
		config.Module(),
		logging.Module(),
		xts.Module(),
		session.Module(),
		catalog.Module(),
		llm.Module(),
		ocr.Module(),
		invoice.Module(),
		cli.Module(),
		fx.Populate(&runner),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		_ = app.Stop(ctx)
	}()

	return runner.Execute()
}
