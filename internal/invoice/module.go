package invoice

import (
	"trade_console/internal/catalog"
	"trade_console/internal/ocr"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"invoice",
		fx.Provide(func(extractor *ocr.Extractor, c *catalog.Catalog, logger *zap.Logger) *Flow {
			return NewFlow(extractor, c.Products, c.Partners, c.SupplierInvoices, logger)
		}),
	)
}
