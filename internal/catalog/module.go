package catalog

import (
	"trade_console/internal/session"
	"trade_console/internal/xts"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Catalog groups one service per entity the console can browse.
type Catalog struct {
	Products         *Products
	Partners         *Partners
	Employees        *Service[Employee, EmployeeDraft]
	Currencies       *Service[Currency, CurrencyDraft]
	Orders           *Service[Order, OrderDraft]
	CashReceipts     *Service[Receipt, ReceiptDraft]
	TransferReceipts *Service[Receipt, ReceiptDraft]
	SupplierInvoices *Service[SupplierInvoice, SupplierInvoiceDraft]
}

func New(api ObjectAPI, sessions session.Provider, logger *zap.Logger) *Catalog {
	return &Catalog{
		Products:         NewProducts(api, sessions, logger),
		Partners:         NewPartners(api, sessions, logger),
		Employees:        NewService(api, sessions, EmployeeEntity, logger),
		Currencies:       NewService(api, sessions, CurrencyEntity, logger),
		Orders:           NewService(api, sessions, OrderEntity, logger),
		CashReceipts:     NewService(api, sessions, CashReceiptEntity, logger),
		TransferReceipts: NewService(api, sessions, TransferReceiptEntity, logger),
		SupplierInvoices: NewService(api, sessions, SupplierInvoiceEntity, logger),
	}
}

func Module() fx.Option {
	return fx.Module(
		"catalog",
		fx.Provide(
			func(client *xts.Client) ObjectAPI { return client },
			New,
			func(c *Catalog) *Products { return c.Products },
			func(c *Catalog) *Partners { return c.Partners },
		),
	)
}
