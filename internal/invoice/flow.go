// Package invoice reconciles recognized supplier invoices with the product
// catalog and hands the reviewed result back for persistence.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trade_console/internal/catalog"
	"trade_console/internal/llm"
	"trade_console/internal/ocr"
	"trade_console/internal/xts"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrMissingSupplier = errors.New("supplier name is required")
	ErrSupplier        = errors.New("cannot resolve supplier")
	ErrBusy            = errors.New("invoice is already being saved")
	ErrNothingToSave   = errors.New("invoice has no lines")
)

type Extractor interface {
	ExtractInvoiceLines(ctx context.Context, images []llm.Image) (ocr.Extraction, error)
}

type ProductCatalog interface {
	SearchBySKU(ctx context.Context, values []xts.SearchString) (catalog.MatchesBySKU, error)
	Create(ctx context.Context, d catalog.ProductDraft) (catalog.Product, error)
	Validate(d catalog.ProductDraft) error
}

type Suppliers interface {
	FindByName(ctx context.Context, name string) (*catalog.Partner, error)
	CreateSupplier(ctx context.Context, name, contactInfo string) (catalog.Partner, error)
}

type Invoices interface {
	Create(ctx context.Context, d catalog.SupplierInvoiceDraft) (catalog.SupplierInvoice, error)
	Validate(d catalog.SupplierInvoiceDraft) error
}

// Result is a reviewed invoice with its supplier resolved.
type Result struct {
	Supplier        catalog.Partner
	SupplierCreated bool
	Header          Header
	Existing        []Line
	New             []Line
	Amount          decimal.Decimal
	Quantity        decimal.Decimal
}

// pendingProductID marks a row whose product is created during Persist.
const pendingProductID = "pending"

type Flow struct {
	extractor Extractor
	products  ProductCatalog
	suppliers Suppliers
	invoices  Invoices
	logger    *zap.Logger
}

func NewFlow(extractor Extractor, products ProductCatalog, suppliers Suppliers, invoices Invoices, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		extractor: extractor,
		products:  products,
		suppliers: suppliers,
		invoices:  invoices,
		logger:    logger.Named("invoice"),
	}
}

// Start recognizes the images and splits the lines into catalog matches and
// new products. Every extracted line lands in exactly one of the two sets; a
// line with several matches appears once per matched product.
func (f *Flow) Start(ctx context.Context, images []llm.Image) (*Review, error) {
	extraction, err := f.extractor.ExtractInvoiceLines(ctx, images)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(extraction.Lines))
	search := make([]xts.SearchString, 0, len(extraction.Lines))
	for _, l := range extraction.Lines {
		lines = append(lines, fromExtracted(l))
		if code := strings.TrimSpace(l.ProductCode); code != "" {
			search = append(search, xts.SearchString{LineNumber: l.LineNumber, Value: code})
		}
	}

	matches, err := f.products.SearchBySKU(ctx, search)
	if err != nil {
		return nil, err
	}

	review := &Review{header: headerFrom(extraction.Header)}
	for _, l := range lines {
		found := matches[l.LineNumber]
		if len(found) == 0 {
			review.added = append(review.added, l)
			continue
		}
		for _, p := range found {
			review.existing = append(review.existing, matched(l, p))
		}
	}

	f.logger.Info("invoice reconciled",
		zap.Int("lines", len(lines)),
		zap.Int("existing", len(review.existing)),
		zap.Int("new", len(review.added)),
	)
	return review, nil
}

// Save resolves the supplier by name, creating it when missing, and returns
// the reviewed result. On failure the review is left untouched.
func (f *Flow) Save(ctx context.Context, review *Review) (Result, error) {
	review.mu.Lock()
	if review.saving {
		review.mu.Unlock()
		return Result{}, ErrBusy
	}
	if len(review.existing)+len(review.added) == 0 {
		review.mu.Unlock()
		return Result{}, ErrNothingToSave
	}
	header := review.header
	review.saving = true
	review.mu.Unlock()

	defer func() {
		review.mu.Lock()
		review.saving = false
		review.mu.Unlock()
	}()

	name := strings.TrimSpace(header.Supplier)
	if name == "" {
		return Result{}, ErrMissingSupplier
	}

	supplier, created, err := f.resolveSupplier(ctx, name, header.ContactInfo)
	if err != nil {
		return Result{}, err
	}

	review.mu.Lock()
	defer review.mu.Unlock()
	amount, quantity := review.totals()
	return Result{
		Supplier:        supplier,
		SupplierCreated: created,
		Header:          review.header,
		Existing:        append([]Line(nil), review.existing...),
		New:             append([]Line(nil), review.added...),
		Amount:          amount,
		Quantity:        quantity,
	}, nil
}

// Persist creates the missing products and the supplier invoice. The invoice
// and every new product are validated before the first request, so a local
// validation failure writes nothing.
func (f *Flow) Persist(ctx context.Context, result Result) (catalog.SupplierInvoice, error) {
	rows := make([]catalog.InvoiceRow, 0, len(result.Existing)+len(result.New))
	for _, l := range result.Existing {
		rows = append(rows, row(l, xts.NewObjectID(catalog.ProductDataType, l.ProductID, l.ProductDescription)))
	}
	drafts := make([]catalog.ProductDraft, 0, len(result.New))
	for _, l := range result.New {
		d := productDraft(l)
		if err := f.products.Validate(d); err != nil {
			return catalog.SupplierInvoice{}, fmt.Errorf("product for line %d: %w", l.LineNumber, err)
		}
		drafts = append(drafts, d)
		rows = append(rows, row(l, xts.NewObjectID(catalog.ProductDataType, pendingProductID, l.ProductDescription)))
	}

	draft := catalog.SupplierInvoiceDraft{
		Number:      result.Header.Number,
		Date:        parseHeaderDate(result.Header.Date),
		Supplier:    result.Supplier.Ref(),
		ContactInfo: result.Header.ContactInfo,
		Amount:      result.Amount.InexactFloat64(),
		Quantity:    result.Quantity.InexactFloat64(),
		Comment:     result.Header.Comment,
		Rows:        rows,
	}
	if err := f.invoices.Validate(draft); err != nil {
		return catalog.SupplierInvoice{}, err
	}

	offset := len(result.Existing)
	for i, d := range drafts {
		product, err := f.products.Create(ctx, d)
		if err != nil {
			return catalog.SupplierInvoice{}, fmt.Errorf("create product for line %d: %w", result.New[i].LineNumber, err)
		}
		draft.Rows[offset+i].Product = product.Ref()
	}

	saved, err := f.invoices.Create(ctx, draft)
	if err != nil {
		return catalog.SupplierInvoice{}, err
	}
	f.logger.Info("supplier invoice saved",
		zap.String("id", saved.ID),
		zap.Int("rows", len(rows)),
		zap.Int("new_products", len(result.New)),
	)
	return saved, nil
}

func productDraft(l Line) catalog.ProductDraft {
	return catalog.ProductDraft{
		Description:    l.ProductDescription,
		SKU:            l.ProductCode,
		Characteristic: l.ProductCharacteristic,
		Price:          l.Price.InexactFloat64(),
		Coefficient:    l.Coefficient.InexactFloat64(),
	}
}

func (f *Flow) resolveSupplier(ctx context.Context, name, contactInfo string) (catalog.Partner, bool, error) {
	found, err := f.suppliers.FindByName(ctx, name)
	if err != nil {
		return catalog.Partner{}, false, fmt.Errorf("%w %q: %w", ErrSupplier, name, err)
	}
	if found != nil {
		return *found, false, nil
	}
	created, err := f.suppliers.CreateSupplier(ctx, name, contactInfo)
	if err != nil {
		f.logger.Warn("supplier creation failed", zap.String("supplier", name), zap.Error(err))
		return catalog.Partner{}, false, fmt.Errorf("%w %q: %w", ErrSupplier, name, err)
	}
	f.logger.Info("supplier created", zap.String("supplier", name), zap.String("id", created.ID))
	return created, true, nil
}

func fromExtracted(l ocr.Line) Line {
	line := Line{
		Key:                   uuid.NewString(),
		LineNumber:            l.LineNumber,
		ProductCode:           strings.TrimSpace(l.ProductCode),
		ProductDescription:    l.ProductDescription,
		ProductCharacteristic: l.ProductCharacteristic,
		Quantity:              l.Quantity,
		Price:                 l.Price,
		OriginalPrice:         l.Price,
		Total:                 l.Total,
		Coefficient:           decimal.NewFromInt(1),
	}
	if line.Total.IsZero() {
		line.Total = line.Quantity.Mul(line.Price)
	}
	return line
}

func matched(l Line, p catalog.Product) Line {
	l.Key = uuid.NewString()
	l.ProductID = p.ID
	if p.Description != "" {
		l.ProductDescription = p.Description
	}
	if p.Coefficient > 0 {
		l.Coefficient = decimal.NewFromFloat(p.Coefficient)
	}
	return l
}

func headerFrom(h ocr.Header) Header {
	header := Header{
		Date:        h.Date,
		Number:      h.Number,
		Supplier:    h.Supplier,
		ContactInfo: h.ContactInfo,
		Comment:     h.Comment,
	}
	if !h.DocumentAmount.IsZero() {
		header.Amount = decimal.NewNullDecimal(h.DocumentAmount)
	}
	if !h.DocumentQuantity.IsZero() {
		header.Quantity = decimal.NewNullDecimal(h.DocumentQuantity)
	}
	return header
}

func row(l Line, product xts.ObjectID) catalog.InvoiceRow {
	return catalog.InvoiceRow{
		Product:        product,
		Characteristic: l.ProductCharacteristic,
		Quantity:       l.Quantity.InexactFloat64(),
		Price:          l.Price.InexactFloat64(),
		Discount:       l.Discount.InexactFloat64(),
		Total:          l.Total.InexactFloat64(),
	}
}

func parseHeaderDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", "02.01.2006", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
