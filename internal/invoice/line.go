package invoice

import (
	"github.com/shopspring/decimal"
)

// Line is one reviewed invoice row. ProductID is set only for rows that
// matched a catalog product.
type Line struct {
	Key                   string
	LineNumber            int
	ProductID             string
	ProductCode           string
	ProductDescription    string
	ProductCharacteristic string
	Quantity              decimal.Decimal
	Price                 decimal.Decimal
	Total                 decimal.Decimal
	Coefficient           decimal.Decimal
	Discount              decimal.Decimal
	OriginalPrice         decimal.Decimal
}

func (l Line) Existing() bool {
	return l.ProductID != ""
}

// recompute keeps Price and Total consistent with the source price and
// discount: price = originalPrice + discount, total = quantity * price.
func (l *Line) recompute() {
	l.Price = l.OriginalPrice.Add(l.Discount)
	l.Total = l.Quantity.Mul(l.Price)
}

// LineEdit changes any subset of the editable numbers of a line.
type LineEdit struct {
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
	Discount *decimal.Decimal
}

func (e LineEdit) apply(l *Line) {
	if e.Quantity != nil {
		l.Quantity = *e.Quantity
	}
	if e.Price != nil {
		l.OriginalPrice = *e.Price
	}
	if e.Discount != nil {
		l.Discount = *e.Discount
	}
	l.recompute()
}

// QuickFill rewrites new lines in bulk. Discount is applied to every line.
type QuickFill struct {
	Name        string
	Coefficient *decimal.Decimal
	Discount    *decimal.Decimal
}

func sumTotals(lines ...[]Line) (amount, quantity decimal.Decimal) {
	for _, group := range lines {
		for _, l := range group {
			amount = amount.Add(l.Total)
			quantity = quantity.Add(l.Quantity)
		}
	}
	return amount, quantity
}
