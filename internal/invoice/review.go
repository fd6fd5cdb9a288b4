package invoice

import (
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrLineNotFound = errors.New("invoice line not found")

// Header holds the editable invoice header. Amount and Quantity are manual
// overrides; when not Valid the sums of the line totals are used.
type Header struct {
	Date        string
	Number      string
	Supplier    string
	ContactInfo string
	Comment     string
	Amount      decimal.NullDecimal
	Quantity    decimal.NullDecimal
}

// Review is the editable result of one recognized invoice.
type Review struct {
	mu       sync.Mutex
	header   Header
	existing []Line
	added    []Line
	saving   bool
}

func (r *Review) Header() Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

func (r *Review) EditHeader(change func(h *Header)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	change(&r.header)
}

// Lines returns copies of the matched and the new lines.
func (r *Review) Lines() (existing, added []Line) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.existing...), append([]Line(nil), r.added...)
}

func (r *Review) Line(key string) (Line, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.find(key); l != nil {
		return *l, true
	}
	return Line{}, false
}

func (r *Review) EditLine(key string, edit LineEdit) (Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.find(key)
	if l == nil {
		return Line{}, ErrLineNotFound
	}
	edit.apply(l)
	return *l, nil
}

func (r *Review) RemoveLine(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if out, ok := without(r.existing, key); ok {
		r.existing = out
		return nil
	}
	if out, ok := without(r.added, key); ok {
		r.added = out
		return nil
	}
	return ErrLineNotFound
}

// ApplyQuickFill sets name and coefficient on every new line and re-applies
// the discount to all lines.
func (r *Review) ApplyQuickFill(fill QuickFill) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.TrimSpace(fill.Name)
	for i := range r.added {
		if name != "" {
			r.added[i].ProductDescription = name
		}
		if fill.Coefficient != nil {
			r.added[i].Coefficient = *fill.Coefficient
		}
	}
	if fill.Discount == nil {
		return
	}
	for _, group := range [][]Line{r.existing, r.added} {
		for i := range group {
			group[i].Discount = *fill.Discount
			group[i].recompute()
		}
	}
}

// Totals returns the header amount and quantity, falling back to line sums
// for fields without a manual value.
func (r *Review) Totals() (amount, quantity decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals()
}

func (r *Review) totals() (amount, quantity decimal.Decimal) {
	amount, quantity = sumTotals(r.existing, r.added)
	if r.header.Amount.Valid {
		amount = r.header.Amount.Decimal
	}
	if r.header.Quantity.Valid {
		quantity = r.header.Quantity.Decimal
	}
	return amount, quantity
}

func (r *Review) find(key string) *Line {
	for i := range r.existing {
		if r.existing[i].Key == key {
			return &r.existing[i]
		}
	}
	for i := range r.added {
		if r.added[i].Key == key {
			return &r.added[i]
		}
	}
	return nil
}

func without(lines []Line, key string) ([]Line, bool) {
	for i := range lines {
		if lines[i].Key == key {
			return append(lines[:i:i], lines[i+1:]...), true
		}
	}
	return lines, false
}
