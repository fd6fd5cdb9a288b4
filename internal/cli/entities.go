package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"trade_console/internal/catalog"
	"trade_console/internal/detail"
	"trade_console/internal/listing"
	"trade_console/internal/query"
	"trade_console/internal/xts"
)

type entityView interface {
	browse(ctx context.Context, r *Runner, q query.Query) error
	show(ctx context.Context, r *Runner, id string) error
	edit(ctx context.Context, r *Runner, id string, assignments []string, dryRun bool) error
}

type setter[D any] func(d *D, value string) error

type view[V, D any] struct {
	title   string
	svc     *catalog.Service[V, D]
	key     func(V) string
	header  []string
	row     func(V) []string
	fields  func(V) [][2]string
	setters map[string]setter[D]
}

func (v *view[V, D]) browse(ctx context.Context, r *Runner, q query.Query) error {
	list := listing.NewController[V](v.svc.List, r.options.PageSize, r.term, r.logger)
	sentinel := listing.NewSentinel(list)

	args := map[string]any{"entity": v.title, "search": q.SearchTerm, "search_by": q.SearchType, "filters": q.Filters}
	if _, _, err := trackCall(r.logger, "list", args, func() (int, error) {
		return 0, list.Reset(ctx, q)
	}); err != nil {
		return reported(err)
	}

	shown := 0
	for pages := 1; ; pages++ {
		state := list.State()
		if !r.options.JSON {
			rows := make([][]string, 0, len(state.Items)-shown)
			for _, item := range state.Items[shown:] {
				rows = append(rows, v.row(item))
			}
			r.writeRows(v.header, rows, shown+1)
		}
		shown = len(state.Items)

		if shown == 0 || !list.CanLoadMore() || !r.wantMore(pages) {
			break
		}
		last := v.key(state.Items[shown-1])
		sentinel.Watch(last)
		if _, _, err := trackCall(r.logger, "list more", map[string]any{"entity": v.title, "page": pages + 1}, func() (int, error) {
			return 0, sentinel.Visible(ctx, last)
		}); err != nil {
			return reported(err)
		}
	}

	state := list.State()
	if r.options.JSON {
		return r.writeJSON(map[string]any{"items": state.Items, "has_more": state.HasMore, "page": state.Page})
	}
	if len(state.Items) == 0 {
		fmt.Fprintln(r.out, "(no results)")
	} else if state.HasMore {
		fmt.Fprintln(r.out, "(more available)")
	}
	return nil
}

// wantMore decides whether the last row counts as scrolled into view.
func (r *Runner) wantMore(loaded int) bool {
	if !r.options.Interactive {
		return loaded < r.options.Pages
	}
	answer, ok := r.term.ask("-- Enter for more, q to stop -- ")
	return ok && !strings.EqualFold(answer, "q")
}

func (v *view[V, D]) show(ctx context.Context, r *Runner, id string) error {
	item, _, err := trackCall(r.logger, "get", map[string]any{"entity": v.title, "id": id}, func() (V, error) {
		return v.svc.Get(ctx, id)
	})
	if err != nil {
		return err
	}
	if r.options.JSON {
		return r.writeJSON(item)
	}
	r.writeFields(v.fields(item))
	return nil
}

func (v *view[V, D]) edit(ctx context.Context, r *Runner, id string, assignments []string, dryRun bool) error {
	editor := v.svc.Editor(r.term)
	if err := editor.Load(ctx, id); err != nil {
		if editor.Status() == detail.LoadError {
			return reported(err)
		}
		return err
	}

	for _, a := range assignments {
		field, value, ok := strings.Cut(a, "=")
		set := v.setters[strings.TrimSpace(field)]
		if !ok || set == nil {
			return fmt.Errorf("cannot set %q; editable fields: %s", a, strings.Join(v.editable(), ", "))
		}
		draft := editor.Draft()
		if err := set(&draft, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if err := editor.Edit(func(d *D) { *d = draft }); err != nil {
			return err
		}
	}

	if dryRun {
		if err := v.svc.Validate(editor.Draft()); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Dry run: %d change(s) to %s %s are valid.\n", len(assignments), v.title, id)
	} else if editor.IsDirty() && r.term.Confirm(fmt.Sprintf("Save %d change(s) to %s %s?", len(assignments), v.title, id)) {
		if _, _, err := trackCall(r.logger, "save", map[string]any{"entity": v.title, "id": id}, func() (int, error) {
			return 0, editor.Save(ctx)
		}); err != nil {
			return reported(err)
		}
		if r.options.JSON {
			return r.writeJSON(editor.Current())
		}
		fmt.Fprintln(r.out, "Saved.")
		r.writeFields(v.fields(editor.Current()))
		return nil
	}

	if !editor.IsDirty() {
		fmt.Fprintln(r.out, "Nothing to change.")
		return nil
	}
	if editor.NavigateAway(r.term) {
		fmt.Fprintln(r.out, "Changes discarded.")
	} else {
		fmt.Fprintln(r.out, "Nothing was saved.")
	}
	return nil
}

func (v *view[V, D]) editable() []string {
	out := make([]string, 0, len(v.setters))
	for name := range v.setters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func textField[D any](field func(d *D) *string) setter[D] {
	return func(d *D, value string) error {
		*field(d) = value
		return nil
	}
}

func numberField[D any](field func(d *D) *float64) setter[D] {
	return func(d *D, value string) error {
		n, err := parseDecimal(value)
		if err != nil {
			return err
		}
		*field(d) = n.InexactFloat64()
		return nil
	}
}

func boolField[D any](field func(d *D) *bool) setter[D] {
	return func(d *D, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		*field(d) = b
		return nil
	}
}

func dateField[D any](field func(d *D) *time.Time) setter[D] {
	return func(d *D, value string) error {
		t, err := parseDate(value)
		if err != nil {
			return err
		}
		*field(d) = t
		return nil
	}
}

// refField takes the id of the referenced object.
func refField[D any](dataType string, field func(d *D) *xts.ObjectID) setter[D] {
	return func(d *D, value string) error {
		*field(d) = xts.NewObjectID(dataType, value, "")
		return nil
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func entityViews(c *catalog.Catalog) map[string]entityView {
	if c == nil {
		return map[string]entityView{}
	}
	return map[string]entityView{
		"products":          productView(c.Products.Service),
		"partners":          partnerView(c.Partners.Service),
		"employees":         employeeView(c.Employees),
		"currencies":        currencyView(c.Currencies),
		"orders":            orderView(c.Orders),
		"cash-receipts":     receiptView("cash receipt", c.CashReceipts),
		"transfer-receipts": receiptView("transfer receipt", c.TransferReceipts),
		"supplier-invoices": supplierInvoiceView(c.SupplierInvoices),
	}
}

func productView(svc *catalog.Service[catalog.Product, catalog.ProductDraft]) entityView {
	type D = catalog.ProductDraft
	return &view[catalog.Product, D]{
		title:  "product",
		svc:    svc,
		key:    func(p catalog.Product) string { return p.ID },
		header: []string{"id", "sku", "description", "type", "price"},
		row: func(p catalog.Product) []string {
			return []string{p.ID, p.SKU, p.Description, p.Type, money(p.Price)}
		},
		fields: func(p catalog.Product) [][2]string {
			return [][2]string{
				{"id", p.ID}, {"description", p.Description}, {"sku", p.SKU},
				{"characteristic", p.Characteristic}, {"type", p.Type}, {"uom", p.UOM.Presentation},
				{"price", money(p.Price)}, {"coefficient", money(p.Coefficient)},
				{"comment", p.Comment}, {"inactive", yesNo(p.Invalid)},
			}
		},
		setters: map[string]setter[D]{
			"description":    textField(func(d *D) *string { return &d.Description }),
			"sku":            textField(func(d *D) *string { return &d.SKU }),
			"characteristic": textField(func(d *D) *string { return &d.Characteristic }),
			"type":           textField(func(d *D) *string { return &d.Type }),
			"price":          numberField(func(d *D) *float64 { return &d.Price }),
			"coefficient":    numberField(func(d *D) *float64 { return &d.Coefficient }),
			"comment":        textField(func(d *D) *string { return &d.Comment }),
			"inactive":       boolField(func(d *D) *bool { return &d.Invalid }),
		},
	}
}

func partnerView(svc *catalog.Service[catalog.Partner, catalog.PartnerDraft]) entityView {
	type D = catalog.PartnerDraft
	return &view[catalog.Partner, D]{
		title:  "partner",
		svc:    svc,
		key:    func(p catalog.Partner) string { return p.ID },
		header: []string{"id", "description", "phone", "roles"},
		row: func(p catalog.Partner) []string {
			return []string{p.ID, p.Description, p.Phone, roles(p.Roles)}
		},
		fields: func(p catalog.Partner) [][2]string {
			return [][2]string{
				{"id", p.ID}, {"description", p.Description}, {"full name", p.DescriptionFull},
				{"phone", p.Phone}, {"email", p.Email}, {"address", p.Address},
				{"roles", roles(p.Roles)}, {"comment", p.Comment}, {"inactive", yesNo(p.Invalid)},
			}
		},
		setters: map[string]setter[D]{
			"description": textField(func(d *D) *string { return &d.Description }),
			"full_name":   textField(func(d *D) *string { return &d.DescriptionFull }),
			"phone":       textField(func(d *D) *string { return &d.Phone }),
			"email":       textField(func(d *D) *string { return &d.Email }),
			"address":     textField(func(d *D) *string { return &d.Address }),
			"comment":     textField(func(d *D) *string { return &d.Comment }),
			"customer":    boolField(func(d *D) *bool { return &d.Roles.Customer }),
			"supplier":    boolField(func(d *D) *bool { return &d.Roles.Supplier }),
			"other":       boolField(func(d *D) *bool { return &d.Roles.Other }),
			"inactive":    boolField(func(d *D) *bool { return &d.Invalid }),
		},
	}
}

func roles(r catalog.PartnerRoles) string {
	var out []string
	if r.Customer {
		out = append(out, "customer")
	}
	if r.Supplier {
		out = append(out, "supplier")
	}
	if r.Other {
		out = append(out, "other")
	}
	return strings.Join(out, ",")
}

func employeeView(svc *catalog.Service[catalog.Employee, catalog.EmployeeDraft]) entityView {
	type D = catalog.EmployeeDraft
	return &view[catalog.Employee, D]{
		title:  "employee",
		svc:    svc,
		key:    func(e catalog.Employee) string { return e.ID },
		header: []string{"id", "description", "position", "phone"},
		row: func(e catalog.Employee) []string {
			return []string{e.ID, e.Description, e.Position, e.Phone}
		},
		fields: func(e catalog.Employee) [][2]string {
			return [][2]string{
				{"id", e.ID}, {"description", e.Description}, {"gender", e.Gender},
				{"birth date", formatDate(e.BirthDate)}, {"position", e.Position},
				{"phone", e.Phone}, {"email", e.Email}, {"inactive", yesNo(e.Invalid)},
			}
		},
		setters: map[string]setter[D]{
			"description": textField(func(d *D) *string { return &d.Description }),
			"gender":      textField(func(d *D) *string { return &d.Gender }),
			"birth_date":  dateField(func(d *D) *time.Time { return &d.BirthDate }),
			"position":    textField(func(d *D) *string { return &d.Position }),
			"phone":       textField(func(d *D) *string { return &d.Phone }),
			"email":       textField(func(d *D) *string { return &d.Email }),
			"inactive":    boolField(func(d *D) *bool { return &d.Invalid }),
		},
	}
}

func currencyView(svc *catalog.Service[catalog.Currency, catalog.CurrencyDraft]) entityView {
	type D = catalog.CurrencyDraft
	return &view[catalog.Currency, D]{
		title:  "currency",
		svc:    svc,
		key:    func(c catalog.Currency) string { return c.ID },
		header: []string{"id", "code", "description", "rate"},
		row: func(c catalog.Currency) []string {
			return []string{c.ID, c.Code, c.Description, strconv.FormatFloat(c.Rate, 'f', -1, 64)}
		},
		fields: func(c catalog.Currency) [][2]string {
			return [][2]string{
				{"id", c.ID}, {"code", c.Code}, {"description", c.Description}, {"symbol", c.Symbol},
				{"rate", strconv.FormatFloat(c.Rate, 'f', -1, 64)},
				{"multiplicity", strconv.FormatFloat(c.Multiplicity, 'f', -1, 64)},
			}
		},
		setters: map[string]setter[D]{
			"code":         textField(func(d *D) *string { return &d.Code }),
			"description":  textField(func(d *D) *string { return &d.Description }),
			"symbol":       textField(func(d *D) *string { return &d.Symbol }),
			"rate":         numberField(func(d *D) *float64 { return &d.Rate }),
			"multiplicity": numberField(func(d *D) *float64 { return &d.Multiplicity }),
		},
	}
}

func orderView(svc *catalog.Service[catalog.Order, catalog.OrderDraft]) entityView {
	type D = catalog.OrderDraft
	return &view[catalog.Order, D]{
		title:  "order",
		svc:    svc,
		key:    func(o catalog.Order) string { return o.ID },
		header: []string{"id", "number", "date", "customer", "amount", "state"},
		row: func(o catalog.Order) []string {
			return []string{o.ID, o.Number, formatDate(o.Date), o.Customer.Presentation, money(o.Amount), o.State}
		},
		fields: func(o catalog.Order) [][2]string {
			return [][2]string{
				{"id", o.ID}, {"number", o.Number}, {"date", formatDate(o.Date)},
				{"customer", o.Customer.Presentation}, {"amount", money(o.Amount)},
				{"currency", o.Currency.Presentation}, {"state", o.State},
				{"comment", o.Comment}, {"posted", yesNo(o.Posted)},
			}
		},
		setters: map[string]setter[D]{
			"date":     dateField(func(d *D) *time.Time { return &d.Date }),
			"customer": refField(catalog.PartnerDataType, func(d *D) *xts.ObjectID { return &d.Customer }),
			"amount":   numberField(func(d *D) *float64 { return &d.Amount }),
			"state":    textField(func(d *D) *string { return &d.State }),
			"comment":  textField(func(d *D) *string { return &d.Comment }),
		},
	}
}

func receiptView(title string, svc *catalog.Service[catalog.Receipt, catalog.ReceiptDraft]) entityView {
	type D = catalog.ReceiptDraft
	return &view[catalog.Receipt, D]{
		title:  title,
		svc:    svc,
		key:    func(rc catalog.Receipt) string { return rc.ID },
		header: []string{"id", "number", "date", "partner", "amount", "posted"},
		row: func(rc catalog.Receipt) []string {
			return []string{rc.ID, rc.Number, formatDate(rc.Date), rc.Partner.Presentation, money(rc.Amount), yesNo(rc.Posted)}
		},
		fields: func(rc catalog.Receipt) [][2]string {
			return [][2]string{
				{"id", rc.ID}, {"kind", rc.Kind}, {"number", rc.Number}, {"date", formatDate(rc.Date)},
				{"partner", rc.Partner.Presentation}, {"amount", money(rc.Amount)},
				{"currency", rc.Currency.Presentation}, {"comment", rc.Comment}, {"posted", yesNo(rc.Posted)},
			}
		},
		setters: map[string]setter[D]{
			"date":    dateField(func(d *D) *time.Time { return &d.Date }),
			"partner": refField(catalog.PartnerDataType, func(d *D) *xts.ObjectID { return &d.Partner }),
			"amount":  numberField(func(d *D) *float64 { return &d.Amount }),
			"comment": textField(func(d *D) *string { return &d.Comment }),
		},
	}
}

func supplierInvoiceView(svc *catalog.Service[catalog.SupplierInvoice, catalog.SupplierInvoiceDraft]) entityView {
	type D = catalog.SupplierInvoiceDraft
	return &view[catalog.SupplierInvoice, D]{
		title:  "supplier invoice",
		svc:    svc,
		key:    func(inv catalog.SupplierInvoice) string { return inv.ID },
		header: []string{"id", "number", "date", "supplier", "amount", "rows"},
		row: func(inv catalog.SupplierInvoice) []string {
			return []string{inv.ID, inv.Number, formatDate(inv.Date), inv.Supplier.Presentation, money(inv.Amount), strconv.Itoa(len(inv.Rows))}
		},
		fields: func(inv catalog.SupplierInvoice) [][2]string {
			fields := [][2]string{
				{"id", inv.ID}, {"number", inv.Number}, {"date", formatDate(inv.Date)},
				{"supplier", inv.Supplier.Presentation}, {"contact", inv.ContactInfo},
				{"amount", money(inv.Amount)}, {"quantity", money(inv.Quantity)},
				{"comment", inv.Comment}, {"posted", yesNo(inv.Posted)},
			}
			for i, row := range inv.Rows {
				fields = append(fields, [2]string{
					fmt.Sprintf("row %d", i+1),
					fmt.Sprintf("%s x %s @ %s = %s", row.Product.Presentation, money(row.Quantity), money(row.Price), money(row.Total)),
				})
			}
			return fields
		},
		setters: map[string]setter[D]{
			"number":   textField(func(d *D) *string { return &d.Number }),
			"date":     dateField(func(d *D) *time.Time { return &d.Date }),
			"supplier": refField(catalog.PartnerDataType, func(d *D) *xts.ObjectID { return &d.Supplier }),
			"contact":  textField(func(d *D) *string { return &d.ContactInfo }),
			"amount":   numberField(func(d *D) *float64 { return &d.Amount }),
			"quantity": numberField(func(d *D) *float64 { return &d.Quantity }),
			"comment":  textField(func(d *D) *string { return &d.Comment }),
		},
	}
}
