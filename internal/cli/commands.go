package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"trade_console/internal/catalog"
	"trade_console/internal/invoice"
	"trade_console/internal/llm"
	"trade_console/internal/query"
	"trade_console/internal/session"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (r *Runner) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (r *Runner) cmdLogin(ctx context.Context, args []string) error {
	fs := r.flagSet("login")
	user := fs.String("user", r.options.UserName, "User name (XTS_USERNAME)")
	password := fs.String("password", r.options.Password, "Password (XTS_PASSWORD)")
	remember := fs.Bool("remember", false, "Keep the credentials for the next sign in")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creds := session.Credentials{UserName: strings.TrimSpace(*user), Password: *password}
	if creds.UserName == "" || creds.Password == "" {
		saved, err := r.sessions.RememberedCredentials()
		if err != nil {
			r.logger.Warn("load remembered credentials failed", zap.Error(err))
		} else if saved != nil {
			if creds.UserName == "" {
				creds.UserName = saved.UserName
			}
			if creds.Password == "" {
				creds.Password = saved.Password
			}
		}
	}

	s, _, err := trackCall(r.logger, "login", map[string]any{"user": creds.UserName, "remember": *remember}, func() (session.Session, error) {
		return r.sessions.SignIn(ctx, creds, *remember)
	})
	if err != nil {
		return err
	}
	if r.options.JSON {
		return r.writeJSON(map[string]any{"user": s.User, "defaults": s.DefaultValues})
	}
	fmt.Fprintf(r.out, "Signed in as %s.\n", s.User.Presentation)
	return nil
}

func (r *Runner) cmdLogout(ctx context.Context) error {
	if _, ok := r.sessions.Current(); !ok {
		fmt.Fprintln(r.out, "Not signed in.")
		return nil
	}
	if _, _, err := trackCall(r.logger, "logout", nil, func() (int, error) {
		return 0, r.sessions.SignOut(ctx)
	}); err != nil {
		fmt.Fprintf(r.out, "Signed out locally; the server did not confirm: %s\n", friendlyError(err))
		return nil
	}
	fmt.Fprintln(r.out, "Signed out.")
	return nil
}

func (r *Runner) cmdWhoami() error {
	s, err := r.sessions.Require()
	if err != nil {
		return err
	}
	if r.options.JSON {
		return r.writeJSON(s)
	}
	d := s.DefaultValues
	r.writeFields([][2]string{
		{"user", s.User.Presentation},
		{"signed in", s.SignedInAt.Format("2006-01-02 15:04")},
		{"company", d.Company.Presentation},
		{"currency", d.DocumentCurrency.Presentation},
		{"responsible", d.EmployeeResponsible.Presentation},
		{"uom", d.ProductsUOM.Presentation},
		{"warehouse", d.Warehouse.Presentation},
		{"price kind", d.PriceKind.Presentation},
	})
	return nil
}

func (r *Runner) entity(name string) (entityView, error) {
	v, ok := r.entities[name]
	if !ok {
		names := make([]string, 0, len(r.entities))
		for n := range r.entities {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown entity %q; one of: %s", name, strings.Join(names, ", "))
	}
	return v, nil
}

func (r *Runner) cmdList(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: list <entity> [--search TEXT] [--search-by FIELD] [--filter key=value]...")
	}
	v, err := r.entity(args[0])
	if err != nil {
		return err
	}

	fs := r.flagSet("list")
	search := fs.String("search", "", "Free-text search")
	searchBy := fs.String("search-by", "", "Field the search applies to")
	pages := fs.Int("pages", r.options.Pages, "Pages to load without asking")
	filters := filterFlags{}
	fs.Var(filters, "filter", "Filter as key=value, repeatable")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *pages < 1 {
		return fmt.Errorf("pages must be positive")
	}
	if _, err := r.sessions.Require(); err != nil {
		return err
	}

	prev := r.options.Pages
	r.options.Pages = *pages
	defer func() { r.options.Pages = prev }()

	return v.browse(ctx, r, query.Query{
		SearchTerm: *search,
		SearchType: *searchBy,
		Filters:    filters,
	})
}

func (r *Runner) cmdShow(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: show <entity> <id>")
	}
	v, err := r.entity(args[0])
	if err != nil {
		return err
	}
	if _, err := r.sessions.Require(); err != nil {
		return err
	}
	return v.show(ctx, r, args[1])
}

func (r *Runner) cmdEdit(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: edit <entity> <id> [--dry-run] field=value...")
	}
	v, err := r.entity(args[0])
	if err != nil {
		return err
	}

	fs := r.flagSet("edit")
	dryRun := fs.Bool("dry-run", false, "Validate the changes and discard them")
	if err := fs.Parse(args[2:]); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("nothing to change: pass field=value pairs")
	}
	if _, err := r.sessions.Require(); err != nil {
		return err
	}
	return v.edit(ctx, r, args[1], fs.Args(), *dryRun)
}

func (r *Runner) cmdScanInvoice(ctx context.Context, args []string) error {
	fs := r.flagSet("scan-invoice")
	save := fs.Bool("save", false, "Save without the review prompt")
	supplier := fs.String("supplier", "", "Supplier name, overrides the recognized one")
	fillName := fs.String("quick-fill-name", "", "Description for every new product")
	fillCoefficient := fs.String("quick-fill-coefficient", "", "Coefficient for every new product")
	fillDiscount := fs.String("quick-fill-discount", "", "Discount added to every price")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: scan-invoice [flags] <image>...")
	}
	if _, err := r.sessions.Require(); err != nil {
		return err
	}

	images, err := loadImages(fs.Args())
	if err != nil {
		return err
	}
	if !r.options.JSON {
		fmt.Fprintf(r.out, "Recognizing %d image(s)...\n", len(images))
	}
	review, _, err := trackCall(r.logger, "scan invoice", map[string]any{"images": len(images)}, func() (*invoice.Review, error) {
		return r.flow.Start(ctx, images)
	})
	if err != nil {
		return err
	}

	if name := strings.TrimSpace(*supplier); name != "" {
		review.EditHeader(func(h *invoice.Header) { h.Supplier = name })
	}
	fill, err := quickFill(*fillName, *fillCoefficient, *fillDiscount)
	if err != nil {
		return err
	}
	if fill != nil {
		review.ApplyQuickFill(*fill)
	}

	r.writeReview(review)
	if *save {
		return r.saveInvoice(ctx, review)
	}
	if !r.options.Interactive {
		if !r.options.JSON {
			fmt.Fprintln(r.out, "Review only; pass --save to store the invoice.")
		}
		return nil
	}
	return r.reviewLoop(ctx, review)
}

const reviewHelp = `Review commands:
  show                              print the invoice again
  set <n> [qty=N] [price=N] [discount=N]
  rm <n>                            drop line n
  header field=value...             date, number, supplier, contact, comment
  amount <N|auto>                   override the document amount
  quantity <N|auto>                 override the document quantity
  fill [name=TEXT] [coefficient=N] [discount=N]
  save | cancel
`

func (r *Runner) reviewLoop(ctx context.Context, review *invoice.Review) error {
	fmt.Fprint(r.out, reviewHelp)
	for {
		line, ok := r.term.ask("invoice> ")
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}
		args, err := splitCommandLine(line)
		if err != nil {
			r.report(err)
			continue
		}

		switch args[0] {
		case "save":
			err := r.saveInvoice(ctx, review)
			if err == nil {
				return nil
			}
			r.report(err)
			continue
		case "cancel", "exit", "quit":
			if r.term.Confirm("Discard the recognized invoice?") {
				fmt.Fprintln(r.out, "Invoice discarded.")
				return nil
			}
			continue
		case "help":
			fmt.Fprint(r.out, reviewHelp)
			continue
		}

		if err := r.reviewCommand(review, args); err != nil {
			r.report(err)
			continue
		}
		r.writeReview(review)
	}
}

func (r *Runner) reviewCommand(review *invoice.Review, args []string) error {
	switch args[0] {
	case "show":
		return nil
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: set <n> [qty=N] [price=N] [discount=N]")
		}
		key, err := lineKey(review, args[1])
		if err != nil {
			return err
		}
		var edit invoice.LineEdit
		for _, a := range args[2:] {
			field, value, _ := strings.Cut(a, "=")
			n, err := parseDecimal(value)
			if err != nil {
				return err
			}
			switch field {
			case "qty", "quantity":
				edit.Quantity = &n
			case "price":
				edit.Price = &n
			case "discount":
				edit.Discount = &n
			default:
				return fmt.Errorf("unknown line field %q", field)
			}
		}
		_, err = review.EditLine(key, edit)
		return err
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("usage: rm <n>")
		}
		key, err := lineKey(review, args[1])
		if err != nil {
			return err
		}
		return review.RemoveLine(key)
	case "header":
		return editHeader(review, args[1:])
	case "amount", "quantity":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s <N|auto>", args[0])
		}
		override := decimal.NullDecimal{}
		if args[1] != "auto" {
			n, err := parseDecimal(args[1])
			if err != nil {
				return err
			}
			override = decimal.NewNullDecimal(n)
		}
		review.EditHeader(func(h *invoice.Header) {
			if args[0] == "amount" {
				h.Amount = override
			} else {
				h.Quantity = override
			}
		})
		return nil
	case "fill":
		var name, coefficient, discount string
		for _, a := range args[1:] {
			field, value, _ := strings.Cut(a, "=")
			switch field {
			case "name":
				name = value
			case "coefficient":
				coefficient = value
			case "discount":
				discount = value
			default:
				return fmt.Errorf("unknown quick fill field %q", field)
			}
		}
		fill, err := quickFill(name, coefficient, discount)
		if err != nil {
			return err
		}
		if fill == nil {
			return fmt.Errorf("usage: fill [name=TEXT] [coefficient=N] [discount=N]")
		}
		review.ApplyQuickFill(*fill)
		return nil
	default:
		return fmt.Errorf("unknown review command %q; type help", args[0])
	}
}

func editHeader(review *invoice.Review, assignments []string) error {
	if len(assignments) == 0 {
		return fmt.Errorf("usage: header field=value...")
	}
	changes := make([]func(h *invoice.Header), 0, len(assignments))
	for _, a := range assignments {
		field, value, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("expected field=value, got %q", a)
		}
		value = strings.TrimSpace(value)
		switch field {
		case "date":
			if _, err := parseDate(value); err != nil {
				return err
			}
			changes = append(changes, func(h *invoice.Header) { h.Date = value })
		case "number":
			changes = append(changes, func(h *invoice.Header) { h.Number = value })
		case "supplier":
			changes = append(changes, func(h *invoice.Header) { h.Supplier = value })
		case "contact":
			changes = append(changes, func(h *invoice.Header) { h.ContactInfo = value })
		case "comment":
			changes = append(changes, func(h *invoice.Header) { h.Comment = value })
		default:
			return fmt.Errorf("unknown header field %q", field)
		}
	}
	review.EditHeader(func(h *invoice.Header) {
		for _, change := range changes {
			change(h)
		}
	})
	return nil
}

func (r *Runner) saveInvoice(ctx context.Context, review *invoice.Review) error {
	result, _, err := trackCall(r.logger, "resolve supplier", nil, func() (invoice.Result, error) {
		return r.flow.Save(ctx, review)
	})
	if err != nil {
		return err
	}
	if result.SupplierCreated && !r.options.JSON {
		fmt.Fprintf(r.out, "Created supplier %s.\n", result.Supplier.Description)
	}

	saved, _, err := trackCall(r.logger, "save invoice", map[string]any{"supplier": result.Supplier.ID}, func() (catalog.SupplierInvoice, error) {
		return r.flow.Persist(ctx, result)
	})
	if err != nil {
		return err
	}
	if r.options.JSON {
		return r.writeJSON(saved)
	}
	fmt.Fprintf(r.out, "Supplier invoice saved: %d existing and %d new line(s), amount %s.\n",
		len(result.Existing), len(result.New), result.Amount.StringFixed(2))
	return nil
}

func (r *Runner) writeReview(review *invoice.Review) {
	h := review.Header()
	existing, added := review.Lines()
	amount, quantity := review.Totals()

	if r.options.JSON {
		_ = r.writeJSON(map[string]any{
			"header":   h,
			"existing": existing,
			"new":      added,
			"amount":   amount,
			"quantity": quantity,
		})
		return
	}

	r.writeFields([][2]string{
		{"supplier", h.Supplier}, {"contact", h.ContactInfo}, {"number", h.Number},
		{"date", h.Date}, {"comment", h.Comment},
	})
	header := []string{"code", "description", "qty", "price", "discount", "total"}
	lineRow := func(l invoice.Line) []string {
		return []string{
			l.ProductCode, l.ProductDescription, l.Quantity.String(),
			l.Price.StringFixed(2), l.Discount.StringFixed(2), l.Total.StringFixed(2),
		}
	}

	fmt.Fprintf(r.out, "\nIn catalog (%d):\n", len(existing))
	rows := make([][]string, 0, len(existing))
	for _, l := range existing {
		rows = append(rows, lineRow(l))
	}
	if len(rows) > 0 {
		r.writeRows(header, rows, 1)
	}

	fmt.Fprintf(r.out, "\nNew products (%d):\n", len(added))
	rows = rows[:0]
	for _, l := range added {
		rows = append(rows, lineRow(l))
	}
	if len(rows) > 0 {
		if len(existing) > 0 {
			r.writeRows(header, nil, 1)
		}
		r.writeRows(header, rows, len(existing)+1)
	}

	manual := ""
	if h.Amount.Valid || h.Quantity.Valid {
		manual = " (manual)"
	}
	fmt.Fprintf(r.out, "\nTotal: %s, quantity %s%s\n", amount.StringFixed(2), quantity.String(), manual)
}

// lineKey maps the 1-based number printed by writeReview to a line key.
func lineKey(review *invoice.Review, number string) (string, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(number, "#"))
	existing, added := review.Lines()
	all := append(existing, added...)
	if err != nil || n < 1 || n > len(all) {
		return "", fmt.Errorf("no line %q", number)
	}
	return all[n-1].Key, nil
}

func quickFill(name, coefficient, discount string) (*invoice.QuickFill, error) {
	fill := invoice.QuickFill{Name: strings.TrimSpace(name)}
	if coefficient != "" {
		n, err := parseDecimal(coefficient)
		if err != nil {
			return nil, err
		}
		fill.Coefficient = &n
	}
	if discount != "" {
		n, err := parseDecimal(discount)
		if err != nil {
			return nil, err
		}
		fill.Discount = &n
	}
	if fill.Name == "" && fill.Coefficient == nil && fill.Discount == nil {
		return nil, nil
	}
	return &fill, nil
}

func loadImages(paths []string) ([]llm.Image, error) {
	images := make([]llm.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("image %s is empty", path)
		}
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
			mimeType = mt
		}
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, errors.New(path + " is not an image")
		}
		images = append(images, llm.Image{MIMEType: mimeType, Data: data})
	}
	return images, nil
}
