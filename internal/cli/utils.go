package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"trade_console/internal/detail"
	"trade_console/internal/invoice"
	"trade_console/internal/llm"
	"trade_console/internal/ocr"
	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type callRecord struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	MS   int64          `json:"ms"`
	OK   bool           `json:"ok"`
	Err  string         `json:"err,omitempty"`
}

// reportedError marks an error a notifier has already shown.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }

func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

func trackCall[T any](logger *zap.Logger, name string, args map[string]any, fn func() (T, error)) (T, callRecord, error) {
	start := time.Now()
	result, err := fn()
	elapsed := time.Since(start)
	record := callRecord{
		Name: name,
		Args: args,
		MS:   elapsed.Milliseconds(),
		OK:   err == nil,
	}
	if err != nil {
		record.Err = err.Error()
	}
	logger.Info("call",
		zap.String("name", name),
		zap.Any("args", args),
		zap.Int64("ms", record.MS),
		zap.Bool("ok", record.OK),
		zap.String("err", record.Err),
	)
	return result, record, err
}

func friendlyError(err error) string {
	var remote *xts.RemoteError
	var invalid *validation.ValidationError
	var api *xts.APIError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	case errors.Is(err, session.ErrNotSignedIn):
		return "Not signed in: run login first."
	case errors.Is(err, session.ErrMissingCredentials):
		return "User name and password are required: pass --user/--password or set XTS_USERNAME and XTS_PASSWORD."
	case errors.Is(err, xts.ErrMissingBaseURL):
		return "Server address is not configured: set XTS_BASE_URL."
	case errors.Is(err, xts.ErrUnauthorized):
		return "Access denied: the session expired or the user lacks rights. Sign in again."
	case errors.Is(err, xts.ErrNetwork):
		return "Server is unreachable. Check the connection and try again."
	case errors.As(err, &remote):
		return "Server rejected the request: " + remote.Description
	case errors.As(err, &api):
		return fmt.Sprintf("Server error (%s).", api.Status)
	case errors.Is(err, xts.ErrInvalidResponseFormat):
		return "Server sent an unexpected response."
	case errors.As(err, &invalid):
		return "Please fix the fields: " + violationList(invalid.Violations)
	case errors.Is(err, detail.ErrNotFound):
		return "Nothing found with this id."
	case errors.Is(err, detail.ErrBusy), errors.Is(err, invoice.ErrBusy):
		return "Another request is still running."
	case errors.Is(err, query.ErrUnknownFilter), errors.Is(err, query.ErrInvalidValue):
		return "Unsupported search: " + err.Error()
	case errors.Is(err, llm.ErrNotConfigured):
		return "Invoice recognition is not configured: set LLM_API_KEY and LLM_MODEL."
	case errors.Is(err, ocr.ErrMissingGeminiKey):
		return "Invoice recognition is not configured: set GEMINI_API_KEY."
	case errors.Is(err, ocr.ErrParse):
		return "Could not read the invoice from the images. Try sharper photos."
	case errors.Is(err, invoice.ErrMissingSupplier):
		return "Supplier name is empty: set it with --supplier."
	case errors.Is(err, invoice.ErrSupplier):
		return "Supplier could not be found or created; the review is kept, try saving again."
	default:
		return err.Error()
	}
}

func violationList(v validation.Violations) string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", field, strings.ReplaceAll(v[field], "_", " ")))
	}
	return strings.Join(parts, ", ")
}

// splitCommandLine splits on spaces, keeping double-quoted parts together.
func splitCommandLine(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t') && !quoted:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if started {
		args = append(args, current.String())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid number %q", value)
	}
	return d, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
