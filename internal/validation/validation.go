package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every ValidationError so callers can tell form
// rule failures from transport failures.
var ErrInvalid = errors.New("validation failed")

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Violations maps a field name to the rule it broke.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns nil when there are no violations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Err: ErrInvalid, Violations: v}
}

type ValidationError struct {
	Err        error
	Violations Violations
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return e.Err.Error()
	}
	fields := make([]string, 0, len(e.Violations))
	for field := range e.Violations {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Violations[field]))
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func RequiredRef(field, id string, v Violations) {
	if strings.TrimSpace(id) == "" {
		v[field] = "required"
	}
}

func NonNegative(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

// Phone accepts an empty value; use Required for mandatory phones.
func Phone(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value != "" && !phonePattern.MatchString(value) {
		v[field] = "invalid_phone"
	}
}

// Email accepts an empty value; use Required for mandatory emails.
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value != "" && !emailPattern.MatchString(value) {
		v[field] = "invalid_email"
	}
}

func NotInFuture(field string, value, now time.Time, v Violations) {
	if !value.IsZero() && value.After(now) {
		v[field] = "in_future"
	}
}

func MaxLength(field, value string, max int, v Violations) {
	if len([]rune(value)) > max {
		v[field] = "too_long"
	}
}
