package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trade_console/internal/xts"
)

const dateLayout = "2006-01-02T15:04:05"

type objectHeader struct {
	Type     string       `json:"_type"`
	ObjectID xts.ObjectID `json:"objectId"`
}

func newHeader(dataType, id, presentation string) objectHeader {
	return objectHeader{
		Type:     dataType,
		ObjectID: xts.NewObjectID(dataType, id, presentation),
	}
}

// enumValue is one member of a server-side enumeration, addressable by the
// short key the console uses.
type enumValue struct {
	Key          string
	ID           string
	Presentation string
}

type enum struct {
	dataType string
	values   []enumValue
}

func (e enum) ref(key string) xts.ObjectID {
	for _, v := range e.values {
		if v.Key == key {
			return xts.NewObjectID(e.dataType, v.ID, v.Presentation)
		}
	}
	return xts.ObjectID{}
}

func (e enum) key(ref xts.ObjectID) string {
	for _, v := range e.values {
		if v.ID == ref.ID || (ref.ID == "" && v.Presentation == ref.Presentation) {
			return v.Key
		}
	}
	return ""
}

func (e enum) has(key string) bool {
	return !e.ref(key).IsEmpty()
}

// presentations maps keys to presentation strings for query.Enum filters.
func (e enum) presentations() map[string]string {
	out := make(map[string]string, len(e.values))
	for _, v := range e.values {
		out[v.Key] = v.Presentation
	}
	return out
}

func decodeObject[T any](raw json.RawMessage, dataType string) (T, error) {
	var obj T
	if err := json.Unmarshal(raw, &obj); err != nil {
		return obj, fmt.Errorf("%w: decode %s: %v", xts.ErrInvalidResponseFormat, dataType, err)
	}
	return obj, nil
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			if t.Year() <= 1 {
				return time.Time{}
			}
			return t
		}
	}
	return time.Time{}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "0001-01-01T00:00:00"
	}
	return t.Format(dateLayout)
}

func orDefault(ref, fallback xts.ObjectID) xts.ObjectID {
	if ref.IsEmpty() {
		return fallback
	}
	return ref
}
