// Package query turns a free-text search and UI filters into the ordered
// condition list understood by XTSGetObjectListRequest.
package query

import (
	"errors"
	"fmt"
	"strings"

	"trade_console/internal/xts"
)

var (
	ErrUnknownFilter = errors.New("unknown filter")
	ErrInvalidValue  = errors.New("invalid filter value")
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"

	invalidProperty = "invalid"
)

type Kind int

const (
	// Enum compares the field's presentation string with "=".
	Enum Kind = iota
	// Bool compares a boolean field with "=".
	Bool
	// Flag selects one of several boolean properties and requires it to be true.
	Flag
	// Status maps "" | active | inactive onto the invalid flag.
	Status
)

type SearchField struct {
	Key      string
	Property string
}

type Filter struct {
	Key      string
	Property string
	Kind     Kind
	// Values optionally translates UI values into server values (Enum) or
	// property paths (Flag).
	Values map[string]string
}

// Spec declares the searchable fields and filters of one list. The first
// search field is the default when Query.SearchType is empty.
type Spec struct {
	DataType string
	Search   []SearchField
	Filters  []Filter
}

type Query struct {
	SearchTerm string
	SearchType string
	Filters    map[string]string
}

// Build emits the search condition first, then filters in declared order.
// Empty values never produce a condition.
func Build(spec Spec, q Query) ([]xts.Condition, error) {
	conditions := make([]xts.Condition, 0, len(spec.Filters)+1)

	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		field, err := spec.searchField(q.SearchType)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, xts.NewCondition(field.Property, term, xts.OpContains))
	}

	for key := range q.Filters {
		if !spec.hasFilter(key) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, key)
		}
	}

	for _, filter := range spec.Filters {
		value := strings.TrimSpace(q.Filters[filter.Key])
		if value == "" {
			continue
		}
		cond, err := filter.condition(value)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	return conditions, nil
}

func (s Spec) searchField(searchType string) (SearchField, error) {
	if len(s.Search) == 0 {
		return SearchField{}, fmt.Errorf("%w: %s has no searchable field", ErrUnknownFilter, s.DataType)
	}
	searchType = strings.TrimSpace(searchType)
	if searchType == "" {
		return s.Search[0], nil
	}
	for _, field := range s.Search {
		if field.Key == searchType {
			return field, nil
		}
	}
	return SearchField{}, fmt.Errorf("%w: search type %s", ErrUnknownFilter, searchType)
}

func (s Spec) hasFilter(key string) bool {
	for _, f := range s.Filters {
		if f.Key == key {
			return true
		}
	}
	return false
}

func (f Filter) condition(value string) (xts.Condition, error) {
	switch f.Kind {
	case Enum:
		if mapped, ok := f.Values[value]; ok {
			value = mapped
		} else if len(f.Values) > 0 {
			return xts.Condition{}, fmt.Errorf("%w: %s=%s", ErrInvalidValue, f.Key, value)
		}
		return xts.NewCondition(f.Property, value, xts.OpEqual), nil
	case Bool:
		b, err := parseBool(value)
		if err != nil {
			return xts.Condition{}, fmt.Errorf("%w: %s=%s", ErrInvalidValue, f.Key, value)
		}
		return xts.NewCondition(f.Property, b, xts.OpEqual), nil
	case Flag:
		property, ok := f.Values[value]
		if !ok {
			return xts.Condition{}, fmt.Errorf("%w: %s=%s", ErrInvalidValue, f.Key, value)
		}
		return xts.NewCondition(property, true, xts.OpEqual), nil
	case Status:
		property := f.Property
		if property == "" {
			property = invalidProperty
		}
		switch value {
		case StatusActive:
			return xts.NewCondition(property, false, xts.OpEqual), nil
		case StatusInactive:
			return xts.NewCondition(property, true, xts.OpEqual), nil
		}
		return xts.Condition{}, fmt.Errorf("%w: %s=%s", ErrInvalidValue, f.Key, value)
	}
	return xts.Condition{}, fmt.Errorf("%w: %s", ErrUnknownFilter, f.Key)
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	}
	return false, ErrInvalidValue
}
