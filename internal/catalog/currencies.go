package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/validation"
)

const CurrencyDataType = "XTSCurrency"

var CurrencySpec = query.Spec{
	DataType: CurrencyDataType,
	Search: []query.SearchField{
		{Key: "description", Property: "description"},
		{Key: "code", Property: "code"},
	},
}

type Currency struct {
	ID           string
	Code         string
	Description  string
	Symbol       string
	Rate         float64
	Multiplicity float64
}

type CurrencyDraft struct {
	Code         string
	Description  string
	Symbol       string
	Rate         float64
	Multiplicity float64
}

type currencyObject struct {
	objectHeader
	Code                 string  `json:"code"`
	Description          string  `json:"description"`
	SymbolicPresentation string  `json:"symbolicPresentation"`
	Rate                 float64 `json:"rate"`
	Multiplicity         float64 `json:"multiplicity"`
}

func decodeCurrency(raw json.RawMessage) (Currency, error) {
	obj, err := decodeObject[currencyObject](raw, CurrencyDataType)
	if err != nil {
		return Currency{}, err
	}
	multiplicity := obj.Multiplicity
	if multiplicity == 0 {
		multiplicity = 1
	}
	return Currency{
		ID:           obj.ObjectID.ID,
		Code:         obj.Code,
		Description:  obj.Description,
		Symbol:       obj.SymbolicPresentation,
		Rate:         obj.Rate,
		Multiplicity: multiplicity,
	}, nil
}

func currencyDraft(c Currency) CurrencyDraft {
	return CurrencyDraft{
		Code:         c.Code,
		Description:  c.Description,
		Symbol:       c.Symbol,
		Rate:         c.Rate,
		Multiplicity: c.Multiplicity,
	}
}

func validateCurrency(d CurrencyDraft, _ time.Time) error {
	v := validation.Violations{}
	validation.Required("code", d.Code, v)
	validation.MaxLength("code", d.Code, 3, v)
	validation.Required("description", d.Description, v)
	validation.PositiveFloat("rate", d.Rate, v)
	validation.PositiveFloat("multiplicity", d.Multiplicity, v)
	return v.Err()
}

func encodeCurrency(id string, d CurrencyDraft, _ session.Session) any {
	return currencyObject{
		objectHeader:         newHeader(CurrencyDataType, id, d.Description),
		Code:                 strings.TrimSpace(d.Code),
		Description:          strings.TrimSpace(d.Description),
		SymbolicPresentation: d.Symbol,
		Rate:                 d.Rate,
		Multiplicity:         d.Multiplicity,
	}
}

var CurrencyEntity = Entity[Currency, CurrencyDraft]{
	DataType: CurrencyDataType,
	Spec:     CurrencySpec,
	Decode:   decodeCurrency,
	ID:       func(c Currency) string { return c.ID },
	Draft:    currencyDraft,
	Validate: validateCurrency,
	Encode:   encodeCurrency,
}
