package ocr

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrParse = errors.New("ocr response has no valid invoice block")

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

type Header struct {
	Date             string
	Number           string
	Supplier         string
	ContactInfo      string
	DocumentAmount   decimal.Decimal
	DocumentQuantity decimal.Decimal
	Comment          string
}

// Line is one extracted product row. LineNumber is 1-based in the order the
// rows were read and is the key used to correlate catalog matches.
type Line struct {
	LineNumber            int
	ProductCode           string
	ProductDescription    string
	ProductCharacteristic string
	Quantity              decimal.Decimal
	Price                 decimal.Decimal
	Total                 decimal.Decimal
}

type Extraction struct {
	Header Header
	Lines  []Line
}

// number accepts JSON numbers and numeric strings, including empty ones.
type number struct {
	decimal.Decimal
}

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		n.Decimal = decimal.Zero
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var quoted string
		if err := json.Unmarshal(b, &quoted); err != nil {
			return err
		}
		s = quoted
	}
	s = normalizeNumber(s)
	if s == "" {
		n.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	n.Decimal = d
	return nil
}

// normalizeNumber rewrites grouped numbers into plain decimal notation. When
// both separators occur the last one is the decimal point; a separator that
// repeats is grouping; a single one is the decimal point.
func normalizeNumber(s string) string {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "'", "").Replace(s)
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

type rawItem struct {
	ProductCode           string `json:"productCode"`
	ProductDescription    string `json:"productDescription"`
	ProductCharacteristic string `json:"productCharacteristic"`
	Quantity              number `json:"quantity"`
	Price                 number `json:"price"`
	Total                 number `json:"total"`
}

type rawInvoice struct {
	Date             string    `json:"date"`
	Number           string    `json:"number"`
	Supplier         string    `json:"supplier"`
	ContactInfo      string    `json:"contactInfo"`
	DocumentAmount   number    `json:"documentAmount"`
	DocumentQuantity number    `json:"documentQuantity"`
	Comment          string    `json:"comment"`
	Items            []rawItem `json:"items"`
}

// Parse extracts the fenced JSON block from a model answer.
func Parse(text string) (Extraction, error) {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return Extraction{}, fmt.Errorf("%w: no fenced json block", ErrParse)
	}
	body := strings.TrimSpace(m[1])
	if body == "" {
		return Extraction{}, fmt.Errorf("%w: empty json block", ErrParse)
	}

	var raw rawInvoice
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	out := Extraction{
		Header: Header{
			Date:             decodeUnicode(raw.Date),
			Number:           decodeUnicode(raw.Number),
			Supplier:         decodeUnicode(raw.Supplier),
			ContactInfo:      decodeUnicode(raw.ContactInfo),
			DocumentAmount:   raw.DocumentAmount.Decimal,
			DocumentQuantity: raw.DocumentQuantity.Decimal,
			Comment:          decodeUnicode(raw.Comment),
		},
		Lines: make([]Line, 0, len(raw.Items)),
	}
	for i, item := range raw.Items {
		out.Lines = append(out.Lines, Line{
			LineNumber:            i + 1,
			ProductCode:           decodeUnicode(item.ProductCode),
			ProductDescription:    decodeUnicode(item.ProductDescription),
			ProductCharacteristic: decodeUnicode(item.ProductCharacteristic),
			Quantity:              item.Quantity.Decimal,
			Price:                 item.Price.Decimal,
			Total:                 item.Total.Decimal,
		})
	}
	return out, nil
}

// decodeUnicode resolves literal \uXXXX escapes left in a value. Anything that
// does not decode is returned unchanged.
func decodeUnicode(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, `\u`) {
		return s
	}
	var decoded string
	if err := json.Unmarshal([]byte(`"`+strings.ReplaceAll(s, `"`, `\"`)+`"`), &decoded); err != nil {
		return s
	}
	return decoded
}
