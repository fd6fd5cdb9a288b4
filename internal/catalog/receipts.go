package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"
)

const (
	CashReceiptDataType     = "XTSCashReceipt"
	TransferReceiptDataType = "XTSPaymentReceipt"
)

func receiptSpec(dataType string) query.Spec {
	return query.Spec{
		DataType: dataType,
		Search: []query.SearchField{
			{Key: "number", Property: "number"},
			{Key: "comment", Property: "comment"},
		},
		Filters: []query.Filter{
			{Key: "posted", Property: "posted", Kind: query.Bool},
		},
	}
}

// Receipt covers both cash and bank transfer receipts; Kind tells them apart.
type Receipt struct {
	ID       string
	Kind     string
	Number   string
	Date     time.Time
	Partner  xts.ObjectID
	Amount   float64
	Currency xts.ObjectID
	Comment  string
	Posted   bool
}

type ReceiptDraft struct {
	Date    time.Time
	Partner xts.ObjectID
	Amount  float64
	Comment string
}

type receiptObject struct {
	objectHeader
	Number         string       `json:"number"`
	Date           string       `json:"date"`
	Company        xts.ObjectID `json:"company"`
	Counterparty   xts.ObjectID `json:"counterparty"`
	DocumentAmount float64      `json:"documentAmount"`
	CashCurrency   xts.ObjectID `json:"cashCurrency"`
	Author         xts.ObjectID `json:"author"`
	Comment        string       `json:"comment"`
	Posted         bool         `json:"posted"`
}

func receiptKind(dataType string) string {
	if dataType == TransferReceiptDataType {
		return "transfer"
	}
	return "cash"
}

func decodeReceipt(dataType string) func(json.RawMessage) (Receipt, error) {
	return func(raw json.RawMessage) (Receipt, error) {
		obj, err := decodeObject[receiptObject](raw, dataType)
		if err != nil {
			return Receipt{}, err
		}
		return Receipt{
			ID:       obj.ObjectID.ID,
			Kind:     receiptKind(dataType),
			Number:   obj.Number,
			Date:     parseDate(obj.Date),
			Partner:  obj.Counterparty,
			Amount:   obj.DocumentAmount,
			Currency: obj.CashCurrency,
			Comment:  obj.Comment,
			Posted:   obj.Posted,
		}, nil
	}
}

func receiptDraft(r Receipt) ReceiptDraft {
	return ReceiptDraft{
		Date:    r.Date,
		Partner: r.Partner,
		Amount:  r.Amount,
		Comment: r.Comment,
	}
}

func validateReceipt(d ReceiptDraft, now time.Time) error {
	v := validation.Violations{}
	validation.RequiredRef("partner", d.Partner.ID, v)
	validation.PositiveFloat("amount", d.Amount, v)
	validation.NotInFuture("date", d.Date, now, v)
	return v.Err()
}

func encodeReceipt(dataType string) func(string, ReceiptDraft, session.Session) any {
	return func(id string, d ReceiptDraft, s session.Session) any {
		date := d.Date
		if date.IsZero() {
			date = time.Now()
		}
		return receiptObject{
			objectHeader:   newHeader(dataType, id, ""),
			Date:           formatDate(date),
			Company:        s.DefaultValues.Company,
			Counterparty:   d.Partner,
			DocumentAmount: d.Amount,
			CashCurrency:   s.DefaultValues.DocumentCurrency,
			Author:         s.DefaultValues.EmployeeResponsible,
			Comment:        strings.TrimSpace(d.Comment),
		}
	}
}

func receiptEntity(dataType string) Entity[Receipt, ReceiptDraft] {
	return Entity[Receipt, ReceiptDraft]{
		DataType:      dataType,
		Spec:          receiptSpec(dataType),
		CompanyScoped: true,
		Decode:        decodeReceipt(dataType),
		ID:            func(r Receipt) string { return r.ID },
		Draft:         receiptDraft,
		Validate:      validateReceipt,
		Encode:        encodeReceipt(dataType),
	}
}

var (
	CashReceiptEntity     = receiptEntity(CashReceiptDataType)
	TransferReceiptEntity = receiptEntity(TransferReceiptDataType)
)
