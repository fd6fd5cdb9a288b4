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

const SupplierInvoiceDataType = "XTSSupplierInvoice"

const inventoryRowType = "XTSSupplierInvoiceInventory"

var SupplierInvoiceSpec = query.Spec{
	DataType: SupplierInvoiceDataType,
	Search: []query.SearchField{
		{Key: "number", Property: "number"},
		{Key: "comment", Property: "comment"},
	},
	Filters: []query.Filter{
		{Key: "posted", Property: "posted", Kind: query.Bool},
	},
}

type InvoiceRow struct {
	Product        xts.ObjectID
	Characteristic string
	Quantity       float64
	Price          float64
	Discount       float64
	Total          float64
}

type SupplierInvoice struct {
	ID          string
	Number      string
	Date        time.Time
	Supplier    xts.ObjectID
	ContactInfo string
	Amount      float64
	Quantity    float64
	Currency    xts.ObjectID
	Comment     string
	Posted      bool
	Rows        []InvoiceRow
}

type SupplierInvoiceDraft struct {
	Number      string
	Date        time.Time
	Supplier    xts.ObjectID
	ContactInfo string
	Amount      float64
	Quantity    float64
	Comment     string
	Rows        []InvoiceRow
}

type inventoryRow struct {
	Type           string       `json:"_type"`
	LineNumber     int          `json:"_lineNumber"`
	Product        xts.ObjectID `json:"product"`
	Characteristic string       `json:"characteristic"`
	Quantity       float64      `json:"quantity"`
	Price          float64      `json:"price"`
	DiscountAmount float64      `json:"discountsMarkupsAmount"`
	Total          float64      `json:"total"`
}

type supplierInvoiceObject struct {
	objectHeader
	Number           string         `json:"number"`
	Date             string         `json:"date"`
	Company          xts.ObjectID   `json:"company"`
	Counterparty     xts.ObjectID   `json:"counterparty"`
	ContactInfo      string         `json:"contactInfo"`
	DocumentAmount   float64        `json:"documentAmount"`
	DocumentQuantity float64        `json:"documentQuantity"`
	DocumentCurrency xts.ObjectID   `json:"documentCurrency"`
	Warehouse        xts.ObjectID   `json:"structuralUnit"`
	Author           xts.ObjectID   `json:"author"`
	Comment          string         `json:"comment"`
	Posted           bool           `json:"posted"`
	Inventory        []inventoryRow `json:"inventory"`
}

func decodeSupplierInvoice(raw json.RawMessage) (SupplierInvoice, error) {
	obj, err := decodeObject[supplierInvoiceObject](raw, SupplierInvoiceDataType)
	if err != nil {
		return SupplierInvoice{}, err
	}
	rows := make([]InvoiceRow, 0, len(obj.Inventory))
	for _, r := range obj.Inventory {
		rows = append(rows, InvoiceRow{
			Product:        r.Product,
			Characteristic: r.Characteristic,
			Quantity:       r.Quantity,
			Price:          r.Price,
			Discount:       r.DiscountAmount,
			Total:          r.Total,
		})
	}
	return SupplierInvoice{
		ID:          obj.ObjectID.ID,
		Number:      obj.Number,
		Date:        parseDate(obj.Date),
		Supplier:    obj.Counterparty,
		ContactInfo: obj.ContactInfo,
		Amount:      obj.DocumentAmount,
		Quantity:    obj.DocumentQuantity,
		Currency:    obj.DocumentCurrency,
		Comment:     obj.Comment,
		Posted:      obj.Posted,
		Rows:        rows,
	}, nil
}

func supplierInvoiceDraft(inv SupplierInvoice) SupplierInvoiceDraft {
	return SupplierInvoiceDraft{
		Number:      inv.Number,
		Date:        inv.Date,
		Supplier:    inv.Supplier,
		ContactInfo: inv.ContactInfo,
		Amount:      inv.Amount,
		Quantity:    inv.Quantity,
		Comment:     inv.Comment,
		Rows:        append([]InvoiceRow(nil), inv.Rows...),
	}
}

func validateSupplierInvoice(d SupplierInvoiceDraft, now time.Time) error {
	v := validation.Violations{}
	validation.RequiredRef("supplier", d.Supplier.ID, v)
	validation.NonNegative("amount", d.Amount, v)
	validation.NonNegative("quantity", d.Quantity, v)
	validation.NotInFuture("date", d.Date, now, v)
	for _, r := range d.Rows {
		if r.Product.IsEmpty() {
			v["rows"] = "every row needs a product"
			break
		}
	}
	return v.Err()
}

func encodeSupplierInvoice(id string, d SupplierInvoiceDraft, s session.Session) any {
	rows := make([]inventoryRow, 0, len(d.Rows))
	for i, r := range d.Rows {
		rows = append(rows, inventoryRow{
			Type:           inventoryRowType,
			LineNumber:     i + 1,
			Product:        r.Product,
			Characteristic: r.Characteristic,
			Quantity:       r.Quantity,
			Price:          r.Price,
			DiscountAmount: r.Discount,
			Total:          r.Total,
		})
	}
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	return supplierInvoiceObject{
		objectHeader:     newHeader(SupplierInvoiceDataType, id, ""),
		Number:           strings.TrimSpace(d.Number),
		Date:             formatDate(date),
		Company:          s.DefaultValues.Company,
		Counterparty:     d.Supplier,
		ContactInfo:      strings.TrimSpace(d.ContactInfo),
		DocumentAmount:   d.Amount,
		DocumentQuantity: d.Quantity,
		DocumentCurrency: s.DefaultValues.DocumentCurrency,
		Warehouse:        s.DefaultValues.Warehouse,
		Author:           s.DefaultValues.EmployeeResponsible,
		Comment:          strings.TrimSpace(d.Comment),
		Inventory:        rows,
	}
}

var SupplierInvoiceEntity = Entity[SupplierInvoice, SupplierInvoiceDraft]{
	DataType:      SupplierInvoiceDataType,
	Spec:          SupplierInvoiceSpec,
	CompanyScoped: true,
	Decode:        decodeSupplierInvoice,
	ID:            func(inv SupplierInvoice) string { return inv.ID },
	Draft:         supplierInvoiceDraft,
	Validate:      validateSupplierInvoice,
	Encode:        encodeSupplierInvoice,
}
