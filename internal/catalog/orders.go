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

const OrderDataType = "XTSOrderReceived"

var orderStates = enum{
	dataType: "XTSOrderState",
	values: []enumValue{
		{Key: "open", ID: "Open", Presentation: "Open"},
		{Key: "in_progress", ID: "InProcess", Presentation: "In process"},
		{Key: "completed", ID: "Completed", Presentation: "Completed"},
	},
}

var OrderSpec = query.Spec{
	DataType: OrderDataType,
	Search: []query.SearchField{
		{Key: "number", Property: "number"},
		{Key: "comment", Property: "comment"},
	},
	Filters: []query.Filter{
		{Key: "state", Property: "orderState", Kind: query.Enum, Values: orderStates.presentations()},
		{Key: "posted", Property: "posted", Kind: query.Bool},
	},
}

type Order struct {
	ID       string
	Number   string
	Date     time.Time
	Customer xts.ObjectID
	Amount   float64
	Currency xts.ObjectID
	State    string
	Comment  string
	Posted   bool
}

type OrderDraft struct {
	Date     time.Time
	Customer xts.ObjectID
	Amount   float64
	State    string
	Comment  string
}

type orderObject struct {
	objectHeader
	Number           string       `json:"number"`
	Date             string       `json:"date"`
	Company          xts.ObjectID `json:"company"`
	Counterparty     xts.ObjectID `json:"counterparty"`
	DocumentAmount   float64      `json:"documentAmount"`
	DocumentCurrency xts.ObjectID `json:"documentCurrency"`
	OrderState       xts.ObjectID `json:"orderState"`
	Author           xts.ObjectID `json:"author"`
	Comment          string       `json:"comment"`
	Posted           bool         `json:"posted"`
}

func decodeOrder(raw json.RawMessage) (Order, error) {
	obj, err := decodeObject[orderObject](raw, OrderDataType)
	if err != nil {
		return Order{}, err
	}
	return Order{
		ID:       obj.ObjectID.ID,
		Number:   obj.Number,
		Date:     parseDate(obj.Date),
		Customer: obj.Counterparty,
		Amount:   obj.DocumentAmount,
		Currency: obj.DocumentCurrency,
		State:    orderStates.key(obj.OrderState),
		Comment:  obj.Comment,
		Posted:   obj.Posted,
	}, nil
}

func orderDraft(o Order) OrderDraft {
	return OrderDraft{
		Date:     o.Date,
		Customer: o.Customer,
		Amount:   o.Amount,
		State:    o.State,
		Comment:  o.Comment,
	}
}

func validateOrder(d OrderDraft, _ time.Time) error {
	v := validation.Violations{}
	validation.RequiredRef("customer", d.Customer.ID, v)
	validation.NonNegative("amount", d.Amount, v)
	if d.State != "" && !orderStates.has(d.State) {
		v["state"] = "unknown"
	}
	return v.Err()
}

func encodeOrder(id string, d OrderDraft, s session.Session) any {
	state := d.State
	if state == "" {
		state = "open"
	}
	return orderObject{
		objectHeader:     newHeader(OrderDataType, id, ""),
		Date:             formatDate(d.Date),
		Company:          s.DefaultValues.Company,
		Counterparty:     d.Customer,
		DocumentAmount:   d.Amount,
		DocumentCurrency: s.DefaultValues.DocumentCurrency,
		OrderState:       orderStates.ref(state),
		Author:           s.DefaultValues.EmployeeResponsible,
		Comment:          strings.TrimSpace(d.Comment),
	}
}

var OrderEntity = Entity[Order, OrderDraft]{
	DataType:      OrderDataType,
	Spec:          OrderSpec,
	CompanyScoped: true,
	Decode:        decodeOrder,
	ID:            func(o Order) string { return o.ID },
	Draft:         orderDraft,
	Validate:      validateOrder,
	Encode:        encodeOrder,
}
