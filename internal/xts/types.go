package xts

import (
	"encoding/json"
	"strings"
)

const objectIDType = "XTSObjectId"

// ObjectID is the reference shape used for every foreign relationship on the wire.
type ObjectID struct {
	Type         string `json:"_type"`
	ID           string `json:"id"`
	DataType     string `json:"dataType"`
	Presentation string `json:"presentation"`
}

func NewObjectID(dataType, id, presentation string) ObjectID {
	return ObjectID{
		Type:         objectIDType,
		ID:           id,
		DataType:     dataType,
		Presentation: presentation,
	}
}

func (o ObjectID) IsEmpty() bool {
	return strings.TrimSpace(o.ID) == ""
}

type Operator string

const (
	OpEqual    Operator = "="
	OpContains Operator = "contains"
)

type Condition struct {
	Type               string   `json:"_type"`
	Property           string   `json:"property"`
	Value              any      `json:"value"`
	ComparisonOperator Operator `json:"comparisonOperator"`
}

func NewCondition(property string, value any, op Operator) Condition {
	return Condition{
		Type:               "XTSCondition",
		Property:           property,
		Value:              value,
		ComparisonOperator: op,
	}
}

// ListRequest describes one page of a list query. Page is 1-based.
type ListRequest struct {
	DataType   string
	Conditions []Condition
	ColumnSet  []string
	Page       int
	PageSize   int
}

// Range converts Page/PageSize into the inclusive 1-based position window.
func (r ListRequest) Range() (from, to int) {
	page := r.Page
	if page < 1 {
		page = 1
	}
	size := r.PageSize
	if size < 1 {
		size = 1
	}
	return (page-1)*size + 1, page * size
}

type SearchString struct {
	LineNumber int    `json:"lineNumber"`
	Value      string `json:"value"`
}

type SearchRequest struct {
	DataType      string
	SearchBy      string
	SearchStrings []SearchString
}

// SearchMatch holds the catalog objects found for one search string.
type SearchMatch struct {
	LineNumber int               `json:"lineNumber"`
	Objects    []json.RawMessage `json:"objects"`
}

type PricesRequest struct {
	Products  []ObjectID
	PriceKind *ObjectID
	Date      string
}

type ProductPrice struct {
	Product ObjectID `json:"product"`
	Price   float64  `json:"price"`
}

// DefaultValues are the tenant defaults stamped into every create/update request.
type DefaultValues struct {
	Company             ObjectID `json:"company"`
	DocumentCurrency    ObjectID `json:"documentCurrency"`
	EmployeeResponsible ObjectID `json:"employeeResponsible"`
	ProductsUOM         ObjectID `json:"productsUOM"`
	Warehouse           ObjectID `json:"warehouse"`
	PriceKind           ObjectID `json:"priceKind"`
}

type SignInResult struct {
	User          ObjectID      `json:"user"`
	SessionID     string        `json:"sessionId"`
	DefaultValues DefaultValues `json:"defaultValues"`
}

type header struct {
	Type  string `json:"_type"`
	DBID  string `json:"_dbId,omitempty"`
	MsgID string `json:"_msgId"`
}

type signInRequest struct {
	header
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type signOutRequest struct {
	header
}

type getObjectListRequest struct {
	header
	DataType     string      `json:"dataType"`
	ColumnSet    []string    `json:"columnSet"`
	PositionFrom int         `json:"positionFrom"`
	PositionTo   int         `json:"positionTo"`
	Conditions   []Condition `json:"conditions"`
}

type objectIDsRequest struct {
	header
	ObjectIDs []ObjectID `json:"objectIds"`
}

type objectsRequest struct {
	header
	Objects []any `json:"objects"`
}

type searchObjectsRequest struct {
	header
	DataType      string         `json:"dataType"`
	SearchBy      string         `json:"searchBy"`
	SearchStrings []SearchString `json:"searchStrings"`
}

type getProductsPricesRequest struct {
	header
	Products  []ObjectID `json:"products"`
	PriceKind *ObjectID  `json:"priceKind,omitempty"`
	Date      string     `json:"date,omitempty"`
}

type envelope struct {
	Type        string `json:"_type"`
	Description string `json:"description"`
}

type listResponse struct {
	Items *[]json.RawMessage `json:"items"`
}

type objectsResponse struct {
	Objects *[]json.RawMessage `json:"objects"`
}

type searchResponse struct {
	Items *[]SearchMatch `json:"items"`
}

type pricesResponse struct {
	Items *[]ProductPrice `json:"items"`
}
