package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"

	"go.uber.org/zap"
)

const (
	ProductDataType = "XTSProduct"
	// SearchBySKU is the attribute name used by XTSSearchObjectsRequest.
	SearchBySKU = "sku"
)

var productTypes = enum{
	dataType: "XTSProductType",
	values: []enumValue{
		{Key: "goods", ID: "InventoryItem", Presentation: "Inventory item"},
		{Key: "service", ID: "Service", Presentation: "Service"},
	},
}

var ProductSpec = query.Spec{
	DataType: ProductDataType,
	Search: []query.SearchField{
		{Key: "description", Property: "description"},
		{Key: "sku", Property: "sku"},
	},
	Filters: []query.Filter{
		{Key: "type", Property: "productType", Kind: query.Enum, Values: productTypes.presentations()},
		{Key: "status", Kind: query.Status},
	},
}

type Product struct {
	ID             string
	Description    string
	SKU            string
	Characteristic string
	Type           string
	UOM            xts.ObjectID
	Price          float64
	Coefficient    float64
	Comment        string
	Invalid        bool
}

func (p Product) Ref() xts.ObjectID {
	return xts.NewObjectID(ProductDataType, p.ID, p.Description)
}

type ProductDraft struct {
	Description    string
	SKU            string
	Characteristic string
	Type           string
	UOM            xts.ObjectID
	Price          float64
	Coefficient    float64
	Comment        string
	Invalid        bool
}

type productObject struct {
	objectHeader
	Description     string       `json:"description"`
	SKU             string       `json:"sku"`
	Characteristic  string       `json:"characteristic"`
	ProductType     xts.ObjectID `json:"productType"`
	MeasurementUnit xts.ObjectID `json:"measurementUnit"`
	Price           float64      `json:"price"`
	Coefficient     float64      `json:"coefficient"`
	Comment         string       `json:"comment"`
	Invalid         bool         `json:"invalid"`
}

func decodeProduct(raw json.RawMessage) (Product, error) {
	obj, err := decodeObject[productObject](raw, ProductDataType)
	if err != nil {
		return Product{}, err
	}
	description := obj.Description
	if description == "" {
		description = obj.ObjectID.Presentation
	}
	return Product{
		ID:             obj.ObjectID.ID,
		Description:    description,
		SKU:            obj.SKU,
		Characteristic: obj.Characteristic,
		Type:           productTypes.key(obj.ProductType),
		UOM:            obj.MeasurementUnit,
		Price:          obj.Price,
		Coefficient:    obj.Coefficient,
		Comment:        obj.Comment,
		Invalid:        obj.Invalid,
	}, nil
}

func productDraft(p Product) ProductDraft {
	return ProductDraft{
		Description:    p.Description,
		SKU:            p.SKU,
		Characteristic: p.Characteristic,
		Type:           p.Type,
		UOM:            p.UOM,
		Price:          p.Price,
		Coefficient:    p.Coefficient,
		Comment:        p.Comment,
		Invalid:        p.Invalid,
	}
}

func validateProduct(d ProductDraft, _ time.Time) error {
	v := validation.Violations{}
	validation.Required("description", d.Description, v)
	validation.NonNegative("price", d.Price, v)
	validation.NonNegative("coefficient", d.Coefficient, v)
	if d.Type != "" && !productTypes.has(d.Type) {
		v["type"] = "unknown"
	}
	return v.Err()
}

func encodeProduct(id string, d ProductDraft, s session.Session) any {
	productType := d.Type
	if productType == "" {
		productType = "goods"
	}
	return productObject{
		objectHeader:    newHeader(ProductDataType, id, d.Description),
		Description:     strings.TrimSpace(d.Description),
		SKU:             strings.TrimSpace(d.SKU),
		Characteristic:  strings.TrimSpace(d.Characteristic),
		ProductType:     productTypes.ref(productType),
		MeasurementUnit: orDefault(d.UOM, s.DefaultValues.ProductsUOM),
		Price:           d.Price,
		Coefficient:     d.Coefficient,
		Comment:         d.Comment,
		Invalid:         d.Invalid,
	}
}

var ProductEntity = Entity[Product, ProductDraft]{
	DataType: ProductDataType,
	Spec:     ProductSpec,
	Decode:   decodeProduct,
	ID:       func(p Product) string { return p.ID },
	Draft:    productDraft,
	Validate: validateProduct,
	Encode:   encodeProduct,
}

type Products struct {
	*Service[Product, ProductDraft]
}

func NewProducts(api ObjectAPI, sessions session.Provider, logger *zap.Logger) *Products {
	return &Products{Service: NewService(api, sessions, ProductEntity, logger)}
}

// MatchesBySKU is the result of a batch SKU lookup keyed by line number.
type MatchesBySKU map[int][]Product

// SearchBySKU looks up every value in one request. Lines without a match are
// absent from the result.
func (p *Products) SearchBySKU(ctx context.Context, values []xts.SearchString) (MatchesBySKU, error) {
	if len(values) == 0 {
		return MatchesBySKU{}, nil
	}
	matches, err := p.api.SearchObjects(ctx, xts.SearchRequest{
		DataType:      ProductDataType,
		SearchBy:      SearchBySKU,
		SearchStrings: values,
	})
	if err != nil {
		return nil, fmt.Errorf("search products by sku: %w", err)
	}

	out := make(MatchesBySKU, len(matches))
	for _, match := range matches {
		products, err := p.decodeAll(match.Objects)
		if err != nil {
			return nil, err
		}
		if len(products) > 0 {
			out[match.LineNumber] = append(out[match.LineNumber], products...)
		}
	}
	return out, nil
}

// Prices returns the price per product id using the session price kind.
func (p *Products) Prices(ctx context.Context, ids []string) (map[string]float64, error) {
	refs := make([]xts.ObjectID, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, xts.NewObjectID(ProductDataType, id, ""))
	}
	req := xts.PricesRequest{Products: refs, Date: formatDate(p.now())}
	if sess, ok := p.sessions.Current(); ok && !sess.DefaultValues.PriceKind.IsEmpty() {
		kind := sess.DefaultValues.PriceKind
		req.PriceKind = &kind
	}

	prices, err := p.api.GetProductsPrices(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load product prices: %w", err)
	}
	out := make(map[string]float64, len(prices))
	for _, price := range prices {
		out[price.Product.ID] = price.Price
	}
	return out, nil
}
