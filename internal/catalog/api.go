// Package catalog maps the object store's tagged wire objects onto flat view
// models and exposes one service per entity.
package catalog

import (
	"context"
	"encoding/json"

	"trade_console/internal/xts"
)

// ObjectAPI is the part of the remote object API the catalog depends on.
//
//go:generate mockgen -destination=mocks/mock_api.go -package=mock_catalog -source=api.go ObjectAPI
type ObjectAPI interface {
	GetObjectList(ctx context.Context, list xts.ListRequest) ([]json.RawMessage, error)
	GetObjects(ctx context.Context, ids []xts.ObjectID) ([]json.RawMessage, error)
	CreateObjects(ctx context.Context, objects []any) ([]json.RawMessage, error)
	UpdateObjects(ctx context.Context, objects []any) ([]json.RawMessage, error)
	DeleteObjects(ctx context.Context, ids []xts.ObjectID) error
	SearchObjects(ctx context.Context, search xts.SearchRequest) ([]xts.SearchMatch, error)
	GetProductsPrices(ctx context.Context, prices xts.PricesRequest) ([]xts.ProductPrice, error)
}
