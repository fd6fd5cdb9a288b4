package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"trade_console/internal/catalog"
	mock_catalog "trade_console/internal/catalog/mocks"
	"trade_console/internal/detail"
	"trade_console/internal/listing"
	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSessions struct {
	sess session.Session
	ok   bool
}

func (s staticSessions) Current() (session.Session, bool) { return s.sess, s.ok }

func signedIn() staticSessions {
	return staticSessions{
		ok: true,
		sess: session.Session{
			User: xts.NewObjectID("XTSUser", "u1", "Admin"),
			DefaultValues: xts.DefaultValues{
				Company:             xts.NewObjectID("XTSCompany", "c1", "Main"),
				DocumentCurrency:    xts.NewObjectID("XTSCurrency", "usd", "USD"),
				EmployeeResponsible: xts.NewObjectID("XTSEmployee", "e1", "Manager"),
				ProductsUOM:         xts.NewObjectID("XTSUOM", "pcs", "pcs"),
				PriceKind:           xts.NewObjectID("XTSPriceKind", "retail", "Retail"),
			},
		},
	}
}

func productJSON(id, sku string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"_type": "XTSProduct",
		"objectId": {"_type": "XTSObjectId", "id": %q, "dataType": "XTSProduct", "presentation": "Product %s"},
		"description": "Product %s",
		"sku": %q,
		"productType": {"_type": "XTSObjectId", "id": "InventoryItem", "dataType": "XTSProductType", "presentation": "Inventory item"},
		"price": 12.5
	}`, id, id, id, sku))
}

func partnerJSON(id, name string, supplier bool) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"_type": "XTSCounterparty",
		"objectId": {"_type": "XTSObjectId", "id": %q, "dataType": "XTSCounterparty", "presentation": %q},
		"description": %q,
		"supplier": %t
	}`, id, name, name, supplier))
}

func TestProducts_ListBySKUFillsFirstPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	products := catalog.NewProducts(api, signedIn(), nil)

	page := make([]json.RawMessage, 0, 20)
	for i := 0; i < 20; i++ {
		page = append(page, productJSON(fmt.Sprintf("p%d", i), fmt.Sprintf("ABC123-%d", i)))
	}

	api.EXPECT().
		GetObjectList(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req xts.ListRequest) ([]json.RawMessage, error) {
			assert.Equal(t, catalog.ProductDataType, req.DataType)
			assert.Equal(t, 1, req.Page)
			assert.Equal(t, 20, req.PageSize)
			require.Len(t, req.Conditions, 1)
			assert.Equal(t, "sku", req.Conditions[0].Property)
			assert.Equal(t, "ABC123", req.Conditions[0].Value)
			assert.Equal(t, xts.OpContains, req.Conditions[0].ComparisonOperator)
			return page, nil
		})

	list := listing.NewController[catalog.Product](products.List, 20, nil, nil)
	err := list.Reset(context.Background(), query.Query{SearchTerm: "ABC123", SearchType: "sku"})
	require.NoError(t, err)

	state := list.State()
	assert.Len(t, state.Items, 20)
	assert.True(t, state.HasMore)
	assert.Equal(t, "goods", state.Items[0].Type)
	assert.Equal(t, 12.5, state.Items[0].Price)
}

func TestService_CompanyConditionLeadsBuilderOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	orders := catalog.NewService(api, signedIn(), catalog.OrderEntity, nil)

	api.EXPECT().
		GetObjectList(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req xts.ListRequest) ([]json.RawMessage, error) {
			require.Len(t, req.Conditions, 3)
			assert.Equal(t, "company", req.Conditions[0].Property)
			assert.Equal(t, "c1", req.Conditions[0].Value)
			assert.Equal(t, "number", req.Conditions[1].Property)
			assert.Equal(t, "orderState", req.Conditions[2].Property)
			assert.Equal(t, "Completed", req.Conditions[2].Value)
			return []json.RawMessage{}, nil
		})

	items, err := orders.List(context.Background(), query.Query{
		SearchTerm: "0042",
		Filters:    map[string]string{"state": "completed"},
	}, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestService_ListRejectsUnknownFilterWithoutRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	employees := catalog.NewService(api, signedIn(), catalog.EmployeeEntity, nil)

	_, err := employees.List(context.Background(), query.Query{Filters: map[string]string{"shoe_size": "42"}}, 1, 20)
	assert.ErrorIs(t, err, query.ErrUnknownFilter)
}

func TestEditor_LoadEmptyIDMakesNoRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	products := catalog.NewProducts(api, signedIn(), nil)

	editor := products.Editor(nil)
	err := editor.Load(context.Background(), "")

	assert.ErrorIs(t, err, detail.ErrNotFound)
	assert.Equal(t, detail.Idle, editor.Status())
}

func TestService_GetWrapsFormatErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	products := catalog.NewProducts(api, signedIn(), nil)

	api.EXPECT().
		GetObjects(gomock.Any(), []xts.ObjectID{xts.NewObjectID(catalog.ProductDataType, "p1", "")}).
		Return(nil, fmt.Errorf("%w: no objects", xts.ErrInvalidResponseFormat))

	_, err := products.Get(context.Background(), "p1")
	assert.ErrorIs(t, err, xts.ErrInvalidResponseFormat)
	assert.Contains(t, err.Error(), "load XTSProduct p1")
}

func TestService_CreateValidatesBeforeRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	partners := catalog.NewPartners(api, signedIn(), nil)

	_, err := partners.Create(context.Background(), catalog.PartnerDraft{Phone: "abc"})

	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Equal(t, "required", verr.Violations["description"])
	assert.Equal(t, "invalid_phone", verr.Violations["phone"])
}

func TestService_CreateRequiresSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	currencies := catalog.NewService(api, staticSessions{}, catalog.CurrencyEntity, nil)

	_, err := currencies.Create(context.Background(), catalog.CurrencyDraft{
		Code: "EUR", Description: "Euro", Rate: 1.1, Multiplicity: 1,
	})
	assert.ErrorIs(t, err, session.ErrNotSignedIn)
}

func TestEditor_SaveSendsWholeDraft(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	partners := catalog.NewPartners(api, signedIn(), nil)

	api.EXPECT().
		GetObjects(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{partnerJSON("cp1", "Acme", false)}, nil)
	api.EXPECT().
		UpdateObjects(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, objects []any) ([]json.RawMessage, error) {
			require.Len(t, objects, 1)
			body, err := json.Marshal(objects[0])
			require.NoError(t, err)

			var sent map[string]any
			require.NoError(t, json.Unmarshal(body, &sent))
			assert.Equal(t, "XTSCounterparty", sent["_type"])
			assert.Equal(t, "Acme Ltd", sent["description"])
			assert.Equal(t, true, sent["supplier"])
			assert.Equal(t, "cp1", sent["objectId"].(map[string]any)["id"])
			assert.Equal(t, "e1", sent["responsible"].(map[string]any)["id"])
			return []json.RawMessage{partnerJSON("cp1", "Acme Ltd", true)}, nil
		})

	editor := partners.Editor(nil)
	require.NoError(t, editor.Load(context.Background(), "cp1"))
	require.NoError(t, editor.Edit(func(d *catalog.PartnerDraft) {
		d.Description = "Acme Ltd"
		d.Roles.Supplier = true
	}))
	assert.True(t, editor.IsDirty())

	require.NoError(t, editor.Save(context.Background()))
	assert.False(t, editor.IsDirty())
	assert.Equal(t, detail.Loaded, editor.Status())
	assert.Equal(t, "Acme Ltd", editor.Current().Description)
}

func TestProducts_SearchBySKUGroupsByLine(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	products := catalog.NewProducts(api, signedIn(), nil)

	lines := []xts.SearchString{{LineNumber: 1, Value: "A-1"}, {LineNumber: 2, Value: "B-2"}, {LineNumber: 3, Value: "A-1"}}
	api.EXPECT().
		SearchObjects(gomock.Any(), xts.SearchRequest{
			DataType:      catalog.ProductDataType,
			SearchBy:      catalog.SearchBySKU,
			SearchStrings: lines,
		}).
		Return([]xts.SearchMatch{
			{LineNumber: 1, Objects: []json.RawMessage{productJSON("p1", "A-1"), productJSON("p9", "A-1")}},
			{LineNumber: 2, Objects: []json.RawMessage{}},
			{LineNumber: 3, Objects: []json.RawMessage{productJSON("p1", "A-1")}},
		}, nil)

	matches, err := products.SearchBySKU(context.Background(), lines)
	require.NoError(t, err)
	assert.Len(t, matches[1], 2)
	assert.NotContains(t, matches, 2)
	assert.Len(t, matches[3], 1)
	assert.Equal(t, "p1", matches[3][0].ID)
}

func TestProducts_SearchBySKUWithoutValuesSkipsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	products := catalog.NewProducts(mock_catalog.NewMockObjectAPI(ctrl), signedIn(), nil)
	matches, err := products.SearchBySKU(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestProducts_PricesUsesSessionPriceKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	products := catalog.NewProducts(api, signedIn(), nil)

	api.EXPECT().
		GetProductsPrices(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req xts.PricesRequest) ([]xts.ProductPrice, error) {
			require.NotNil(t, req.PriceKind)
			assert.Equal(t, "retail", req.PriceKind.ID)
			require.Len(t, req.Products, 2)
			return []xts.ProductPrice{
				{Product: xts.NewObjectID(catalog.ProductDataType, "p1", ""), Price: 3},
				{Product: xts.NewObjectID(catalog.ProductDataType, "p2", ""), Price: 4.5},
			}, nil
		})

	prices, err := products.Prices(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"p1": 3, "p2": 4.5}, prices)
}

func TestPartners_FindByName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	partners := catalog.NewPartners(api, signedIn(), nil)

	api.EXPECT().
		GetObjectList(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{partnerJSON("cp2", "ACME", true)}, nil)
	api.EXPECT().
		GetObjectList(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{}, nil)

	found, err := partners.FindByName(context.Background(), " acme ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "cp2", found.ID)

	missing, err := partners.FindByName(context.Background(), "Globex")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPartners_CreateSupplier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	partners := catalog.NewPartners(api, signedIn(), nil)

	api.EXPECT().
		CreateObjects(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, objects []any) ([]json.RawMessage, error) {
			body, err := json.Marshal(objects[0])
			require.NoError(t, err)
			assert.Contains(t, string(body), `"supplier":true`)
			assert.Contains(t, string(body), `"comment":"+1 555 0100"`)
			return []json.RawMessage{partnerJSON("cp3", "Globex", true)}, nil
		})

	created, err := partners.CreateSupplier(context.Background(), "Globex", "+1 555 0100")
	require.NoError(t, err)
	assert.Equal(t, "cp3", created.ID)
	assert.True(t, created.Roles.Supplier)
}
