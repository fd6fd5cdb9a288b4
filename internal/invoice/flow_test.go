package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"trade_console/internal/catalog"
	mock_catalog "trade_console/internal/catalog/mocks"
	"trade_console/internal/llm"
	"trade_console/internal/ocr"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSessions struct{}

func (staticSessions) Current() (session.Session, bool) {
	return session.Session{
		User: xts.NewObjectID("XTSUser", "u1", "Admin"),
		DefaultValues: xts.DefaultValues{
			Company:             xts.NewObjectID("XTSCompany", "c1", "Main"),
			DocumentCurrency:    xts.NewObjectID("XTSCurrency", "usd", "USD"),
			EmployeeResponsible: xts.NewObjectID("XTSEmployee", "e1", "Manager"),
		},
	}, true
}

type fakeExtractor struct {
	extraction ocr.Extraction
	err        error
}

func (f fakeExtractor) ExtractInvoiceLines(context.Context, []llm.Image) (ocr.Extraction, error) {
	return f.extraction, f.err
}

type answerVision string

func (a answerVision) Vision(context.Context, string, []llm.Image) (string, error) {
	return string(a), nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func productJSON(id, sku string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"_type":"XTSProduct","objectId":{"_type":"XTSObjectId","id":%q,"dataType":"XTSProduct","presentation":"Catalog %s"},"description":"Catalog %s","sku":%q,"coefficient":2}`, id, id, id, sku))
}

func partnerJSON(id, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"_type":"XTSCounterparty","objectId":{"_type":"XTSObjectId","id":%q,"dataType":"XTSCounterparty","presentation":%q},"description":%q,"supplier":true}`, id, name, name))
}

func threeLines() ocr.Extraction {
	return ocr.Extraction{
		Header: ocr.Header{Date: "2024-03-01", Number: "INV-1", Supplier: "Globex", ContactInfo: "+1 555 0100"},
		Lines: []ocr.Line{
			{LineNumber: 1, ProductCode: "A-1", ProductDescription: "Cable", Quantity: dec("5"), Price: dec("10"), Total: dec("50")},
			{LineNumber: 2, ProductCode: "B-2", ProductDescription: "Plug", Quantity: dec("2"), Price: dec("3")},
			{LineNumber: 3, ProductCode: "", ProductDescription: "Delivery", Quantity: dec("1"), Price: dec("7"), Total: dec("7")},
		},
	}
}

func newFlow(api catalog.ObjectAPI, extractor Extractor) *Flow {
	c := catalog.New(api, staticSessions{}, nil)
	return NewFlow(extractor, c.Products, c.Partners, c.SupplierInvoices, nil)
}

func startedReview(t *testing.T, ctrl *gomock.Controller) (*Flow, *mock_catalog.MockObjectAPI, *Review) {
	t.Helper()
	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		SearchObjects(gomock.Any(), gomock.Any()).
		Return([]xts.SearchMatch{
			{LineNumber: 1, Objects: []json.RawMessage{productJSON("p1", "A-1")}},
		}, nil)

	flow := newFlow(api, fakeExtractor{extraction: threeLines()})
	review, err := flow.Start(context.Background(), []llm.Image{{Data: []byte("img")}})
	require.NoError(t, err)
	return flow, api, review
}

func TestFlow_StartSplitsLines(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		SearchObjects(gomock.Any(), xts.SearchRequest{
			DataType:      catalog.ProductDataType,
			SearchBy:      catalog.SearchBySKU,
			SearchStrings: []xts.SearchString{{LineNumber: 1, Value: "A-1"}, {LineNumber: 2, Value: "B-2"}},
		}).
		Return([]xts.SearchMatch{
			{LineNumber: 1, Objects: []json.RawMessage{productJSON("p1", "A-1"), productJSON("p2", "A-1")}},
			{LineNumber: 2, Objects: []json.RawMessage{}},
		}, nil)

	flow := newFlow(api, fakeExtractor{extraction: threeLines()})
	review, err := flow.Start(context.Background(), []llm.Image{{Data: []byte("img")}})
	require.NoError(t, err)

	existing, added := review.Lines()
	require.Len(t, existing, 2)
	require.Len(t, added, 2)

	assert.Equal(t, "p1", existing[0].ProductID)
	assert.Equal(t, "p2", existing[1].ProductID)
	assert.Equal(t, 1, existing[0].LineNumber)
	assert.Equal(t, 1, existing[1].LineNumber)
	assert.NotEqual(t, existing[0].Key, existing[1].Key)
	assert.Equal(t, "Catalog p1", existing[0].ProductDescription)
	assert.True(t, dec("2").Equal(existing[0].Coefficient))

	assert.Equal(t, []int{2, 3}, []int{added[0].LineNumber, added[1].LineNumber})
	for _, l := range added {
		assert.False(t, l.Existing())
		assert.True(t, dec("1").Equal(l.Coefficient))
	}
	assert.True(t, dec("6").Equal(added[0].Total), "missing total is derived from quantity and price")

	inExisting := map[int]bool{}
	for _, l := range existing {
		inExisting[l.LineNumber] = true
	}
	for _, l := range added {
		assert.False(t, inExisting[l.LineNumber], "line %d is in both sets", l.LineNumber)
	}

	header := review.Header()
	assert.Equal(t, "Globex", header.Supplier)
	assert.False(t, header.Amount.Valid)
}

func TestFlow_ParseErrorSkipsSKUSearch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	extractor := ocr.NewExtractor(answerVision("Supplier: Globex, total 50"), nil)
	flow := newFlow(api, extractor)

	review, err := flow.Start(context.Background(), []llm.Image{{Data: []byte("img")}})
	assert.ErrorIs(t, err, ocr.ErrParse)
	assert.Nil(t, review)
}

func TestFlow_StartSearchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().SearchObjects(gomock.Any(), gomock.Any()).Return(nil, xts.ErrNetwork)

	_, err := newFlow(api, fakeExtractor{extraction: threeLines()}).Start(context.Background(), []llm.Image{{}})
	assert.ErrorIs(t, err, xts.ErrNetwork)
}

func TestReview_EditRecomputesTotal(t *testing.T) {
	five, ten, two := dec("5"), dec("10"), dec("2")
	edits := map[string]LineEdit{
		"quantity": {Quantity: &five},
		"price":    {Price: &ten},
		"discount": {Discount: &two},
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			review := &Review{added: []Line{{
				Key: "k", Quantity: five, OriginalPrice: ten, Discount: two, Price: ten, Total: dec("50"),
			}}}
			line, err := review.EditLine("k", edit)
			require.NoError(t, err)
			assert.True(t, dec("60").Equal(line.Total), "got %s", line.Total)
			assert.True(t, dec("12").Equal(line.Price))
		})
	}
}

func TestReview_EditAndRemoveUnknownLine(t *testing.T) {
	review := &Review{}
	_, err := review.EditLine("nope", LineEdit{})
	assert.ErrorIs(t, err, ErrLineNotFound)
	assert.ErrorIs(t, review.RemoveLine("nope"), ErrLineNotFound)
}

func TestReview_QuickFill(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	_, _, review := startedReview(t, ctrl)

	coefficient, discount := dec("3"), dec("1")
	review.ApplyQuickFill(QuickFill{Name: "Spare part", Coefficient: &coefficient, Discount: &discount})

	existing, added := review.Lines()
	require.Len(t, existing, 1)
	assert.Equal(t, "Catalog p1", existing[0].ProductDescription)
	assert.True(t, dec("2").Equal(existing[0].Coefficient))
	assert.True(t, dec("55").Equal(existing[0].Total), "5 x (10 + 1)")

	for _, l := range added {
		assert.Equal(t, "Spare part", l.ProductDescription)
		assert.True(t, coefficient.Equal(l.Coefficient))
		assert.True(t, discount.Equal(l.Discount))
	}
	assert.True(t, dec("8").Equal(added[0].Total), "2 x (3 + 1)")
}

func TestReview_TotalsPreferManualHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	_, _, review := startedReview(t, ctrl)

	amount, quantity := review.Totals()
	assert.True(t, dec("63").Equal(amount), "50 + 6 + 7, got %s", amount)
	assert.True(t, dec("8").Equal(quantity))

	review.EditHeader(func(h *Header) { h.Amount = decimal.NewNullDecimal(dec("100")) })
	amount, quantity = review.Totals()
	assert.True(t, dec("100").Equal(amount))
	assert.True(t, dec("8").Equal(quantity))

	existing, _ := review.Lines()
	require.NoError(t, review.RemoveLine(existing[0].Key))
	amount, quantity = review.Totals()
	assert.True(t, dec("100").Equal(amount), "manual amount is not reconciled with lines")
	assert.True(t, dec("3").Equal(quantity))

	review.EditHeader(func(h *Header) { h.Amount = decimal.NullDecimal{} })
	amount, _ = review.Totals()
	assert.True(t, dec("13").Equal(amount))
}

func TestFlow_SaveCreatesMissingSupplier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	flow, api, review := startedReview(t, ctrl)

	api.EXPECT().GetObjectList(gomock.Any(), gomock.Any()).Return([]json.RawMessage{}, nil)
	api.EXPECT().
		CreateObjects(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, objects []any) ([]json.RawMessage, error) {
			body, err := json.Marshal(objects[0])
			require.NoError(t, err)
			assert.Contains(t, string(body), `"description":"Globex"`)
			assert.Contains(t, string(body), `"supplier":true`)
			return []json.RawMessage{partnerJSON("cp9", "Globex")}, nil
		})

	result, err := flow.Save(context.Background(), review)
	require.NoError(t, err)
	assert.True(t, result.SupplierCreated)
	assert.Equal(t, "cp9", result.Supplier.ID)
	assert.Len(t, result.Existing, 1)
	assert.Len(t, result.New, 2)
	assert.True(t, dec("63").Equal(result.Amount))
}

func TestFlow_SaveUsesExistingSupplier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	flow, api, review := startedReview(t, ctrl)

	api.EXPECT().GetObjectList(gomock.Any(), gomock.Any()).Return([]json.RawMessage{partnerJSON("cp1", "GLOBEX")}, nil)

	result, err := flow.Save(context.Background(), review)
	require.NoError(t, err)
	assert.False(t, result.SupplierCreated)
	assert.Equal(t, "cp1", result.Supplier.ID)
}

func TestFlow_SaveSupplierFailureKeepsReview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	flow, api, review := startedReview(t, ctrl)

	five := dec("5")
	_, added := review.Lines()
	_, err := review.EditLine(added[0].Key, LineEdit{Quantity: &five})
	require.NoError(t, err)

	boom := errors.New("boom")
	api.EXPECT().GetObjectList(gomock.Any(), gomock.Any()).Return([]json.RawMessage{}, nil).Times(2)
	api.EXPECT().CreateObjects(gomock.Any(), gomock.Any()).Return(nil, boom)
	api.EXPECT().CreateObjects(gomock.Any(), gomock.Any()).Return([]json.RawMessage{partnerJSON("cp9", "Globex")}, nil)

	_, err = flow.Save(context.Background(), review)
	assert.ErrorIs(t, err, ErrSupplier)
	assert.ErrorIs(t, err, boom)

	_, addedAfter := review.Lines()
	require.Len(t, addedAfter, 2)
	assert.True(t, five.Equal(addedAfter[0].Quantity))

	result, err := flow.Save(context.Background(), review)
	require.NoError(t, err)
	assert.Equal(t, "cp9", result.Supplier.ID)
}

func TestFlow_SaveRequiresSupplierName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	flow, _, review := startedReview(t, ctrl)

	review.EditHeader(func(h *Header) { h.Supplier = "  " })
	_, err := flow.Save(context.Background(), review)
	assert.ErrorIs(t, err, ErrMissingSupplier)

	_, err = flow.Save(context.Background(), &Review{})
	assert.ErrorIs(t, err, ErrNothingToSave)
}

func TestFlow_PersistCreatesProductsAndInvoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	flow := newFlow(api, nil)

	result := Result{
		Supplier: catalog.Partner{ID: "cp1", Description: "Globex"},
		Header:   Header{Date: "2024-03-01", Number: "INV-1"},
		Existing: []Line{{LineNumber: 1, ProductID: "p1", Quantity: dec("5"), Price: dec("10"), Total: dec("50")}},
		New:      []Line{{LineNumber: 2, ProductCode: "B-2", ProductDescription: "Plug", Quantity: dec("2"), Price: dec("3"), Total: dec("6"), Coefficient: dec("1")}},
		Amount:   dec("56"),
		Quantity: dec("7"),
	}

	gomock.InOrder(
		api.EXPECT().
			CreateObjects(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, objects []any) ([]json.RawMessage, error) {
				body, err := json.Marshal(objects[0])
				require.NoError(t, err)
				assert.Contains(t, string(body), `"sku":"B-2"`)
				return []json.RawMessage{productJSON("p-new", "B-2")}, nil
			}),
		api.EXPECT().
			CreateObjects(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, objects []any) ([]json.RawMessage, error) {
				body, err := json.Marshal(objects[0])
				require.NoError(t, err)

				var sent struct {
					Type         string       `json:"_type"`
					Counterparty xts.ObjectID `json:"counterparty"`
					Amount       float64      `json:"documentAmount"`
					Inventory    []struct {
						Product xts.ObjectID `json:"product"`
					} `json:"inventory"`
				}
				require.NoError(t, json.Unmarshal(body, &sent))
				assert.Equal(t, catalog.SupplierInvoiceDataType, sent.Type)
				assert.Equal(t, "cp1", sent.Counterparty.ID)
				assert.Equal(t, 56.0, sent.Amount)
				require.Len(t, sent.Inventory, 2)
				assert.Equal(t, "p1", sent.Inventory[0].Product.ID)
				assert.Equal(t, "p-new", sent.Inventory[1].Product.ID)
				return []json.RawMessage{json.RawMessage(`{"_type":"XTSSupplierInvoice","objectId":{"id":"inv1"},"number":"INV-1"}`)}, nil
			}),
	)

	saved, err := flow.Persist(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, "inv1", saved.ID)
}

func TestFlow_PersistValidatesBeforeAnyRequest(t *testing.T) {
	newLine := Line{LineNumber: 2, ProductCode: "B-2", ProductDescription: "Plug", Quantity: dec("2"), Price: dec("3"), Total: dec("6"), Coefficient: dec("1")}

	tests := []struct {
		name   string
		result Result
		field  string
	}{
		{
			name: "future date",
			result: Result{
				Supplier: catalog.Partner{ID: "cp1", Description: "Globex"},
				Header:   Header{Date: "2999-01-01"},
				New:      []Line{newLine},
				Amount:   dec("6"),
				Quantity: dec("2"),
			},
			field: "date",
		},
		{
			name: "negative amount",
			result: Result{
				Supplier: catalog.Partner{ID: "cp1", Description: "Globex"},
				Header:   Header{Date: "2024-03-01"},
				New:      []Line{newLine},
				Amount:   dec("-1"),
				Quantity: dec("2"),
			},
			field: "amount",
		},
		{
			name: "new product without description",
			result: Result{
				Supplier: catalog.Partner{ID: "cp1", Description: "Globex"},
				Header:   Header{Date: "2024-03-01"},
				New:      []Line{{LineNumber: 3, ProductCode: "C-3", Quantity: dec("1"), Coefficient: dec("1")}},
				Amount:   dec("0"),
				Quantity: dec("1"),
			},
			field: "description",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No expectations: any CreateObjects call fails the test.
			api := mock_catalog.NewMockObjectAPI(ctrl)
			flow := newFlow(api, nil)

			_, err := flow.Persist(context.Background(), tt.result)
			require.ErrorIs(t, err, validation.ErrInvalid)

			var invalid *validation.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Contains(t, invalid.Violations, tt.field)
		})
	}
}
