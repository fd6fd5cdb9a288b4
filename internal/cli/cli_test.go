package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trade_console/internal/catalog"
	mock_catalog "trade_console/internal/catalog/mocks"
	"trade_console/internal/detail"
	"trade_console/internal/invoice"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	token string
}

func (a *fakeAuth) SignIn(_ context.Context, userName, _ string) (xts.SignInResult, error) {
	return xts.SignInResult{
		User:      xts.NewObjectID("XTSUser", "u1", userName),
		SessionID: "token-1",
		DefaultValues: xts.DefaultValues{
			Company:          xts.NewObjectID("XTSCompany", "c1", "Main"),
			DocumentCurrency: xts.NewObjectID("XTSCurrency", "usd", "USD"),
		},
	}, nil
}

func (a *fakeAuth) SignOut(context.Context) error { return nil }

func (a *fakeAuth) SetSessionToken(token string) { a.token = token }

func productJSON(id string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"_type": "XTSProduct",
		"objectId": {"_type": "XTSObjectId", "id": %q, "dataType": "XTSProduct", "presentation": "Product %s"},
		"description": "Product %s",
		"sku": "SKU-%s",
		"productType": {"_type": "XTSObjectId", "id": "InventoryItem", "dataType": "XTSProductType", "presentation": "Inventory item"},
		"price": 12.5
	}`, id, id, id, id))
}

func newTestRunner(t *testing.T, api catalog.ObjectAPI, opts Options, input string) (*Runner, *bytes.Buffer) {
	t.Helper()

	sessions := session.NewManager(&fakeAuth{}, session.NewMemoryStore(), zap.NewNop())
	_, err := sessions.SignIn(context.Background(), session.Credentials{UserName: "admin", Password: "secret"}, false)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	c := catalog.New(api, sessions, zap.NewNop())
	r := newRunner(opts, zap.NewNop(), sessions, c, nil, strings.NewReader(input), out)
	return r, out
}

func TestList_InteractiveLoadsNextPageWhenAsked(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	gomock.InOrder(
		api.EXPECT().
			GetObjectList(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, list xts.ListRequest) ([]json.RawMessage, error) {
				assert.Equal(t, 1, list.Page)
				assert.Equal(t, 2, list.PageSize)
				return []json.RawMessage{productJSON("p1"), productJSON("p2")}, nil
			}),
		api.EXPECT().
			GetObjectList(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, list xts.ListRequest) ([]json.RawMessage, error) {
				assert.Equal(t, 2, list.Page)
				return []json.RawMessage{productJSON("p3")}, nil
			}),
	)

	r, out := newTestRunner(t, api, Options{PageSize: 2, Pages: 1, Interactive: true}, "\n")
	require.NoError(t, r.dispatch(context.Background(), []string{"list", "products"}))

	text := out.String()
	assert.Contains(t, text, "1    p1 | SKU-p1")
	assert.Contains(t, text, "3    p3 | SKU-p3")
	assert.NotContains(t, text, "(more available)")
}

func TestList_StopsAfterRequestedPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		GetObjectList(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{productJSON("p1"), productJSON("p2")}, nil).
		Times(2)

	r, out := newTestRunner(t, api, Options{PageSize: 2, Pages: 1}, "")
	require.NoError(t, r.dispatch(context.Background(), []string{"list", "products", "--pages", "2"}))

	assert.Contains(t, out.String(), "4    p2")
	assert.Contains(t, out.String(), "(more available)")
	assert.Equal(t, 1, r.options.Pages)
}

func TestList_FailureIsShownOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		GetObjectList(gomock.Any(), gomock.Any()).
		Return(nil, xts.ErrNetwork)

	r, out := newTestRunner(t, api, Options{PageSize: 2, Pages: 1}, "")
	err := r.runOneShot(context.Background(), []string{"list", "products"})
	require.ErrorIs(t, err, ErrCommandFailed)

	assert.Equal(t, 1, strings.Count(out.String(), "Error: Server is unreachable"))
}

func TestList_UnknownEntity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, _ := newTestRunner(t, mock_catalog.NewMockObjectAPI(ctrl), Options{PageSize: 2, Pages: 1}, "")
	err := r.dispatch(context.Background(), []string{"list", "invoices"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supplier-invoices")
}

func TestEdit_DryRunValidatesAndDiscards(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		GetObjects(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{productJSON("p1")}, nil)

	r, out := newTestRunner(t, api, Options{PageSize: 2, Pages: 1, Yes: true}, "")
	require.NoError(t, r.dispatch(context.Background(), []string{"edit", "products", "p1", "--dry-run", "price=20"}))

	assert.Contains(t, out.String(), "Dry run: 1 change(s) to product p1 are valid.")
	assert.Contains(t, out.String(), "Changes discarded.")
}

func TestEdit_SaveSendsDraft(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		GetObjects(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{productJSON("p1")}, nil)
	api.EXPECT().
		UpdateObjects(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, objects []any) ([]json.RawMessage, error) {
			require.Len(t, objects, 1)
			body, err := json.Marshal(objects[0])
			require.NoError(t, err)
			assert.Contains(t, string(body), `"price":20`)
			return []json.RawMessage{productJSON("p1")}, nil
		})

	r, out := newTestRunner(t, api, Options{PageSize: 2, Pages: 1}, "y\n")
	require.NoError(t, r.dispatch(context.Background(), []string{"edit", "products", "p1", "price=20"}))
	assert.Contains(t, out.String(), "Saved.")
}

func TestEdit_SaveWithJSONPrintsOnlyJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		GetObjects(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{productJSON("p1")}, nil)
	api.EXPECT().
		UpdateObjects(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{productJSON("p1")}, nil)

	r, out := newTestRunner(t, api, Options{PageSize: 2, Pages: 1, Yes: true, JSON: true}, "")
	require.NoError(t, r.dispatch(context.Background(), []string{"edit", "products", "p1", "price=20"}))

	var saved catalog.Product
	require.NoError(t, json.Unmarshal(out.Bytes(), &saved))
	assert.Equal(t, "p1", saved.ID)
	assert.NotContains(t, out.String(), "Saved.")
}

func TestEdit_InvalidDraftNeverReachesServer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		GetObjects(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{productJSON("p1")}, nil)

	r, out := newTestRunner(t, api, Options{PageSize: 2, Pages: 1, Yes: true}, "")
	err := r.runOneShot(context.Background(), []string{"edit", "products", "p1", "description="})
	require.ErrorIs(t, err, ErrCommandFailed)

	assert.Equal(t, 1, strings.Count(out.String(), "Please fix the fields: description (required)"))
}

func TestEdit_UnknownField(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mock_catalog.NewMockObjectAPI(ctrl)
	api.EXPECT().
		GetObjects(gomock.Any(), gomock.Any()).
		Return([]json.RawMessage{productJSON("p1")}, nil)

	r, _ := newTestRunner(t, api, Options{PageSize: 2, Pages: 1}, "")
	err := r.dispatch(context.Background(), []string{"edit", "products", "p1", "colour=red"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "editable fields: characteristic, coefficient")
}

func TestCommandsRequireSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, _ := newTestRunner(t, mock_catalog.NewMockObjectAPI(ctrl), Options{PageSize: 2, Pages: 1}, "")
	require.NoError(t, r.dispatch(context.Background(), []string{"logout"}))

	err := r.dispatch(context.Background(), []string{"show", "orders", "o1"})
	assert.ErrorIs(t, err, session.ErrNotSignedIn)
}

func TestFriendlyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"network", fmt.Errorf("load: %w", xts.ErrNetwork), "Server is unreachable. Check the connection and try again."},
		{"remote", &xts.RemoteError{RequestType: "XTSGetObjectsRequest", Description: "no rights"}, "Server rejected the request: no rights"},
		{"validation", validation.Violations{"rate": "must_be_positive", "code": "required"}.Err(), "Please fix the fields: code (required), rate (must be positive)"},
		{"not found", detail.ErrNotFound, "Nothing found with this id."},
		{"supplier", fmt.Errorf("%w: %w", invoice.ErrSupplier, errors.New("timeout")), "Supplier could not be found or created; the review is kept, try saving again."},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, friendlyError(tt.err))
		})
	}
}

func TestSplitCommandLine(t *testing.T) {
	args, err := splitCommandLine(`list partners --search "Acme Ltd"  --filter role=supplier`)
	require.NoError(t, err)
	assert.Equal(t, []string{"list", "partners", "--search", "Acme Ltd", "--filter", "role=supplier"}, args)

	_, err = splitCommandLine(`show "orders`)
	assert.Error(t, err)

	_, err = splitCommandLine("   ")
	assert.Error(t, err)
}

func TestFilterFlags(t *testing.T) {
	f := filterFlags{}
	require.NoError(t, f.Set("status=active"))
	require.NoError(t, f.Set(" role = supplier "))
	assert.Equal(t, "role=supplier,status=active", f.String())
	assert.Error(t, f.Set("=x"))
	assert.Error(t, f.Set("status"))
}

func TestQuickFill(t *testing.T) {
	fill, err := quickFill("", "", "")
	require.NoError(t, err)
	assert.Nil(t, fill)

	fill, err = quickFill(" Bolt ", "1,5", "-2")
	require.NoError(t, err)
	require.NotNil(t, fill)
	assert.Equal(t, "Bolt", fill.Name)
	assert.True(t, decimal.RequireFromString("1.5").Equal(*fill.Coefficient))
	assert.True(t, decimal.NewFromInt(-2).Equal(*fill.Discount))

	_, err = quickFill("", "abc", "")
	assert.Error(t, err)
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "page1")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o600))

	images, err := loadImages([]string{png})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "image/png", images[0].MIMEType)

	_, err = loadImages([]string{text})
	assert.Error(t, err)

	_, err = loadImages([]string{filepath.Join(dir, "missing.jpg")})
	assert.Error(t, err)
}
