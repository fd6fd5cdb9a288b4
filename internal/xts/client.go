package xts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"trade_console/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const errorResponseType = "XTSError"

var (
	ErrNetwork               = errors.New("xts network error")
	ErrInvalidResponseFormat = errors.New("xts invalid response format")
	ErrEmptyBody             = fmt.Errorf("%w: empty response body", ErrInvalidResponseFormat)
	ErrUnauthorized          = errors.New("xts unauthorized")
	ErrMissingBaseURL        = errors.New("xts base url is required")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("xts api error: %s", e.Status)
	}
	return fmt.Sprintf("xts api error: %s: %s", e.Status, e.Body)
}

// RemoteError is an XTSError document returned with a successful HTTP status.
type RemoteError struct {
	RequestType string
	Description string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("xts %s failed: %s", e.RequestType, e.Description)
}

type Client struct {
	http     *resty.Client
	baseURL  string
	database string
	logger   *zap.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimSpace(cfg.XTSBaseURL)).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)

	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimSpace(cfg.XTSBaseURL),
		database: strings.TrimSpace(cfg.XTSDatabase),
		logger:   logger.Named("xts"),
	}
}

// SetSessionToken attaches the token returned by SignIn to subsequent requests.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SignIn(ctx context.Context, userName, password string) (SignInResult, error) {
	req := signInRequest{
		header:   c.header("XTSSignInRequest"),
		UserName: userName,
		Password: password,
	}
	var result SignInResult
	if err := c.post(ctx, req.Type, req, &result); err != nil {
		return SignInResult{}, err
	}
	if result.User.IsEmpty() {
		return SignInResult{}, fmt.Errorf("%w: sign in response has no user", ErrInvalidResponseFormat)
	}
	c.SetSessionToken(result.SessionID)
	return result, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	req := signOutRequest{header: c.header("XTSSignOutRequest")}
	err := c.post(ctx, req.Type, req, nil)
	c.SetSessionToken("")
	return err
}

func (c *Client) GetObjectList(ctx context.Context, list ListRequest) ([]json.RawMessage, error) {
	from, to := list.Range()
	conditions := list.Conditions
	if conditions == nil {
		conditions = []Condition{}
	}
	columns := list.ColumnSet
	if columns == nil {
		columns = []string{}
	}
	req := getObjectListRequest{
		header:       c.header("XTSGetObjectListRequest"),
		DataType:     list.DataType,
		ColumnSet:    columns,
		PositionFrom: from,
		PositionTo:   to,
		Conditions:   conditions,
	}

	var resp listResponse
	if err := c.post(ctx, req.Type, req, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("%w: %s response has no items", ErrInvalidResponseFormat, list.DataType)
	}
	return *resp.Items, nil
}

func (c *Client) GetObjects(ctx context.Context, ids []ObjectID) ([]json.RawMessage, error) {
	req := objectIDsRequest{
		header:    c.header("XTSGetObjectsRequest"),
		ObjectIDs: ids,
	}
	return c.postObjects(ctx, req.Type, req)
}

func (c *Client) CreateObjects(ctx context.Context, objects []any) ([]json.RawMessage, error) {
	req := objectsRequest{
		header:  c.header("XTSCreateObjectsRequest"),
		Objects: objects,
	}
	return c.postObjects(ctx, req.Type, req)
}

func (c *Client) UpdateObjects(ctx context.Context, objects []any) ([]json.RawMessage, error) {
	req := objectsRequest{
		header:  c.header("XTSUpdateObjectsRequest"),
		Objects: objects,
	}
	return c.postObjects(ctx, req.Type, req)
}

func (c *Client) DeleteObjects(ctx context.Context, ids []ObjectID) error {
	req := objectIDsRequest{
		header:    c.header("XTSDeleteObjectsRequest"),
		ObjectIDs: ids,
	}
	return c.post(ctx, req.Type, req, nil)
}

func (c *Client) SearchObjects(ctx context.Context, search SearchRequest) ([]SearchMatch, error) {
	req := searchObjectsRequest{
		header:        c.header("XTSSearchObjectsRequest"),
		DataType:      search.DataType,
		SearchBy:      search.SearchBy,
		SearchStrings: search.SearchStrings,
	}

	var resp searchResponse
	if err := c.post(ctx, req.Type, req, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("%w: search response has no items", ErrInvalidResponseFormat)
	}
	return *resp.Items, nil
}

func (c *Client) GetProductsPrices(ctx context.Context, prices PricesRequest) ([]ProductPrice, error) {
	req := getProductsPricesRequest{
		header:    c.header("XTSGetProductsPricesRequest"),
		Products:  prices.Products,
		PriceKind: prices.PriceKind,
		Date:      prices.Date,
	}

	var resp pricesResponse
	if err := c.post(ctx, req.Type, req, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("%w: prices response has no items", ErrInvalidResponseFormat)
	}
	return *resp.Items, nil
}

func (c *Client) header(requestType string) header {
	return header{
		Type:  requestType,
		DBID:  c.database,
		MsgID: uuid.NewString(),
	}
}

func (c *Client) postObjects(ctx context.Context, requestType string, body any) ([]json.RawMessage, error) {
	var resp objectsResponse
	if err := c.post(ctx, requestType, body, &resp); err != nil {
		return nil, err
	}
	if resp.Objects == nil || len(*resp.Objects) == 0 {
		return nil, fmt.Errorf("%w: %s response has no objects", ErrInvalidResponseFormat, requestType)
	}
	return *resp.Objects, nil
}

func (c *Client) post(ctx context.Context, requestType string, body any, result any) error {
	if c.baseURL == "" {
		return ErrMissingBaseURL
	}

	req := c.http.R().SetContext(ctx).SetBody(body)
	if token := c.SessionToken(); token != "" {
		req.SetAuthToken(token)
	}

	start := time.Now()
	resp, err := req.Post("")
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("type", requestType),
			zap.Int64("ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", ErrNetwork, requestType, err)
	}
	c.logger.Debug("request done",
		zap.String("type", requestType),
		zap.Int("status", resp.StatusCode()),
		zap.Int64("ms", elapsed.Milliseconds()),
	)
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}

	raw := bytes.TrimSpace(resp.Body())
	if len(raw) == 0 {
		return fmt.Errorf("%w (%s)", ErrEmptyBody, requestType)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponseFormat, requestType, err)
	}
	if env.Type == errorResponseType {
		return &RemoteError{RequestType: requestType, Description: env.Description}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponseFormat, requestType, err)
	}
	return nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	default:
		return apiErr
	}
}
