// Package listing holds the paginated list state shared by every list screen
// and the sentinel that drives it from row visibility.
package listing

import (
	"context"
	"errors"
	"sync"

	"trade_console/internal/query"

	"go.uber.org/zap"
)

// ErrSuperseded is returned when a response arrives after a newer request was
// issued by the same controller. The response is dropped.
var ErrSuperseded = errors.New("list response superseded by a newer request")

type Fetcher[T any] func(ctx context.Context, q query.Query, page, pageSize int) ([]T, error)

// Notifier surfaces failures to the user.
type Notifier interface {
	NotifyError(err error)
}

type State[T any] struct {
	Query         query.Query
	Items         []T
	Page          int
	HasMore       bool
	IsLoading     bool
	IsLoadingMore bool
}

// Controller accumulates pages of T. HasMore is true iff the last page came
// back with exactly pageSize items; the API exposes no total count, so a total
// that is a multiple of pageSize costs one extra empty fetch.
type Controller[T any] struct {
	fetch    Fetcher[T]
	pageSize int
	notifier Notifier
	logger   *zap.Logger

	mu          sync.Mutex
	query       query.Query
	items       []T
	page        int
	hasMore     bool
	loading     bool
	loadingMore bool
	seq         uint64
}

func NewController[T any](fetch Fetcher[T], pageSize int, notifier Notifier, logger *zap.Logger) *Controller[T] {
	if pageSize <= 0 {
		pageSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller[T]{
		fetch:    fetch,
		pageSize: pageSize,
		notifier: notifier,
		logger:   logger.Named("listing"),
		page:     1,
	}
}

func (c *Controller[T]) PageSize() int {
	return c.pageSize
}

// Reset starts a new search and replaces the items with page 1.
func (c *Controller[T]) Reset(ctx context.Context, q query.Query) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.query = q
	c.items = nil
	c.page = 1
	c.hasMore = true
	c.loading = true
	c.loadingMore = false
	c.mu.Unlock()

	items, err := c.fetch(ctx, q, 1, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		c.logger.Debug("dropping stale page", zap.Uint64("seq", seq), zap.Uint64("current", c.seq))
		return ErrSuperseded
	}
	c.loading = false
	if err != nil {
		c.fail(err)
		return err
	}
	c.items = append([]T(nil), items...)
	c.hasMore = len(items) == c.pageSize
	return nil
}

// LoadMore appends the next page. It is a no-op while any load is in flight
// or when the last page was short.
func (c *Controller[T]) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || c.loadingMore || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.seq++
	seq := c.seq
	c.loadingMore = true
	next := c.page + 1
	q := c.query
	c.mu.Unlock()

	items, err := c.fetch(ctx, q, next, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		c.logger.Debug("dropping stale page", zap.Uint64("seq", seq), zap.Uint64("current", c.seq))
		return ErrSuperseded
	}
	c.loadingMore = false
	if err != nil {
		c.fail(err)
		return err
	}
	c.page = next
	c.items = append(c.items, items...)
	c.hasMore = len(items) == c.pageSize
	return nil
}

// CanLoadMore reports whether a LoadMore call would issue a request.
func (c *Controller[T]) CanLoadMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore && !c.loading && !c.loadingMore
}

func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State[T]{
		Query:         c.query,
		Items:         append([]T(nil), c.items...),
		Page:          c.page,
		HasMore:       c.hasMore,
		IsLoading:     c.loading,
		IsLoadingMore: c.loadingMore,
	}
}

func (c *Controller[T]) fail(err error) {
	c.logger.Warn("list load failed", zap.Int("page", c.page), zap.Error(err))
	if c.notifier != nil {
		c.notifier.NotifyError(err)
	}
}
