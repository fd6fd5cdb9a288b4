package listing

import (
	"context"
	"sync"
)

type Pager interface {
	CanLoadMore() bool
	LoadMore(ctx context.Context) error
}

type observer struct {
	key       string
	connected bool
}

// Sentinel watches the last rendered row and advances the pager when that row
// becomes visible. Rows are identified by the key the renderer assigns them.
type Sentinel struct {
	pager Pager

	mu       sync.Mutex
	current  *observer
	attached int
}

func NewSentinel(pager Pager) *Sentinel {
	return &Sentinel{pager: pager}
}

// Watch moves the observer to a new last row. An empty key detaches it.
func (s *Sentinel) Watch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.connected && s.current.key == key {
		return
	}
	if s.current != nil {
		s.current.connected = false
	}
	s.current = nil
	if key == "" {
		return
	}
	s.current = &observer{key: key, connected: true}
	s.attached++
}

// Visible is called by the renderer when the row with key is on screen.
func (s *Sentinel) Visible(ctx context.Context, key string) error {
	s.mu.Lock()
	armed := key != "" && s.current != nil && s.current.connected && s.current.key == key
	s.mu.Unlock()

	if !armed {
		return nil
	}
	if !s.pager.CanLoadMore() {
		return nil
	}
	return s.pager.LoadMore(ctx)
}

func (s *Sentinel) Watching() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.key
}

// Attached counts how many observers have been created so far.
func (s *Sentinel) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}
