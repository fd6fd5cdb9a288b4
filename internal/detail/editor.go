// Package detail loads one entity, mirrors it into an editable draft and
// guards the draft against being silently discarded.
package detail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("entity not found")
	ErrBusy      = errors.New("another request is in progress")
	ErrNotLoaded = errors.New("nothing loaded")
)

type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	LoadError
	Editing
	Saving
	SaveError
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadError:
		return "load_error"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	case SaveError:
		return "save_error"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Backend is what an Editor needs from an entity service.
type Backend[T, D any] interface {
	Get(ctx context.Context, id string) (T, error)
	Draft(v T) D
	Validate(d D) error
	Save(ctx context.Context, current T, d D) (T, error)
}

type Notifier interface {
	NotifyError(err error)
}

type Confirmer interface {
	Confirm(prompt string) bool
}

const discardPrompt = "Discard unsaved changes?"

type Editor[T, D any] struct {
	backend  Backend[T, D]
	notifier Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	status  Status
	id      string
	current T
	draft   D
	dirty   bool
}

func NewEditor[T, D any](backend Backend[T, D], notifier Notifier, logger *zap.Logger) *Editor[T, D] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor[T, D]{
		backend:  backend,
		notifier: notifier,
		logger:   logger.Named("detail"),
	}
}

// Load fetches id and resets the draft. An empty id fails before any request.
func (e *Editor[T, D]) Load(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}

	e.mu.Lock()
	if e.status == Loading || e.status == Saving {
		e.mu.Unlock()
		return ErrBusy
	}
	e.status = Loading
	e.mu.Unlock()

	v, err := e.backend.Get(ctx, id)
	if err != nil {
		e.mu.Lock()
		e.status = LoadError
		e.mu.Unlock()
		e.report(id, err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.id = id
	e.current = v
	e.draft = e.backend.Draft(v)
	e.dirty = false
	e.status = Loaded
	return nil
}

// Edit applies a typed change to the draft and marks it dirty.
func (e *Editor[T, D]) Edit(change func(d *D)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.status {
	case Loaded, Editing, SaveError:
	case Saving:
		return ErrBusy
	default:
		return ErrNotLoaded
	}
	change(&e.draft)
	e.dirty = true
	e.status = Editing
	return nil
}

// Save validates locally and sends the whole draft. Validation failures never
// reach the backend.
func (e *Editor[T, D]) Save(ctx context.Context) error {
	e.mu.Lock()
	switch e.status {
	case Loaded, Editing, SaveError:
	case Saving, Loading:
		e.mu.Unlock()
		return ErrBusy
	default:
		e.mu.Unlock()
		return ErrNotLoaded
	}
	id := e.id
	draft := e.draft
	current := e.current
	if err := e.backend.Validate(draft); err != nil {
		e.mu.Unlock()
		e.report(id, err)
		return err
	}
	e.status = Saving
	e.mu.Unlock()

	saved, err := e.backend.Save(ctx, current, draft)
	if err != nil {
		e.mu.Lock()
		e.status = SaveError
		e.mu.Unlock()
		e.report(id, err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = saved
	e.draft = e.backend.Draft(saved)
	e.dirty = false
	e.status = Loaded
	return nil
}

// NavigateAway discards the draft. A dirty draft is only discarded when the
// confirmer agrees; the return value reports whether it was discarded.
func (e *Editor[T, D]) NavigateAway(confirmer Confirmer) bool {
	e.mu.Lock()
	dirty := e.dirty
	e.mu.Unlock()

	if dirty && (confirmer == nil || !confirmer.Confirm(discardPrompt)) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var zeroT T
	var zeroD D
	e.current = zeroT
	e.draft = zeroD
	e.id = ""
	e.dirty = false
	e.status = Idle
	return true
}

func (e *Editor[T, D]) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Editor[T, D]) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

func (e *Editor[T, D]) Current() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Editor[T, D]) Draft() D {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

func (e *Editor[T, D]) report(id string, err error) {
	e.logger.Warn("detail operation failed", zap.String("id", id), zap.Error(err))
	if e.notifier != nil {
		e.notifier.NotifyError(err)
	}
}
