package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trade_console/internal/detail"
	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/xts"

	"go.uber.org/zap"
)

// Entity describes how one data type moves between the wire and the console.
type Entity[V, D any] struct {
	DataType string
	Spec     query.Spec
	// CompanyScoped lists are narrowed to the session company.
	CompanyScoped bool

	Decode   func(raw json.RawMessage) (V, error)
	ID       func(v V) string
	Draft    func(v V) D
	Validate func(d D, now time.Time) error
	Encode   func(id string, d D, s session.Session) any
}

type Service[V, D any] struct {
	api      ObjectAPI
	sessions session.Provider
	entity   Entity[V, D]
	logger   *zap.Logger
	now      func() time.Time
}

func NewService[V, D any](api ObjectAPI, sessions session.Provider, entity Entity[V, D], logger *zap.Logger) *Service[V, D] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service[V, D]{
		api:      api,
		sessions: sessions,
		entity:   entity,
		logger:   logger.Named("catalog").With(zap.String("data_type", entity.DataType)),
		now:      time.Now,
	}
}

func (s *Service[V, D]) DataType() string {
	return s.entity.DataType
}

// List fetches one page. Its signature matches listing.Fetcher.
func (s *Service[V, D]) List(ctx context.Context, q query.Query, page, pageSize int) ([]V, error) {
	conditions, err := query.Build(s.entity.Spec, q)
	if err != nil {
		return nil, err
	}
	if s.entity.CompanyScoped {
		if sess, ok := s.sessions.Current(); ok && !sess.DefaultValues.Company.IsEmpty() {
			// Session-scoped conditions lead the list.
			scoped := xts.NewCondition("company", sess.DefaultValues.Company.ID, xts.OpEqual)
			conditions = append([]xts.Condition{scoped}, conditions...)
		}
	}

	raw, err := s.api.GetObjectList(ctx, xts.ListRequest{
		DataType:   s.entity.DataType,
		Conditions: conditions,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s list: %w", s.entity.DataType, err)
	}
	return s.decodeAll(raw)
}

func (s *Service[V, D]) Get(ctx context.Context, id string) (V, error) {
	var zero V
	id = strings.TrimSpace(id)
	if id == "" {
		return zero, detail.ErrNotFound
	}
	raw, err := s.api.GetObjects(ctx, []xts.ObjectID{xts.NewObjectID(s.entity.DataType, id, "")})
	if err != nil {
		return zero, fmt.Errorf("load %s %s: %w", s.entity.DataType, id, err)
	}
	return s.entity.Decode(raw[0])
}

func (s *Service[V, D]) Create(ctx context.Context, d D) (V, error) {
	var zero V
	if err := s.Validate(d); err != nil {
		return zero, err
	}
	sess, ok := s.sessions.Current()
	if !ok {
		return zero, session.ErrNotSignedIn
	}
	raw, err := s.api.CreateObjects(ctx, []any{s.entity.Encode("", d, sess)})
	if err != nil {
		return zero, fmt.Errorf("create %s: %w", s.entity.DataType, err)
	}
	created, err := s.entity.Decode(raw[0])
	if err != nil {
		return zero, err
	}
	s.logger.Info("object created", zap.String("id", s.entity.ID(created)))
	return created, nil
}

func (s *Service[V, D]) Update(ctx context.Context, current V, d D) (V, error) {
	var zero V
	id := s.entity.ID(current)
	if id == "" {
		return zero, detail.ErrNotFound
	}
	sess, ok := s.sessions.Current()
	if !ok {
		return zero, session.ErrNotSignedIn
	}
	raw, err := s.api.UpdateObjects(ctx, []any{s.entity.Encode(id, d, sess)})
	if err != nil {
		return zero, fmt.Errorf("update %s %s: %w", s.entity.DataType, id, err)
	}
	return s.entity.Decode(raw[0])
}

func (s *Service[V, D]) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return detail.ErrNotFound
	}
	if err := s.api.DeleteObjects(ctx, []xts.ObjectID{xts.NewObjectID(s.entity.DataType, id, "")}); err != nil {
		return fmt.Errorf("delete %s %s: %w", s.entity.DataType, id, err)
	}
	return nil
}

func (s *Service[V, D]) Draft(v V) D {
	return s.entity.Draft(v)
}

func (s *Service[V, D]) Validate(d D) error {
	if s.entity.Validate == nil {
		return nil
	}
	return s.entity.Validate(d, s.now())
}

// Save creates the object when current has no id and updates it otherwise.
func (s *Service[V, D]) Save(ctx context.Context, current V, d D) (V, error) {
	if s.entity.ID(current) == "" {
		return s.Create(ctx, d)
	}
	return s.Update(ctx, current, d)
}

// Editor wires the service into a detail editor.
func (s *Service[V, D]) Editor(notifier detail.Notifier) *detail.Editor[V, D] {
	return detail.NewEditor[V, D](s, notifier, s.logger)
}

func (s *Service[V, D]) decodeAll(raw []json.RawMessage) ([]V, error) {
	out := make([]V, 0, len(raw))
	for _, item := range raw {
		v, err := s.entity.Decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
