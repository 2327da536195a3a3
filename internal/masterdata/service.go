package masterdata

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// DependencyChecker reports whether live deals reference an id through any
// of fields.
type DependencyChecker interface {
	Referenced(ctx context.Context, id string, fields ...string) (bool, error)
}

// Service implements create, read, update and soft delete for one master
// data collection.
type Service[T Document, C, U any] struct {
	def  Definition[T, C, U]
	repo Repository[T]
	deps DependencyChecker
	now  func() time.Time
}

// NewService builds Service instance. deps may be nil when nothing
// references the collection.
func NewService[T Document, C, U any](def Definition[T, C, U], repo Repository[T], deps DependencyChecker) *Service[T, C, U] {
	return &Service[T, C, U]{def: def, repo: repo, deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Definition returns the collection description.
func (s *Service[T, C, U]) Definition() Definition[T, C, U] {
	return s.def
}

func (s *Service[T, C, U]) translate(err error) error {
	switch {
	case errors.Is(err, docstore.ErrDuplicateKey):
		return s.def.duplicate()
	case errors.Is(err, shared.ErrNotFound):
		return s.def.notFound()
	}
	return err
}

func (s *Service[T, C, U]) ensureFree(ctx context.Context, value, excludeID string) error {
	if s.def.Unique == nil {
		return nil
	}
	taken, err := s.repo.Taken(ctx, s.def.Unique.Field, value, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return s.def.duplicate()
	}
	return nil
}

// Create stores a new record.
func (s *Service[T, C, U]) Create(ctx context.Context, in C) (*T, error) {
	if s.def.Unique != nil && s.def.UniqueValue != nil {
		if err := s.ensureFree(ctx, s.def.UniqueValue(in), ""); err != nil {
			return nil, err
		}
	}
	doc, err := s.repo.Insert(ctx, s.def.Build(in, s.now()))
	if err != nil {
		return nil, s.translate(err)
	}
	return doc, nil
}

// Get returns a record by id. Soft-deleted records stay readable.
func (s *Service[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}
	return doc, nil
}

// List returns a page of records matching the query filters.
func (s *Service[T, C, U]) List(ctx context.Context, q url.Values, params shared.ListParams) (shared.Page[T], error) {
	filter := bson.M{}
	if s.def.Filter != nil {
		var err error
		if filter, err = s.def.Filter(q); err != nil {
			return shared.Page[T]{}, err
		}
	}
	return s.repo.List(ctx, filter, params.Normalize())
}

func (s *Service[T, C, U]) live(ctx context.Context, id string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if (*current).Deleted() {
		return s.def.notFound()
	}
	return nil
}

// Update merges in into a live record. A changed unique field is checked
// against other live records and its key copy refreshed.
func (s *Service[T, C, U]) Update(ctx context.Context, id string, in U) (*T, error) {
	if err := s.live(ctx, id); err != nil {
		return nil, err
	}
	fields := s.def.Changes(in)
	if len(fields) == 0 {
		return nil, shared.NewError(shared.ErrValidation, "nothing to update")
	}
	if u := s.def.Unique; u != nil {
		if value, ok := fields[u.Field].(string); ok {
			if err := s.ensureFree(ctx, value, id); err != nil {
				return nil, err
			}
			fields[u.Field] = strings.TrimSpace(value)
			fields[u.KeyField] = docstore.NormalizeKey(value)
		}
	}
	doc, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, s.translate(err)
	}
	return doc, nil
}

// Delete soft-deletes a live record. With checkDependencies set, records
// that live deals still reference are kept.
func (s *Service[T, C, U]) Delete(ctx context.Context, id string, checkDependencies bool) (*T, error) {
	if err := s.live(ctx, id); err != nil {
		return nil, err
	}
	if checkDependencies && s.deps != nil && len(s.def.References) > 0 {
		used, err := s.deps.Referenced(ctx, id, s.def.References...)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, s.def.inUse()
		}
	}
	doc, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}
	return doc, nil
}
