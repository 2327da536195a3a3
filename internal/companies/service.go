package companies

import (
	"context"
	"strings"

	"github.com/grand-nerud/backoffice/internal/companies/registry"
	"github.com/grand-nerud/backoffice/internal/shared"
)

var (
	// ErrCompanyNotFound is returned for unknown companies.
	ErrCompanyNotFound = shared.NewError(shared.ErrNotFound, "company not found")
	// ErrDuplicateINN is returned when another live company has the inn.
	ErrDuplicateINN = shared.NewError(shared.ErrConflict, "company with this inn already exists")
	// ErrCompanyInUse is returned when deleting a company that live deals reference.
	ErrCompanyInUse = shared.NewError(shared.ErrConflict, "company is referenced by deals")
)

// referenceFields are the deal fields that point at a company.
var referenceFields = []string{"customerId", "providerId"}

// DependencyChecker reports whether live documents reference an id.
type DependencyChecker interface {
	Referenced(ctx context.Context, id string, fields ...string) (bool, error)
}

// Registry looks companies up by inn.
type Registry interface {
	Lookup(ctx context.Context, inn string) (*registry.Company, error)
}

// Service handles company business logic.
type Service struct {
	repo     Repository
	deps     DependencyChecker
	registry Registry
}

// NewService builds Service instance.
func NewService(repo Repository, deps DependencyChecker, reg Registry) *Service {
	return &Service{repo: repo, deps: deps, registry: reg}
}

// Create stores a company after checking its inn is free.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Company, error) {
	inn := strings.TrimSpace(in.INN)
	taken, err := s.repo.INNTaken(ctx, inn, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateINN
	}
	return s.repo.Create(ctx, Company{
		Name:            strings.TrimSpace(in.Name),
		AbbreviatedName: strings.TrimSpace(in.AbbreviatedName),
		INN:             inn,
		Contacts:        toContacts(in.Contacts),
		Type:            in.Type,
	})
}

// Get returns a company by id. Soft-deleted companies stay readable.
func (s *Service) Get(ctx context.Context, id string) (*Company, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of companies.
func (s *Service) List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Company], error) {
	filters.Name = strings.TrimSpace(filters.Name)
	filters.INN = strings.TrimSpace(filters.INN)
	return s.repo.List(ctx, filters, params.Normalize())
}

// Update merges in into the company.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Company, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsDeleted {
		return nil, ErrCompanyNotFound
	}
	updates := make(map[string]interface{})
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.AbbreviatedName != nil {
		updates["abbreviatedName"] = strings.TrimSpace(*in.AbbreviatedName)
	}
	if in.INN != nil {
		inn := strings.TrimSpace(*in.INN)
		taken, err := s.repo.INNTaken(ctx, inn, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateINN
		}
		updates["inn"] = inn
	}
	if in.Contacts != nil {
		updates["contacts"] = toContacts(*in.Contacts)
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if len(updates) == 0 {
		return nil, shared.NewError(shared.ErrValidation, "nothing to update")
	}
	return s.repo.Update(ctx, id, updates)
}

// Delete soft-deletes a company. With checkDependencies set, companies that
// live deals reference as customer or provider are kept.
func (s *Service) Delete(ctx context.Context, id string, checkDependencies bool) (*Company, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsDeleted {
		return nil, ErrCompanyNotFound
	}
	if checkDependencies && s.deps != nil {
		used, err := s.deps.Referenced(ctx, id, referenceFields...)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, ErrCompanyInUse
		}
	}
	return s.repo.SoftDelete(ctx, id)
}

// Lookup queries the tax registry.
func (s *Service) Lookup(ctx context.Context, inn string) (*registry.Company, error) {
	if s.registry == nil {
		return nil, shared.NewError(shared.ErrUpstream, "registry is not configured")
	}
	return s.registry.Lookup(ctx, inn)
}
