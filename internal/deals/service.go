package deals

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/grand-nerud/backoffice/internal/shared"
	"github.com/grand-nerud/backoffice/internal/users"
)

// ErrReassignForbidden is returned when a manager tries to hand a deal to
// someone else.
var ErrReassignForbidden = shared.NewError(shared.ErrForbidden, "only administrators can assign deals to other managers")

// ManagerDirectory resolves the manager a deal belongs to.
type ManagerDirectory interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// Service handles deal business logic.
type Service struct {
	repo     Repository
	managers ManagerDirectory
}

// NewService builds Service instance.
func NewService(repo Repository, managers ManagerDirectory) *Service {
	return &Service{repo: repo, managers: managers}
}

func (s *Service) manager(ctx context.Context, id string) (*users.User, error) {
	user, err := s.managers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewError(shared.ErrValidation, "manager "+id+" does not exist")
		}
		return nil, err
	}
	return user, nil
}

func visible(actor *users.User, deal *Deal) bool {
	return actor != nil && (actor.Admin || deal.UserID == actor.ID)
}

// Create stores a new deal with its totals derived from the inputs.
// Managers always own the deals they create.
func (s *Service) Create(ctx context.Context, actor *users.User, in CreateInput) (*Deal, error) {
	if actor == nil {
		return nil, shared.ErrUnauthorized
	}
	ownerID := shared.CanonicalID(in.UserID)
	switch {
	case ownerID == "":
		ownerID = actor.ID
	case ownerID != actor.ID && !actor.Admin:
		return nil, ErrReassignForbidden
	}
	owner := actor
	if ownerID != actor.ID {
		var err error
		if owner, err = s.manager(ctx, ownerID); err != nil {
			return nil, err
		}
	}

	unit := strings.TrimSpace(in.UnitMeasurement)
	deal := Deal{
		UserID:             ownerID,
		ServiceID:          shared.CanonicalID(in.ServiceID),
		CustomerID:         shared.CanonicalID(in.CustomerID),
		ProviderID:         shared.CanonicalID(in.ProviderID),
		StageID:            shared.CanonicalID(in.StageID),
		MaterialID:         shared.CanonicalID(in.MaterialID),
		UnitMeasurement:    &unit,
		Quantity:           in.Quantity,
		AmountPurchaseUnit: in.AmountPurchaseUnit,
		AmountSalesUnit:    in.AmountSalesUnit,
		AmountDelivery:     in.AmountDelivery,
		ExtraExpenses:      in.ExtraExpenses,
		VatPercent:         in.VatPercent,
		ManagerPercent:     resolvePercent(in.ManagerPercent, owner, shared.CanonicalID(in.ServiceID)),
		PaymentMethod:      in.PaymentMethod,
		MethodReceiving:    in.MethodReceiving,
		ShippingAddressID:  shared.CanonicalID(in.ShippingAddressID),
		DeliveryAddressID:  shared.CanonicalID(in.DeliveryAddressID),
		Deadline:           in.Deadline,
		Notes:              in.Notes,
		OSSIG:              in.OSSIG,
	}
	totals, err := Calculate(deal.Inputs())
	if err != nil {
		return nil, err
	}
	deal.Apply(totals)
	return s.repo.Create(ctx, deal)
}

func resolvePercent(explicit *decimal.Decimal, manager *users.User, serviceID string) decimal.Decimal {
	if explicit != nil {
		return *explicit
	}
	return manager.ManagerPercent(serviceID)
}

// Get returns a deal the actor may see.
func (s *Service) Get(ctx context.Context, actor *users.User, id string) (*Deal, error) {
	deal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, deal) {
		return nil, ErrDealNotFound
	}
	return deal, nil
}

// View returns a deal with related documents embedded.
func (s *Service) View(ctx context.Context, actor *users.User, id string) (map[string]any, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.GetView(ctx, id)
}

// scope restricts managers to their own deals.
func scope(actor *users.User, filters Filters) (Filters, error) {
	if actor == nil {
		return filters, shared.ErrUnauthorized
	}
	if !actor.Admin {
		filters.UserID = actor.ID
	}
	return filters, nil
}

// ListView returns a page of deals with relations.
func (s *Service) ListView(ctx context.Context, actor *users.User, filters Filters, params shared.ListParams) (shared.Page[map[string]any], error) {
	filters, err := scope(actor, filters)
	if err != nil {
		return shared.Page[map[string]any]{}, err
	}
	return s.repo.ListView(ctx, filters, params.Normalize())
}

// List returns a page of plain deals.
func (s *Service) List(ctx context.Context, actor *users.User, filters Filters, params shared.ListParams) (shared.Page[Deal], error) {
	filters, err := scope(actor, filters)
	if err != nil {
		return shared.Page[Deal]{}, err
	}
	return s.repo.List(ctx, filters, params.Normalize())
}

// Update merges in into the deal and recomputes totals when any input moved.
func (s *Service) Update(ctx context.Context, actor *users.User, id string, in UpdateInput) (*Deal, error) {
	deal, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if deal.IsDeleted {
		return nil, ErrDealNotFound
	}
	owner := actor
	if in.UserID != nil && shared.CanonicalID(*in.UserID) != deal.UserID {
		if !actor.Admin {
			return nil, ErrReassignForbidden
		}
		if owner, err = s.manager(ctx, shared.CanonicalID(*in.UserID)); err != nil {
			return nil, err
		}
		deal.UserID = owner.ID
	}
	rebind := in.ManagerPercent == nil && (in.ServiceID != nil || in.UserID != nil)
	if rebind && owner.ID != deal.UserID {
		if owner, err = s.manager(ctx, deal.UserID); err != nil {
			return nil, err
		}
	}

	setID(&deal.ServiceID, in.ServiceID)
	setID(&deal.CustomerID, in.CustomerID)
	setID(&deal.ProviderID, in.ProviderID)
	setID(&deal.StageID, in.StageID)
	setID(&deal.MaterialID, in.MaterialID)
	if in.UnitMeasurement != nil {
		unit := strings.TrimSpace(*in.UnitMeasurement)
		deal.UnitMeasurement = &unit
	}
	setDecimal(&deal.Quantity, in.Quantity)
	setDecimal(&deal.AmountPurchaseUnit, in.AmountPurchaseUnit)
	setDecimal(&deal.AmountSalesUnit, in.AmountSalesUnit)
	setDecimal(&deal.AmountDelivery, in.AmountDelivery)
	setDecimal(&deal.VatPercent, in.VatPercent)
	if in.ExtraExpenses != nil {
		deal.ExtraExpenses = *in.ExtraExpenses
	}
	setString(&deal.PaymentMethod, in.PaymentMethod)
	setString(&deal.MethodReceiving, in.MethodReceiving)
	setID(&deal.ShippingAddressID, in.ShippingAddressID)
	setID(&deal.DeliveryAddressID, in.DeliveryAddressID)
	if in.Deadline != nil {
		deal.Deadline = in.Deadline
	}
	setString(&deal.Notes, in.Notes)
	if in.OSSIG != nil {
		deal.OSSIG = *in.OSSIG
	}

	if in.recalculates() {
		switch {
		case in.ManagerPercent != nil:
			deal.ManagerPercent = *in.ManagerPercent
		case rebind:
			deal.ManagerPercent = owner.ManagerPercent(deal.ServiceID)
		}
		totals, err := Calculate(deal.Inputs())
		if err != nil {
			return nil, err
		}
		deal.Apply(totals)
	}
	return s.repo.Update(ctx, *deal)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setID(dst *string, src *string) {
	if src != nil {
		*dst = shared.CanonicalID(*src)
	}
}

func setDecimal(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}

// Delete soft-deletes a deal the actor may see.
func (s *Service) Delete(ctx context.Context, actor *users.User, id string) (*Deal, error) {
	deal, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if deal.IsDeleted {
		return nil, ErrDealNotFound
	}
	return s.repo.SoftDelete(ctx, id)
}

// Referenced reports whether any live deal points at id through one of fields.
func (s *Service) Referenced(ctx context.Context, id string, fields ...string) (bool, error) {
	n, err := s.repo.CountReferences(ctx, id, fields...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
