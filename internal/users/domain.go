package users

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// DefaultProfitKey is the profit settings entry used when a service has no
// dedicated percentage.
const DefaultProfitKey = "default"

// User is a back-office account. Email is the login and is stored lower-cased.
type User struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	LastName       string                     `json:"lastName"`
	FatherName     string                     `json:"fatherName,omitempty"`
	Email          string                     `json:"email"`
	PasswordHash   string                     `json:"-"`
	Admin          bool                       `json:"admin"`
	ProfitSettings map[string]decimal.Decimal `json:"profitSettings,omitempty"`
	CreatedAt      time.Time                  `json:"createdAt"`
	UpdatedAt      time.Time                  `json:"updated_at"`
	DeletedAt      *time.Time                 `json:"deleted_at"`
	IsDeleted      bool                       `json:"is_deleted"`
}

// ManagerPercent returns the profit share for deals of the given service:
// the service entry, else the default entry, else zero.
func (u *User) ManagerPercent(serviceID string) decimal.Decimal {
	if u == nil {
		return decimal.Zero
	}
	if pct, ok := u.ProfitSettings[shared.CanonicalID(serviceID)]; ok && serviceID != "" {
		return pct
	}
	if pct, ok := u.ProfitSettings[DefaultProfitKey]; ok {
		return pct
	}
	return decimal.Zero
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	LastName   string `json:"lastName" validate:"required,max=100"`
	FatherName string `json:"fatherName" validate:"max=100"`
	Email      string `json:"email" validate:"required,email,max=254"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateInput is a partial update issued by an administrator.
type UpdateInput struct {
	Name           *string                    `json:"name" validate:"omitempty,max=100"`
	LastName       *string                    `json:"lastName" validate:"omitempty,max=100"`
	FatherName     *string                    `json:"fatherName" validate:"omitempty,max=100"`
	Admin          *bool                      `json:"admin"`
	ProfitSettings map[string]decimal.Decimal `json:"profitSettings"`
}
