package companies

import (
	"time"

	"github.com/grand-nerud/backoffice/internal/companies/registry"
)

// CollectionName is the companies collection.
const CollectionName = "companies"

// Contact is one tagged company contact: an email, an address or a director.
type Contact = registry.Contact

// Company is a customer or supplier.
type Company struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AbbreviatedName string     `json:"abbreviatedName"`
	INN             string     `json:"inn"`
	Contacts        []Contact  `json:"contacts"`
	Type            string     `json:"type"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at"`
	IsDeleted       bool       `json:"is_deleted"`
}

// ContactInput validates one contact.
type ContactInput struct {
	Kind  string `json:"kind" validate:"required,oneof=email address director"`
	Value string `json:"value" validate:"required,max=500"`
}

// CreateInput is the payload for a new company.
type CreateInput struct {
	Name            string         `json:"name" validate:"required,max=300"`
	AbbreviatedName string         `json:"abbreviatedName" validate:"max=300"`
	INN             string         `json:"inn" validate:"required,numeric,max=12"`
	Contacts        []ContactInput `json:"contacts" validate:"dive"`
	Type            string         `json:"type" validate:"required,oneof=individual legal"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name            *string         `json:"name" validate:"omitempty,max=300"`
	AbbreviatedName *string         `json:"abbreviatedName" validate:"omitempty,max=300"`
	INN             *string         `json:"inn" validate:"omitempty,numeric,max=12"`
	Contacts        *[]ContactInput `json:"contacts" validate:"omitempty,dive"`
	Type            *string         `json:"type" validate:"omitempty,oneof=individual legal"`
}

// Filters narrows company listings.
type Filters struct {
	Name string
	INN  string
	Type string
}

func toContacts(in []ContactInput) []Contact {
	out := make([]Contact, 0, len(in))
	for _, c := range in {
		out = append(out, Contact{Kind: c.Kind, Value: c.Value})
	}
	return out
}
