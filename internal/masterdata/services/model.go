package services

import (
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/masterdata"
)

// CollectionName is the services collection.
const CollectionName = "services"

// Service kinds.
const (
	KindSale     = "sale"
	KindDisposal = "disposal"
	KindDelivery = "delivery"
)

var unique = masterdata.Unique{Field: "name", KeyField: "nameKey"}

// ServiceType is a kind of work the company offers under a deal.
type ServiceType struct {
	masterdata.Meta `bson:",inline"`
	Name            string `bson:"name" json:"name"`
	NameKey         string `bson:"nameKey" json:"-"`
	Kind            string `bson:"kind" json:"kind"`
}

// CreateInput is the payload for a new service.
type CreateInput struct {
	Name string `json:"name" validate:"required,max=200"`
	Kind string `json:"kind" validate:"required,oneof=sale disposal delivery"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=200"`
	Kind *string `json:"kind" validate:"omitempty,oneof=sale disposal delivery"`
}

// Definition describes the services collection.
func Definition() masterdata.Definition[ServiceType, CreateInput, UpdateInput] {
	return masterdata.Definition[ServiceType, CreateInput, UpdateInput]{
		Collection: CollectionName,
		Entity:     "service",
		Unique:     &unique,
		References: []string{"serviceId"},
		Build: func(in CreateInput, now time.Time) ServiceType {
			return ServiceType{
				Meta:    masterdata.NewMeta(now),
				Name:    strings.TrimSpace(in.Name),
				NameKey: docstore.NormalizeKey(in.Name),
				Kind:    in.Kind,
			}
		},
		UniqueValue: func(in CreateInput) string { return in.Name },
		Changes: func(in UpdateInput) bson.M {
			fields := bson.M{}
			if in.Name != nil {
				fields["name"] = *in.Name
			}
			if in.Kind != nil {
				fields["kind"] = *in.Kind
			}
			return fields
		},
		Filter: func(q url.Values) (bson.M, error) {
			return masterdata.NewQuery(q).Contains("name", "name").Equal("kind", "kind").Filter()
		},
	}
}
