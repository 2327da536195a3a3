package materials

import (
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/masterdata"
)

// CollectionName is the materials collection.
const CollectionName = "materials"

var unique = masterdata.Unique{Field: "name", KeyField: "nameKey"}

// Material is a traded material such as sand or crushed stone.
type Material struct {
	masterdata.Meta `bson:",inline"`
	Name            string `bson:"name" json:"name"`
	NameKey         string `bson:"nameKey" json:"-"`
	Description     string `bson:"description" json:"description"`
}

// CreateInput is the payload for a new material.
type CreateInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// Definition describes the materials collection.
func Definition() masterdata.Definition[Material, CreateInput, UpdateInput] {
	return masterdata.Definition[Material, CreateInput, UpdateInput]{
		Collection: CollectionName,
		Entity:     "material",
		Unique:     &unique,
		References: []string{"materialId"},
		Build: func(in CreateInput, now time.Time) Material {
			return Material{
				Meta:        masterdata.NewMeta(now),
				Name:        strings.TrimSpace(in.Name),
				NameKey:     docstore.NormalizeKey(in.Name),
				Description: strings.TrimSpace(in.Description),
			}
		},
		UniqueValue: func(in CreateInput) string { return in.Name },
		Changes: func(in UpdateInput) bson.M {
			fields := bson.M{}
			if in.Name != nil {
				fields["name"] = *in.Name
			}
			if in.Description != nil {
				fields["description"] = strings.TrimSpace(*in.Description)
			}
			return fields
		},
		Filter: func(q url.Values) (bson.M, error) {
			return masterdata.NewQuery(q).Contains("name", "name").Filter()
		},
	}
}
