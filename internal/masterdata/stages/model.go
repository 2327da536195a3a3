package stages

import (
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/masterdata"
)

// CollectionName is the stages collection.
const CollectionName = "stages"

var unique = masterdata.Unique{Field: "name", KeyField: "nameKey"}

// Stage is a step of the deal pipeline. Position orders stages on boards;
// list with sort=position.
type Stage struct {
	masterdata.Meta `bson:",inline"`
	Name            string `bson:"name" json:"name"`
	NameKey         string `bson:"nameKey" json:"-"`
	Position        int    `bson:"position" json:"position"`
}

// CreateInput is the payload for a new stage.
type CreateInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	Position int    `json:"position" validate:"min=0"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
}

// Definition describes the stages collection.
func Definition() masterdata.Definition[Stage, CreateInput, UpdateInput] {
	return masterdata.Definition[Stage, CreateInput, UpdateInput]{
		Collection: CollectionName,
		Entity:     "stage",
		Unique:     &unique,
		References: []string{"stageId"},
		Build: func(in CreateInput, now time.Time) Stage {
			return Stage{
				Meta:     masterdata.NewMeta(now),
				Name:     strings.TrimSpace(in.Name),
				NameKey:  docstore.NormalizeKey(in.Name),
				Position: in.Position,
			}
		},
		UniqueValue: func(in CreateInput) string { return in.Name },
		Changes: func(in UpdateInput) bson.M {
			fields := bson.M{}
			if in.Name != nil {
				fields["name"] = *in.Name
			}
			if in.Position != nil {
				fields["position"] = *in.Position
			}
			return fields
		},
		Filter: func(q url.Values) (bson.M, error) {
			return masterdata.NewQuery(q).Contains("name", "name").Filter()
		},
	}
}
