package vehicles

import (
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/masterdata"
)

// CollectionName is the vehicles collection.
const CollectionName = "vehicles"

var unique = masterdata.Unique{Field: "number", KeyField: "numberKey"}

// Vehicle is a truck owned by a carrier company.
type Vehicle struct {
	masterdata.Meta `bson:",inline"`
	CompanyID       *bson.ObjectID `bson:"companyId,omitempty" json:"companyId"`
	Number          string         `bson:"number" json:"number"`
	NumberKey       string         `bson:"numberKey" json:"-"`
	Region          int            `bson:"region" json:"region"`
	Mark            string         `bson:"mark" json:"mark"`
	Model           string         `bson:"model" json:"model"`
	Year            int            `bson:"year" json:"year"`
	Color           string         `bson:"color" json:"color"`
}

// CreateInput is the payload for a new vehicle.
type CreateInput struct {
	CompanyID string `json:"companyId" validate:"omitempty,objectid"`
	Number    string `json:"number" validate:"required,max=20"`
	Region    int    `json:"region" validate:"min=0,max=999"`
	Mark      string `json:"mark" validate:"max=100"`
	Model     string `json:"model" validate:"max=100"`
	Year      int    `json:"year" validate:"omitempty,min=1950,max=2100"`
	Color     string `json:"color" validate:"max=50"`
}

// UpdateInput is a partial update; nil fields are left unchanged and an
// empty companyId detaches the vehicle.
type UpdateInput struct {
	CompanyID *string `json:"companyId" validate:"omitempty,objectid"`
	Number    *string `json:"number" validate:"omitempty,min=1,max=20"`
	Region    *int    `json:"region" validate:"omitempty,min=0,max=999"`
	Mark      *string `json:"mark" validate:"omitempty,max=100"`
	Model     *string `json:"model" validate:"omitempty,max=100"`
	Year      *int    `json:"year" validate:"omitempty,min=1950,max=2100"`
	Color     *string `json:"color" validate:"omitempty,max=50"`
}

// Definition describes the vehicles collection.
func Definition() masterdata.Definition[Vehicle, CreateInput, UpdateInput] {
	return masterdata.Definition[Vehicle, CreateInput, UpdateInput]{
		Collection: CollectionName,
		Entity:     "vehicle",
		Unique:     &unique,
		Build: func(in CreateInput, now time.Time) Vehicle {
			return Vehicle{
				Meta:      masterdata.NewMeta(now),
				CompanyID: masterdata.OptionalID(in.CompanyID),
				Number:    strings.TrimSpace(in.Number),
				NumberKey: docstore.NormalizeKey(in.Number),
				Region:    in.Region,
				Mark:      strings.TrimSpace(in.Mark),
				Model:     strings.TrimSpace(in.Model),
				Year:      in.Year,
				Color:     strings.TrimSpace(in.Color),
			}
		},
		UniqueValue: func(in CreateInput) string { return in.Number },
		Changes: func(in UpdateInput) bson.M {
			fields := bson.M{}
			if in.CompanyID != nil {
				fields["companyId"] = masterdata.OptionalID(*in.CompanyID)
			}
			if in.Number != nil {
				fields["number"] = *in.Number
			}
			if in.Region != nil {
				fields["region"] = *in.Region
			}
			if in.Mark != nil {
				fields["mark"] = strings.TrimSpace(*in.Mark)
			}
			if in.Model != nil {
				fields["model"] = strings.TrimSpace(*in.Model)
			}
			if in.Year != nil {
				fields["year"] = *in.Year
			}
			if in.Color != nil {
				fields["color"] = strings.TrimSpace(*in.Color)
			}
			return fields
		},
		Filter: func(q url.Values) (bson.M, error) {
			return masterdata.NewQuery(q).
				ID("companyId", "companyId").
				Key("number", "numberKey").
				Int("region", "region").
				Contains("mark", "mark").
				Filter()
		},
	}
}
