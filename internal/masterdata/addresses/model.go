package addresses

import (
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/masterdata"
)

// CollectionName is the addresses collection.
const CollectionName = "addresses"

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat" validate:"min=-90,max=90"`
	Lon float64 `bson:"lon" json:"lon" validate:"min=-180,max=180"`
}

// Address is a shipping or delivery point, usually tied to a company.
// Field names keep the stored spelling.
type Address struct {
	masterdata.Meta `bson:",inline"`
	CompanyID       *bson.ObjectID    `bson:"companyId,omitempty" json:"companyId"`
	CityID          string            `bson:"cityId" json:"cityId"`
	Detail          map[string]string `bson:"adressDetail" json:"adressDetail"`
	Type            string            `bson:"typeAdress" json:"typeAdress"`
	Coordinates     *Coordinates      `bson:"coordinates,omitempty" json:"coordinates"`
}

// CreateInput is the payload for a new address.
type CreateInput struct {
	CompanyID   string            `json:"companyId" validate:"omitempty,objectid"`
	CityID      string            `json:"cityId" validate:"max=64"`
	Detail      map[string]string `json:"adressDetail" validate:"omitempty,dive,keys,max=64,endkeys,max=500"`
	Type        string            `json:"typeAdress" validate:"max=64"`
	Coordinates *Coordinates      `json:"coordinates" validate:"omitempty"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	CompanyID   *string            `json:"companyId" validate:"omitempty,objectid"`
	CityID      *string            `json:"cityId" validate:"omitempty,max=64"`
	Detail      *map[string]string `json:"adressDetail" validate:"omitempty"`
	Type        *string            `json:"typeAdress" validate:"omitempty,max=64"`
	Coordinates *Coordinates       `json:"coordinates" validate:"omitempty"`
}

// Definition describes the addresses collection.
func Definition() masterdata.Definition[Address, CreateInput, UpdateInput] {
	return masterdata.Definition[Address, CreateInput, UpdateInput]{
		Collection: CollectionName,
		Entity:     "address",
		References: []string{"shippingAddressId", "deliveryAddressId"},
		Build: func(in CreateInput, now time.Time) Address {
			return Address{
				Meta:        masterdata.NewMeta(now),
				CompanyID:   masterdata.OptionalID(in.CompanyID),
				CityID:      strings.TrimSpace(in.CityID),
				Detail:      in.Detail,
				Type:        strings.TrimSpace(in.Type),
				Coordinates: in.Coordinates,
			}
		},
		Changes: func(in UpdateInput) bson.M {
			fields := bson.M{}
			if in.CompanyID != nil {
				fields["companyId"] = masterdata.OptionalID(*in.CompanyID)
			}
			if in.CityID != nil {
				fields["cityId"] = strings.TrimSpace(*in.CityID)
			}
			if in.Detail != nil {
				fields["adressDetail"] = *in.Detail
			}
			if in.Type != nil {
				fields["typeAdress"] = strings.TrimSpace(*in.Type)
			}
			if in.Coordinates != nil {
				fields["coordinates"] = in.Coordinates
			}
			return fields
		},
		Filter: func(q url.Values) (bson.M, error) {
			return masterdata.NewQuery(q).
				ID("companyId", "companyId").
				Equal("cityId", "cityId").
				Equal("typeAdress", "typeAdress").
				Filter()
		},
	}
}
