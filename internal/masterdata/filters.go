package masterdata

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// Query builds a listing filter from URL query parameters. The first
// failure is kept and reported by Filter.
type Query struct {
	values url.Values
	filter bson.M
	err    error
}

// NewQuery starts a filter over q.
func NewQuery(q url.Values) *Query {
	return &Query{values: q, filter: bson.M{}}
}

func (b *Query) get(param string) string {
	return strings.TrimSpace(b.values.Get(param))
}

// Contains matches field as a case-insensitive substring of param.
func (b *Query) Contains(param, field string) *Query {
	if v := b.get(param); v != "" {
		b.filter[field] = bson.Regex{Pattern: regexp.QuoteMeta(v), Options: "i"}
	}
	return b
}

// Key matches the folded key field against param.
func (b *Query) Key(param, field string) *Query {
	if v := b.get(param); v != "" {
		b.filter[field] = docstore.NormalizeKey(v)
	}
	return b
}

// Equal matches field against param verbatim.
func (b *Query) Equal(param, field string) *Query {
	if v := b.get(param); v != "" {
		b.filter[field] = v
	}
	return b
}

// ID matches field against param parsed as a document identifier.
func (b *Query) ID(param, field string) *Query {
	v := b.get(param)
	if v == "" || b.err != nil {
		return b
	}
	id, err := shared.ParseID(v)
	if err != nil {
		b.err = err
		return b
	}
	b.filter[field] = id
	return b
}

// Int matches field against param parsed as an integer.
func (b *Query) Int(param, field string) *Query {
	v := b.get(param)
	if v == "" || b.err != nil {
		return b
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		b.err = shared.NewError(shared.ErrValidation, param+" must be an integer")
		return b
	}
	b.filter[field] = n
	return b
}

// Filter returns the accumulated filter.
func (b *Query) Filter() (bson.M, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.filter, nil
}

// OptionalID converts an optional identifier input to its stored form.
// Inputs are validated with the objectid tag beforehand.
func OptionalID(raw string) *bson.ObjectID {
	id, err := shared.OptionalID(raw)
	if err != nil {
		return nil
	}
	return id
}
