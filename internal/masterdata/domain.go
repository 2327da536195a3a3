package masterdata

import (
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Document is implemented by every stored master data record.
type Document interface {
	Identifier() string
	Deleted() bool
}

// Meta carries the identifier and lifecycle fields shared by master data
// records. Embed it with `bson:",inline"`.
type Meta struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time    `bson:"deleted_at" json:"deleted_at"`
	IsDeleted bool          `bson:"is_deleted" json:"is_deleted"`
}

// NewMeta stamps creation time on a fresh record.
func NewMeta(now time.Time) Meta {
	return Meta{CreatedAt: now, UpdatedAt: now}
}

// Identifier returns the hex form of the record id.
func (m Meta) Identifier() string { return m.ID.Hex() }

// Deleted reports the soft-delete marker.
func (m Meta) Deleted() bool { return m.IsDeleted }

// Unique names a field whose value must not repeat among live records.
// KeyField holds the folded copy that carries the unique index.
type Unique struct {
	Field    string
	KeyField string
}

// Definition describes one master data collection: how inputs become
// records, how partial updates become field sets and which deal fields
// point at it.
type Definition[T Document, C, U any] struct {
	Collection string
	// Entity is the singular noun used in error messages.
	Entity string
	Unique *Unique
	// References lists the deal fields holding ids of this collection.
	References []string

	Build       func(in C, now time.Time) T
	UniqueValue func(in C) string
	Changes     func(in U) bson.M
	Filter      func(q url.Values) (bson.M, error)
}

func (d Definition[T, C, U]) notFound() error {
	return shared.NewError(shared.ErrNotFound, d.Entity+" not found")
}

func (d Definition[T, C, U]) duplicate() error {
	field := "value"
	if d.Unique != nil {
		field = d.Unique.Field
	}
	return shared.NewError(shared.ErrConflict, d.Entity+" with this "+field+" already exists")
}

func (d Definition[T, C, U]) inUse() error {
	return shared.NewError(shared.ErrConflict, d.Entity+" is referenced by deals")
}
