package docstore

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Soft-delete and timestamp field names shared by every collection.
const (
	FieldID        = "_id"
	FieldDeleted   = "is_deleted"
	FieldDeletedAt = "deleted_at"
	FieldUpdatedAt = "updated_at"
	FieldCreatedAt = "createdAt"
)

// NotDeleted matches documents that are not soft-deleted, including legacy
// documents without the flag.
func NotDeleted() bson.M {
	return bson.M{FieldDeleted: bson.M{"$ne": true}}
}

// Live returns a copy of filter restricted to non-deleted documents unless
// includeDeleted is set.
func Live(filter bson.M, includeDeleted bool) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	if !includeDeleted {
		out[FieldDeleted] = bson.M{"$ne": true}
	}
	return out
}

// ByID matches a single document by identifier.
func ByID(id bson.ObjectID) bson.M {
	return bson.M{FieldID: id}
}

// SortDoc converts parsed sort keys into a driver sort document. The
// identifier is appended as a tiebreaker so skip/limit windows are stable.
func SortDoc(keys []shared.SortKey) bson.D {
	sort := bson.D{}
	hasID := false
	for _, k := range keys {
		field := k.Field
		if field == "id" {
			field = FieldID
		}
		if field == FieldID {
			hasID = true
		}
		dir := 1
		if k.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	if !hasID {
		sort = append(sort, bson.E{Key: FieldID, Value: 1})
	}
	return sort
}
