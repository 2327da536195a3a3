package masterdata

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/platform/db"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// Repository defines persistence operations for one master data collection.
// Missing documents are reported with shared.ErrNotFound, unique index
// violations with docstore.ErrDuplicateKey.
type Repository[T Document] interface {
	Insert(ctx context.Context, doc T) (*T, error)
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filter bson.M, params shared.ListParams) (shared.Page[T], error)
	Update(ctx context.Context, id string, fields bson.M) (*T, error)
	SoftDelete(ctx context.Context, id string) (*T, error)
	Taken(ctx context.Context, field, value, excludeID string) (bool, error)
}

// MongoRepository implements Repository on a docstore collection.
type MongoRepository[T Document] struct {
	store *docstore.Collection[T]
}

// NewRepository constructs a MongoDB repository for collection.
func NewRepository[T Document](database *mongo.Database, collection string, logger *zap.Logger) *MongoRepository[T] {
	return &MongoRepository[T]{store: docstore.New[T](database, collection, logger)}
}

func (r *MongoRepository[T]) Insert(ctx context.Context, doc T) (*T, error) {
	return r.store.Insert(ctx, &doc)
}

func (r *MongoRepository[T]) Get(ctx context.Context, id string) (*T, error) {
	return r.store.FindByID(ctx, id)
}

func (r *MongoRepository[T]) List(ctx context.Context, filter bson.M, params shared.ListParams) (shared.Page[T], error) {
	return r.store.FindPage(ctx, docstore.Live(filter, params.IncludeDeleted), params)
}

func (r *MongoRepository[T]) Update(ctx context.Context, id string, fields bson.M) (*T, error) {
	return r.store.UpdateByID(ctx, id, fields)
}

func (r *MongoRepository[T]) SoftDelete(ctx context.Context, id string) (*T, error) {
	return r.store.SoftDelete(ctx, id)
}

// Taken reports whether a live record other than excludeID holds value in
// field, ignoring case and surrounding whitespace.
func (r *MongoRepository[T]) Taken(ctx context.Context, field, value, excludeID string) (bool, error) {
	unique, err := r.store.IsUnique(ctx, field, value, docstore.UniqueOptions{ExcludeID: excludeID})
	if err != nil {
		return false, err
	}
	return !unique, nil
}

// UniqueIndex describes the partial unique index backing u.
func UniqueIndex(collection string, u Unique) db.Index {
	return db.Index{
		Collection: collection,
		Name:       collection + "_" + u.KeyField + "_live",
		Keys:       bson.D{{Key: u.KeyField, Value: 1}},
		Unique:     true,
		LiveOnly:   true,
	}
}
