// Package docstore is a typed gateway over MongoDB collections: CRUD,
// pagination, relation aggregation, uniqueness checks and soft delete.
package docstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Collection is a typed view over one collection. T is the BSON record type.
// A Collection is safe for concurrent use.
type Collection[T any] struct {
	coll   *mongo.Collection
	name   string
	logger *zap.Logger
	now    func() time.Time
}

// New binds a Collection to the named collection in db.
func New[T any](db *mongo.Database, name string, logger *zap.Logger) *Collection[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{
		coll:   db.Collection(name),
		name:   name,
		logger: logger.With(zap.String("collection", name)),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Now returns the timestamp the collection stamps on writes.
func (c *Collection[T]) Now() time.Time {
	return c.now()
}

func (c *Collection[T]) fail(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		c.logger.Info("duplicate key", zap.String("op", op), zap.Error(err))
		return ErrDuplicateKey
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	return &OpError{Op: op, Collection: c.name, Err: err}
}

// FindOne returns the first document matching filter.
func (c *Collection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, c.fail("find_one", err)
	}
	return &doc, nil
}

// FindByID returns the document with the given hex identifier, deleted or not.
func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := shared.ParseID(id)
	if err != nil {
		return nil, err
	}
	return c.FindOne(ctx, ByID(oid))
}

func (c *Collection[T]) findOptions(params shared.ListParams) (*options.FindOptionsBuilder, error) {
	keys, err := params.SortKeys()
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(SortDoc(keys)).SetSkip(int64(params.Skip))
	if params.Limit > 0 {
		opts.SetLimit(int64(params.Limit))
	}
	return opts, nil
}

// FindMany returns one ordered window of matching documents.
// A zero limit means shared.DefaultPageSize.
func (c *Collection[T]) FindMany(ctx context.Context, filter bson.M, params shared.ListParams) ([]T, error) {
	params = params.Normalize()
	opts, err := c.findOptions(params)
	if err != nil {
		return nil, err
	}
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, c.fail("find", err)
	}
	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, c.fail("find", err)
	}
	return docs, nil
}

// FindPage is FindMany plus pagination metadata.
func (c *Collection[T]) FindPage(ctx context.Context, filter bson.M, params shared.ListParams) (shared.Page[T], error) {
	params = params.Normalize()
	total, err := c.Count(ctx, filter)
	if err != nil {
		return shared.Page[T]{}, err
	}
	docs, err := c.FindMany(ctx, filter, params)
	if err != nil {
		return shared.Page[T]{}, err
	}
	return shared.NewPage(docs, total, params.Skip, params.Limit), nil
}

// Insert persists doc and returns it as stored, with its generated identifier.
func (c *Collection[T]) Insert(ctx context.Context, doc *T) (*T, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, c.fail("insert", err)
	}
	return c.FindOne(ctx, bson.M{FieldID: res.InsertedID})
}

// UpdateByID merges fields into the document and returns the result.
// ErrNotFound is returned when nothing matched; no document is created.
func (c *Collection[T]) UpdateByID(ctx context.Context, id string, fields bson.M) (*T, error) {
	oid, err := shared.ParseID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{FieldUpdatedAt: c.now()}
	for k, v := range fields {
		if k == FieldID {
			continue
		}
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(false)
	var doc T
	err = c.coll.FindOneAndUpdate(ctx, ByID(oid), bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, c.fail("update_by_id", err)
	}
	return &doc, nil
}

// SoftDelete stamps deleted_at and is_deleted on the document.
// The document stays readable by id.
func (c *Collection[T]) SoftDelete(ctx context.Context, id string) (*T, error) {
	now := c.now()
	return c.UpdateByID(ctx, id, bson.M{FieldDeletedAt: now, FieldDeleted: true})
}

// Delete physically removes the first matching document.
func (c *Collection[T]) Delete(ctx context.Context, filter bson.M) (bool, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return false, c.fail("delete", err)
	}
	return res.DeletedCount > 0, nil
}

// DeleteMany physically removes all matching documents.
func (c *Collection[T]) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, c.fail("delete_many", err)
	}
	return res.DeletedCount, nil
}

// Count returns the number of matching documents.
func (c *Collection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, c.fail("count", err)
	}
	return n, nil
}
