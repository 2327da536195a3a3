package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Index describes one secondary index owned by a repository.
type Index struct {
	Collection string
	Name       string
	Keys       bson.D
	Unique     bool
	// LiveOnly restricts the index to documents that are not soft-deleted.
	LiveOnly bool
}

// Model converts the description into a driver index model.
func (i Index) Model() mongo.IndexModel {
	opts := options.Index().SetName(i.Name)
	if i.Unique {
		opts.SetUnique(true)
	}
	if i.LiveOnly {
		opts.SetPartialFilterExpression(bson.D{{Key: "is_deleted", Value: false}})
	}
	return mongo.IndexModel{Keys: i.Keys, Options: opts}
}

// EnsureIndexes creates the given indexes. Existing indexes with the same name are left alone.
func EnsureIndexes(ctx context.Context, database *mongo.Database, indexes ...Index) error {
	for _, idx := range indexes {
		if _, err := database.Collection(idx.Collection).Indexes().CreateOne(ctx, idx.Model()); err != nil {
			return fmt.Errorf("platform/db: create index %s.%s: %w", idx.Collection, idx.Name, err)
		}
	}
	return nil
}
