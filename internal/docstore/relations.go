package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Relation joins one foreign collection by a local reference field.
// At most one related document is kept; extra matches are ignored.
type Relation struct {
	From       string
	LocalField string
	As         string
	// Unset lists fields of the joined document that must not leave the store.
	Unset []string
}

// RelationStages builds the $lookup/$addFields stages for relations.
func RelationStages(relations []Relation) []bson.D {
	stages := make([]bson.D, 0, len(relations)*3)
	for _, rel := range relations {
		stages = append(stages,
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: rel.From},
				{Key: "localField", Value: rel.LocalField},
				{Key: "foreignField", Value: FieldID},
				{Key: "as", Value: rel.As},
			}}},
			bson.D{{Key: "$addFields", Value: bson.D{
				{Key: rel.As, Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$" + rel.As, 0}}}},
			}}},
		)
		if len(rel.Unset) > 0 {
			fields := make(bson.A, 0, len(rel.Unset))
			for _, f := range rel.Unset {
				fields = append(fields, rel.As+"."+f)
			}
			stages = append(stages, bson.D{{Key: "$unset", Value: fields}})
		}
	}
	return stages
}

// RelationPipeline assembles the full pipeline: match, sort, window, joins.
// Joins run after the window so only the returned page is expanded.
func RelationPipeline(filter bson.M, relations []Relation, params shared.ListParams) (bson.A, error) {
	keys, err := params.SortKeys()
	if err != nil {
		return nil, err
	}
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: filter}},
		bson.D{{Key: "$sort", Value: SortDoc(keys)}},
	}
	if params.Skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(params.Skip)}})
	}
	if params.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(params.Limit)}})
	}
	for _, stage := range RelationStages(relations) {
		pipeline = append(pipeline, stage)
	}
	return pipeline, nil
}

// Aggregate runs an arbitrary pipeline and returns stringified documents.
func (c *Collection[T]) Aggregate(ctx context.Context, pipeline bson.A) ([]map[string]any, error) {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, c.fail("aggregate", err)
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, c.fail("aggregate", err)
	}
	out := make([]map[string]any, 0, len(raw))
	for _, doc := range raw {
		out = append(out, stringifyMap(map[string]any(doc)))
	}
	return out, nil
}

// AggregateWithRelations returns a window of documents with their related
// documents embedded under each relation's As key.
func (c *Collection[T]) AggregateWithRelations(ctx context.Context, filter bson.M, relations []Relation, params shared.ListParams) ([]map[string]any, error) {
	params = params.Normalize()
	pipeline, err := RelationPipeline(filter, relations, params)
	if err != nil {
		return nil, err
	}
	return c.Aggregate(ctx, pipeline)
}

// PageWithRelations is AggregateWithRelations plus pagination metadata.
func (c *Collection[T]) PageWithRelations(ctx context.Context, filter bson.M, relations []Relation, params shared.ListParams) (shared.Page[map[string]any], error) {
	params = params.Normalize()
	total, err := c.Count(ctx, filter)
	if err != nil {
		return shared.Page[map[string]any]{}, err
	}
	items, err := c.AggregateWithRelations(ctx, filter, relations, params)
	if err != nil {
		return shared.Page[map[string]any]{}, err
	}
	return shared.NewPage(items, total, params.Skip, params.Limit), nil
}

// FindOneWithRelations returns a single document by id with relations joined.
func (c *Collection[T]) FindOneWithRelations(ctx context.Context, id string, relations []Relation) (map[string]any, error) {
	oid, err := shared.ParseID(id)
	if err != nil {
		return nil, err
	}
	docs, err := c.AggregateWithRelations(ctx, ByID(oid), relations, shared.ListParams{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}
