package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/platform/db"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// CollectionName is the audit log collection.
const CollectionName = "audit_log"

// Repository menyediakan akses penyimpanan audit.
type Repository interface {
	Insert(ctx context.Context, event Event) (*Event, error)
	List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Event], error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRecord struct {
	ID       bson.ObjectID  `bson:"_id,omitempty"`
	ActorID  string         `bson:"actorId,omitempty"`
	Action   string         `bson:"action"`
	Entity   string         `bson:"entity"`
	EntityID string         `bson:"entityId,omitempty"`
	At       time.Time      `bson:"at"`
	Details  map[string]any `bson:"details,omitempty"`
}

func (r eventRecord) toDomain() Event {
	return Event{
		ID:       r.ID.Hex(),
		ActorID:  r.ActorID,
		Action:   Action(r.Action),
		Entity:   r.Entity,
		EntityID: r.EntityID,
		At:       r.At,
		Details:  r.Details,
	}
}

// MongoRepository stores audit events in MongoDB.
type MongoRepository struct {
	store *docstore.Collection[eventRecord]
}

// NewRepository builds the audit repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{store: docstore.New[eventRecord](database, CollectionName, logger)}
}

// Indexes lists the indexes of the audit collection.
func Indexes() []db.Index {
	return []db.Index{
		{Collection: CollectionName, Name: "audit_at", Keys: bson.D{{Key: "at", Value: -1}}},
		{Collection: CollectionName, Name: "audit_entity", Keys: bson.D{{Key: "entity", Value: 1}, {Key: "entityId", Value: 1}}},
	}
}

// Insert stores one event.
func (r *MongoRepository) Insert(ctx context.Context, event Event) (*Event, error) {
	rec := eventRecord{
		ActorID:  event.ActorID,
		Action:   string(event.Action),
		Entity:   event.Entity,
		EntityID: event.EntityID,
		At:       event.At.UTC(),
		Details:  event.Details,
	}
	if rec.At.IsZero() {
		rec.At = r.store.Now()
	}
	stored, err := r.store.Insert(ctx, &rec)
	if err != nil {
		return nil, err
	}
	out := stored.toDomain()
	return &out, nil
}

// List mengambil event audit terbaru lebih dulu.
func (r *MongoRepository) List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Event], error) {
	if params.Sort == "" {
		params.Sort = "-at"
	}
	page, err := r.store.FindPage(ctx, filterDoc(filters), params)
	if err != nil {
		return shared.Page[Event]{}, err
	}
	return shared.Map(page, eventRecord.toDomain), nil
}

// DeleteBefore removes events older than cutoff.
func (r *MongoRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.store.DeleteMany(ctx, bson.M{"at": bson.M{"$lt": cutoff.UTC()}})
}

func filterDoc(f Filters) bson.M {
	filter := bson.M{}
	if f.ActorID != "" {
		filter["actorId"] = f.ActorID
	}
	if f.Entity != "" {
		filter["entity"] = f.Entity
	}
	if f.EntityID != "" {
		filter["entityId"] = f.EntityID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	at := bson.M{}
	if !f.From.IsZero() {
		at["$gte"] = f.From.UTC()
	}
	if !f.To.IsZero() {
		at["$lt"] = f.To.UTC()
	}
	if len(at) > 0 {
		filter["at"] = at
	}
	return filter
}

var _ Repository = (*MongoRepository)(nil)
