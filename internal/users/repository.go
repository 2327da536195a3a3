package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/platform/db"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// CollectionName is the users collection.
const CollectionName = "users"

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, user User) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, params shared.ListParams) (shared.Page[User], error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*User, error)
	SoftDelete(ctx context.Context, id string) (*User, error)
}

type userRecord struct {
	ID             bson.ObjectID              `bson:"_id,omitempty"`
	Name           string                     `bson:"name"`
	LastName       string                     `bson:"lastName"`
	FatherName     string                     `bson:"fatherName,omitempty"`
	Email          string                     `bson:"email"`
	HashedPassword string                     `bson:"hashed_password"`
	Admin          bool                       `bson:"admin"`
	ProfitSettings map[string]bson.Decimal128 `bson:"profitSettings,omitempty"`
	CreatedAt      time.Time                  `bson:"createdAt"`
	UpdatedAt      time.Time                  `bson:"updated_at"`
	DeletedAt      *time.Time                 `bson:"deleted_at"`
	IsDeleted      bool                       `bson:"is_deleted"`
}

func (r userRecord) toDomain() (User, error) {
	settings, err := decodeProfitSettings(r.ProfitSettings)
	if err != nil {
		return User{}, err
	}
	return User{
		ID:             r.ID.Hex(),
		Name:           r.Name,
		LastName:       r.LastName,
		FatherName:     r.FatherName,
		Email:          r.Email,
		PasswordHash:   r.HashedPassword,
		Admin:          r.Admin,
		ProfitSettings: settings,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		DeletedAt:      r.DeletedAt,
		IsDeleted:      r.IsDeleted,
	}, nil
}

func decodeProfitSettings(in map[string]bson.Decimal128) (map[string]decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		d, err := docstore.FromDecimal128(v)
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}

func encodeProfitSettings(in map[string]decimal.Decimal) (map[string]bson.Decimal128, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]bson.Decimal128, len(in))
	for k, v := range in {
		d, err := docstore.ToDecimal128(v)
		if err != nil {
			return nil, shared.NewError(shared.ErrValidation, err.Error())
		}
		out[k] = d
	}
	return out, nil
}

// MongoRepository implements Repository using MongoDB.
type MongoRepository struct {
	store *docstore.Collection[userRecord]
}

// NewRepository constructs a MongoDB repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{store: docstore.New[userRecord](database, CollectionName, logger)}
}

// Indexes returns the indexes the users collection relies on.
func Indexes() []db.Index {
	return []db.Index{
		{Collection: CollectionName, Name: "users_email_live", Keys: bson.D{{Key: "email", Value: 1}}, Unique: true, LiveOnly: true},
	}
}

func (r *MongoRepository) one(rec *userRecord, err error) (*User, error) {
	if err != nil {
		return nil, err
	}
	user, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a user. A live account with the same email yields ErrConflict.
func (r *MongoRepository) Create(ctx context.Context, user User) (*User, error) {
	settings, err := encodeProfitSettings(user.ProfitSettings)
	if err != nil {
		return nil, err
	}
	now := r.store.Now()
	rec := userRecord{
		Name:           user.Name,
		LastName:       user.LastName,
		FatherName:     user.FatherName,
		Email:          user.Email,
		HashedPassword: user.PasswordHash,
		Admin:          user.Admin,
		ProfitSettings: settings,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	stored, err := r.store.Insert(ctx, &rec)
	if errors.Is(err, docstore.ErrDuplicateKey) {
		return nil, ErrUserExists
	}
	return r.one(stored, err)
}

// Get fetches a user by id, including soft-deleted accounts.
func (r *MongoRepository) Get(ctx context.Context, id string) (*User, error) {
	return r.one(r.store.FindByID(ctx, id))
}

// FindByEmail fetches a live user by email.
func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.one(r.store.FindOne(ctx, docstore.Live(bson.M{"email": email}, false)))
}

// EmailTaken reports whether another live account uses email.
func (r *MongoRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	unique, err := r.store.IsUnique(ctx, "email", email, docstore.UniqueOptions{ExcludeID: excludeID})
	if err != nil {
		return false, err
	}
	return !unique, nil
}

// List returns a page of users.
func (r *MongoRepository) List(ctx context.Context, params shared.ListParams) (shared.Page[User], error) {
	page, err := r.store.FindPage(ctx, docstore.Live(bson.M{}, params.IncludeDeleted), params)
	if err != nil {
		return shared.Page[User]{}, err
	}
	return shared.MapErr(page, userRecord.toDomain)
}

// Update applies field updates. Profit settings are converted to BSON decimals.
func (r *MongoRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*User, error) {
	fields := bson.M{}
	for k, v := range updates {
		switch val := v.(type) {
		case map[string]decimal.Decimal:
			encoded, err := encodeProfitSettings(val)
			if err != nil {
				return nil, err
			}
			fields[k] = encoded
		default:
			fields[k] = val
		}
	}
	rec, err := r.store.UpdateByID(ctx, id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrUserNotFound, id)
	}
	return r.one(rec, err)
}

// SoftDelete marks the account deleted.
func (r *MongoRepository) SoftDelete(ctx context.Context, id string) (*User, error) {
	rec, err := r.store.SoftDelete(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %s", ErrUserNotFound, id)
	}
	return r.one(rec, err)
}

var _ Repository = (*MongoRepository)(nil)
