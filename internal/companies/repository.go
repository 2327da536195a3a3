package companies

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/grand-nerud/backoffice/internal/docstore"
	"github.com/grand-nerud/backoffice/internal/platform/db"
	"github.com/grand-nerud/backoffice/internal/shared"
)

// Repository defines persistence operations for companies.
type Repository interface {
	Create(ctx context.Context, company Company) (*Company, error)
	Get(ctx context.Context, id string) (*Company, error)
	List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Company], error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*Company, error)
	SoftDelete(ctx context.Context, id string) (*Company, error)
	INNTaken(ctx context.Context, inn, excludeID string) (bool, error)
}

type contactRecord struct {
	Kind  string `bson:"kind"`
	Value string `bson:"value"`
}

type companyRecord struct {
	ID              bson.ObjectID   `bson:"_id,omitempty"`
	Name            string          `bson:"name"`
	AbbreviatedName string          `bson:"abbreviatedName"`
	INN             string          `bson:"inn"`
	INNKey          string          `bson:"innKey"`
	Contacts        []contactRecord `bson:"contacts"`
	Type            string          `bson:"type"`
	CreatedAt       time.Time       `bson:"createdAt"`
	UpdatedAt       time.Time       `bson:"updated_at"`
	DeletedAt       *time.Time      `bson:"deleted_at"`
	IsDeleted       bool            `bson:"is_deleted"`
}

func (r companyRecord) toDomain() Company {
	contacts := make([]Contact, 0, len(r.Contacts))
	for _, c := range r.Contacts {
		contacts = append(contacts, Contact{Kind: c.Kind, Value: c.Value})
	}
	return Company{
		ID:              r.ID.Hex(),
		Name:            r.Name,
		AbbreviatedName: r.AbbreviatedName,
		INN:             r.INN,
		Contacts:        contacts,
		Type:            r.Type,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		DeletedAt:       r.DeletedAt,
		IsDeleted:       r.IsDeleted,
	}
}

func contactRecords(in []Contact) []contactRecord {
	out := make([]contactRecord, 0, len(in))
	for _, c := range in {
		out = append(out, contactRecord{Kind: c.Kind, Value: c.Value})
	}
	return out
}

// MongoRepository implements Repository using MongoDB.
type MongoRepository struct {
	store *docstore.Collection[companyRecord]
}

// NewRepository constructs a MongoDB repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{store: docstore.New[companyRecord](database, CollectionName, logger)}
}

// Indexes returns the indexes the companies collection relies on.
func Indexes() []db.Index {
	return []db.Index{
		{Collection: CollectionName, Name: "companies_inn_live", Keys: bson.D{{Key: "innKey", Value: 1}}, Unique: true, LiveOnly: true},
	}
}

func (r *MongoRepository) one(rec *companyRecord, err error) (*Company, error) {
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, ErrDuplicateINN
		}
		return nil, err
	}
	company := rec.toDomain()
	return &company, nil
}

// Create inserts a company.
func (r *MongoRepository) Create(ctx context.Context, company Company) (*Company, error) {
	now := r.store.Now()
	rec := companyRecord{
		Name:            company.Name,
		AbbreviatedName: company.AbbreviatedName,
		INN:             company.INN,
		INNKey:          docstore.NormalizeKey(company.INN),
		Contacts:        contactRecords(company.Contacts),
		Type:            company.Type,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return r.one(r.store.Insert(ctx, &rec))
}

// Get fetches a company by id, including soft-deleted ones.
func (r *MongoRepository) Get(ctx context.Context, id string) (*Company, error) {
	return r.one(r.store.FindByID(ctx, id))
}

// FilterDoc translates listing filters into a store query. Name matches as
// a case-insensitive substring.
func FilterDoc(f Filters, includeDeleted bool) bson.M {
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = bson.Regex{Pattern: regexp.QuoteMeta(f.Name), Options: "i"}
	}
	if f.INN != "" {
		filter["innKey"] = docstore.NormalizeKey(f.INN)
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	return docstore.Live(filter, includeDeleted)
}

// List returns a page of companies.
func (r *MongoRepository) List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Company], error) {
	page, err := r.store.FindPage(ctx, FilterDoc(filters, params.IncludeDeleted), params)
	if err != nil {
		return shared.Page[Company]{}, err
	}
	return shared.Map(page, companyRecord.toDomain), nil
}

// Update applies field updates. Contacts and inn are converted to their
// stored form.
func (r *MongoRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*Company, error) {
	fields := bson.M{}
	for k, v := range updates {
		switch val := v.(type) {
		case []Contact:
			fields[k] = contactRecords(val)
		default:
			fields[k] = val
		}
	}
	if inn, ok := updates["inn"].(string); ok {
		fields["innKey"] = docstore.NormalizeKey(inn)
	}
	return r.one(r.store.UpdateByID(ctx, id, fields))
}

// SoftDelete marks the company deleted.
func (r *MongoRepository) SoftDelete(ctx context.Context, id string) (*Company, error) {
	return r.one(r.store.SoftDelete(ctx, id))
}

// INNTaken reports whether another live company uses inn.
func (r *MongoRepository) INNTaken(ctx context.Context, inn, excludeID string) (bool, error) {
	unique, err := r.store.IsUnique(ctx, "inn", inn, docstore.UniqueOptions{ExcludeID: excludeID})
	if err != nil {
		return false, err
	}
	return !unique, nil
}

var _ Repository = (*MongoRepository)(nil)
