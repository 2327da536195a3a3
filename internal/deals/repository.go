package deals

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

// ErrDealNotFound is returned for unknown deals.
var ErrDealNotFound = shared.NewError(shared.ErrNotFound, "deal not found")

// Relations joined into deal views. The manager's password hash never leaves
// the store.
var Relations = []docstore.Relation{
	{From: "services", LocalField: "serviceId", As: "service", Unset: []string{"nameKey"}},
	{From: "companies", LocalField: "customerId", As: "customer", Unset: []string{"innKey"}},
	{From: "companies", LocalField: "providerId", As: "provider", Unset: []string{"innKey"}},
	{From: "stages", LocalField: "stageId", As: "stage", Unset: []string{"nameKey"}},
	{From: "materials", LocalField: "materialId", As: "material", Unset: []string{"nameKey"}},
	{From: "addresses", LocalField: "shippingAddressId", As: "shipping_address"},
	{From: "addresses", LocalField: "deliveryAddressId", As: "delivery_address"},
	{From: "users", LocalField: "userId", As: "user", Unset: []string{"hashed_password"}},
}

// clearable lists optional fields an update may reset to null.
var clearable = []string{
	"userId", "serviceId", "customerId", "providerId", "stageId", "materialId",
	"paymentMethod", "methodReceiving", "shippingAddressId", "deliveryAddressId", "deadline", "notes",
}

// Repository defines persistence operations for deals.
type Repository interface {
	Create(ctx context.Context, deal Deal) (*Deal, error)
	Get(ctx context.Context, id string) (*Deal, error)
	Update(ctx context.Context, deal Deal) (*Deal, error)
	SoftDelete(ctx context.Context, id string) (*Deal, error)
	List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Deal], error)
	ListView(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[map[string]any], error)
	GetView(ctx context.Context, id string) (map[string]any, error)
	CountReferences(ctx context.Context, id string, fields ...string) (int64, error)
}

type expenseRecord struct {
	Name   string           `bson:"name"`
	Amount bson.Decimal128 `bson:"amount"`
}

type dealRecord struct {
	ID                 bson.ObjectID   `bson:"_id,omitempty"`
	UserID             *bson.ObjectID  `bson:"userId,omitempty"`
	ServiceID          *bson.ObjectID  `bson:"serviceId,omitempty"`
	CustomerID         *bson.ObjectID  `bson:"customerId,omitempty"`
	ProviderID         *bson.ObjectID  `bson:"providerId,omitempty"`
	StageID            *bson.ObjectID  `bson:"stageId,omitempty"`
	MaterialID         *bson.ObjectID  `bson:"materialId,omitempty"`
	UnitMeasurement    *string         `bson:"unitMeasurement"`
	Quantity           bson.Decimal128 `bson:"quantity"`
	AmountPurchaseUnit bson.Decimal128 `bson:"amountPurchaseUnit"`
	AmountPurchase     bson.Decimal128 `bson:"amountPurchase"`
	AmountSalesUnit    bson.Decimal128 `bson:"amountSalesUnit"`
	AmountSales        bson.Decimal128 `bson:"amountSales"`
	AmountDelivery     bson.Decimal128 `bson:"amountDelivery"`
	ExtraExpenses      []expenseRecord `bson:"extraExpenses"`
	CompanyProfit      bson.Decimal128 `bson:"companyProfit"`
	VatPercent         bson.Decimal128 `bson:"vatPercent"`
	VatAmount          bson.Decimal128 `bson:"vatAmount"`
	TotalAmount        bson.Decimal128 `bson:"totalAmount"`
	ManagerPercent     bson.Decimal128 `bson:"managerPercent"`
	ManagerProfit      bson.Decimal128 `bson:"managerProfit"`
	PaymentMethod      string          `bson:"paymentMethod,omitempty"`
	MethodReceiving    string          `bson:"methodReceiving,omitempty"`
	ShippingAddressID  *bson.ObjectID  `bson:"shippingAddressId,omitempty"`
	DeliveryAddressID  *bson.ObjectID  `bson:"deliveryAddressId,omitempty"`
	Deadline           *time.Time      `bson:"deadline,omitempty"`
	Notes              string          `bson:"notes,omitempty"`
	OSSIG              bool            `bson:"OSSIG"`
	CreatedAt          time.Time       `bson:"createdAt"`
	UpdatedAt          time.Time       `bson:"updated_at"`
	DeletedAt          *time.Time      `bson:"deleted_at"`
	IsDeleted          bool            `bson:"is_deleted"`
}

// codec converts between decimal and BSON forms, keeping the first failure.
type codec struct {
	err error
}

func (c *codec) enc(d decimal.Decimal) bson.Decimal128 {
	if c.err != nil {
		return bson.Decimal128{}
	}
	v, err := docstore.ToDecimal128(d)
	if err != nil {
		c.err = shared.NewError(shared.ErrValidation, err.Error())
	}
	return v
}

func (c *codec) dec(v bson.Decimal128) decimal.Decimal {
	if c.err != nil {
		return decimal.Zero
	}
	d, err := docstore.FromDecimal128(v)
	if err != nil {
		c.err = err
	}
	return d
}

func (c *codec) id(raw string) *bson.ObjectID {
	if c.err != nil {
		return nil
	}
	id, err := shared.OptionalID(raw)
	if err != nil {
		c.err = err
	}
	return id
}

func normalizeUnit(unit *string) *string {
	if unit == nil || *unit == "" {
		return nil
	}
	return unit
}

func toRecord(d Deal) (dealRecord, error) {
	var c codec
	rec := dealRecord{
		UserID:             c.id(d.UserID),
		ServiceID:          c.id(d.ServiceID),
		CustomerID:         c.id(d.CustomerID),
		ProviderID:         c.id(d.ProviderID),
		StageID:            c.id(d.StageID),
		MaterialID:         c.id(d.MaterialID),
		UnitMeasurement:    normalizeUnit(d.UnitMeasurement),
		Quantity:           c.enc(d.Quantity),
		AmountPurchaseUnit: c.enc(d.AmountPurchaseUnit),
		AmountPurchase:     c.enc(d.AmountPurchase),
		AmountSalesUnit:    c.enc(d.AmountSalesUnit),
		AmountSales:        c.enc(d.AmountSales),
		AmountDelivery:     c.enc(d.AmountDelivery),
		ExtraExpenses:      make([]expenseRecord, 0, len(d.ExtraExpenses)),
		CompanyProfit:      c.enc(d.CompanyProfit),
		VatPercent:         c.enc(d.VatPercent),
		VatAmount:          c.enc(d.VatAmount),
		TotalAmount:        c.enc(d.TotalAmount),
		ManagerPercent:     c.enc(d.ManagerPercent),
		ManagerProfit:      c.enc(d.ManagerProfit),
		PaymentMethod:      d.PaymentMethod,
		MethodReceiving:    d.MethodReceiving,
		ShippingAddressID:  c.id(d.ShippingAddressID),
		DeliveryAddressID:  c.id(d.DeliveryAddressID),
		Deadline:           d.Deadline,
		Notes:              d.Notes,
		OSSIG:              d.OSSIG,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		DeletedAt:          d.DeletedAt,
		IsDeleted:          d.IsDeleted,
	}
	for _, e := range d.ExtraExpenses {
		rec.ExtraExpenses = append(rec.ExtraExpenses, expenseRecord{Name: e.Name, Amount: c.enc(e.Amount)})
	}
	if d.ID != "" && c.err == nil {
		oid, err := shared.ParseID(d.ID)
		if err != nil {
			return dealRecord{}, err
		}
		rec.ID = oid
	}
	return rec, c.err
}

func (r dealRecord) toDomain() (Deal, error) {
	var c codec
	d := Deal{
		ID:                 r.ID.Hex(),
		UserID:             shared.HexOrEmpty(r.UserID),
		ServiceID:          shared.HexOrEmpty(r.ServiceID),
		CustomerID:         shared.HexOrEmpty(r.CustomerID),
		ProviderID:         shared.HexOrEmpty(r.ProviderID),
		StageID:            shared.HexOrEmpty(r.StageID),
		MaterialID:         shared.HexOrEmpty(r.MaterialID),
		UnitMeasurement:    normalizeUnit(r.UnitMeasurement),
		Quantity:           c.dec(r.Quantity),
		AmountPurchaseUnit: c.dec(r.AmountPurchaseUnit),
		AmountPurchase:     c.dec(r.AmountPurchase),
		AmountSalesUnit:    c.dec(r.AmountSalesUnit),
		AmountSales:        c.dec(r.AmountSales),
		AmountDelivery:     c.dec(r.AmountDelivery),
		ExtraExpenses:      make([]ExtraExpense, 0, len(r.ExtraExpenses)),
		CompanyProfit:      c.dec(r.CompanyProfit),
		VatPercent:         c.dec(r.VatPercent),
		VatAmount:          c.dec(r.VatAmount),
		TotalAmount:        c.dec(r.TotalAmount),
		ManagerPercent:     c.dec(r.ManagerPercent),
		ManagerProfit:      c.dec(r.ManagerProfit),
		PaymentMethod:      r.PaymentMethod,
		MethodReceiving:    r.MethodReceiving,
		ShippingAddressID:  shared.HexOrEmpty(r.ShippingAddressID),
		DeliveryAddressID:  shared.HexOrEmpty(r.DeliveryAddressID),
		Deadline:           r.Deadline,
		Notes:              r.Notes,
		OSSIG:              r.OSSIG,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		DeletedAt:          r.DeletedAt,
		IsDeleted:          r.IsDeleted,
	}
	for _, e := range r.ExtraExpenses {
		d.ExtraExpenses = append(d.ExtraExpenses, ExtraExpense{Name: e.Name, Amount: c.dec(e.Amount)})
	}
	return d, c.err
}

// FilterDoc translates listing filters into a store query.
func FilterDoc(f Filters, includeDeleted bool) (bson.M, error) {
	filter := bson.M{}
	for field, raw := range map[string]string{
		"userId":     f.UserID,
		"serviceId":  f.ServiceID,
		"customerId": f.CustomerID,
		"stageId":    f.StageID,
		"materialId": f.MaterialID,
	} {
		id, err := shared.OptionalID(raw)
		if err != nil {
			return nil, err
		}
		if id != nil {
			filter[field] = *id
		}
	}
	if f.OSSIG != nil {
		filter["OSSIG"] = *f.OSSIG
	}
	return docstore.Live(filter, includeDeleted), nil
}

// MongoRepository implements Repository using MongoDB.
type MongoRepository struct {
	store *docstore.Collection[dealRecord]
}

// NewRepository constructs a MongoDB repository.
func NewRepository(database *mongo.Database, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{store: docstore.New[dealRecord](database, CollectionName, logger)}
}

// Indexes returns the indexes backing deal listings and dependency checks.
func Indexes() []db.Index {
	var out []db.Index
	for _, field := range []string{"userId", "customerId", "providerId", "serviceId", "stageId", "materialId"} {
		out = append(out, db.Index{Collection: CollectionName, Name: "deals_" + field, Keys: bson.D{{Key: field, Value: 1}}})
	}
	return out
}

func (r *MongoRepository) one(rec *dealRecord, err error) (*Deal, error) {
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	deal, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Create inserts a deal.
func (r *MongoRepository) Create(ctx context.Context, deal Deal) (*Deal, error) {
	now := r.store.Now()
	deal.ID = ""
	deal.CreatedAt, deal.UpdatedAt = now, now
	deal.DeletedAt, deal.IsDeleted = nil, false
	rec, err := toRecord(deal)
	if err != nil {
		return nil, err
	}
	return r.one(r.store.Insert(ctx, &rec))
}

// Get fetches a deal by id, including soft-deleted ones.
func (r *MongoRepository) Get(ctx context.Context, id string) (*Deal, error) {
	return r.one(r.store.FindByID(ctx, id))
}

// Update writes every mutable field of deal.
func (r *MongoRepository) Update(ctx context.Context, deal Deal) (*Deal, error) {
	rec, err := toRecord(deal)
	if err != nil {
		return nil, err
	}
	raw, err := bson.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode deal: %w", err)
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode deal: %w", err)
	}
	for _, key := range []string{docstore.FieldID, docstore.FieldCreatedAt, docstore.FieldUpdatedAt, docstore.FieldDeletedAt, docstore.FieldDeleted} {
		delete(fields, key)
	}
	for _, key := range clearable {
		if _, ok := fields[key]; !ok {
			fields[key] = nil
		}
	}
	return r.one(r.store.UpdateByID(ctx, deal.ID, fields))
}

// SoftDelete marks the deal deleted.
func (r *MongoRepository) SoftDelete(ctx context.Context, id string) (*Deal, error) {
	return r.one(r.store.SoftDelete(ctx, id))
}

// List returns a page of deals without relations.
func (r *MongoRepository) List(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[Deal], error) {
	filter, err := FilterDoc(filters, params.IncludeDeleted)
	if err != nil {
		return shared.Page[Deal]{}, err
	}
	page, err := r.store.FindPage(ctx, filter, params)
	if err != nil {
		return shared.Page[Deal]{}, err
	}
	return shared.MapErr(page, dealRecord.toDomain)
}

// ListView returns a page of deals with related documents embedded.
func (r *MongoRepository) ListView(ctx context.Context, filters Filters, params shared.ListParams) (shared.Page[map[string]any], error) {
	filter, err := FilterDoc(filters, params.IncludeDeleted)
	if err != nil {
		return shared.Page[map[string]any]{}, err
	}
	return r.store.PageWithRelations(ctx, filter, Relations, params)
}

// GetView returns one deal with related documents embedded.
func (r *MongoRepository) GetView(ctx context.Context, id string) (map[string]any, error) {
	view, err := r.store.FindOneWithRelations(ctx, id, Relations)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrDealNotFound
	}
	return view, err
}

// CountReferences counts live deals whose any of fields equals id.
func (r *MongoRepository) CountReferences(ctx context.Context, id string, fields ...string) (int64, error) {
	oid, err := shared.ParseID(id)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, nil
	}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: oid})
	}
	return r.store.Count(ctx, docstore.Live(bson.M{"$or": or}, false))
}

var _ Repository = (*MongoRepository)(nil)
