package deals

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionName is the deals collection.
const CollectionName = "deals"

// Receiving methods.
const (
	ReceivingDelivery = "delivery"
	ReceivingPickup   = "pickup"
)

// ExtraExpense is an additional cost charged against the company profit.
type ExtraExpense struct {
	Name   string          `json:"name" validate:"required,max=200"`
	Amount decimal.Decimal `json:"amount"`
}

// Deal is a sale, delivery or disposal transaction with its derived figures.
type Deal struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	ServiceID          string          `json:"serviceId"`
	CustomerID         string          `json:"customerId"`
	ProviderID         string          `json:"providerId,omitempty"`
	StageID            string          `json:"stageId,omitempty"`
	MaterialID         string          `json:"materialId,omitempty"`
	UnitMeasurement    *string         `json:"unitMeasurement"`
	Quantity           decimal.Decimal `json:"quantity"`
	AmountPurchaseUnit decimal.Decimal `json:"amountPurchaseUnit"`
	AmountPurchase     decimal.Decimal `json:"amountPurchase"`
	AmountSalesUnit    decimal.Decimal `json:"amountSalesUnit"`
	AmountSales        decimal.Decimal `json:"amountSales"`
	AmountDelivery     decimal.Decimal `json:"amountDelivery"`
	ExtraExpenses      []ExtraExpense  `json:"extraExpenses"`
	CompanyProfit      decimal.Decimal `json:"companyProfit"`
	VatPercent         decimal.Decimal `json:"vatPercent"`
	VatAmount          decimal.Decimal `json:"vatAmount"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	ManagerPercent     decimal.Decimal `json:"managerPercent"`
	ManagerProfit      decimal.Decimal `json:"managerProfit"`
	PaymentMethod      string          `json:"paymentMethod,omitempty"`
	MethodReceiving    string          `json:"methodReceiving,omitempty"`
	ShippingAddressID  string          `json:"shippingAddressId,omitempty"`
	DeliveryAddressID  string          `json:"deliveryAddressId,omitempty"`
	Deadline           *time.Time      `json:"deadline,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	OSSIG              bool            `json:"OSSIG"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          *time.Time      `json:"deleted_at"`
	IsDeleted          bool            `json:"is_deleted"`
}

// Inputs returns the calculation inputs currently held by the deal.
func (d Deal) Inputs() Inputs {
	return Inputs{
		Quantity:          d.Quantity,
		PurchaseUnitPrice: d.AmountPurchaseUnit,
		SalesUnitPrice:    d.AmountSalesUnit,
		Delivery:          d.AmountDelivery,
		ExtraExpenses:     d.ExtraExpenses,
		VatPercent:        d.VatPercent,
		ManagerPercent:    d.ManagerPercent,
	}
}

// Apply stores derived totals on the deal.
func (d *Deal) Apply(t Totals) {
	d.AmountPurchase = t.AmountPurchase
	d.AmountSales = t.AmountSales
	d.CompanyProfit = t.CompanyProfit
	d.VatAmount = t.VatAmount
	d.TotalAmount = t.TotalAmount
	d.ManagerProfit = t.ManagerProfit
}

// CreateInput is the payload for a new deal. Derived amounts are never
// accepted from callers.
type CreateInput struct {
	UserID             string           `json:"userId" validate:"omitempty,objectid"`
	ServiceID          string           `json:"serviceId" validate:"required,objectid"`
	CustomerID         string           `json:"customerId" validate:"required,objectid"`
	ProviderID         string           `json:"providerId" validate:"omitempty,objectid"`
	StageID            string           `json:"stageId" validate:"omitempty,objectid"`
	MaterialID         string           `json:"materialId" validate:"omitempty,objectid"`
	UnitMeasurement    string           `json:"unitMeasurement" validate:"max=32"`
	Quantity           decimal.Decimal  `json:"quantity"`
	AmountPurchaseUnit decimal.Decimal  `json:"amountPurchaseUnit"`
	AmountSalesUnit    decimal.Decimal  `json:"amountSalesUnit"`
	AmountDelivery     decimal.Decimal  `json:"amountDelivery"`
	ExtraExpenses      []ExtraExpense   `json:"extraExpenses" validate:"dive"`
	VatPercent         decimal.Decimal  `json:"vatPercent"`
	ManagerPercent     *decimal.Decimal `json:"managerPercent"`
	PaymentMethod      string           `json:"paymentMethod" validate:"max=100"`
	MethodReceiving    string           `json:"methodReceiving" validate:"omitempty,oneof=delivery pickup"`
	ShippingAddressID  string           `json:"shippingAddressId" validate:"omitempty,objectid"`
	DeliveryAddressID  string           `json:"deliveryAddressId" validate:"omitempty,objectid"`
	Deadline           *time.Time       `json:"deadline"`
	Notes              string           `json:"notes" validate:"max=2000"`
	OSSIG              bool             `json:"OSSIG"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	UserID             *string          `json:"userId" validate:"omitempty,objectid"`
	ServiceID          *string          `json:"serviceId" validate:"omitempty,objectid"`
	CustomerID         *string          `json:"customerId" validate:"omitempty,objectid"`
	ProviderID         *string          `json:"providerId" validate:"omitempty,objectid"`
	StageID            *string          `json:"stageId" validate:"omitempty,objectid"`
	MaterialID         *string          `json:"materialId" validate:"omitempty,objectid"`
	UnitMeasurement    *string          `json:"unitMeasurement" validate:"omitempty,max=32"`
	Quantity           *decimal.Decimal `json:"quantity"`
	AmountPurchaseUnit *decimal.Decimal `json:"amountPurchaseUnit"`
	AmountSalesUnit    *decimal.Decimal `json:"amountSalesUnit"`
	AmountDelivery     *decimal.Decimal `json:"amountDelivery"`
	ExtraExpenses      *[]ExtraExpense  `json:"extraExpenses" validate:"omitempty,dive"`
	VatPercent         *decimal.Decimal `json:"vatPercent"`
	ManagerPercent     *decimal.Decimal `json:"managerPercent"`
	PaymentMethod      *string          `json:"paymentMethod" validate:"omitempty,max=100"`
	MethodReceiving    *string          `json:"methodReceiving" validate:"omitempty,oneof=delivery pickup"`
	ShippingAddressID  *string          `json:"shippingAddressId" validate:"omitempty,objectid"`
	DeliveryAddressID  *string          `json:"deliveryAddressId" validate:"omitempty,objectid"`
	Deadline           *time.Time       `json:"deadline"`
	Notes              *string          `json:"notes" validate:"omitempty,max=2000"`
	OSSIG              *bool            `json:"OSSIG"`
}

// recalculates reports whether the update touches a calculation input.
func (in UpdateInput) recalculates() bool {
	return in.Quantity != nil || in.AmountPurchaseUnit != nil || in.AmountSalesUnit != nil ||
		in.AmountDelivery != nil || in.ExtraExpenses != nil || in.VatPercent != nil ||
		in.ManagerPercent != nil || in.ServiceID != nil || in.UserID != nil
}

// Filters narrows deal listings.
type Filters struct {
	UserID     string
	ServiceID  string
	CustomerID string
	StageID    string
	MaterialID string
	OSSIG      *bool
}
