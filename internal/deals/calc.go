package deals

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/grand-nerud/backoffice/internal/shared"
)

var (
	hundred = decimal.NewFromInt(100)
	// maxAmount bounds every input so derived figures fit a Decimal128.
	maxAmount = decimal.New(1, 12)
)

const (
	moneyPlaces    = 2
	quantityPlaces = 3
	percentPlaces  = 2
)

// Inputs are the caller-supplied figures of a deal.
type Inputs struct {
	Quantity          decimal.Decimal
	PurchaseUnitPrice decimal.Decimal
	SalesUnitPrice    decimal.Decimal
	Delivery          decimal.Decimal
	ExtraExpenses     []ExtraExpense
	VatPercent        decimal.Decimal
	ManagerPercent    decimal.Decimal
}

// Totals are the figures derived from Inputs.
type Totals struct {
	AmountPurchase decimal.Decimal
	AmountSales    decimal.Decimal
	CompanyProfit  decimal.Decimal
	VatAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	ManagerProfit  decimal.Decimal
}

type namedAmount struct {
	name   string
	value  decimal.Decimal
	places int32
}

func (f namedAmount) check() error {
	switch {
	case f.value.IsNegative():
		return shared.NewError(shared.ErrValidation, fmt.Sprintf("%s must not be negative", f.name))
	case f.value.GreaterThanOrEqual(maxAmount):
		return shared.NewError(shared.ErrValidation, fmt.Sprintf("%s must be less than %s", f.name, maxAmount))
	case !f.value.Equal(f.value.Truncate(f.places)):
		return shared.NewError(shared.ErrValidation, fmt.Sprintf("%s allows at most %d decimal places", f.name, f.places))
	}
	return nil
}

// Validate rejects negative or oversized amounts, amounts with more
// decimal places than the field allows and percentages outside [0, 100].
func (in Inputs) Validate() error {
	fields := []namedAmount{
		{"quantity", in.Quantity, quantityPlaces},
		{"amountPurchaseUnit", in.PurchaseUnitPrice, moneyPlaces},
		{"amountSalesUnit", in.SalesUnitPrice, moneyPlaces},
		{"amountDelivery", in.Delivery, moneyPlaces},
	}
	for i, e := range in.ExtraExpenses {
		fields = append(fields, namedAmount{fmt.Sprintf("extraExpenses[%d].amount", i), e.Amount, moneyPlaces})
	}
	for _, f := range fields {
		if err := f.check(); err != nil {
			return err
		}
	}
	for _, f := range []namedAmount{
		{"vatPercent", in.VatPercent, percentPlaces},
		{"managerPercent", in.ManagerPercent, percentPlaces},
	} {
		if f.value.IsNegative() || f.value.GreaterThan(hundred) {
			return shared.NewError(shared.ErrValidation, fmt.Sprintf("%s must be within [0, 100]", f.name))
		}
		if err := f.check(); err != nil {
			return err
		}
	}
	return nil
}

// Calculate derives deal totals. Arithmetic is exact; nothing is rounded.
//
// VAT is charged on the sales total, before delivery. The grand total is
// sales plus delivery plus VAT. The manager earns a share of the company
// profit, which may be negative.
func Calculate(in Inputs) (Totals, error) {
	if err := in.Validate(); err != nil {
		return Totals{}, err
	}
	purchase := in.Quantity.Mul(in.PurchaseUnitPrice)
	sales := in.Quantity.Mul(in.SalesUnitPrice)

	expenses := decimal.Zero
	for _, e := range in.ExtraExpenses {
		expenses = expenses.Add(e.Amount)
	}
	profit := sales.Sub(purchase).Sub(in.Delivery).Sub(expenses)
	vat := sales.Mul(in.VatPercent).Shift(-2)

	return Totals{
		AmountPurchase: purchase,
		AmountSales:    sales,
		CompanyProfit:  profit,
		VatAmount:      vat,
		TotalAmount:    sales.Add(in.Delivery).Add(vat),
		ManagerProfit:  profit.Mul(in.ManagerPercent).Shift(-2),
	}, nil
}
