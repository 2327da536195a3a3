package docstore

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ToDecimal128 converts a decimal into its BSON representation.
func ToDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("docstore: decimal %s out of range: %w", d.String(), err)
	}
	return v, nil
}

// FromDecimal128 converts a BSON decimal back into a decimal.
func FromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("docstore: decode decimal128 %s: %w", v.String(), err)
	}
	return d, nil
}
