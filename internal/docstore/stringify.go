package docstore

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// unitMeasurementField is normalised from "" to null on output.
const unitMeasurementField = "unitMeasurement"

// Stringify converts a decoded document tree into plain JSON-friendly values:
// identifiers and Decimal128 become strings, BSON dates become time.Time,
// ordered documents become maps and "_id" keys are renamed to "id".
// Nested documents and arrays are converted recursively.
func Stringify(v any) any {
	switch t := v.(type) {
	case bson.ObjectID:
		return t.Hex()
	case *bson.ObjectID:
		if t == nil {
			return nil
		}
		return t.Hex()
	case bson.Decimal128:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return t.String()
		}
		return d.String()
	case bson.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case bson.M:
		return stringifyMap(map[string]any(t))
	case map[string]any:
		return stringifyMap(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return stringifyMap(m)
	case bson.A:
		return stringifySlice([]any(t))
	case []any:
		return stringifySlice(t)
	default:
		return v
	}
}

func stringifyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		key := k
		if k == FieldID {
			key = "id"
		}
		if k == unitMeasurementField {
			if s, ok := v.(string); ok && s == "" {
				out[key] = nil
				continue
			}
		}
		out[key] = Stringify(v)
	}
	return out
}

func stringifySlice(in []any) []any {
	out := make([]any, 0, len(in))
	for _, v := range in {
		out = append(out, Stringify(v))
	}
	return out
}
