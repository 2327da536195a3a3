package docstore

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// compileStoreRegex turns a bson.Regex into the equivalent Go expression so
// the matching semantics of UniqueFilter can be checked without a server.
func compileStoreRegex(t *testing.T, r bson.Regex) *regexp.Regexp {
	t.Helper()
	expr := r.Pattern
	if r.Options == "i" {
		expr = "(?i)" + expr
	}
	return regexp.MustCompile(expr)
}

func TestUniqueFilterMatchesNormalisedValues(t *testing.T) {
	filter, err := UniqueFilter("inn", " Acme.Co ", UniqueOptions{})
	require.NoError(t, err)

	re := compileStoreRegex(t, filter["inn"].(bson.Regex))
	assert.True(t, re.MatchString("acme.co"))
	assert.True(t, re.MatchString("  ACME.CO\t"))
	assert.False(t, re.MatchString("acmexco"), "dot must be escaped")
	assert.False(t, re.MatchString("acme.co ltd"))
	assert.Equal(t, bson.M{"$ne": true}, filter[FieldDeleted])
	_, hasID := filter[FieldID]
	assert.False(t, hasID)
}

func TestUniqueFilterCaseSensitiveAndSpaces(t *testing.T) {
	filter, err := UniqueFilter("name", " Sand ", UniqueOptions{CaseSensitive: true, PreserveSpaces: true, IncludeDeleted: true})
	require.NoError(t, err)

	re := compileStoreRegex(t, filter["name"].(bson.Regex))
	assert.True(t, re.MatchString(" Sand "))
	assert.False(t, re.MatchString("Sand"))
	assert.False(t, re.MatchString(" sand "))
	_, hasDeleted := filter[FieldDeleted]
	assert.False(t, hasDeleted)
}

func TestUniqueFilterExcludesID(t *testing.T) {
	id := bson.NewObjectID()
	filter, err := UniqueFilter("inn", "123", UniqueOptions{ExcludeID: id.Hex()})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$ne": id}, filter[FieldID])

	_, err = UniqueFilter("inn", "123", UniqueOptions{ExcludeID: "bogus"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, NormalizeKey("  ООО Ромашка "), NormalizeKey("ооо ромашка"))
	assert.Equal(t, "7701234567", NormalizeKey(" 7701234567\n"))
}

func TestStringifyConvertsNestedIdentifiers(t *testing.T) {
	dealID := bson.NewObjectID()
	customerID := bson.NewObjectID()
	amount, err := bson.ParseDecimal128("1500.50")
	require.NoError(t, err)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	doc := bson.M{
		"_id":             dealID,
		"unitMeasurement": "",
		"amountSales":     amount,
		"createdAt":       bson.NewDateTimeFromTime(created),
		"customer": bson.D{
			{Key: "_id", Value: customerID},
			{Key: "contacts", Value: bson.A{bson.M{"kind": "email", "value": "a@b.c"}}},
		},
		"tags": bson.A{customerID, "x"},
	}

	out := Stringify(doc).(map[string]any)
	assert.Equal(t, dealID.Hex(), out["id"])
	_, hasRaw := out["_id"]
	assert.False(t, hasRaw)
	assert.Nil(t, out["unitMeasurement"])
	assert.Equal(t, "1500.5", out["amountSales"])
	assert.Equal(t, created, out["createdAt"])

	customer := out["customer"].(map[string]any)
	assert.Equal(t, customerID.Hex(), customer["id"])
	contacts := customer["contacts"].([]any)
	assert.Equal(t, "email", contacts[0].(map[string]any)["kind"])
	assert.Equal(t, []any{customerID.Hex(), "x"}, out["tags"])
}

func TestStringifyKeepsNonEmptyUnit(t *testing.T) {
	out := Stringify(bson.M{"unitMeasurement": "t"}).(map[string]any)
	assert.Equal(t, "t", out["unitMeasurement"])
}

func TestRelationPipelineShape(t *testing.T) {
	relations := []Relation{
		{From: "companies", LocalField: "customerId", As: "customer"},
		{From: "users", LocalField: "userId", As: "user", Unset: []string{"hashed_password"}},
	}
	pipeline, err := RelationPipeline(bson.M{"is_deleted": bson.M{"$ne": true}}, relations, shared.ListParams{Skip: 20, Limit: 10, Sort: "-createdAt"})
	require.NoError(t, err)

	// match, sort, skip, limit, 2 stages for customer, 3 for user
	require.Len(t, pipeline, 9)
	assert.Equal(t, "$match", pipeline[0].(bson.D)[0].Key)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}, pipeline[1].(bson.D)[0].Value)
	assert.Equal(t, bson.D{{Key: "$skip", Value: int64(20)}}, pipeline[2])
	assert.Equal(t, bson.D{{Key: "$limit", Value: int64(10)}}, pipeline[3])

	lookup := pipeline[4].(bson.D)[0]
	assert.Equal(t, "$lookup", lookup.Key)
	assert.Contains(t, lookup.Value.(bson.D), bson.E{Key: "from", Value: "companies"})

	unset := pipeline[8].(bson.D)[0]
	assert.Equal(t, "$unset", unset.Key)
	assert.Equal(t, bson.A{"user.hashed_password"}, unset.Value)
}

func TestRelationPipelineRejectsBadSort(t *testing.T) {
	_, err := RelationPipeline(bson.M{}, nil, shared.ListParams{Sort: "$where"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLiveAddsSoftDeleteClause(t *testing.T) {
	base := bson.M{"stageId": "x"}
	live := Live(base, false)
	assert.Equal(t, bson.M{"$ne": true}, live[FieldDeleted])
	_, mutated := base[FieldDeleted]
	assert.False(t, mutated)

	all := Live(base, true)
	_, has := all[FieldDeleted]
	assert.False(t, has)
}

func TestDecimalConversionIsExact(t *testing.T) {
	d := decimal.RequireFromString("123456789.123456789")
	v, err := ToDecimal128(d)
	require.NoError(t, err)
	back, err := FromDecimal128(v)
	require.NoError(t, err)
	assert.True(t, d.Equal(back))
}

func TestOpErrorMatchesStorageAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&OpError{Op: "find", Collection: "deals", Err: cause})
	assert.ErrorIs(t, err, shared.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, ErrDuplicateKey, shared.ErrConflict)
}
