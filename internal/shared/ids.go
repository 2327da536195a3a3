package shared

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ParseID validates a 24-hex document identifier coming from an API caller.
func ParseID(raw string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return bson.NilObjectID, NewError(ErrValidation, fmt.Sprintf("invalid identifier %q", raw))
	}
	return id, nil
}

// ValidID reports whether raw is a well-formed document identifier.
func ValidID(raw string) bool {
	_, err := bson.ObjectIDFromHex(strings.TrimSpace(raw))
	return err == nil
}

// CanonicalID returns the lower-case hex form of a well-formed identifier
// and the trimmed input otherwise.
func CanonicalID(raw string) string {
	id, err := bson.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return id.Hex()
}

// OptionalID parses an identifier that may be empty.
func OptionalID(raw string) (*bson.ObjectID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := ParseID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// HexOrEmpty renders an optional identifier.
func HexOrEmpty(id *bson.ObjectID) string {
	if id == nil || id.IsZero() {
		return ""
	}
	return id.Hex()
}
