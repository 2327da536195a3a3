package docstore

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/text/cases"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// UniqueOptions tunes IsUnique. The zero value compares case-insensitively,
// ignores surrounding whitespace and only considers live documents.
type UniqueOptions struct {
	ExcludeID      string
	CaseSensitive  bool
	PreserveSpaces bool
	IncludeDeleted bool
}

// UniqueFilter builds the query IsUnique runs: an anchored, escaped regular
// expression on field plus the exclusion and soft-delete clauses.
func UniqueFilter(field, value string, opts UniqueOptions) (bson.M, error) {
	pattern := "^" + regexp.QuoteMeta(value) + "$"
	if !opts.PreserveSpaces {
		pattern = `^\s*` + regexp.QuoteMeta(strings.TrimSpace(value)) + `\s*$`
	}
	regexOpts := "i"
	if opts.CaseSensitive {
		regexOpts = ""
	}
	filter := bson.M{field: bson.Regex{Pattern: pattern, Options: regexOpts}}
	if opts.ExcludeID != "" {
		oid, err := shared.ParseID(opts.ExcludeID)
		if err != nil {
			return nil, err
		}
		filter[FieldID] = bson.M{"$ne": oid}
	}
	if !opts.IncludeDeleted {
		filter[FieldDeleted] = bson.M{"$ne": true}
	}
	return filter, nil
}

// IsUnique reports whether no other document holds value in field.
//
// The check is advisory: a concurrent insert can land between the check and
// the caller's write. Collections that need a hard guarantee also carry a
// unique index on a NormalizeKey-derived field.
func (c *Collection[T]) IsUnique(ctx context.Context, field, value string, opts UniqueOptions) (bool, error) {
	filter, err := UniqueFilter(field, value, opts)
	if err != nil {
		return false, err
	}
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, c.fail("is_unique", err)
	}
	return n == 0, nil
}

// NormalizeKey folds case and trims whitespace, producing the value stored in
// uniqueness key fields.
func NormalizeKey(value string) string {
	return cases.Fold().String(strings.TrimSpace(value))
}
