package shared

import (
	"regexp"
	"strings"
)

// ListParams describes a skip/limit window over a collection.
type ListParams struct {
	Skip           int
	Limit          int
	Sort           string
	IncludeDeleted bool
}

var sortFieldPattern = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_.]*$`)

// Normalize applies defaults and clamps to the window.
func (p ListParams) Normalize() ListParams {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// SortKey is one field of a sort specification.
type SortKey struct {
	Field string
	Desc  bool
}

// SortKeys parses "field,-other" into sort keys. Invalid fields are rejected.
func (p ListParams) SortKeys() ([]SortKey, error) {
	if strings.TrimSpace(p.Sort) == "" {
		return nil, nil
	}
	var keys []SortKey
	for _, part := range strings.Split(p.Sort, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !sortFieldPattern.MatchString(part) {
			return nil, NewError(ErrValidation, "invalid sort field "+part)
		}
		if strings.HasPrefix(part, "-") {
			keys = append(keys, SortKey{Field: part[1:], Desc: true})
			continue
		}
		keys = append(keys, SortKey{Field: part})
	}
	return keys, nil
}
