package shared

import "math"

// DefaultPageSize is used when a listing does not specify a limit.
const DefaultPageSize = 100

// MaxPageSize caps the limit accepted from API callers.
const MaxPageSize = 500

// Page is one window of a listing together with its pagination metadata.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPage computes pagination metadata for a skip/limit window.
// A non-positive limit means "everything on one page".
func NewPage[T any](items []T, total int64, skip, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	if skip < 0 {
		skip = 0
	}
	page := Page[T]{Items: items, Total: total, PageSize: limit}
	if limit <= 0 {
		page.Page = 1
		page.TotalPages = 1
		page.PageSize = len(items)
		return page
	}
	page.Page = skip/limit + 1
	page.TotalPages = int(math.Ceil(float64(total) / float64(limit)))
	page.HasNext = page.Page < page.TotalPages
	page.HasPrev = page.Page > 1
	return page
}

// Map converts the items of a page, keeping its metadata.
func Map[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := make([]R, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return Page[R]{
		Items:      out,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}
}

// MapErr is Map for conversions that can fail.
func MapErr[T, R any](p Page[T], fn func(T) (R, error)) (Page[R], error) {
	out := make([]R, 0, len(p.Items))
	for _, item := range p.Items {
		r, err := fn(item)
		if err != nil {
			return Page[R]{}, err
		}
		out = append(out, r)
	}
	return Page[R]{
		Items:      out,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
		HasPrev:    p.HasPrev,
	}, nil
}
