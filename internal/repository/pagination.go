package repository

const (
	// DefaultPage is used when no page is requested.
	DefaultPage = 1
	// DefaultLimit is used when no page size is requested.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Pagination selects a 1-based page of a result set.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize fills defaults and clamps Limit to [1, MaxLimit].
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows skipped before the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of items plus totals over the whole filtered set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPage assembles a Page. p must already be normalized.
func NewPage[T any](items []T, total int64, p Pagination) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(total, p.Limit),
	}
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
