package users

import (
	"strconv"
)

// DefaultPerPage is the page size used when perpage is absent or zero.
const DefaultPerPage = 30

// PageQuery is a parsed 1-based pagination request.
type PageQuery struct {
	Page    int
	PerPage int
}

// ParsePageQuery reads raw page/perpage query values. Absent values default
// to zero (meaning "use defaults"); non-integer values are the caller's
// fault and are rejected, never coerced.
func ParsePageQuery(page, perpage string) (PageQuery, error) {
	q := PageQuery{}

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			return PageQuery{}, ErrInvalidPageQuery.Clone().WithMetadata(map[string]any{
				"page": page,
			})
		}
		q.Page = n
	}

	if perpage != "" {
		n, err := strconv.Atoi(perpage)
		if err != nil {
			return PageQuery{}, ErrInvalidPageQuery.Clone().WithMetadata(map[string]any{
				"perpage": perpage,
			})
		}
		q.PerPage = n
	}

	return q, nil
}

// Take is the page size: perpage, or DefaultPerPage when absent or zero.
func (q PageQuery) Take() int {
	if q.PerPage <= 0 {
		return DefaultPerPage
	}
	return q.PerPage
}

// Skip converts the 1-based page into an offset. Page zero and page one
// both start at the first record.
func (q PageQuery) Skip() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.Take()
}

// CurrentPage normalizes the page number for response metadata.
func (q PageQuery) CurrentPage() int {
	if q.Page <= 0 {
		return 1
	}
	return q.Page
}

// Pages is the total page count for the given record total.
func (q PageQuery) Pages(total int) int {
	take := q.Take()
	return (total + take - 1) / take
}

// PageMeta is the pagination envelope returned by list endpoints.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	Pages       int `json:"pages"`
	PerPage     int `json:"perpage"`
}

// Meta builds the response metadata for a list of total records.
func (q PageQuery) Meta(total int) PageMeta {
	return PageMeta{
		CurrentPage: q.CurrentPage(),
		Pages:       q.Pages(total),
		PerPage:     q.Take(),
	}
}
