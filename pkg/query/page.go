package query

import (
	"strings"
)

// PageSpec holds the resolved bounds for one page of results. It is derived
// per request and never persisted.
type PageSpec struct {
	Page   int   `json:"page"`
	Size   int   `json:"size"`
	Offset int   `json:"-"`
	Total  int64 `json:"total"`
}

// Pages returns the number of pages the total spans at the resolved size.
func (p PageSpec) Pages() int {
	if p.Size <= 0 {
		return 0
	}
	pages := int(p.Total) / p.Size
	if int(p.Total)%p.Size != 0 {
		pages++
	}
	return pages
}

// ResolvePage computes page bounds. The effective size is the requested size
// (or defaultSize when absent) clamped to the total count, so the limit
// never exceeds available rows. Callers validate requestedPage >= 1 before
// calling; a smaller value is treated as page 1.
func ResolvePage(requestedPage, requestedSize int, total int64, defaultSize int) PageSpec {
	if requestedPage < 1 {
		requestedPage = 1
	}
	size := requestedSize
	if size <= 0 {
		size = defaultSize
	}
	if int64(size) > total {
		size = int(total)
	}
	return PageSpec{
		Page:   requestedPage,
		Size:   size,
		Offset: (requestedPage - 1) * size,
		Total:  total,
	}
}

// Sort is a resolved sort field and direction.
type Sort struct {
	Field     string
	Direction string
}

// ResolveSort resolves the requested sort, defaulting to id descending.
// Direction is restricted to asc/desc; anything unrecognized falls back to
// desc. When an allow-list is given, unknown fields fall back to id.
func ResolveSort(field, direction string, allowed ...string) Sort {
	if field == "" {
		field = "id"
	}
	if len(allowed) > 0 {
		ok := false
		for _, a := range allowed {
			if a == field {
				ok = true
				break
			}
		}
		if !ok {
			field = "id"
		}
	}
	direction = strings.ToLower(direction)
	if direction != "asc" && direction != "desc" {
		direction = "desc"
	}
	return Sort{Field: field, Direction: direction}
}
