// Package paginate slices filtered results into pages and derives the
// page-link sequence shown under the table.
package paginate

import (
	"encoding/json"
	"strconv"
)

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 5

// MaxPageSize bounds the page size callers may request.
const MaxPageSize = 100

// maxVerbatimPages is the page count up to which every page is linked.
const maxVerbatimPages = 5

// Page is one page of results.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// TotalPages returns max(1, ceil(n/size)).
func TotalPages(n, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	if n < 1 {
		return 1
	}
	return (n-1)/size + 1
}

// Paginate returns the 1-based page of items. Pages outside the range yield
// an empty slice; page numbers below 1 are treated as 1.
func Paginate[T any](items []T, size, page int) Page[T] {
	if size < 1 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		TotalPages: TotalPages(len(items), size),
		Total:      len(items),
	}

	// Compare page indexes before multiplying so huge sizes cannot overflow.
	if len(items) == 0 || page-1 > (len(items)-1)/size {
		return p
	}
	start := (page - 1) * size
	end := start + min(size, len(items)-start)
	p.Items = items[start:end:end]
	return p
}

// Clamp bounds page to [1, total] for previous/next controls.
func Clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	return max(1, min(page, total))
}

// Link is an entry in the page-link sequence: a page number or an ellipsis.
type Link struct {
	Page     int
	Ellipsis bool
}

// MarshalJSON encodes a page as {"page":n} and an ellipsis as {"ellipsis":true}.
func (l Link) MarshalJSON() ([]byte, error) {
	if l.Ellipsis {
		return json.Marshal(struct {
			Ellipsis bool `json:"ellipsis"`
		}{true})
	}
	return json.Marshal(struct {
		Page int `json:"page"`
	}{l.Page})
}

func (l Link) String() string {
	if l.Ellipsis {
		return "…"
	}
	return strconv.Itoa(l.Page)
}

// Links derives the page-link sequence for the current page:
//
//	total <= 5            1 … total, every page
//	current <= 3          1 2 3 4 … total
//	current >= total-2    1 … total-3 total-2 total-1 total
//	otherwise             1 … current-1 current current+1 … total
func Links(current, total int) []Link {
	if total < 1 {
		total = 1
	}
	if total <= maxVerbatimPages {
		out := make([]Link, 0, total)
		for p := 1; p <= total; p++ {
			out = append(out, pageLink(p))
		}
		return out
	}

	gap := Link{Ellipsis: true}
	switch {
	case current <= 3:
		return []Link{pageLink(1), pageLink(2), pageLink(3), pageLink(4), gap, pageLink(total)}
	case current >= total-2:
		return []Link{pageLink(1), gap, pageLink(total - 3), pageLink(total - 2), pageLink(total - 1), pageLink(total)}
	default:
		return []Link{pageLink(1), gap, pageLink(current - 1), pageLink(current), pageLink(current + 1), gap, pageLink(total)}
	}
}

func pageLink(p int) Link { return Link{Page: p} }
