package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultPageSize is the number of rows per page when a query does not set one
const DefaultPageSize = 10

// Query selects, orders and pages catalog rows
type Query struct {
	Sort string `json:"sort,omitempty"`
	Desc bool   `json:"desc,omitempty"`

	// Filter maps a field to a case-insensitive substring. Numeric fields also
	// accept a comparison such as ">40" or "<=18.5".
	Filter map[string]string `json:"filter,omitempty"`

	Page     int `json:"page,omitempty"` // 1-based
	PageSize int `json:"page_size,omitempty"`
}

// Page is one page of query results
type Page struct {
	Rows     []Component `json:"rows"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	Pages    int         `json:"pages"`
	PageSize int         `json:"page_size"`
}

type predicate func(Component) bool

func compile(field, expr string) (predicate, error) {
	if _, _, ok := (Component{}).value(field); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	expr = strings.TrimSpace(expr)

	if numericField(field) {
		for _, op := range []string{">=", "<=", ">", "<", "="} {
			if !strings.HasPrefix(expr, op) {
				continue
			}
			limit, err := strconv.ParseFloat(strings.TrimSpace(expr[len(op):]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q for %s", ErrInvalidFilter, expr, field)
			}
			return func(c Component) bool {
				_, v, _ := c.value(field)
				switch op {
				case ">=":
					return v >= limit
				case "<=":
					return v <= limit
				case ">":
					return v > limit
				case "<":
					return v < limit
				}
				return v == limit
			}, nil
		}
	}

	needle := strings.ToLower(expr)
	return func(c Component) bool {
		s, _, _ := c.value(field)
		return strings.Contains(strings.ToLower(s), needle)
	}, nil
}

// Query filters, sorts and pages the catalog. Pages past the end are clamped to the last page.
func (c *Catalog) Query(q Query) (Page, error) {
	var preds []predicate
	for field, expr := range q.Filter {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		p, err := compile(field, expr)
		if err != nil {
			return Page{}, err
		}
		preds = append(preds, p)
	}

	if q.Sort != "" {
		if _, _, ok := (Component{}).value(q.Sort); !ok {
			return Page{}, fmt.Errorf("%w: %q", ErrUnknownField, q.Sort)
		}
	}

	rows := make([]Component, 0, c.Len())
	for _, row := range c.All() {
		keep := true
		for _, p := range preds {
			if !p(row) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, row)
		}
	}

	if q.Sort != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			a, b := rows[i], rows[j]
			if q.Desc {
				a, b = b, a
			}
			return less(a, b, q.Sort)
		})
	}

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (len(rows) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := min(start+size, len(rows))

	return Page{
		Rows:     rows[start:end],
		Total:    len(rows),
		Page:     page,
		Pages:    pages,
		PageSize: size,
	}, nil
}

func less(a, b Component, field string) bool {
	sa, na, _ := a.value(field)
	sb, nb, _ := b.value(field)
	if numericField(field) {
		return na < nb
	}
	return strings.ToLower(sa) < strings.ToLower(sb)
}
