// Package dashboard holds the client-side table logic shared by every list
// view: free-text search, field filters, sorting, pagination, CSV export and
// chart aggregation over already-fetched records.
package dashboard

import (
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Query is a parsed table request.
type Query struct {
	Search  string     `json:"search,omitempty"`
	Filters url.Values `json:"filters,omitempty"`
	SortBy  string     `json:"sortBy,omitempty"`
	Desc    bool       `json:"desc,omitempty"`
	Page    int        `json:"page"`
	Limit   int        `json:"limit"`
}

// Result is one page of filtered, sorted records.
type Result[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

var reservedParams = map[string]bool{"q": true, "sort": true, "order": true, "page": true, "limit": true, "fields": true, "by": true, "sum": true}

// ParseQuery reads q, sort, order, page and limit; every other parameter is
// a field filter. A "__exact" suffix on a filter key asks for a
// case-insensitive equality match instead of a substring match.
func ParseQuery(values url.Values, defaultLimit int) Query {
	q := Query{
		Search:  strings.TrimSpace(values.Get("q")),
		SortBy:  values.Get("sort"),
		Desc:    strings.EqualFold(values.Get("order"), "desc"),
		Page:    atoiDefault(values.Get("page"), 1),
		Limit:   atoiDefault(values.Get("limit"), defaultLimit),
		Filters: url.Values{},
	}
	for key, vals := range values {
		if !reservedParams[key] {
			q.Filters[key] = vals
		}
	}
	return q
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Apply filters, sorts and paginates items.
func Apply[T any](items []T, q Query) Result[T] {
	filtered := Filter(items, q)
	Sort(filtered, q.SortBy, q.Desc)
	return Paginate(filtered, q.Page, q.Limit)
}

// Filter keeps items matching the free-text search (any string field) and
// every field filter.
func Filter[T any](items []T, q Query) []T {
	out := make([]T, 0, len(items))
	needle := strings.ToLower(q.Search)
	for _, item := range items {
		v := reflect.ValueOf(item)
		if needle != "" && !matchesSearch(v, needle) {
			continue
		}
		if !matchesFilters(v, q.Filters) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesSearch(v reflect.Value, needle string) bool {
	for _, s := range stringFields(v) {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(v reflect.Value, filters url.Values) bool {
	for key, wanted := range filters {
		field := key
		exact := false
		if strings.HasSuffix(field, "__exact") {
			exact = true
			field = strings.TrimSuffix(field, "__exact")
		}
		fv, ok := lookup(v, field)
		if !ok {
			continue
		}
		got := strings.ToLower(format(fv))
		matched := false
		for _, w := range wanted {
			w = strings.ToLower(w)
			if (exact && got == w) || (!exact && strings.Contains(got, w)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Sort orders items in place by a json field path. Numbers compare
// numerically, everything else case-insensitively. The sort is stable and
// unknown fields leave the order untouched.
func Sort[T any](items []T, field string, desc bool) {
	if field == "" || len(items) < 2 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, okA := lookup(reflect.ValueOf(items[i]), field)
		b, okB := lookup(reflect.ValueOf(items[j]), field)
		if !okA || !okB {
			return false
		}
		cmp := compare(a, b)
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compare(a, b reflect.Value) int {
	if na, ok := numeric(a); ok {
		if nb, ok := numeric(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(format(a)), strings.ToLower(format(b)))
}

// Paginate slices items into 1-based pages. A page past the end is empty.
func Paginate[T any](items []T, page, limit int) Result[T] {
	if limit < 1 {
		limit = len(items)
		if limit == 0 {
			limit = 1
		}
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	res := Result[T]{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		Items:      []T{},
	}
	start := (page - 1) * limit
	if start >= total {
		return res
	}
	end := start + limit
	if end > total {
		end = total
	}
	res.Items = append(res.Items, items[start:end]...)
	return res
}
