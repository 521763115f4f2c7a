package pkg

import (
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/simp-lee/escola/internal/listing"
)

// Query parameter names shared by list screens and the list API.
const (
	SearchParam = "q"
	PageParam   = "page"
)

// ApplyListQuery folds request parameters into the current query state.
//
// Only parameters that are present change the state, so a request carrying
// just page=3 keeps the search and filters. Filter parameters are limited to
// the names in filters. An explicit page is honored only when the search and
// filters are unchanged; otherwise the reset to page 1 wins.
func ApplyListQuery(q listing.QueryState, values url.Values, filters []string) listing.QueryState {
	next := q
	if values.Has(SearchParam) {
		next = next.WithSearch(values.Get(SearchParam))
	}
	for _, name := range filters {
		if values.Has(name) {
			next = next.WithFilter(name, strings.TrimSpace(values.Get(name)))
		}
	}

	if !values.Has(PageParam) {
		return next
	}
	changed := strings.TrimSpace(next.SearchTerm) != strings.TrimSpace(q.SearchTerm) ||
		!maps.Equal(next.ActiveFilters, q.ActiveFilters)
	if changed {
		return next
	}
	if p, err := strconv.Atoi(values.Get(PageParam)); err == nil {
		next = next.WithPage(p)
	}
	return next
}
