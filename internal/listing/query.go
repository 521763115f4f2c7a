package listing

import (
	"maps"
	"strings"
)

// DefaultPageSize is used when a list does not declare its own page size.
const DefaultPageSize = 10

// QueryState is the current search, filter and page selection of one list.
//
// Values are immutable: every With* method returns a modified copy. Changing
// the search term or any filter resets Page to 1.
type QueryState struct {
	SearchTerm    string
	ActiveFilters map[string]string
	Page          int
	PageSize      int
}

// NewQueryState returns the initial state of a list. A non-positive pageSize
// selects DefaultPageSize.
func NewQueryState(pageSize int) QueryState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return QueryState{Page: 1, PageSize: pageSize}
}

// WithSearch sets the search term. The page resets to 1 when the effective
// (trimmed) term changes.
func (q QueryState) WithSearch(term string) QueryState {
	if strings.TrimSpace(term) != strings.TrimSpace(q.SearchTerm) {
		q.Page = 1
	}
	q.SearchTerm = term
	return q
}

// WithFilter sets or, for an empty value, removes one filter. The page resets
// to 1 when the filter set changes.
func (q QueryState) WithFilter(name, value string) QueryState {
	current, ok := q.ActiveFilters[name]
	if (value == "" && !ok) || (ok && current == value) {
		return q
	}
	filters := maps.Clone(q.ActiveFilters)
	if filters == nil {
		filters = make(map[string]string)
	}
	if value == "" {
		delete(filters, name)
	} else {
		filters[name] = value
	}
	q.ActiveFilters = filters
	q.Page = 1
	return q
}

// WithFilters replaces the whole filter set, resetting the page when it differs.
func (q QueryState) WithFilters(filters map[string]string) QueryState {
	next := make(map[string]string, len(filters))
	for k, v := range filters {
		if v != "" {
			next[k] = v
		}
	}
	if !maps.Equal(next, q.ActiveFilters) {
		q.Page = 1
	}
	q.ActiveFilters = next
	return q
}

// WithPage moves to page p. Values below 1 select the first page; values past
// the last page are clamped by ComputePage.
func (q QueryState) WithPage(p int) QueryState {
	if p < 1 {
		p = 1
	}
	q.Page = p
	return q
}

// Filter returns the value of an active filter, or "".
func (q QueryState) Filter(name string) string {
	return q.ActiveFilters[name]
}
