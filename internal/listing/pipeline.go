// Package listing derives the visible page of a record collection from a
// search term, a set of filters, an ordering and a page position.
package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/simp-lee/pagination"

	"github.com/simp-lee/escola/internal/domain"
)

// pagesInRange is the width of the page-number window shown in navigation.
const pagesInRange = 5

// ErrInvalidPageSize is returned by ComputePage when PageSize < 1.
var ErrInvalidPageSize = errors.New("listing: page size must be at least 1")

// Predicate reports whether a record satisfies a filter with the given value.
type Predicate func(r domain.Record, value string) bool

// Comparator orders two records: negative when a sorts first, zero when tied.
type Comparator func(a, b domain.Record) int

// Matchers configures how a particular list searches, filters and sorts.
type Matchers struct {
	SearchFields     []string
	FilterPredicates map[string]Predicate
	SortComparator   Comparator
}

// PageResult is the computed visible slice plus pagination metadata.
type PageResult struct {
	Items       []domain.Record `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalPages  int             `json:"total_pages"`
	CurrentPage int             `json:"current_page"`
	PageSize    int             `json:"page_size"`
	// Pages is the window of page numbers around CurrentPage.
	Pages []int `json:"pages"`
}

// HasPrev reports whether a previous page exists.
func (p PageResult) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (p PageResult) HasNext() bool { return p.CurrentPage < p.TotalPages }

// ComputePage returns the page of records selected by q.
//
// Records are kept when any search field contains the trimmed search term
// (case-insensitive) and every active filter with a known predicate accepts
// them. Filters without a predicate are ignored. Sorting is stable. The
// input slice is never modified.
func ComputePage(records []domain.Record, q QueryState, m Matchers) (PageResult, error) {
	term := strings.ToLower(strings.TrimSpace(q.SearchTerm))
	filtered := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if term != "" && !matchesSearch(r, m.SearchFields, term) {
			continue
		}
		if !matchesFilters(r, q.ActiveFilters, m.FilterPredicates) {
			continue
		}
		filtered = append(filtered, r)
	}

	if m.SortComparator != nil {
		slices.SortStableFunc(filtered, m.SortComparator)
	}

	p := pagination.NewPaginator[domain.Record](
		pagination.WithItemsPerPage[domain.Record](q.PageSize),
		pagination.WithPagesInRange[domain.Record](pagesInRange),
		pagination.WithKnownTotal[domain.Record](int64(len(filtered))),
		pagination.WithSliceCallback(func(_ context.Context, offset, limit int) ([]domain.Record, error) {
			end := min(offset+limit, len(filtered))
			return slices.Clip(filtered[min(offset, end):end]), nil
		}),
	)
	page, err := p.Paginate(context.Background(), max(q.Page, 1))
	if errors.Is(err, pagination.ErrInvalidConfig) {
		return PageResult{}, fmt.Errorf("%w: got %d", ErrInvalidPageSize, q.PageSize)
	} else if err != nil {
		return PageResult{}, err
	}

	return PageResult{
		Items:       page.Items,
		TotalItems:  int(page.TotalItems),
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		PageSize:    page.ItemsPerPage,
		Pages:       page.Pages,
	}, nil
}

func matchesSearch(r domain.Record, fields []string, term string) bool {
	for _, f := range fields {
		v, ok := r.Text(f)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func matchesFilters(r domain.Record, active map[string]string, predicates map[string]Predicate) bool {
	for name, value := range active {
		pred, ok := predicates[name]
		if !ok {
			continue
		}
		if !pred(r, value) {
			return false
		}
	}
	return true
}
