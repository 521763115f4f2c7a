package listing

import (
	"cmp"
	"strings"

	"github.com/simp-lee/escola/internal/domain"
)

// FieldEquals accepts records whose field equals the filter value, ignoring case.
func FieldEquals(field string) Predicate {
	return func(r domain.Record, value string) bool {
		v, ok := r.Text(field)
		return ok && strings.EqualFold(v, value)
	}
}

// FieldHasPrefix accepts records whose field starts with the filter value.
// Used for month filters over ISO dates ("2024-05" matches "2024-05-17").
func FieldHasPrefix(field string) Predicate {
	return func(r domain.Record, value string) bool {
		v, ok := r.Text(field)
		return ok && strings.HasPrefix(v, value)
	}
}

// BoolField accepts records whose boolean field matches "true" or "false".
func BoolField(field string) Predicate {
	return func(r domain.Record, value string) bool {
		want := strings.EqualFold(value, "true") || value == "1" || strings.EqualFold(value, "sim")
		return r.Bool(field) == want
	}
}

// ByText orders records by a text field, case-insensitively, missing values last.
func ByText(field string) Comparator {
	return func(a, b domain.Record) int {
		av, aok := a.Text(field)
		bv, bok := b.Text(field)
		if c := missingLast(aok, bok); c != 0 || !aok {
			return c
		}
		return cmp.Compare(strings.ToLower(av), strings.ToLower(bv))
	}
}

// ByNumber orders records by a numeric field, missing values last.
func ByNumber(field string) Comparator {
	return func(a, b domain.Record) int {
		av, aok := a.Float(field)
		bv, bok := b.Float(field)
		if c := missingLast(aok, bok); c != 0 || !aok {
			return c
		}
		return cmp.Compare(av, bv)
	}
}

// ByBool orders records with a false field before those with a true one.
func ByBool(field string) Comparator {
	return func(a, b domain.Record) int {
		av, bv := a.Bool(field), b.Bool(field)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	}
}

// Desc reverses a comparator. Records missing the field sort first.
func Desc(c Comparator) Comparator {
	return func(a, b domain.Record) int {
		return -c(a, b)
	}
}

// Then chains comparators: later ones break ties of earlier ones.
func Then(cs ...Comparator) Comparator {
	return func(a, b domain.Record) int {
		for _, c := range cs {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

func missingLast(aok, bok bool) int {
	switch {
	case aok == bok:
		return 0
	case aok:
		return -1
	default:
		return 1
	}
}
