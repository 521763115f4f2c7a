// Package finance serves the monthly financial dashboard.
package finance

import (
	"cmp"
	"slices"
	"strings"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/format"
)

// Entry kinds and tuition statuses as stored by the API.
const (
	kindIncome    = "receita"
	kindExpense   = "despesa"
	feePaid       = "pago"
	feePending    = "pendente"
	feeOverdue    = "atrasado"
	uncategorised = "Sem categoria"
)

// CategoryTotal is the expense total of one category.
type CategoryTotal struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// FeeTotals counts tuition fees of one status and sums their amounts.
type FeeTotals struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// Summary is the financial picture of one month.
type Summary struct {
	Month      string          `json:"month"`
	Income     float64         `json:"income"`
	Expenses   float64         `json:"expenses"`
	Balance    float64         `json:"balance"`
	Categories []CategoryTotal `json:"categories"`
	Paid       FeeTotals       `json:"paid"`
	Pending    FeeTotals       `json:"pending"`
	Overdue    FeeTotals       `json:"overdue"`
}

// Summarize computes the dashboard of month ("YYYY-MM") from the financial
// entries dated in it and the tuition fees referring to it. A pending fee
// whose due date is before today (ISO) counts as overdue; stored dates may
// be in ISO or dd/mm/aaaa form. Categories are ordered by amount, largest
// first, ties by name.
func Summarize(entries, fees []domain.Record, month, today string) Summary {
	s := Summary{Month: month}
	byCategory := map[string]float64{}

	for _, e := range entries {
		if !strings.HasPrefix(isoDay(e.String("data")), month) {
			continue
		}
		v, ok := e.Float("valor")
		if !ok {
			continue
		}
		switch strings.ToLower(e.String("tipo")) {
		case kindIncome:
			s.Income += v
		case kindExpense:
			s.Expenses += v
			name := strings.TrimSpace(e.String("categoria"))
			if name == "" {
				name = uncategorised
			}
			byCategory[name] += v
		}
	}
	s.Balance = s.Income - s.Expenses

	s.Categories = make([]CategoryTotal, 0, len(byCategory))
	for name, amount := range byCategory {
		s.Categories = append(s.Categories, CategoryTotal{Name: name, Amount: amount})
	}
	slices.SortFunc(s.Categories, func(a, b CategoryTotal) int {
		if c := cmp.Compare(b.Amount, a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	for _, f := range fees {
		if !strings.HasPrefix(f.String("referencia"), month) {
			continue
		}
		v, _ := f.Float("valor")
		var t *FeeTotals
		switch strings.ToLower(f.String("status")) {
		case feePaid:
			t = &s.Paid
		case feeOverdue:
			t = &s.Overdue
		case feePending:
			t = &s.Pending
			if due := isoDay(f.String("vencimento")); due != "" && today != "" && due < today {
				t = &s.Overdue
			}
		default:
			continue
		}
		t.Count++
		t.Amount += v
	}
	return s
}

// isoDay normalises a stored date in either display or ISO form to
// aaaa-mm-dd, or "" when it is not a date.
func isoDay(v string) string {
	day, err := format.ParseDateToISO(v)
	if err != nil {
		return ""
	}
	return day
}
