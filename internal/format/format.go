// Package format converts amounts and dates between the API's canonical
// representation and the pt-BR display form used on every screen.
package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	isoDate     = "2006-01-02"
	displayDate = "02/01/2006"
	isoMonth    = "2006-01"
)

var (
	// ErrInvalidAmount is returned when a money or number field cannot be parsed.
	ErrInvalidAmount = errors.New("valor inválido")
	// ErrInvalidDate is returned when a date field is not dd/mm/aaaa or ISO.
	ErrInvalidDate = errors.New("data inválida")
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// Currency renders an amount as Brazilian reais, e.g. "R$ 1.234,56".
func Currency(v float64) string {
	digits, negative := amount(v)
	if negative {
		return "-R$ " + digits
	}
	return "R$ " + digits
}

// Amount renders a number with two decimals and pt-BR separators, e.g.
// "1.234,56", for form inputs.
func Amount(v float64) string {
	digits, negative := amount(v)
	if negative {
		return "-" + digits
	}
	return digits
}

func amount(v float64) (string, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0,00", false
	}
	cents := int64(math.Round(math.Abs(v) * 100))
	return groupThousands(cents/100) + "," + fmt.Sprintf("%02d", cents%100), v < 0 && cents != 0
}

// CurrencyOf renders a record value that may be a number or a numeric string.
// Values that are not numbers are returned as text.
func CurrencyOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return Currency(t)
	case int:
		return Currency(float64(t))
	case string:
		if f, err := ParseAmount(t); err == nil {
			return Currency(f)
		}
		return t
	default:
		return fmt.Sprint(t)
	}
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// ParseAmount parses a localized amount. Accepted forms: "1.234,56",
// "1234,56", "R$ 1.234,56", "1234.56" and plain integers.
func ParseAmount(s string) (float64, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "R$"))
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, ErrInvalidAmount
	}

	switch {
	case strings.Contains(raw, ","):
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	case strings.Count(raw, ".") > 1:
		raw = strings.ReplaceAll(raw, ".", "")
	case strings.Contains(raw, "."):
		// A single dot followed by exactly three digits is a thousands separator.
		if i := strings.IndexByte(raw, '.'); len(raw)-i-1 == 3 {
			raw = raw[:i] + raw[i+1:]
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// Date renders an ISO date or RFC 3339 timestamp as dd/mm/aaaa. Empty input
// yields "", unparseable input is returned unchanged.
func Date(iso string) string {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return ""
	}
	if t, ok := parseISO(iso); ok {
		return t.Format(displayDate)
	}
	return iso
}

// ParseDateToISO converts dd/mm/aaaa to aaaa-mm-dd. ISO input passes through
// after validation.
func ParseDateToISO(display string) (string, error) {
	s := strings.TrimSpace(display)
	if s == "" {
		return "", ErrInvalidDate
	}
	if t, err := time.Parse(displayDate, s); err == nil {
		return t.Format(isoDate), nil
	}
	if t, ok := parseISO(s); ok {
		return t.Format(isoDate), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, display)
}

// DateInput renders a stored date for an <input> in display form, leaving
// already-formatted values alone.
func DateInput(v string) string {
	if _, err := time.Parse(displayDate, strings.TrimSpace(v)); err == nil {
		return strings.TrimSpace(v)
	}
	return Date(v)
}

func parseISO(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(isoDate, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Month renders "2024-05" (or any ISO date in that month) as "maio/2024".
func Month(ym string) string {
	ym = strings.TrimSpace(ym)
	if len(ym) < len(isoMonth) {
		return ym
	}
	t, err := time.Parse(isoMonth, ym[:len(isoMonth)])
	if err != nil {
		return ym
	}
	return MonthOf(t)
}

// MonthOf renders t's month as "maio/2024".
func MonthOf(t time.Time) string {
	return monthNames[t.Month()-1] + "/" + strconv.Itoa(t.Year())
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(ym string) (time.Time, error) {
	t, err := time.Parse(isoMonth, strings.TrimSpace(ym))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, ym)
	}
	return t, nil
}
