package screen

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/format"
)

// FieldKind selects the input widget and the conversion applied on submit.
type FieldKind int

const (
	KindText FieldKind = iota
	KindTextArea
	KindDate
	KindMoney
	KindNumber
	KindSelect
	KindBool
	KindEmail
)

var inputs = [...]string{
	KindText:     "text",
	KindTextArea: "textarea",
	KindDate:     "date",
	KindMoney:    "money",
	KindNumber:   "number",
	KindSelect:   "select",
	KindBool:     "checkbox",
	KindEmail:    "email",
}

// Input names the widget templates render for the field.
func (fd Field) Input() string {
	if int(fd.Kind) < len(inputs) {
		return inputs[fd.Kind]
	}
	return "text"
}

const (
	reasonRequired = "campo obrigatório"
	reasonDate     = "data inválida, use dd/mm/aaaa"
	reasonNumber   = "valor numérico inválido"
	reasonFormat   = "formato inválido"
	reasonOption   = "opção inválida"
)

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field declares one form input.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	// ZeroOnInvalid submits 0 for an unparseable or empty number instead of
	// rejecting the form.
	ZeroOnInvalid bool
	Options       []Option
	// Rules are extra validator tags checked on non-empty values, e.g. "email".
	Rules string
}

// FormSpec declares the fields of an entity form in display order, which is
// also the order required fields are checked in.
type FormSpec struct {
	Entity   domain.Entity
	Fields   []Field
	Defaults map[string]string
}

// Form is a draft record held while a create or edit screen is open. Values
// are kept in display form so a failed submit re-renders what was typed.
type Form struct {
	Spec   *FormSpec
	ID     string
	Values map[string]string
	// Error is the message shown above the form after a failed submit.
	Error string
	// Warning is set instead of Error for conflicts.
	Warning bool
	// Invalid names the field that stopped the submit.
	Invalid string
}

var validate = validator.New()

// NewForm returns a create form seeded with the spec defaults.
func NewForm(spec *FormSpec) *Form {
	values := make(map[string]string, len(spec.Fields))
	for k, v := range spec.Defaults {
		values[k] = v
	}
	return &Form{Spec: spec, Values: values}
}

// EditForm returns an edit form seeded with rec in display form.
func EditForm(spec *FormSpec, rec domain.Record) *Form {
	f := &Form{Spec: spec, ID: rec.ID(), Values: make(map[string]string, len(spec.Fields))}
	for _, fd := range spec.Fields {
		v, ok := rec[fd.Name]
		if !ok || v == nil {
			continue
		}
		f.Values[fd.Name] = displayValue(fd, rec)
	}
	return f
}

func displayValue(fd Field, rec domain.Record) string {
	switch fd.Kind {
	case KindDate:
		return format.DateInput(rec.String(fd.Name))
	case KindMoney:
		if n, ok := rec.Float(fd.Name); ok {
			return format.Amount(n)
		}
	case KindBool:
		return strconv.FormatBool(rec.Bool(fd.Name))
	}
	return rec.String(fd.Name)
}

// IsEdit reports whether the form edits an existing record.
func (f *Form) IsEdit() bool {
	return f.ID != ""
}

// Value returns the display value of a field.
func (f *Form) Value(name string) string {
	return f.Values[name]
}

// Bind copies the declared fields from a submitted form. Checkboxes that are
// absent from the submission are unchecked.
func (f *Form) Bind(values url.Values) {
	for _, fd := range f.Spec.Fields {
		if fd.Kind == KindBool {
			f.Values[fd.Name] = strconv.FormatBool(values.Has(fd.Name) && values.Get(fd.Name) != "false")
			continue
		}
		if values.Has(fd.Name) {
			f.Values[fd.Name] = values.Get(fd.Name)
		}
	}
}

// Validate checks required fields in declared order and stops at the first
// one missing.
func (f *Form) Validate() error {
	for _, fd := range f.Spec.Fields {
		if !fd.Required || fd.Kind == KindBool {
			continue
		}
		if err := validate.Var(strings.TrimSpace(f.Values[fd.Name]), "required"); err != nil {
			return f.fail(fd, reasonRequired)
		}
	}
	return nil
}

// Payload converts the draft into the Gateway's shape: dates to ISO, money
// and numbers to float64. It stops at the first field that cannot be
// converted. Empty optional fields are left out.
func (f *Form) Payload() (domain.Record, error) {
	out := domain.Record{}
	for _, fd := range f.Spec.Fields {
		raw := strings.TrimSpace(f.Values[fd.Name])
		switch fd.Kind {
		case KindBool:
			out[fd.Name] = raw == "true"
			continue
		case KindMoney, KindNumber:
			if raw == "" && !fd.ZeroOnInvalid {
				continue
			}
			n, err := format.ParseAmount(raw)
			if err != nil {
				if !fd.ZeroOnInvalid {
					return nil, f.fail(fd, reasonNumber)
				}
				n = 0
			}
			out[fd.Name] = n
			continue
		}

		if raw == "" {
			continue
		}
		switch fd.Kind {
		case KindDate:
			iso, err := format.ParseDateToISO(raw)
			if err != nil {
				return nil, f.fail(fd, reasonDate)
			}
			out[fd.Name] = iso
		case KindEmail:
			if err := validate.Var(raw, "email"); err != nil {
				return nil, f.fail(fd, reasonFormat)
			}
			out[fd.Name] = raw
		case KindSelect:
			if len(fd.Options) > 0 && !hasOption(fd.Options, raw) {
				return nil, f.fail(fd, reasonOption)
			}
			out[fd.Name] = raw
		default:
			if fd.Rules != "" {
				if err := validate.Var(raw, fd.Rules); err != nil {
					return nil, f.fail(fd, reasonFormat)
				}
			}
			out[fd.Name] = raw
		}
	}
	return out, nil
}

// Submit validates, converts and sends the draft. On failure the draft is
// kept, Error is set from the Gateway message (or a generic one) and the
// error is returned. Conflicts set Warning.
func (f *Form) Submit(ctx context.Context, gw domain.Gateway) (domain.Record, error) {
	f.Error, f.Warning, f.Invalid = "", false, ""
	if err := f.Validate(); err != nil {
		return nil, err
	}
	payload, err := f.Payload()
	if err != nil {
		return nil, err
	}

	var saved domain.Record
	if f.IsEdit() {
		saved, err = gw.Update(ctx, f.Spec.Entity, f.ID, payload)
	} else {
		saved, err = gw.Create(ctx, f.Spec.Entity, payload)
	}
	if err != nil {
		f.Error = domain.UserMessage(err, "não foi possível salvar, tente novamente")
		f.Warning = domain.IsConflict(err)
		return nil, err
	}

	result := mergeSaved(payload, saved)
	if f.IsEdit() && result.ID() == "" {
		result["id"] = f.ID
	}
	return result, nil
}

func (f *Form) fail(fd Field, reason string) error {
	fe := &domain.FieldError{Field: fd.Name, Label: fd.Label, Reason: reason}
	f.Error = fe.Message()
	f.Invalid = fd.Name
	return fe
}

func hasOption(opts []Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

// IsFieldError reports whether err stopped a submit before the Gateway call.
func IsFieldError(err error) bool {
	var fe *domain.FieldError
	return errors.As(err, &fe)
}
