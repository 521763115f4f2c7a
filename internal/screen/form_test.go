package screen

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/simp-lee/escola/internal/domain"
)

func entrySpec() *FormSpec {
	return &FormSpec{
		Entity: domain.EntityFinancialEntries,
		Fields: []Field{
			{Name: "descricao", Label: "Descrição", Kind: KindText, Required: true},
			{Name: "valor", Label: "Valor", Kind: KindMoney, Required: true},
			{Name: "data", Label: "Data", Kind: KindDate, Required: true},
			{Name: "tipo", Label: "Tipo", Kind: KindSelect, Required: true, Options: []Option{
				{Value: "receita", Label: "Receita"}, {Value: "despesa", Label: "Despesa"},
			}},
			{Name: "desconto", Label: "Desconto", Kind: KindNumber, ZeroOnInvalid: true},
			{Name: "parcelas", Label: "Parcelas", Kind: KindNumber},
			{Name: "pago", Label: "Pago", Kind: KindBool},
		},
		Defaults: map[string]string{"tipo": "receita"},
	}
}

func filled(spec *FormSpec, overrides map[string]string) *Form {
	f := NewForm(spec)
	vals := url.Values{
		"descricao": {"Material"},
		"valor":     {"1.234,56"},
		"data":      {"17/05/2024"},
		"tipo":      {"despesa"},
	}
	for k, v := range overrides {
		vals.Set(k, v)
	}
	f.Bind(vals)
	return f
}

func TestForm_NewSeedsDefaults(t *testing.T) {
	spec := entrySpec()
	f := NewForm(spec)
	if f.IsEdit() || f.Value("tipo") != "receita" {
		t.Errorf("NewForm() = %+v", f)
	}
	f.Values["tipo"] = "despesa"
	if spec.Defaults["tipo"] != "receita" {
		t.Error("editing a draft must not change the defaults")
	}
}

func TestForm_EditForm(t *testing.T) {
	f := EditForm(entrySpec(), domain.Record{
		"id": float64(7), "descricao": "Luz", "valor": 89.9, "data": "2024-05-02", "pago": true,
	})
	if !f.IsEdit() || f.ID != "7" {
		t.Fatalf("ID = %q", f.ID)
	}
	want := map[string]string{"valor": "89,90", "data": "02/05/2024", "pago": "true", "descricao": "Luz"}
	for k, v := range want {
		if got := f.Value(k); got != v {
			t.Errorf("Value(%q) = %q; want %q", k, got, v)
		}
	}
}

func TestForm_ValidateOrder(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantField string
	}{
		{"all present", nil, ""},
		{"first missing wins", map[string]string{"descricao": " ", "data": ""}, "descricao"},
		{"later missing", map[string]string{"data": ""}, "data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := filled(entrySpec(), tt.overrides)
			err := f.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var fe *domain.FieldError
			if !errors.As(err, &fe) || fe.Field != tt.wantField {
				t.Fatalf("Validate() = %v; want field %q", err, tt.wantField)
			}
			if f.Invalid != tt.wantField || f.Error == "" {
				t.Errorf("form not marked: invalid=%q error=%q", f.Invalid, f.Error)
			}
			if !domain.IsValidation(err) {
				t.Error("field errors are validation errors")
			}
		})
	}
}

func TestForm_Payload(t *testing.T) {
	f := filled(entrySpec(), map[string]string{"desconto": "abc"})
	got, err := f.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if got["valor"] != 1234.56 || got["data"] != "2024-05-17" || got["tipo"] != "despesa" {
		t.Errorf("Payload() = %v", got)
	}
	if got["desconto"] != float64(0) {
		t.Errorf("desconto = %v; want 0 for an opted-in field", got["desconto"])
	}
	if _, ok := got["parcelas"]; ok {
		t.Error("empty optional number should be omitted")
	}
	if got["pago"] != false {
		t.Errorf("pago = %v; want false when unchecked", got["pago"])
	}
}

func TestForm_PayloadRejects(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		field     string
	}{
		{"bad money", map[string]string{"valor": "doze"}, "valor"},
		{"bad date", map[string]string{"data": "31/02/2024"}, "data"},
		{"unknown option", map[string]string{"tipo": "outro"}, "tipo"},
		{"bad number without opt-in", map[string]string{"parcelas": "três"}, "parcelas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := filled(entrySpec(), tt.overrides).Payload()
			var fe *domain.FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Fatalf("Payload() = %v; want field %q", err, tt.field)
			}
		})
	}
}

func TestForm_Submit(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		gw := newFakeGateway(domain.EntityFinancialEntries)
		f := filled(entrySpec(), nil)
		saved, err := f.Submit(context.Background(), gw)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if saved.ID() != "101" || saved["valor"] != 1234.56 {
			t.Errorf("saved = %v", saved)
		}
	})

	t.Run("validation stops before the gateway", func(t *testing.T) {
		gw := newFakeGateway(domain.EntityFinancialEntries)
		f := filled(entrySpec(), map[string]string{"valor": ""})
		if _, err := f.Submit(context.Background(), gw); !IsFieldError(err) {
			t.Fatalf("err = %v", err)
		}
		if gw.callCount("create") != 0 {
			t.Error("gateway must not be called")
		}
	})

	t.Run("update keeps id", func(t *testing.T) {
		gw := newFakeGateway(domain.EntityFinancialEntries)
		f := EditForm(entrySpec(), domain.Record{"id": "9", "descricao": "Luz", "valor": 10.0, "data": "2024-05-02", "tipo": "despesa"})
		saved, err := f.Submit(context.Background(), gw)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if saved.ID() != "9" || gw.callCount("update") != 1 {
			t.Errorf("saved = %v", saved)
		}
	})

	t.Run("conflict is a warning", func(t *testing.T) {
		gw := newFakeGateway(domain.EntityTuition)
		gw.createErr = domain.NewAppError(domain.CodeConflict, "mensalidade já paga", nil)
		f := filled(entrySpec(), nil)
		if _, err := f.Submit(context.Background(), gw); !domain.IsConflict(err) {
			t.Fatalf("err = %v", err)
		}
		if !f.Warning || f.Error != "mensalidade já paga" {
			t.Errorf("warning=%v error=%q", f.Warning, f.Error)
		}
		if f.Value("descricao") != "Material" {
			t.Error("draft must be kept after a failure")
		}
	})

	t.Run("internal error uses generic message", func(t *testing.T) {
		gw := newFakeGateway(domain.EntityFinancialEntries)
		gw.createErr = domain.NewAppError(domain.CodeInternal, "pq: syntax error", nil)
		f := filled(entrySpec(), nil)
		if _, err := f.Submit(context.Background(), gw); err == nil {
			t.Fatal("Submit() should fail")
		}
		if f.Warning || f.Error != "não foi possível salvar, tente novamente" {
			t.Errorf("warning=%v error=%q", f.Warning, f.Error)
		}
	})
}

func TestField_Input(t *testing.T) {
	tests := []struct {
		kind FieldKind
		want string
	}{
		{KindText, "text"},
		{KindTextArea, "textarea"},
		{KindMoney, "money"},
		{KindBool, "checkbox"},
		{FieldKind(99), "text"},
	}
	for _, tt := range tests {
		if got := (Field{Kind: tt.kind}).Input(); got != tt.want {
			t.Errorf("Input(%d) = %q; want %q", tt.kind, got, tt.want)
		}
	}
}
