package records

import (
	"strconv"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/format"
	"github.com/simp-lee/escola/internal/listing"
	"github.com/simp-lee/escola/internal/screen"
)

// ColumnKind selects how a list cell is displayed.
type ColumnKind int

const (
	ColText ColumnKind = iota
	ColMoney
	ColDate
	ColMonth
	ColBool
	ColBadge
)

// Column is one column of a list table.
type Column struct {
	Field string
	Label string
	Kind  ColumnKind
}

// Display returns the cell text of rec for this column.
func (col Column) Display(rec domain.Record) string {
	switch col.Kind {
	case ColMoney:
		return format.CurrencyOf(rec[col.Field])
	case ColDate:
		return format.Date(rec.String(col.Field))
	case ColMonth:
		return format.Month(rec.String(col.Field))
	case ColBool:
		if rec.Bool(col.Field) {
			return "Sim"
		}
		return "Não"
	default:
		return rec.String(col.Field)
	}
}

// Filter is one filter control of a list. Filters without options are
// free-text (or month) inputs.
type Filter struct {
	Name      string
	Label     string
	Month     bool
	Options   []screen.Option
	Predicate listing.Predicate
}

// Entity describes the list and form screens of one API resource.
type Entity struct {
	Name     domain.Entity
	Title    string
	Singular string
	// Path is the page path, e.g. "/alunos".
	Path         string
	Roles        []domain.Role
	DeleteRoles  []domain.Role
	SearchFields []string
	SearchHint   string
	Filters      []Filter
	Sort         listing.Comparator
	Columns      []Column
	// Form is nil for read-only lists.
	Form        *screen.FormSpec
	Toggle      *screen.Toggle
	ToggleLabel string
	// ViewPath, when set, links each row to a reading view at ViewPath/<id>/ver.
	ViewPath string
}

// Matchers returns the list pipeline configuration of the entity.
func (e *Entity) Matchers() listing.Matchers {
	preds := make(map[string]listing.Predicate, len(e.Filters))
	for _, f := range e.Filters {
		if f.Predicate != nil {
			preds[f.Name] = f.Predicate
		}
	}
	return listing.Matchers{
		SearchFields:     e.SearchFields,
		FilterPredicates: preds,
		SortComparator:   e.Sort,
	}
}

// FilterNames returns the query parameter names of the entity's filters.
func (e *Entity) FilterNames() []string {
	names := make([]string, len(e.Filters))
	for i, f := range e.Filters {
		names[i] = f.Name
	}
	return names
}

// ListConfig returns the controller configuration for a page size.
func (e *Entity) ListConfig(pageSize int) screen.ListConfig {
	return screen.ListConfig{
		Entity:   e.Name,
		Matchers: e.Matchers(),
		PageSize: pageSize,
		Toggle:   e.Toggle,
	}
}

// CanDelete reports whether role may delete records of the entity.
func (e *Entity) CanDelete(role domain.Role) bool {
	for _, r := range e.DeleteRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ToggleOn reports whether rec has the toggle field in its "on" value.
func (e *Entity) ToggleOn(rec domain.Record) bool {
	if e.Toggle == nil {
		return false
	}
	v, _ := rec.Text(e.Toggle.Field)
	return v == toText(e.Toggle.On)
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

var (
	statusOptions = []screen.Option{{Value: "ativo", Label: "Ativo"}, {Value: "inativo", Label: "Inativo"}}
	adminOnly     = []domain.Role{domain.RoleAdmin}
	staff         = []domain.Role{domain.RoleAdmin, domain.RoleTeacher}
)

// Students is the student register.
var Students = &Entity{
	Name:         domain.EntityStudents,
	Title:        "Alunos",
	Singular:     "aluno",
	Path:         "/alunos",
	Roles:        adminOnly,
	DeleteRoles:  adminOnly,
	SearchFields: []string{"nome", "responsavel"},
	SearchHint:   "Buscar por nome ou responsável",
	Filters: []Filter{
		{Name: "status", Label: "Situação", Options: statusOptions, Predicate: listing.FieldEquals("status")},
		{Name: "turma", Label: "Turma", Predicate: listing.FieldEquals("turma")},
	},
	Sort: listing.ByText("nome"),
	Columns: []Column{
		{Field: "nome", Label: "Nome"},
		{Field: "turma", Label: "Turma"},
		{Field: "responsavel", Label: "Responsável"},
		{Field: "status", Label: "Situação", Kind: ColBadge},
	},
	Form: &screen.FormSpec{
		Entity: domain.EntityStudents,
		Fields: []screen.Field{
			{Name: "nome", Label: "Nome", Required: true},
			{Name: "data_nascimento", Label: "Data de nascimento", Kind: screen.KindDate, Required: true},
			{Name: "turma", Label: "Turma", Required: true},
			{Name: "responsavel", Label: "Responsável", Required: true},
			{Name: "telefone_responsavel", Label: "Telefone do responsável"},
			{Name: "email_responsavel", Label: "E-mail do responsável", Kind: screen.KindEmail},
			{Name: "mensalidade", Label: "Mensalidade", Kind: screen.KindMoney},
			{Name: "status", Label: "Situação", Kind: screen.KindSelect, Required: true, Options: statusOptions},
		},
		Defaults: map[string]string{"status": "ativo"},
	},
	Toggle:      &screen.Toggle{Field: "status", On: "ativo", Off: "inativo"},
	ToggleLabel: "Ativar/Inativar",
}

// Teachers is the teacher register.
var Teachers = &Entity{
	Name:         domain.EntityTeachers,
	Title:        "Professores",
	Singular:     "professor",
	Path:         "/professores",
	Roles:        adminOnly,
	DeleteRoles:  adminOnly,
	SearchFields: []string{"nome", "email", "disciplina"},
	SearchHint:   "Buscar por nome, e-mail ou disciplina",
	Filters: []Filter{
		{Name: "status", Label: "Situação", Options: statusOptions, Predicate: listing.FieldEquals("status")},
	},
	Sort: listing.ByText("nome"),
	Columns: []Column{
		{Field: "nome", Label: "Nome"},
		{Field: "email", Label: "E-mail"},
		{Field: "disciplina", Label: "Disciplina"},
		{Field: "status", Label: "Situação", Kind: ColBadge},
	},
	Form: &screen.FormSpec{
		Entity: domain.EntityTeachers,
		Fields: []screen.Field{
			{Name: "nome", Label: "Nome", Required: true},
			{Name: "email", Label: "E-mail", Kind: screen.KindEmail, Required: true},
			{Name: "telefone", Label: "Telefone"},
			{Name: "disciplina", Label: "Disciplina", Required: true},
			{Name: "salario", Label: "Salário", Kind: screen.KindMoney},
			{Name: "status", Label: "Situação", Kind: screen.KindSelect, Required: true, Options: statusOptions},
		},
		Defaults: map[string]string{"status": "ativo"},
	},
	Toggle:      &screen.Toggle{Field: "status", On: "ativo", Off: "inativo"},
	ToggleLabel: "Ativar/Inativar",
}

// FinancialEntries is the income and expense ledger.
var FinancialEntries = &Entity{
	Name:         domain.EntityFinancialEntries,
	Title:        "Lançamentos",
	Singular:     "lançamento",
	Path:         "/lancamentos",
	Roles:        adminOnly,
	DeleteRoles:  adminOnly,
	SearchFields: []string{"descricao", "categoria"},
	SearchHint:   "Buscar por descrição ou categoria",
	Filters: []Filter{
		{Name: "tipo", Label: "Tipo", Options: entryKinds, Predicate: listing.FieldEquals("tipo")},
		{Name: "status", Label: "Situação", Options: entryStatus, Predicate: listing.FieldEquals("status")},
		{Name: "mes", Label: "Mês", Month: true, Predicate: listing.FieldHasPrefix("data")},
	},
	Sort: listing.Desc(listing.ByText("data")),
	Columns: []Column{
		{Field: "data", Label: "Data", Kind: ColDate},
		{Field: "descricao", Label: "Descrição"},
		{Field: "categoria", Label: "Categoria"},
		{Field: "tipo", Label: "Tipo", Kind: ColBadge},
		{Field: "valor", Label: "Valor", Kind: ColMoney},
		{Field: "status", Label: "Situação", Kind: ColBadge},
	},
	Form: &screen.FormSpec{
		Entity: domain.EntityFinancialEntries,
		Fields: []screen.Field{
			{Name: "descricao", Label: "Descrição", Required: true},
			{Name: "tipo", Label: "Tipo", Kind: screen.KindSelect, Required: true, Options: entryKinds},
			{Name: "categoria", Label: "Categoria", Required: true},
			{Name: "valor", Label: "Valor", Kind: screen.KindMoney, Required: true},
			{Name: "data", Label: "Data", Kind: screen.KindDate, Required: true},
			{Name: "status", Label: "Situação", Kind: screen.KindSelect, Required: true, Options: entryStatus},
			{Name: "observacoes", Label: "Observações", Kind: screen.KindTextArea},
		},
		Defaults: map[string]string{"tipo": "despesa", "status": "pendente"},
	},
}

var (
	entryKinds  = []screen.Option{{Value: "receita", Label: "Receita"}, {Value: "despesa", Label: "Despesa"}}
	entryStatus = []screen.Option{{Value: "pago", Label: "Pago"}, {Value: "pendente", Label: "Pendente"}}
	feeStatus   = []screen.Option{
		{Value: "pago", Label: "Paga"},
		{Value: "pendente", Label: "Pendente"},
		{Value: "atrasado", Label: "Atrasada"},
	}
	paymentMethods = []screen.Option{
		{Value: "pix", Label: "Pix"},
		{Value: "boleto", Label: "Boleto"},
		{Value: "cartao", Label: "Cartão"},
		{Value: "dinheiro", Label: "Dinheiro"},
	}
)

// Tuition lists monthly tuition fees. Registering a fee for an already
// paid period is answered with a conflict by the API.
var Tuition = &Entity{
	Name:         domain.EntityTuition,
	Title:        "Mensalidades",
	Singular:     "mensalidade",
	Path:         "/mensalidades",
	Roles:        adminOnly,
	DeleteRoles:  adminOnly,
	SearchFields: []string{"aluno_nome"},
	SearchHint:   "Buscar por aluno",
	Filters: []Filter{
		{Name: "status", Label: "Situação", Options: feeStatus, Predicate: listing.FieldEquals("status")},
		{Name: "referencia", Label: "Referência", Month: true, Predicate: listing.FieldHasPrefix("referencia")},
	},
	Sort: listing.Then(listing.Desc(listing.ByText("referencia")), listing.ByText("aluno_nome")),
	Columns: []Column{
		{Field: "aluno_nome", Label: "Aluno"},
		{Field: "referencia", Label: "Referência", Kind: ColMonth},
		{Field: "vencimento", Label: "Vencimento", Kind: ColDate},
		{Field: "valor", Label: "Valor", Kind: ColMoney},
		{Field: "status", Label: "Situação", Kind: ColBadge},
	},
	Form: &screen.FormSpec{
		Entity: domain.EntityTuition,
		Fields: []screen.Field{
			{Name: "aluno_id", Label: "Código do aluno", Kind: screen.KindNumber, Required: true},
			{Name: "referencia", Label: "Referência (aaaa-mm)", Required: true, Rules: "datetime=2006-01"},
			{Name: "valor", Label: "Valor", Kind: screen.KindMoney, Required: true},
			{Name: "vencimento", Label: "Vencimento", Kind: screen.KindDate, Required: true},
			{Name: "status", Label: "Situação", Kind: screen.KindSelect, Required: true, Options: feeStatus},
			{Name: "data_pagamento", Label: "Data do pagamento", Kind: screen.KindDate},
			{Name: "forma_pagamento", Label: "Forma de pagamento", Kind: screen.KindSelect, Options: paymentMethods},
			{Name: "desconto", Label: "Desconto", Kind: screen.KindMoney, ZeroOnInvalid: true},
		},
		Defaults: map[string]string{"status": "pendente"},
	},
}

var recipients = []screen.Option{
	{Value: "todos", Label: "Todos"},
	{Value: "responsaveis", Label: "Responsáveis"},
	{Value: "professores", Label: "Professores"},
}

// Diary lists the classroom journal entries.
var Diary = &Entity{
	Name:         domain.EntityDiary,
	Title:        "Diário de classe",
	Singular:     "registro",
	Path:         "/diario",
	Roles:        staff,
	DeleteRoles:  adminOnly,
	SearchFields: []string{"titulo", "turma", "professor"},
	SearchHint:   "Buscar por título, turma ou professor",
	Filters: []Filter{
		{Name: "turma", Label: "Turma", Predicate: listing.FieldEquals("turma")},
	},
	Sort: listing.Desc(listing.ByText("data")),
	Columns: []Column{
		{Field: "data", Label: "Data", Kind: ColDate},
		{Field: "titulo", Label: "Título"},
		{Field: "turma", Label: "Turma"},
		{Field: "professor", Label: "Professor"},
	},
	Form: &screen.FormSpec{
		Entity: domain.EntityDiary,
		Fields: []screen.Field{
			{Name: "titulo", Label: "Título", Required: true},
			{Name: "turma", Label: "Turma", Required: true},
			{Name: "data", Label: "Data", Kind: screen.KindDate, Required: true},
			{Name: "professor", Label: "Professor"},
			{Name: "aluno_id", Label: "Código do aluno (opcional)", Kind: screen.KindNumber},
			{Name: "conteudo", Label: "Conteúdo (markdown)", Kind: screen.KindTextArea, Required: true},
		},
	},
	ViewPath: "/diario",
}

// Notifications lists messages sent to the school community.
var Notifications = &Entity{
	Name:         domain.EntityNotifications,
	Title:        "Notificações",
	Singular:     "notificação",
	Path:         "/notificacoes",
	Roles:        staff,
	DeleteRoles:  staff,
	SearchFields: []string{"titulo", "mensagem"},
	SearchHint:   "Buscar por título ou mensagem",
	Filters: []Filter{
		{
			Name: "lida", Label: "Leitura",
			Options:   []screen.Option{{Value: "false", Label: "Não lidas"}, {Value: "true", Label: "Lidas"}},
			Predicate: listing.BoolField("lida"),
		},
	},
	Sort: listing.Then(listing.ByBool("lida"), listing.Desc(listing.ByText("data"))),
	Columns: []Column{
		{Field: "data", Label: "Data", Kind: ColDate},
		{Field: "titulo", Label: "Título"},
		{Field: "destinatario", Label: "Destinatário"},
		{Field: "lida", Label: "Lida", Kind: ColBool},
	},
	Form: &screen.FormSpec{
		Entity: domain.EntityNotifications,
		Fields: []screen.Field{
			{Name: "titulo", Label: "Título", Required: true},
			{Name: "mensagem", Label: "Mensagem", Kind: screen.KindTextArea, Required: true},
			{Name: "destinatario", Label: "Destinatário", Kind: screen.KindSelect, Required: true, Options: recipients},
			{Name: "lida", Label: "Marcar como lida", Kind: screen.KindBool},
		},
		Defaults: map[string]string{"destinatario": "todos"},
	},
	Toggle:      &screen.Toggle{Field: "lida", On: true, Off: false},
	ToggleLabel: "Marcar lida/não lida",
}

// Catalog returns every entity with list and form screens.
func Catalog() []*Entity {
	return []*Entity{Students, Teachers, FinancialEntries, Tuition, Diary, Notifications}
}
