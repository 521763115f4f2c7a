// Package navigation decides, from the session of a request, whether the user
// must log in, which menu they see and which home page they land on.
package navigation

import (
	"slices"
	"time"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/session"
)

// Paths of the role home pages and the login screen.
const (
	LoginPath     = "/login"
	AdminHome     = "/dashboard"
	TeacherHome   = "/diario"
	GuardianHome  = "/responsavel"
	defaultTarget = LoginPath
)

// MenuItem is one entry of the navigation menu.
type MenuItem struct {
	Label string
	Path  string
}

// Menu describes what a role sees.
type Menu struct {
	Role  domain.Role
	Items []MenuItem
	Home  string
	// Shell is false for roles that never enter the administrative layout.
	Shell bool
}

var (
	itemDashboard     = MenuItem{Label: "Painel financeiro", Path: "/dashboard"}
	itemStudents      = MenuItem{Label: "Alunos", Path: "/alunos"}
	itemTeachers      = MenuItem{Label: "Professores", Path: "/professores"}
	itemEntries       = MenuItem{Label: "Lançamentos", Path: "/lancamentos"}
	itemTuition       = MenuItem{Label: "Mensalidades", Path: "/mensalidades"}
	itemDiary         = MenuItem{Label: "Diário de classe", Path: "/diario"}
	itemNotifications = MenuItem{Label: "Notificações", Path: "/notificacoes"}
	itemChildren      = MenuItem{Label: "Meus filhos", Path: "/responsavel"}
)

// MenuFor returns the menu of role. Unknown roles get an empty menu whose
// home is the login page.
func MenuFor(role domain.Role) Menu {
	switch role {
	case domain.RoleAdmin:
		return Menu{
			Role: role,
			Items: []MenuItem{
				itemDashboard, itemStudents, itemTeachers, itemEntries,
				itemTuition, itemDiary, itemNotifications,
			},
			Home:  AdminHome,
			Shell: true,
		}
	case domain.RoleTeacher:
		return Menu{
			Role:  role,
			Items: []MenuItem{itemDiary, itemNotifications},
			Home:  TeacherHome,
			Shell: true,
		}
	case domain.RoleGuardian:
		return Menu{
			Role:  role,
			Items: []MenuItem{itemChildren},
			Home:  GuardianHome,
		}
	default:
		return Menu{Role: role, Home: defaultTarget}
	}
}

// Outcome is the routing decision for a request.
type Outcome int

const (
	// OutcomeLogin sends the user to the login screen.
	OutcomeLogin Outcome = iota
	// OutcomeGuardian routes to the guardian area outside the admin shell.
	OutcomeGuardian
	// OutcomeShell renders the administrative shell with the role's menu.
	OutcomeShell
)

// Decision is the result of Decide.
type Decision struct {
	Outcome  Outcome
	Redirect string
	Menu     Menu
}

// Decide applies the navigation policy. Token validity is checked before the
// role: a session without a live token always leads to the login screen.
func Decide(sess *domain.Session, now time.Time) Decision {
	if sess == nil || sess.Token == "" || sess.Expired(now) || !session.TokenValid(sess.Token, now) {
		return Decision{Outcome: OutcomeLogin, Redirect: LoginPath}
	}
	menu := MenuFor(sess.Profile.Role)
	switch sess.Profile.Role {
	case domain.RoleAdmin, domain.RoleTeacher:
		return Decision{Outcome: OutcomeShell, Redirect: menu.Home, Menu: menu}
	case domain.RoleGuardian:
		return Decision{Outcome: OutcomeGuardian, Redirect: menu.Home, Menu: menu}
	default:
		return Decision{Outcome: OutcomeLogin, Redirect: LoginPath}
	}
}

// Allowed reports whether role is one of roles.
func Allowed(role domain.Role, roles ...domain.Role) bool {
	return slices.Contains(roles, role)
}

// Visible reports whether path is reachable from the menu of role.
func (m Menu) Visible(path string) bool {
	return slices.ContainsFunc(m.Items, func(it MenuItem) bool { return it.Path == path })
}
