package guardian

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/navigation"
)

// GuardianModule implements the app.Module interface for the guardian area.
type GuardianModule struct {
	handler *GuardianHandler
	guard   *navigation.Guard
}

// NewModule creates a GuardianModule. Panics if h or guard is nil.
func NewModule(h *GuardianHandler, guard *navigation.Guard) *GuardianModule {
	if h == nil || guard == nil {
		panic("guardian.NewModule: handler and guard must not be nil")
	}
	return &GuardianModule{handler: h, guard: guard}
}

// RegisterRoutes registers the guardian pages, reachable by guardians only.
func (m *GuardianModule) RegisterRoutes(_ *gin.RouterGroup, pages *gin.RouterGroup) {
	g := pages.Group(navigation.GuardianHome, m.guard.Authenticated(), m.guard.RequireRoles(domain.RoleGuardian))
	g.GET("", m.handler.Children)
	g.GET("/linhas", m.handler.Rows)
	g.GET("/alunos/:id", m.handler.Child)
}
