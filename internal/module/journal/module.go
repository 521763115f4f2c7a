package journal

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/navigation"
)

// JournalModule implements the app.Module interface for the reading view.
type JournalModule struct {
	handler *JournalHandler
	guard   *navigation.Guard
}

// NewModule creates a JournalModule. Panics if h or guard is nil.
func NewModule(h *JournalHandler, guard *navigation.Guard) *JournalModule {
	if h == nil || guard == nil {
		panic("journal.NewModule: handler and guard must not be nil")
	}
	return &JournalModule{handler: h, guard: guard}
}

// RegisterRoutes registers the staff-only reading view.
func (m *JournalModule) RegisterRoutes(_ *gin.RouterGroup, pages *gin.RouterGroup) {
	pages.GET("/diario/:id/ver",
		m.guard.Authenticated(),
		m.guard.RequireRoles(domain.RoleAdmin, domain.RoleTeacher),
		m.handler.View,
	)
}
