package finance

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/navigation"
)

// FinanceModule implements the app.Module interface for the dashboard.
type FinanceModule struct {
	handler *FinanceHandler
	guard   *navigation.Guard
}

// NewModule creates a FinanceModule. Panics if h or guard is nil.
func NewModule(h *FinanceHandler, guard *navigation.Guard) *FinanceModule {
	if h == nil || guard == nil {
		panic("finance.NewModule: handler and guard must not be nil")
	}
	return &FinanceModule{handler: h, guard: guard}
}

// RegisterRoutes registers the admin-only dashboard page and API.
func (m *FinanceModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	access := []gin.HandlerFunc{m.guard.Authenticated(), m.guard.RequireRoles(domain.RoleAdmin)}
	api.GET("/dashboard", append(access, m.handler.API)...)
	pages.GET(navigation.AdminHome, append(access, m.handler.Dashboard)...)
}
