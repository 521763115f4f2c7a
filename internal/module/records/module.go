package records

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/navigation"
)

// RecordsModule implements the app.Module interface for the entity list and
// form screens.
type RecordsModule struct {
	handler  *RecordsHandler
	guard    *navigation.Guard
	entities []*Entity
}

// NewModule creates a RecordsModule serving entities, or the whole Catalog
// when none are given. Panics if h or guard is nil.
func NewModule(h *RecordsHandler, guard *navigation.Guard, entities ...*Entity) *RecordsModule {
	if h == nil {
		panic("records.NewModule: handler must not be nil")
	}
	if guard == nil {
		panic("records.NewModule: guard must not be nil")
	}
	if len(entities) == 0 {
		entities = Catalog()
	}
	return &RecordsModule{handler: h, guard: guard, entities: entities}
}

// RegisterRoutes registers, per entity, the list API and the page routes.
func (m *RecordsModule) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	h := m.handler
	for _, e := range m.entities {
		access := []gin.HandlerFunc{m.guard.Authenticated(), m.guard.RequireRoles(e.Roles...)}

		api.GET(e.Path, append(access, h.API(e))...)

		g := pages.Group(e.Path, access...)
		g.GET("", h.List(e))
		g.GET("/linhas", h.Rows(e))
		g.POST("/recarregar", h.Reload(e))
		g.POST("/:id/excluir", h.Delete(e))
		if e.Toggle != nil {
			g.POST("/:id/alternar", h.Toggle(e))
		}
		if e.Form != nil {
			g.GET("/novo", h.NewPage(e))
			g.POST("", h.Create(e))
			g.GET("/:id/editar", h.EditPage(e))
			g.PUT("/:id", h.Update(e))
			g.POST("/:id", h.Update(e))
		}
	}
}
