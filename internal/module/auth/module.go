package auth

import (
	"time"

	"github.com/gin-gonic/gin"
)

var timeNow = time.Now

// AuthModule implements the app.Module interface for login and logout.
type AuthModule struct {
	handler *AuthHandler
	limit   gin.HandlerFunc
}

// NewModule creates an AuthModule. limit, when non-nil, throttles login
// attempts. Panics if h is nil.
func NewModule(h *AuthHandler, limit gin.HandlerFunc) *AuthModule {
	if h == nil {
		panic("auth.NewModule: handler must not be nil")
	}
	return &AuthModule{handler: h, limit: limit}
}

// RegisterRoutes registers the login and logout pages.
func (m *AuthModule) RegisterRoutes(_ *gin.RouterGroup, pages *gin.RouterGroup) {
	pages.GET("/login", m.handler.LoginPage)
	if m.limit != nil {
		pages.POST("/login", m.limit, m.handler.Login)
	} else {
		pages.POST("/login", m.handler.Login)
	}
	pages.POST("/logout", m.handler.Logout)
}
