package app

import "github.com/gin-gonic/gin"

// Module is a feature area that registers its own routes: JSON endpoints on
// api (/api/v1, no CSRF) and screens on pages (CSRF-protected).
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}
