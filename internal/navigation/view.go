package navigation

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/middleware"
)

// View returns the template data every page shares (menu, profile, current
// path and CSRF token) merged with data.
func View(c *gin.Context, data gin.H) gin.H {
	out := gin.H{
		"Menu":        MenuFrom(c),
		"CurrentPath": c.Request.URL.Path,
		"CSRFToken":   middleware.GetCSRFToken(c),
	}
	if sess := SessionFrom(c); sess != nil {
		out["Profile"] = sess.Profile
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}
