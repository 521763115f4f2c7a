package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/middleware"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/pkg"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck names one probed dependency.
type HealthCheck struct {
	Name   string
	Target Pinger
}

// RouteDeps holds everything RegisterRoutes needs.
type RouteDeps struct {
	Modules []Module
	Guard   *navigation.Guard
	// Web holds static/ (and templates/, read by the renderer).
	Web fs.FS
	// CacheStatic adds a long Cache-Control to static assets.
	CacheStatic bool
	Checks      []HealthCheck
	// Metrics is served at MetricsPath when non-nil.
	Metrics     http.Handler
	MetricsPath string
	CSRFSecret  string
	CORS        middleware.CORSConfig
}

// RegisterRoutes registers static assets, health, metrics, the root redirect
// and every module's API and page routes.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if deps.Guard == nil {
		return errors.New("navigation guard is required")
	}
	if strings.TrimSpace(deps.CSRFSecret) == "" {
		return errors.New("csrf secret is required")
	}

	if deps.Web != nil {
		if err := registerStatic(r, deps.Web, deps.CacheStatic); err != nil {
			return fmt.Errorf("register static routes: %w", err)
		}
	}

	r.GET("/health", healthHandler(deps.Checks))
	if deps.Metrics != nil {
		r.GET(deps.MetricsPath, gin.WrapH(deps.Metrics))
	}

	r.GET("/", deps.Guard.Authenticated(), func(c *gin.Context) {
		pkg.Redirect(c, navigation.MenuFrom(c).Home)
	})

	api := r.Group("/api/v1", middleware.CORS(deps.CORS))
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	pages := r.Group("/")
	pages.Use(middleware.CSRF(deps.CSRFSecret))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(func(c *gin.Context) {
		renderError(c, http.StatusNotFound, notFoundMessage)
	})
	return nil
}

// healthHandler probes every check in turn, each with its own deadline, and
// reports 503 when any fails.
func healthHandler(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		components := gin.H{}
		for _, hc := range checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			err := hc.Target.Ping(ctx)
			cancel()
			if err != nil {
				components[hc.Name] = "error"
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			components[hc.Name] = "ok"
		}
		c.JSON(code, gin.H{"status": status, "components": components})
	}
}

func registerStatic(r *gin.Engine, web fs.FS, cache bool) error {
	static, err := fs.Sub(web, "static")
	if err != nil {
		return fmt.Errorf("static sub filesystem: %w", err)
	}
	files := http.StripPrefix("/static", http.FileServer(http.FS(static)))
	r.GET("/static/*filepath", func(c *gin.Context) {
		if cache {
			c.Header("Cache-Control", "public, max-age=86400")
		}
		files.ServeHTTP(c.Writer, c.Request)
	})
	return nil
}
