package navigation

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/pkg"
	"github.com/simp-lee/escola/internal/session"
)

const (
	sessionContextKey = "session"
	menuContextKey    = "menu"
	apiPrefix         = "/api/"
)

// Guard protects routes with the navigation policy.
type Guard struct {
	sessions *session.Manager
	now      func() time.Time
	onClear  []func(sessionID string)
}

// NewGuard creates a Guard over sessions. onClear callbacks run whenever a
// session is dropped because the API rejected its token.
func NewGuard(sessions *session.Manager, onClear ...func(sessionID string)) *Guard {
	return &Guard{sessions: sessions, now: time.Now, onClear: onClear}
}

// Authenticated loads the session, applies Decide and stores the session and
// menu on the context. The API token is attached to the request context for
// the Gateway.
func (g *Guard) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := g.sessions.Get(c.Request)
		if err != nil && !session.IsNoSession(err) {
			abortError(c, err)
			return
		}
		d := Decide(sess, g.now())
		if d.Outcome == OutcomeLogin {
			rejectLogin(c)
			return
		}

		c.Set(sessionContextKey, sess)
		c.Set(menuContextKey, d.Menu)
		c.Request = c.Request.WithContext(domain.ContextWithToken(c.Request.Context(), sess.Token))
		c.Next()
	}
}

// RequireRoles lets through only the given roles. Other users are sent to
// their own home page; API callers get 403.
func (g *Guard) RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		if sess == nil {
			rejectLogin(c)
			return
		}
		if Allowed(sess.Profile.Role, roles...) {
			c.Next()
			return
		}
		if isAPI(c) {
			pkg.Error(c, domain.NewAppError(domain.CodeForbidden, "acesso negado", nil))
			c.Abort()
			return
		}
		pkg.Redirect(c, MenuFor(sess.Profile.Role).Home)
		c.Abort()
	}
}

// Expire ends the session after the API rejected its token and sends the
// user to the login screen.
func (g *Guard) Expire(c *gin.Context) {
	id, _ := g.sessions.Clear(c.Writer, c.Request)
	if id != "" {
		for _, fn := range g.onClear {
			fn(id)
		}
	}
	rejectLogin(c)
}

// SessionFrom returns the session stored by Authenticated, or nil.
func SessionFrom(c *gin.Context) *domain.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*domain.Session)
	return s
}

// MenuFrom returns the menu stored by Authenticated.
func MenuFrom(c *gin.Context) Menu {
	v, ok := c.Get(menuContextKey)
	if !ok {
		return Menu{Home: LoginPath}
	}
	m, _ := v.(Menu)
	return m
}

func rejectLogin(c *gin.Context) {
	if isAPI(c) {
		pkg.Error(c, session.ErrNoSession)
		c.Abort()
		return
	}
	pkg.Redirect(c, LoginPath)
	c.Abort()
}

func abortError(c *gin.Context, err error) {
	if isAPI(c) {
		pkg.Error(c, err)
		c.Abort()
		return
	}
	c.AbortWithStatus(http.StatusInternalServerError)
}

func isAPI(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, apiPrefix)
}
