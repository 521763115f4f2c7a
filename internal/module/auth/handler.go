package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/middleware"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/pkg"
	"github.com/simp-lee/escola/internal/session"
)

const loginTemplate = "auth/login.html"

// AuthHandler serves the login and logout screens.
type AuthHandler struct {
	svc      Service
	sessions *session.Manager
	onLogout []func(sessionID string)
}

// NewHandler creates an AuthHandler. onLogout callbacks receive the id of
// every session that ends, so per-session state can be dropped.
func NewHandler(svc Service, sessions *session.Manager, onLogout ...func(sessionID string)) *AuthHandler {
	return &AuthHandler{svc: svc, sessions: sessions, onLogout: onLogout}
}

// LoginPage renders the login form, or sends an already logged-in user to
// their home page.
// GET /login
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if sess, err := h.sessions.Get(c.Request); err == nil {
		if d := navigation.Decide(sess, timeNow()); d.Outcome != navigation.OutcomeLogin {
			c.Redirect(http.StatusSeeOther, d.Redirect)
			return
		}
	}
	h.renderLogin(c, http.StatusOK, "", "")
}

// Login authenticates against the API and starts a session.
// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderLogin(c, http.StatusBadRequest, form.Email, "informe e-mail e senha válidos")
		return
	}

	res, err := h.svc.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "login failed", slog.String("email", form.Email), slog.Any("error", err))
		h.renderLogin(c, domain.HTTPStatusCode(err), form.Email, domain.UserMessage(err, "não foi possível entrar, tente novamente"))
		return
	}

	sess, err := h.sessions.Set(c.Writer, c.Request, res)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "start session", slog.Any("error", err))
		h.renderLogin(c, domain.HTTPStatusCode(err), form.Email, domain.UserMessage(err, "não foi possível iniciar a sessão"))
		return
	}

	slog.InfoContext(c.Request.Context(), "login",
		slog.String("user_id", sess.Profile.ID),
		slog.String("role", sess.Profile.Role.String()),
	)
	pkg.Redirect(c, navigation.MenuFor(sess.Profile.Role).Home)
}

// Logout ends the session and returns to the login screen.
// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	id, err := h.sessions.Clear(c.Writer, c.Request)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "clear session", slog.Any("error", err))
	}
	if id != "" {
		for _, fn := range h.onLogout {
			fn(id)
		}
	}
	pkg.Redirect(c, navigation.LoginPath)
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, email, message string) {
	c.HTML(status, loginTemplate, gin.H{
		"Email":     email,
		"Error":     message,
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}
