package navigation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func liveToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestMenuFor(t *testing.T) {
	tests := []struct {
		role      domain.Role
		wantHome  string
		wantShell bool
		visible   []string
		hidden    []string
	}{
		{domain.RoleAdmin, AdminHome, true, []string{"/alunos", "/professores", "/lancamentos", "/mensalidades", "/diario", "/notificacoes", "/dashboard"}, []string{"/responsavel"}},
		{domain.RoleTeacher, TeacherHome, true, []string{"/diario", "/notificacoes"}, []string{"/alunos", "/lancamentos", "/dashboard"}},
		{domain.RoleGuardian, GuardianHome, false, []string{"/responsavel"}, []string{"/diario", "/alunos"}},
		{domain.RoleUnknown, LoginPath, false, nil, []string{"/diario"}},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			m := MenuFor(tt.role)
			if m.Home != tt.wantHome || m.Shell != tt.wantShell {
				t.Errorf("MenuFor() home=%q shell=%v", m.Home, m.Shell)
			}
			for _, p := range tt.visible {
				if !m.Visible(p) {
					t.Errorf("%s should be visible", p)
				}
			}
			for _, p := range tt.hidden {
				if m.Visible(p) {
					t.Errorf("%s should be hidden", p)
				}
			}
		})
	}
}

func TestDecide(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	live := liveToken(t, now.Add(time.Hour))
	dead := liveToken(t, now.Add(-time.Hour))

	mk := func(token string, role domain.Role, exp time.Time) *domain.Session {
		return &domain.Session{ID: "s", Token: token, Profile: domain.Profile{Role: role}, ExpiresAt: exp}
	}

	tests := []struct {
		name         string
		sess         *domain.Session
		wantOutcome  Outcome
		wantRedirect string
	}{
		{"no session", nil, OutcomeLogin, LoginPath},
		{"admin", mk(live, domain.RoleAdmin, now.Add(time.Hour)), OutcomeShell, AdminHome},
		{"teacher", mk(live, domain.RoleTeacher, now.Add(time.Hour)), OutcomeShell, TeacherHome},
		{"guardian", mk(live, domain.RoleGuardian, now.Add(time.Hour)), OutcomeGuardian, GuardianHome},
		{"expired token beats admin role", mk(dead, domain.RoleAdmin, now.Add(time.Hour)), OutcomeLogin, LoginPath},
		{"expired session", mk(live, domain.RoleAdmin, now), OutcomeLogin, LoginPath},
		{"unknown role", mk(live, domain.RoleUnknown, now.Add(time.Hour)), OutcomeLogin, LoginPath},
		{"empty token", mk("", domain.RoleAdmin, now.Add(time.Hour)), OutcomeLogin, LoginPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.sess, now)
			if d.Outcome != tt.wantOutcome || d.Redirect != tt.wantRedirect {
				t.Errorf("Decide() = %+v; want %v %q", d, tt.wantOutcome, tt.wantRedirect)
			}
		})
	}
}

type guardFixture struct {
	router  *gin.Engine
	cleared []string
	cookie  *http.Cookie
}

func newGuardFixture(t *testing.T, role domain.Role) *guardFixture {
	t.Helper()
	mgr := session.NewManager(session.NewMemoryStore(), session.Options{CookieName: "sid"})
	f := &guardFixture{}
	guard := NewGuard(mgr, func(id string) { f.cleared = append(f.cleared, id) })

	w := httptest.NewRecorder()
	res := &domain.LoginResult{Token: liveToken(t, time.Now().Add(time.Hour)), Profile: domain.Profile{ID: "1", Role: role}}
	if _, err := mgr.Set(w, httptest.NewRequest(http.MethodPost, "/login", nil), res); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	f.cookie = w.Result().Cookies()[0]

	r := gin.New()
	auth := r.Group("", guard.Authenticated())
	auth.GET("/alunos", guard.RequireRoles(domain.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "alunos:"+domain.TokenFromContext(c.Request.Context()))
	})
	auth.GET("/api/v1/alunos", guard.RequireRoles(domain.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	auth.GET("/menu", func(c *gin.Context) {
		c.String(http.StatusOK, MenuFrom(c).Home)
	})
	auth.GET("/expire", func(c *gin.Context) {
		guard.Expire(c)
	})
	f.router = r
	return f
}

func (f *guardFixture) do(method, path string, withCookie, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil).WithContext(context.Background())
	if withCookie {
		req.AddCookie(f.cookie)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGuard_Authenticated(t *testing.T) {
	f := newGuardFixture(t, domain.RoleAdmin)

	if w := f.do(http.MethodGet, "/alunos", false, false); w.Code != http.StatusSeeOther || w.Header().Get("Location") != LoginPath {
		t.Errorf("anonymous page: code=%d location=%q", w.Code, w.Header().Get("Location"))
	}
	if w := f.do(http.MethodGet, "/alunos", false, true); w.Header().Get("HX-Redirect") != LoginPath {
		t.Errorf("anonymous htmx: HX-Redirect=%q", w.Header().Get("HX-Redirect"))
	}
	if w := f.do(http.MethodGet, "/api/v1/alunos", false, false); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous api: code=%d", w.Code)
	}

	w := f.do(http.MethodGet, "/alunos", true, false)
	if w.Code != http.StatusOK || w.Body.String() == "alunos:" {
		t.Errorf("admin page: code=%d body=%q", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodGet, "/menu", true, false); w.Body.String() != AdminHome {
		t.Errorf("menu home = %q", w.Body.String())
	}
}

func TestGuard_RequireRoles(t *testing.T) {
	teacher := newGuardFixture(t, domain.RoleTeacher)
	if w := teacher.do(http.MethodGet, "/alunos", true, false); w.Code != http.StatusSeeOther || w.Header().Get("Location") != TeacherHome {
		t.Errorf("teacher page: code=%d location=%q", w.Code, w.Header().Get("Location"))
	}
	if w := teacher.do(http.MethodGet, "/api/v1/alunos", true, false); w.Code != http.StatusForbidden {
		t.Errorf("teacher api: code=%d", w.Code)
	}

	guardian := newGuardFixture(t, domain.RoleGuardian)
	if w := guardian.do(http.MethodGet, "/alunos", true, false); w.Header().Get("Location") != GuardianHome {
		t.Errorf("guardian redirected to %q", w.Header().Get("Location"))
	}
}

func TestGuard_Expire(t *testing.T) {
	f := newGuardFixture(t, domain.RoleAdmin)
	w := f.do(http.MethodGet, "/expire", true, false)
	if w.Header().Get("Location") != LoginPath {
		t.Errorf("Expire location = %q", w.Header().Get("Location"))
	}
	if len(f.cleared) != 1 || f.cleared[0] != f.cookie.Value {
		t.Errorf("onClear calls = %v", f.cleared)
	}
	if w := f.do(http.MethodGet, "/alunos", true, false); w.Header().Get("Location") != LoginPath {
		t.Error("session should be gone after Expire")
	}
}
