package guardian

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/screen"
	"github.com/simp-lee/escola/internal/session"
)

type fakeGateway struct {
	domain.Gateway
	mu    sync.Mutex
	data  map[domain.Entity][]domain.Record
	err   error
	lists map[domain.Entity]int
}

func (g *fakeGateway) List(_ context.Context, e domain.Entity) ([]domain.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lists[e]++
	if g.err != nil {
		return nil, g.err
	}
	return g.data[e], nil
}

const stubTemplates = `
{{define "guardian/children.html"}}children|{{template "kids" .}}{{end}}
{{define "guardian/children_rows.html"}}rows|{{template "kids" .}}{{end}}
{{define "kids"}}{{with .Error}}err:{{.}}{{end}}{{with .Page}}{{range .Items}}{{.nome}},{{end}}{{end}}{{end}}
{{define "guardian/child.html"}}{{.Child.nome}}|{{with .Error}}err:{{.}}{{end}}{{range .Entries}}{{.Title}}={{.Body}};{{end}}{{end}}
{{define "errors/404.html"}}404:{{.Message}}{{end}}
{{define "errors/500.html"}}500:{{.Message}}{{end}}
`

func setup(t *testing.T, role domain.Role) (*gin.Engine, *http.Cookie, *fakeGateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gw := &fakeGateway{
		lists: map[domain.Entity]int{},
		data: map[domain.Entity][]domain.Record{
			domain.EntityGuardianChildren: {
				{"id": float64(7), "nome": "Pedro"},
				{"id": float64(5), "nome": "Lia"},
			},
			domain.EntityDiary: {
				{"id": "d1", "aluno_id": float64(7), "titulo": "Leitura", "data": "2024-05-01", "conteudo": "leu **bem**"},
				{"id": "d2", "aluno_id": float64(5), "titulo": "Artes", "data": "2024-05-02", "conteudo": "pintura"},
				{"id": "d3", "aluno_id": float64(7), "titulo": "Frações", "data": "2024-05-03", "conteudo": "ok"},
			},
		},
	}
	store := session.NewMemoryStore()
	screens := screen.NewRegistry()
	guard := navigation.NewGuard(session.NewManager(store, session.Options{}))

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").Parse(stubTemplates)))
	NewModule(NewHandler(gw, screens, guard, 10), guard).RegisterRoutes(r.Group("/api/v1"), &r.RouterGroup)

	exp := time.Now().Add(time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(context.Background(), &domain.Session{ID: "g1", Token: tok, Profile: domain.Profile{Role: role}, ExpiresAt: exp}); err != nil {
		t.Fatal(err)
	}
	return r, &http.Cookie{Name: "escola_session", Value: "g1"}, gw
}

func get(r *gin.Engine, target string, ck *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(ck)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChildren(t *testing.T) {
	r, ck, gw := setup(t, domain.RoleGuardian)

	if got := get(r, "/responsavel", ck).Body.String(); got != "children|Lia,Pedro," {
		t.Errorf("children = %q", got)
	}
	if got := get(r, "/responsavel/linhas?q=ped", ck).Body.String(); got != "rows|Pedro," {
		t.Errorf("search = %q", got)
	}
	if gw.lists[domain.EntityGuardianChildren] != 1 {
		t.Errorf("children fetched %d times", gw.lists[domain.EntityGuardianChildren])
	}
}

func TestChild(t *testing.T) {
	r, ck, _ := setup(t, domain.RoleGuardian)

	w := get(r, "/responsavel/alunos/7", ck)
	if got := w.Body.String(); got != "Pedro|Frações=<p>ok</p>\n;Leitura=<p>leu <strong>bem</strong></p>\n;" {
		t.Errorf("child 7 = %q", got)
	}
	w = get(r, "/responsavel/alunos/5", ck)
	if got := w.Body.String(); !strings.HasPrefix(got, "Lia|Artes=") || strings.Contains(got, "Leitura") {
		t.Errorf("child 5 = %q", got)
	}
	w = get(r, "/responsavel/alunos/99", ck)
	if w.Code != http.StatusNotFound || w.Body.String() != "404:aluno não encontrado" {
		t.Errorf("other child: status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestGuardianArea_Errors(t *testing.T) {
	r, ck, gw := setup(t, domain.RoleGuardian)
	gw.err = domain.NewAppError(domain.CodeUnavailable, "serviço indisponível", nil)
	if got := get(r, "/responsavel", ck).Body.String(); got != "children|err:serviço indisponível" {
		t.Errorf("body = %q", got)
	}

	gw.err = domain.NewAppError(domain.CodeUnauthorized, "token expirado", nil)
	w := get(r, "/responsavel/alunos/7", ck)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Errorf("status=%d location=%q", w.Code, w.Header().Get("Location"))
	}
}

func TestGuardianArea_StaffRedirected(t *testing.T) {
	r, ck, _ := setup(t, domain.RoleAdmin)
	w := get(r, "/responsavel", ck)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Errorf("status=%d location=%q", w.Code, w.Header().Get("Location"))
	}
}
