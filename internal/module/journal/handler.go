package journal

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/format"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/pkg"
	"github.com/simp-lee/escola/internal/screen"
)

const viewTemplate = "journal/view.html"

// Entry is a journal entry prepared for reading.
type Entry struct {
	ID      string
	Title   string
	Date    string
	Class   string
	Teacher string
	Body    template.HTML
}

// NewEntry renders rec for reading. The body is sanitised HTML.
func NewEntry(rec domain.Record) (Entry, error) {
	body, err := Render(rec.String("conteudo"))
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:      rec.ID(),
		Title:   rec.String("titulo"),
		Date:    format.Date(rec.String("data")),
		Class:   rec.String("turma"),
		Teacher: rec.String("professor"),
		Body:    body,
	}, nil
}

// JournalHandler serves the reading view.
type JournalHandler struct {
	gw      domain.Gateway
	screens *screen.Registry
	guard   *navigation.Guard
}

// NewHandler creates a JournalHandler.
func NewHandler(gw domain.Gateway, screens *screen.Registry, guard *navigation.Guard) *JournalHandler {
	return &JournalHandler{gw: gw, screens: screens, guard: guard}
}

// View renders one entry. The entry is taken from the diary list the user
// has open, or fetched when the list is not loaded.
// GET /diario/:id/ver
func (h *JournalHandler) View(c *gin.Context) {
	id := c.Param("id")
	rec, ok := h.cached(c, id)
	if !ok {
		var err error
		rec, err = h.gw.Get(c.Request.Context(), domain.EntityDiary, id)
		if err != nil {
			if domain.IsUnauthorized(err) {
				h.guard.Expire(c)
				return
			}
			pkg.ErrorPage(c, err)
			return
		}
	}

	entry, err := NewEntry(rec)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "render journal entry", slog.String("id", id), slog.Any("error", err))
		pkg.ErrorPage(c, domain.NewAppError(domain.CodeInternal, "render entry", err))
		return
	}
	c.HTML(http.StatusOK, viewTemplate, navigation.View(c, gin.H{"Entry": entry}))
}

func (h *JournalHandler) cached(c *gin.Context, id string) (domain.Record, bool) {
	sess := navigation.SessionFrom(c)
	if sess == nil {
		return nil, false
	}
	ctrl, ok := h.screens.Lookup(sess.ID, domain.EntityDiary)
	if !ok {
		return nil, false
	}
	return ctrl.Find(id)
}
