// Package guardian serves the guardian area: the list of the guardian's
// children and each child's journal.
package guardian

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/listing"
	"github.com/simp-lee/escola/internal/module/journal"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/pkg"
	"github.com/simp-lee/escola/internal/screen"
)

const (
	childrenTemplate = "guardian/children.html"
	rowsTemplate     = "guardian/children_rows.html"
	childTemplate    = "guardian/child.html"
	childFilter      = "aluno_id"
	loadFailed       = "não foi possível carregar os dados"
)

var (
	childrenMatchers = listing.Matchers{
		SearchFields:   []string{"nome"},
		SortComparator: listing.ByText("nome"),
	}
	diaryMatchers = listing.Matchers{
		FilterPredicates: map[string]listing.Predicate{childFilter: listing.FieldEquals(childFilter)},
		SortComparator:   listing.Desc(listing.ByText("data")),
	}
	errNotYourChild = domain.NewAppError(domain.CodeNotFound, "aluno não encontrado", nil)
)

// GuardianHandler serves the guardian pages.
type GuardianHandler struct {
	gw       domain.Gateway
	screens  *screen.Registry
	guard    *navigation.Guard
	pageSize int
}

// NewHandler creates a GuardianHandler.
func NewHandler(gw domain.Gateway, screens *screen.Registry, guard *navigation.Guard, pageSize int) *GuardianHandler {
	return &GuardianHandler{gw: gw, screens: screens, guard: guard, pageSize: pageSize}
}

func (h *GuardianHandler) children(c *gin.Context) *screen.ListController {
	ctrl, _ := h.screens.Get(navigation.SessionFrom(c).ID, domain.EntityGuardianChildren, func() *screen.ListController {
		return screen.NewListController(h.gw, nil, screen.ListConfig{
			Entity:   domain.EntityGuardianChildren,
			Matchers: childrenMatchers,
			PageSize: h.pageSize,
		})
	})
	return ctrl
}

// Children mounts the children list.
// GET /responsavel
func (h *GuardianHandler) Children(c *gin.Context) {
	ctrl := h.children(c)
	if err := ctrl.Load(c.Request.Context()); err != nil && h.expired(c, err) {
		return
	}
	h.renderChildren(c, ctrl, childrenTemplate)
}

// Rows re-renders the children table for a search or page change.
// GET /responsavel/linhas
func (h *GuardianHandler) Rows(c *gin.Context) {
	ctrl := h.children(c)
	if st, _ := ctrl.State(); st == screen.StateLoading {
		if err := ctrl.Load(c.Request.Context()); err != nil && h.expired(c, err) {
			return
		}
	}
	h.renderChildren(c, ctrl, rowsTemplate)
}

func (h *GuardianHandler) renderChildren(c *gin.Context, ctrl *screen.ListController, tmpl string) {
	values := c.Request.URL.Query()
	page, err := ctrl.Update(func(q listing.QueryState) listing.QueryState {
		return pkg.ApplyListQuery(q, values, nil)
	})
	data := gin.H{"Query": ctrl.Query()}
	if err != nil {
		_, loadErr := ctrl.State()
		if loadErr != nil {
			err = loadErr
		}
		data["Error"] = domain.UserMessage(err, loadFailed)
	} else {
		data["Page"] = page
	}
	c.HTML(http.StatusOK, tmpl, navigation.View(c, data))
}

// Child shows one of the guardian's children with their journal entries,
// newest first.
// GET /responsavel/alunos/:id
func (h *GuardianHandler) Child(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	kids := h.children(c)
	if st, _ := kids.State(); st != screen.StateReady {
		if err := kids.Load(ctx); err != nil {
			h.fail(c, err)
			return
		}
	}
	child, ok := kids.Find(id)
	if !ok {
		pkg.ErrorPage(c, errNotYourChild)
		return
	}

	diary, _ := h.screens.Get(navigation.SessionFrom(c).ID, domain.EntityDiary, func() *screen.ListController {
		return screen.NewListController(h.gw, nil, screen.ListConfig{
			Entity:   domain.EntityDiary,
			Matchers: diaryMatchers,
			PageSize: h.pageSize,
		})
	})
	data := gin.H{"Child": child}
	if err := diary.Load(ctx); err != nil {
		if h.expired(c, err) {
			return
		}
		slog.WarnContext(ctx, "load child journal", slog.String("child", id), slog.Any("error", err))
		data["Error"] = domain.UserMessage(err, loadFailed)
		c.HTML(http.StatusOK, childTemplate, navigation.View(c, data))
		return
	}

	values := c.Request.URL.Query()
	page, err := diary.Update(func(q listing.QueryState) listing.QueryState {
		return pkg.ApplyListQuery(q.WithFilter(childFilter, id), values, nil)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	entries := make([]journal.Entry, 0, len(page.Items))
	for _, rec := range page.Items {
		e, err := journal.NewEntry(rec)
		if err != nil {
			slog.WarnContext(ctx, "render journal entry", slog.String("id", rec.ID()), slog.Any("error", err))
			continue
		}
		entries = append(entries, e)
	}
	data["Page"] = page
	data["Entries"] = entries
	c.HTML(http.StatusOK, childTemplate, navigation.View(c, data))
}

func (h *GuardianHandler) fail(c *gin.Context, err error) {
	if h.expired(c, err) {
		return
	}
	slog.WarnContext(c.Request.Context(), "guardian page", slog.Any("error", err))
	pkg.ErrorPage(c, err)
}

func (h *GuardianHandler) expired(c *gin.Context, err error) bool {
	if !domain.IsUnauthorized(err) {
		return false
	}
	h.guard.Expire(c)
	return true
}
