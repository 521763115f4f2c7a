package records

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/listing"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/pkg"
	"github.com/simp-lee/escola/internal/screen"
)

const (
	listTemplate      = "records/list.html"
	tableTemplate     = "records/table.html"
	formTemplate      = "records/form.html"
	formBodyTemplate  = "records/form_body.html"
	confirmField      = "senha_confirmacao"
	confirmYesField   = "confirmar"
	confirmYesValue   = "sim"
	loadFailedMessage = "não foi possível carregar a lista"
)

// RecordsHandler serves the list and form screens of every entity. List
// state is kept per session in the screen registry, so search, filter and
// paging requests work on the collection loaded at mount.
type RecordsHandler struct {
	gw        domain.Gateway
	screens   *screen.Registry
	confirmer screen.Confirmer
	guard     *navigation.Guard
	pageSize  int
}

// NewHandler creates a RecordsHandler.
func NewHandler(gw domain.Gateway, screens *screen.Registry, confirmer screen.Confirmer, guard *navigation.Guard, pageSize int) *RecordsHandler {
	return &RecordsHandler{gw: gw, screens: screens, confirmer: confirmer, guard: guard, pageSize: pageSize}
}

// controller returns the session's controller for e, loading the collection
// when the controller is new.
func (h *RecordsHandler) controller(c *gin.Context, e *Entity) (*screen.ListController, error) {
	ctrl, created := h.get(c, e)
	if created {
		return ctrl, ctrl.Load(c.Request.Context())
	}
	return ctrl, nil
}

func (h *RecordsHandler) get(c *gin.Context, e *Entity) (*screen.ListController, bool) {
	return h.screens.Get(navigation.SessionFrom(c).ID, e.Name, func() *screen.ListController {
		return screen.NewListController(h.gw, h.confirmer, e.ListConfig(h.pageSize))
	})
}

// List mounts the list screen: the full collection is fetched and the query
// parameters of the URL are applied.
// GET /<entity>
func (h *RecordsHandler) List(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, _ := h.get(c, e)
		if err := ctrl.Load(c.Request.Context()); err != nil {
			if h.expired(c, err) {
				return
			}
			if !errors.Is(err, screen.ErrBusy) {
				slog.WarnContext(c.Request.Context(), "load list",
					slog.String("entity", string(e.Name)), slog.Any("error", err))
			}
		}
		h.applyQuery(c, e, ctrl)
		h.render(c, e, ctrl, listTemplate)
	}
}

// Rows re-renders the table for a search, filter or page change without
// fetching again.
// GET /<entity>/linhas
func (h *RecordsHandler) Rows(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, err := h.controller(c, e)
		if err != nil && h.expired(c, err) {
			return
		}
		h.applyQuery(c, e, ctrl)
		h.render(c, e, ctrl, tableTemplate)
	}
}

// Reload is the retry affordance of the Error state: it re-enters Loading
// and fetches the collection again.
// POST /<entity>/recarregar
func (h *RecordsHandler) Reload(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, _ := h.get(c, e)
		if err := ctrl.Load(c.Request.Context()); err != nil {
			if h.expired(c, err) {
				return
			}
			if errors.Is(err, screen.ErrBusy) {
				pkg.ToastOnly(c, domain.UserMessage(err, loadFailedMessage), pkg.ToastWarning)
				return
			}
			pkg.SetToast(c, domain.UserMessage(err, loadFailedMessage), pkg.ToastError)
		}
		if !pkg.IsHTMX(c) {
			pkg.Redirect(c, e.Path)
			return
		}
		h.render(c, e, ctrl, tableTemplate)
	}
}

// API returns the Page Result of the session-held collection as JSON.
// GET /api/v1/<entity>
func (h *RecordsHandler) API(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, err := h.controller(c, e)
		if err == nil {
			if st, _ := ctrl.State(); st == screen.StateError {
				err = ctrl.Load(c.Request.Context())
			}
		}
		if err != nil {
			pkg.Error(c, err)
			return
		}
		res, err := ctrl.Update(func(q listing.QueryState) listing.QueryState {
			return pkg.ApplyListQuery(q, c.Request.URL.Query(), e.FilterNames())
		})
		if err != nil {
			pkg.Error(c, err)
			return
		}
		pkg.Success(c, res)
	}
}

// NewPage renders an empty create form.
// GET /<entity>/novo
func (h *RecordsHandler) NewPage(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.renderForm(c, e, screen.NewForm(e.Form), formTemplate)
	}
}

// EditPage renders the edit form of a record, taken from the loaded list
// when present and fetched otherwise.
// GET /<entity>/:id/editar
func (h *RecordsHandler) EditPage(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		rec, ok := h.cached(c, e, id)
		if !ok {
			var err error
			rec, err = h.gw.Get(c.Request.Context(), e.Name, id)
			if err != nil {
				if h.expired(c, err) {
					return
				}
				pkg.ErrorPage(c, err)
				return
			}
		}
		h.renderForm(c, e, screen.EditForm(e.Form, rec), formTemplate)
	}
}

// Create submits a create form.
// POST /<entity>
func (h *RecordsHandler) Create(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.submit(c, e, screen.NewForm(e.Form), "registro cadastrado com sucesso")
	}
}

// Update submits an edit form.
// PUT /<entity>/:id
func (h *RecordsHandler) Update(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		form := screen.EditForm(e.Form, domain.Record{"id": c.Param("id")})
		h.submit(c, e, form, "registro atualizado com sucesso")
	}
}

func (h *RecordsHandler) submit(c *gin.Context, e *Entity, form *screen.Form, success string) {
	if err := c.Request.ParseForm(); err != nil {
		form.Error = "formulário inválido"
		h.renderForm(c, e, form, h.formResponseTemplate(c))
		return
	}
	form.Bind(c.Request.PostForm)

	saved, err := form.Submit(c.Request.Context(), h.gw)
	if err != nil {
		if h.expired(c, err) {
			return
		}
		if !screen.IsFieldError(err) {
			slog.WarnContext(c.Request.Context(), "save record",
				slog.String("entity", string(e.Name)), slog.String("id", form.ID), slog.Any("error", err))
		}
		if form.Warning {
			pkg.SetToast(c, form.Error, pkg.ToastWarning)
		}
		h.renderForm(c, e, form, h.formResponseTemplate(c))
		return
	}

	if ctrl, ok := h.screens.Lookup(navigation.SessionFrom(c).ID, e.Name); ok {
		ctrl.Saved(saved)
	}
	pkg.SetToast(c, success, pkg.ToastSuccess)
	pkg.Redirect(c, e.Path)
}

// Delete removes a record after the confirmation secret and the yes/no
// answer both pass.
// POST /<entity>/:id/excluir
func (h *RecordsHandler) Delete(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := navigation.SessionFrom(c)
		if !e.CanDelete(sess.Profile.Role) {
			h.fail(c, e, errForbidden)
			return
		}
		ctrl, ok := h.screens.Lookup(sess.ID, e.Name)
		if !ok {
			h.fail(c, e, screen.ErrNotReady)
			return
		}
		id := c.Param("id")
		err := ctrl.Delete(c.Request.Context(), id, screen.Confirmation{
			Secret:    c.PostForm(confirmField),
			Confirmed: c.PostForm(confirmYesField) == confirmYesValue,
		})
		if err != nil {
			h.fail(c, e, err)
			return
		}
		slog.InfoContext(c.Request.Context(), "record deleted",
			slog.String("entity", string(e.Name)), slog.String("id", id))
		h.done(c, e, ctrl, "registro excluído com sucesso")
	}
}

// Toggle flips the entity's two-valued field of a record.
// POST /<entity>/:id/alternar
func (h *RecordsHandler) Toggle(e *Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := h.screens.Lookup(navigation.SessionFrom(c).ID, e.Name)
		if !ok {
			h.fail(c, e, screen.ErrNotReady)
			return
		}
		if _, err := ctrl.Toggle(c.Request.Context(), c.Param("id")); err != nil {
			h.fail(c, e, err)
			return
		}
		h.done(c, e, ctrl, "registro atualizado com sucesso")
	}
}

var errForbidden = domain.NewAppError(domain.CodeForbidden, "você não tem permissão para excluir", nil)

// fail reports a failed mutation. The collection is unchanged, so nothing is
// swapped; conflicts are warnings.
func (h *RecordsHandler) fail(c *gin.Context, e *Entity, err error) {
	if h.expired(c, err) {
		return
	}
	slog.WarnContext(c.Request.Context(), "mutation failed",
		slog.String("entity", string(e.Name)), slog.String("id", c.Param("id")), slog.Any("error", err))
	kind := pkg.ToastError
	if domain.IsConflict(err) {
		kind = pkg.ToastWarning
	}
	msg := domain.UserMessage(err, "não foi possível concluir a operação")
	if !pkg.IsHTMX(c) {
		pkg.ErrorPage(c, err)
		return
	}
	pkg.ToastOnly(c, msg, kind)
}

func (h *RecordsHandler) done(c *gin.Context, e *Entity, ctrl *screen.ListController, msg string) {
	if !pkg.IsHTMX(c) {
		pkg.Redirect(c, e.Path)
		return
	}
	pkg.SetToast(c, msg, pkg.ToastSuccess)
	h.render(c, e, ctrl, tableTemplate)
}

// expired ends the session when the API rejected the token.
func (h *RecordsHandler) expired(c *gin.Context, err error) bool {
	if !domain.IsUnauthorized(err) {
		return false
	}
	h.guard.Expire(c)
	return true
}

func (h *RecordsHandler) cached(c *gin.Context, e *Entity, id string) (domain.Record, bool) {
	ctrl, ok := h.screens.Lookup(navigation.SessionFrom(c).ID, e.Name)
	if !ok {
		return nil, false
	}
	return ctrl.Find(id)
}

func (h *RecordsHandler) applyQuery(c *gin.Context, e *Entity, ctrl *screen.ListController) {
	values := c.Request.URL.Query()
	if len(values) == 0 {
		return
	}
	_, _ = ctrl.Update(func(q listing.QueryState) listing.QueryState {
		return pkg.ApplyListQuery(q, values, e.FilterNames())
	})
}

func (h *RecordsHandler) render(c *gin.Context, e *Entity, ctrl *screen.ListController, tmpl string) {
	c.HTML(http.StatusOK, tmpl, navigation.View(c, listView(c, e, ctrl)))
}

func (h *RecordsHandler) renderForm(c *gin.Context, e *Entity, form *screen.Form, tmpl string) {
	c.HTML(http.StatusOK, tmpl, navigation.View(c, gin.H{
		"Entity": e,
		"Form":   form,
	}))
}

func (h *RecordsHandler) formResponseTemplate(c *gin.Context) string {
	if pkg.IsHTMX(c) {
		return formBodyTemplate
	}
	return formTemplate
}
