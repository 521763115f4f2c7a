package finance

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/format"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/pkg"
)

const (
	dashboardTemplate = "finance/dashboard.html"
	monthParam        = "mes"
	isoMonth          = "2006-01"
)

// FinanceHandler serves the monthly dashboard.
type FinanceHandler struct {
	gw    domain.Gateway
	guard *navigation.Guard
	now   func() time.Time
}

// NewHandler creates a FinanceHandler.
func NewHandler(gw domain.Gateway, guard *navigation.Guard) *FinanceHandler {
	return &FinanceHandler{gw: gw, guard: guard, now: time.Now}
}

// Dashboard renders the summary of the month in ?mes=YYYY-MM, or of the
// current month when absent or malformed.
// GET /dashboard
func (h *FinanceHandler) Dashboard(c *gin.Context) {
	month := h.month(c)
	summary, err := h.summary(c.Request.Context(), month)
	data := gin.H{
		"Month":      month.Format(isoMonth),
		"MonthLabel": format.MonthOf(month),
		"PrevMonth":  month.AddDate(0, -1, 0).Format(isoMonth),
		"NextMonth":  month.AddDate(0, 1, 0).Format(isoMonth),
	}
	if err != nil {
		if domain.IsUnauthorized(err) {
			h.guard.Expire(c)
			return
		}
		slog.WarnContext(c.Request.Context(), "load dashboard", slog.Any("error", err))
		data["Error"] = domain.UserMessage(err, "não foi possível carregar o painel")
	} else {
		data["Summary"] = summary
	}
	c.HTML(http.StatusOK, dashboardTemplate, navigation.View(c, data))
}

// API returns the summary as JSON.
// GET /api/v1/dashboard
func (h *FinanceHandler) API(c *gin.Context) {
	summary, err := h.summary(c.Request.Context(), h.month(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, summary)
}

// summary loads entries and tuition fees concurrently and summarises them.
func (h *FinanceHandler) summary(ctx context.Context, month time.Time) (Summary, error) {
	var entries, fees []domain.Record
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = h.gw.List(gctx, domain.EntityFinancialEntries)
		return err
	})
	g.Go(func() error {
		var err error
		fees, err = h.gw.List(gctx, domain.EntityTuition)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Summarize(entries, fees, month.Format(isoMonth), h.now().Format(time.DateOnly)), nil
}

func (h *FinanceHandler) month(c *gin.Context) time.Time {
	if raw := strings.TrimSpace(c.Query(monthParam)); raw != "" {
		if t, err := format.ParseMonth(raw); err == nil {
			return t
		}
	}
	now := h.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
