package records

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/navigation"
	"github.com/simp-lee/escola/internal/screen"
)

// Row is one rendered table row.
type Row struct {
	ID       string
	Cells    []Cell
	ToggleOn bool
}

// Cell is one rendered table cell. Badge cells carry their raw value so the
// template can pick a style.
type Cell struct {
	Text  string
	Badge string
}

// Rows renders records into table rows using the entity's columns.
func Rows(e *Entity, records []domain.Record) []Row {
	rows := make([]Row, len(records))
	for i, rec := range records {
		cells := make([]Cell, len(e.Columns))
		for j, col := range e.Columns {
			cells[j] = Cell{Text: col.Display(rec)}
			if col.Kind == ColBadge {
				cells[j].Badge = rec.String(col.Field)
			}
		}
		rows[i] = Row{ID: rec.ID(), Cells: cells, ToggleOn: e.ToggleOn(rec)}
	}
	return rows
}

func listView(c *gin.Context, e *Entity, ctrl *screen.ListController) gin.H {
	state, loadErr := ctrl.State()
	data := gin.H{
		"Entity":  e,
		"State":   state.String(),
		"Query":   ctrl.Query(),
		"CanEdit": e.Form != nil,
	}
	if sess := navigation.SessionFrom(c); sess != nil {
		data["CanDelete"] = e.CanDelete(sess.Profile.Role)
	}
	if state == screen.StateError {
		data["Error"] = domain.UserMessage(loadErr, loadFailedMessage)
		return data
	}
	page, err := ctrl.Page()
	if err != nil {
		data["Error"] = domain.UserMessage(err, loadFailedMessage)
		return data
	}
	data["Page"] = page
	data["Rows"] = Rows(e, page.Items)
	return data
}
