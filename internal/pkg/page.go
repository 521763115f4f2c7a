package pkg

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/domain"
)

// errorTemplates maps HTTP status codes to their error page templates.
var errorTemplates = map[int]string{
	http.StatusBadRequest:          "errors/400.html",
	http.StatusForbidden:           "errors/403.html",
	http.StatusNotFound:            "errors/404.html",
	http.StatusInternalServerError: "errors/500.html",
}

// ErrorTemplate returns the error page of status, falling back to the 500
// page for unmapped codes.
func ErrorTemplate(status int) string {
	if t, ok := errorTemplates[status]; ok {
		return t
	}
	return errorTemplates[http.StatusInternalServerError]
}

// ErrorPage renders the error page matching err with its user message.
func ErrorPage(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	c.HTML(status, ErrorTemplate(status), gin.H{
		"Status":  status,
		"Message": domain.UserMessage(err, genericError),
	})
}
