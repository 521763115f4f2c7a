package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/escola/internal/pkg"
)

const notFoundMessage = "página não encontrada"

// renderError answers a request the router could not serve. API and JSON
// clients get the envelope, htmx requests a toast without swapping, and
// browsers the error page of code (or the 500 page for unmapped codes).
func renderError(c *gin.Context, code int, message string) {
	switch {
	case strings.HasPrefix(c.Request.URL.Path, "/api/") || !acceptsHTML(c):
		c.JSON(code, pkg.Response{Code: code, Message: message})
	case pkg.IsHTMX(c):
		pkg.SetToast(c, message, pkg.ToastError)
		c.Header("HX-Reswap", "none")
		c.Status(code)
	default:
		renderHTMLErrorPage(c, code, message)
	}
}

// renderHTMLErrorPage falls back to plain text if the page itself fails.
func renderHTMLErrorPage(c *gin.Context, code int, message string) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf("%d %s", code, http.StatusText(code))))
		}
	}()
	c.HTML(code, pkg.ErrorTemplate(code), gin.H{"Status": code, "Message": message})
}

// acceptsHTML matches browsers (text/html or */*) and clients sending no
// Accept header. An explicit JSON preference wins.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return false
	}
	return strings.Contains(accept, "text/html") ||
		strings.Contains(accept, "*/*") ||
		strings.TrimSpace(accept) == ""
}
