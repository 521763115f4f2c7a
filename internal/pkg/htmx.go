package pkg

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Toast kinds understood by the layout's showToast listener.
const (
	ToastSuccess = "success"
	ToastWarning = "warning"
	ToastError   = "error"
)

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// SetToast sets the HX-Trigger response header with a showToast event.
func SetToast(c *gin.Context, message, kind string) {
	trigger, _ := json.Marshal(map[string]any{
		"showToast": map[string]string{
			"message": message,
			"type":    kind,
		},
	})
	c.Header("HX-Trigger", string(trigger))
}

// ToastOnly answers an htmx request with a toast and no swap.
func ToastOnly(c *gin.Context, message, kind string) {
	c.Header("HX-Reswap", "none")
	SetToast(c, message, kind)
	c.Status(http.StatusOK)
}

// Redirect sends the client to location: through HX-Redirect for htmx
// requests and a 303 otherwise.
func Redirect(c *gin.Context, location string) {
	if IsHTMX(c) {
		c.Header("HX-Redirect", location)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}
