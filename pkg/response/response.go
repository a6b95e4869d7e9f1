package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
)

// JSON sends a success payload as-is. The public API contract is flat JSON
// objects rather than an envelope, so handlers pass fully-shaped payloads.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, payload)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Error sends an error response shaped as {"error": message} plus any
// machine-readable detail fields the error carries (nextAllowed, lastRenamer).
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := gin.H{"error": appErr.Message}
	for k, v := range appErr.Details {
		body[k] = v
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, body)
}
