package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope of every JSON response. Code carries the
// stable rejection name for failed ledger operations.
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func SendAPIResponse(c *gin.Context, code int, success bool, message string, data any) {
	c.JSON(code, APIResponse{
		Success:   success,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
}

// SendError writes a failed envelope carrying err's message and errCode.
func SendError(c *gin.Context, status int, errCode string, err error) {
	c.JSON(status, APIResponse{
		Success:   false,
		Message:   err.Error(),
		Code:      errCode,
		CreatedAt: time.Now().UTC(),
	})
}
