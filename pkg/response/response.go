// Package response is the common gin JSON envelope used by every HTTP
// handler, following the shape the rest of the stack's handlers already
// assume (code/message/data, success short-circuited to code 0).
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the JSON body every handler returns.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success writes a 200 response with data attached.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Code: 0, Message: "ok", Data: data})
}

// Error writes a 500 response with message as the error text.
func Error(c *gin.Context, message string) {
	ErrorWithStatus(c, http.StatusInternalServerError, message)
}

// ErrorWithStatus writes status with message as the error text.
func ErrorWithStatus(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Code: status, Message: message})
}
