package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is a failure with the HTTP status it should be reported with.
type Error struct {
	Code    int
	Message string
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, message string) Error {
	return Error{
		Code:    code,
		Message: message,
	}
}

// Abort reports err through the error envelope. An Error keeps its code;
// anything else is logged and becomes a 500.
func Abort(c *gin.Context, err error) {
	var e Error
	if errors.As(err, &e) {
		ErrorResponse(c, e.Code, e.Message)
		return
	}
	slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	ErrorResponse(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
