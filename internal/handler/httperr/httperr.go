package httperr

import (
	"net/http"

	"sales-recovery/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

// Abort maps a use case error to its HTTP status and aborts with it.
func Abort(c *gin.Context, err error) {
	status, msg := StatusFor(err)
	AbortWithError(c, status, err, msg, nil)
}

func StatusFor(err error) (int, string) {
	switch {
	case errs.Is(err, errs.ErrInvalidSignature):
		return http.StatusUnauthorized, "Invalid signature"
	case errs.Is(err, errs.ErrOperatorTokenRequired):
		return http.StatusUnauthorized, "Operator token required"
	case errs.Is(err, errs.ErrUnknownTenant):
		return http.StatusNotFound, "Unknown tenant"
	case errs.Is(err, errs.ErrEventNotFound):
		return http.StatusNotFound, "Event not found"
	case errs.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
