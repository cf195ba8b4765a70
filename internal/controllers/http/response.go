package http

import (
	"errors"
	"net/http"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *apiError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, envelope{
		Success:   false,
		Error:     &apiError{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
	})
}

var errorStatuses = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrCartEmpty, http.StatusBadRequest, "CART_EMPTY"},
	{domain.ErrCartValidationFailed, http.StatusConflict, "CART_VALIDATION_FAILED"},
	{domain.ErrInvalidStatusTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
}

// fail renders err with the status of its taxonomy entry. Anything outside the
// taxonomy is logged and answered with a generic 500.
func fail(c *gin.Context, err error) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.target) {
			continue
		}
		body := &apiError{Code: e.code, Message: err.Error()}
		var cve *domain.CartValidationError
		if errors.As(err, &cve) {
			body.Details = cve.Problems
		}
		var te *domain.TransitionError
		if errors.As(err, &te) {
			body.Details = gin.H{"from": te.From, "to": te.To}
		}
		c.AbortWithStatusJSON(e.status, envelope{Success: false, Error: body, Timestamp: time.Now().UTC()})
		return
	}

	logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	abortWith(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

func badRequest(c *gin.Context, err error) {
	abortWith(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
}
