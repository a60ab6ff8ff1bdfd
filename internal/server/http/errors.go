package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/and161185/rewear/internal/errs"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument),
		errors.Is(err, errs.ErrSelfRedemptionForbidden),
		errors.Is(err, errs.ErrSelfSwapForbidden):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden), errors.Is(err, errs.ErrInsufficientPoints):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrNotAvailable),
		errors.Is(err, errs.ErrItemsNoLongerAvailable),
		errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrPreconditionFailed):
		return http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrStorageConflict), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abort writes {"error": ...}. Server-side failures get a generic message.
func abort(c *gin.Context, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
		msg = http.StatusText(code)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
