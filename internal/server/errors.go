package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ingestdomain "github.com/smallbiznis/arrears/internal/ingest/domain"
	resolverdomain "github.com/smallbiznis/arrears/internal/resolver/domain"
	rollupdomain "github.com/smallbiznis/arrears/internal/rollup/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, rollupdomain.ErrInvalidDimension):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_dimension",
			Message: "dimension must be one of month, income_band, region",
		}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, ingestdomain.ErrDuplicateRecords):
		return http.StatusBadRequest, errorPayload{
			Type:    "duplicate_records",
			Message: err.Error(),
		}
	case errors.Is(err, ingestdomain.ErrMissingCustomers):
		return http.StatusBadRequest, errorPayload{
			Type:    "customers_feed_missing",
			Message: "customers.csv not found in data directory",
		}
	case errors.Is(err, ingestdomain.ErrIntegrityViolated),
		errors.Is(err, resolverdomain.ErrIntegrityViolated):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "referential_integrity_violated",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
