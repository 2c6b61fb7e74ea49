package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"market-curves/internal/api/models"
	"market-curves/internal/model"
	"market-curves/internal/store"
)

func abortWithError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func invalidRequest(c *gin.Context, err error) {
	abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
}

// writeError maps domain errors onto the error envelope.
func writeError(c *gin.Context, err error) {
	var empty *model.EmptyCurveError
	var disjoint *model.DisjointDomainError
	var malformed *model.MalformedRowError
	var unordered *model.UnorderedCurveError
	var grid *model.GridTooLargeError

	switch {
	case errors.As(err, &empty):
		details := map[string]interface{}{"interval": empty.Interval}
		if empty.Side != "" {
			details["side"] = string(empty.Side)
		}
		if !empty.Day.IsZero() {
			details["day"] = empty.Day.Format(model.DateLayout)
		}
		abortWithError(c, http.StatusUnprocessableEntity, "EMPTY_CURVE", err.Error(), details)
	case errors.As(err, &disjoint):
		abortWithError(c, http.StatusUnprocessableEntity, "DISJOINT_DOMAIN", err.Error(), map[string]interface{}{
			"min": disjoint.Min,
			"max": disjoint.Max,
		})
	case errors.As(err, &unordered):
		abortWithError(c, http.StatusUnprocessableEntity, "UNORDERED_CURVE", err.Error(), map[string]interface{}{
			"side":  string(unordered.Side),
			"index": unordered.Index,
		})
	case errors.As(err, &grid):
		abortWithError(c, http.StatusUnprocessableEntity, "GRID_TOO_LARGE", err.Error(), map[string]interface{}{
			"limit": grid.Limit,
		})
	case errors.Is(err, model.ErrZeroMass):
		abortWithError(c, http.StatusUnprocessableEntity, "ZERO_MASS", err.Error(), nil)
	case errors.As(err, &malformed):
		abortWithError(c, http.StatusBadRequest, "MALFORMED_ROW", err.Error(), map[string]interface{}{
			"line":   malformed.Line,
			"column": malformed.Column,
			"value":  malformed.Value,
		})
	case errors.Is(err, store.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		log.Errorf("Handler: unexpected error on %s: %v", c.FullPath(), err)
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
