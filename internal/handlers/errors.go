package handlers

import (
	"errors"
	"net/http"

	"github.com/dogukanozdemir/Brokerage/internal/service"
	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/dogukanozdemir/Brokerage/internal/validation"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeError(c *gin.Context, status int, code, message string, fields []validation.FieldError) {
	c.JSON(status, errorResponse{Code: code, Message: message, Fields: fields})
}

// writeServiceError translates service and storage sentinel errors into
// the HTTP error contract. Anything unrecognized is an internal error
// and must not leak details to the caller.
func writeServiceError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, service.ErrSettlementCurrencyOrder):
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, storage.ErrCustomerNotFound):
		writeError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "customer does not exist", nil)
	case errors.Is(err, storage.ErrOrderNotFound):
		writeError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
	case errors.Is(err, storage.ErrAssetNotFound):
		writeError(c, http.StatusNotFound, "ASSET_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, storage.ErrInsufficientBalance):
		writeError(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", err.Error(), nil)
	case errors.Is(err, storage.ErrOrderNotPending):
		writeError(c, http.StatusBadRequest, "ORDER_NOT_PENDING", err.Error(), nil)
	default:
		return false
	}
	return true
}
