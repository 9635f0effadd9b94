package handlers

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/dogukanozdemir/Brokerage/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	Service *service.OrderService
	Logger  *slog.Logger
}

type matchOrdersRequest struct {
	OrderIDs []string `json:"orderIds"`
	MatchAll bool     `json:"matchAll"`
}

type matchOrdersResponse struct {
	MatchedCount int             `json:"matchedCount"`
	Orders       []orderResponse `json:"orders"`
}

func NewAdminHandler(svc *service.OrderService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{Service: svc, Logger: logger}
}

func (h *AdminHandler) Register(r gin.IRoutes) {
	r.POST("/v1/admin/match-orders", h.MatchOrders)
}

func (h *AdminHandler) MatchOrders(c *gin.Context) {
	actor, ok := callerIdentity(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
		return
	}

	var req matchOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}
	if !req.MatchAll && len(req.OrderIDs) == 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "orderIds or matchAll is required", nil)
		return
	}

	orderIDs := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, raw := range req.OrderIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "orderIds must be uuids", nil)
			return
		}
		orderIDs = append(orderIDs, id)
	}

	matched, err := h.Service.MatchOrders(c.Request.Context(), actor, service.MatchOrdersInput{
		OrderIDs: orderIDs,
		MatchAll: req.MatchAll,
	})
	if err != nil {
		if !writeServiceError(c, err) {
			h.Logger.Error("match orders failed", "matched_so_far", len(matched), "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		}
		return
	}

	out := make([]orderResponse, 0, len(matched))
	for i := range matched {
		out = append(out, toOrderResponse(&matched[i]))
	}
	c.JSON(http.StatusOK, matchOrdersResponse{MatchedCount: len(out), Orders: out})
}
