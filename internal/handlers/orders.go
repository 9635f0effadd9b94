package handlers

import (
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/dogukanozdemir/Brokerage/internal/service"
	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/dogukanozdemir/Brokerage/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type OrderHandler struct {
	Service *service.OrderService
	Logger  *slog.Logger
}

type createOrderRequest struct {
	CustomerID string `json:"customerId"`
	AssetName  string `json:"assetName"`
	Side       string `json:"side"`
	Size       string `json:"size"`
	Price      string `json:"price"`
}

type orderResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	AssetName  string `json:"assetName"`
	Side       string `json:"side"`
	Size       string `json:"size"`
	Price      string `json:"price"`
	Status     string `json:"status"`
	CreateDate string `json:"createDate"`
}

func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{Service: svc, Logger: logger}
}

func (h *OrderHandler) Register(r gin.IRoutes) {
	r.POST("/v1/orders", h.CreateOrder)
	r.GET("/v1/orders", h.ListOrders)
	r.DELETE("/v1/orders/:orderId", h.CancelOrder)
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, ok := callerIdentity(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}

	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "customerId must be a uuid", nil)
		return
	}
	if errs := validation.ValidateCreateOrder(req.AssetName, req.Side, req.Size, req.Price); len(errs) > 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", errs)
		return
	}

	size, _ := decimal.NewFromString(strings.TrimSpace(req.Size))
	price, _ := decimal.NewFromString(strings.TrimSpace(req.Price))

	order, err := h.Service.CreateOrder(c.Request.Context(), actor, service.CreateOrderInput{
		CustomerID: customerID,
		AssetName:  validation.NormalizeAssetName(req.AssetName),
		Side:       strings.ToUpper(strings.TrimSpace(req.Side)),
		Size:       size,
		Price:      price,
	})
	if err != nil {
		if !writeServiceError(c, err) {
			h.Logger.Error("create order failed", "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, ok := callerIdentity(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
		return
	}

	customerID, err := uuid.Parse(strings.TrimSpace(c.Query("customerId")))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "customerId must be a uuid", nil)
		return
	}

	fromDate, err := parseDateQuery(c.Query("startDate"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "startDate must be YYYY-MM-DD", nil)
		return
	}
	toDate, err := parseDateQuery(c.Query("endDate"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "endDate must be YYYY-MM-DD", nil)
		return
	}

	orders, err := h.Service.ListOrders(c.Request.Context(), actor, customerID, fromDate, toDate)
	if err != nil {
		if !writeServiceError(c, err) {
			h.Logger.Error("list orders failed", "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		}
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := callerIdentity(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "orderId must be a uuid", nil)
		return
	}

	order, err := h.Service.CancelOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		if !writeServiceError(c, err) {
			h.Logger.Error("cancel order failed", "order_id", orderID, "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func parseDateQuery(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toOrderResponse(order *storage.Order) orderResponse {
	return orderResponse{
		ID:         order.ID.String(),
		CustomerID: order.CustomerID.String(),
		AssetName:  order.AssetName,
		Side:       order.Side,
		Size:       order.Size.String(),
		Price:      order.Price.String(),
		Status:     order.Status,
		CreateDate: order.CreatedAt.UTC().Format(time.RFC3339),
	}
}
