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

type AssetHandler struct {
	Service *service.AssetService
	Logger  *slog.Logger
}

type depositRequest struct {
	CustomerID string `json:"customerId"`
	AssetName  string `json:"assetName"`
	Size       string `json:"size"`
}

type assetResponse struct {
	CustomerID string `json:"customerId"`
	AssetName  string `json:"assetName"`
	Size       string `json:"size"`
	UsableSize string `json:"usableSize"`
	UpdatedAt  string `json:"updatedAt"`
}

func NewAssetHandler(svc *service.AssetService, logger *slog.Logger) *AssetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetHandler{Service: svc, Logger: logger}
}

func (h *AssetHandler) Register(r gin.IRoutes) {
	r.GET("/v1/assets/:customerId", h.ListAssets)
	r.POST("/v1/assets", h.Deposit)
}

func (h *AssetHandler) ListAssets(c *gin.Context) {
	actor, ok := callerIdentity(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
		return
	}

	customerID, err := uuid.Parse(c.Param("customerId"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "customerId must be a uuid", nil)
		return
	}

	assets, err := h.Service.ListAssets(c.Request.Context(), actor, customerID)
	if err != nil {
		if !writeServiceError(c, err) {
			h.Logger.Error("list assets failed", "customer_id", customerID, "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		}
		return
	}

	out := make([]assetResponse, 0, len(assets))
	for i := range assets {
		out = append(out, toAssetResponse(&assets[i]))
	}
	c.JSON(http.StatusOK, gin.H{"assets": out})
}

func (h *AssetHandler) Deposit(c *gin.Context) {
	actor, ok := callerIdentity(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}

	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "customerId must be a uuid", nil)
		return
	}
	if errs := validation.ValidateDeposit(req.AssetName, req.Size); len(errs) > 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", errs)
		return
	}

	amount, _ := decimal.NewFromString(strings.TrimSpace(req.Size))

	asset, err := h.Service.Deposit(c.Request.Context(), actor, customerID, validation.NormalizeAssetName(req.AssetName), amount)
	if err != nil {
		if !writeServiceError(c, err) {
			h.Logger.Error("deposit failed", "customer_id", customerID, "error", err)
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, toAssetResponse(asset))
}

func toAssetResponse(asset *storage.Asset) assetResponse {
	return assetResponse{
		CustomerID: asset.CustomerID.String(),
		AssetName:  asset.AssetName,
		Size:       asset.Size.String(),
		UsableSize: asset.UsableSize.String(),
		UpdatedAt:  asset.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
