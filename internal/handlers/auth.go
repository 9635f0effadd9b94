package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/dogukanozdemir/Brokerage/internal/auth"
	"github.com/dogukanozdemir/Brokerage/internal/rate"
	"github.com/dogukanozdemir/Brokerage/internal/security"
	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/dogukanozdemir/Brokerage/internal/validation"
	"github.com/gin-gonic/gin"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type CustomerStore interface {
	GetCustomerByUsername(ctx context.Context, username string) (*storage.Customer, error)
	CreateCustomer(ctx context.Context, username, passwordHash, role string) (*storage.Customer, error)
}

type AuthHandler struct {
	Store       CustomerStore
	Logger      *slog.Logger
	JWTSecret   []byte
	AccessTTL   time.Duration
	Argon2      security.Argon2Params
	RateLimiter rate.Limiter
	Clock       Clock
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Username  string `json:"username"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func NewAuthHandler(store CustomerStore, logger *slog.Logger, jwtSecret string, accessTTL time.Duration, argon2 security.Argon2Params, limiter rate.Limiter) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		Store:       store,
		Logger:      logger,
		JWTSecret:   []byte(jwtSecret),
		AccessTTL:   accessTTL,
		Argon2:      argon2,
		RateLimiter: limiter,
		Clock:       systemClock{},
	}
}

func (h *AuthHandler) Register(r gin.IRoutes) {
	r.POST("/v1/register", h.RegisterCustomer)
	r.POST("/v1/login", h.Login)
}

func (h *AuthHandler) RegisterCustomer(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}

	if errs := validation.ValidateCredentials(req.Username, req.Password); len(errs) > 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", errs)
		return
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = storage.RoleCustomer
	}
	if role != storage.RoleCustomer && role != storage.RoleAdmin {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "role must be CUSTOMER or ADMIN", nil)
		return
	}

	hash, err := security.HashPassword(req.Password, h.Argon2)
	if err != nil {
		h.Logger.Error("password hash failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		return
	}

	customer, err := h.Store.CreateCustomer(c.Request.Context(), strings.TrimSpace(req.Username), hash, role)
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "customer with this username already exists", nil)
			return
		}
		h.Logger.Error("customer insert failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		return
	}

	token, err := auth.NewAccessToken(customer.ID.String(), customer.Role, h.JWTSecret, h.AccessTTL, h.Clock.Now())
	if err != nil {
		h.Logger.Error("jwt sign failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		Username:  customer.Username,
		Token:     token,
		ExpiresIn: int64(h.AccessTTL.Seconds()),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid payload", nil)
		return
	}

	if h.RateLimiter != nil {
		allowed, _, err := h.RateLimiter.Allow(c.Request.Context(), c.ClientIP(), h.Clock.Now())
		if err != nil {
			h.Logger.Error("rate limiter failed", "error", err)
		} else if !allowed {
			writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
	}

	customer, err := h.Store.GetCustomerByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
			return
		}
		h.Logger.Error("login lookup failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		return
	}

	ok, err := security.VerifyPassword(req.Password, customer.PasswordHash)
	if err != nil || !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
		return
	}

	token, err := auth.NewAccessToken(customer.ID.String(), customer.Role, h.JWTSecret, h.AccessTTL, h.Clock.Now())
	if err != nil {
		h.Logger.Error("jwt sign failed", "error", err)
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error", nil)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Username:  customer.Username,
		Token:     token,
		ExpiresIn: int64(h.AccessTTL.Seconds()),
	})
}
