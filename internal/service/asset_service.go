package service

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetStore interface {
	CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error)
	ListAssets(ctx context.Context, customerID uuid.UUID) ([]storage.Asset, error)
	DepositAsset(ctx context.Context, customerID uuid.UUID, assetName string, amount decimal.Decimal) (*storage.Asset, error)
}

type AssetService struct {
	store   AssetStore
	logger  *slog.Logger
	metrics *Metrics
}

func NewAssetService(store AssetStore, logger *slog.Logger, metrics *Metrics) *AssetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetService{store: store, logger: logger, metrics: metrics}
}

func (s *AssetService) ListAssets(ctx context.Context, actor Identity, customerID uuid.UUID) ([]storage.Asset, error) {
	if err := s.checkCustomerAndPermission(ctx, actor, customerID); err != nil {
		return nil, err
	}
	return s.store.ListAssets(ctx, customerID)
}

// Deposit credits both size and usable size of the customer's balance,
// creating it when the asset has never been held before.
func (s *AssetService) Deposit(ctx context.Context, actor Identity, customerID uuid.UUID, assetName string, amount decimal.Decimal) (*storage.Asset, error) {
	if err := s.checkCustomerAndPermission(ctx, actor, customerID); err != nil {
		return nil, err
	}

	asset, err := s.store.DepositAsset(ctx, customerID, assetName, amount)
	if s.metrics != nil {
		s.metrics.Deposits.WithLabelValues(statusLabel(err)).Inc()
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("asset deposited", "customer_id", customerID, "asset", assetName, "amount", amount)
	return asset, nil
}

func (s *AssetService) checkCustomerAndPermission(ctx context.Context, actor Identity, customerID uuid.UUID) error {
	if !actor.IsAdmin() && actor.CustomerID != customerID {
		return ErrPermissionDenied
	}
	exists, err := s.store.CustomerExists(ctx, customerID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", storage.ErrCustomerNotFound, customerID)
	}
	return nil
}
