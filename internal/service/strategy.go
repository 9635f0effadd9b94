package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dogukanozdemir/Brokerage/internal/storage"
)

// SettlementCurrency is the money-like asset every order is priced in.
// It cannot be bought or sold directly.
const SettlementCurrency = "TRY"

// OrderStrategy encodes the side-specific balance rules of the order
// lifecycle: which balance a new order reserves from, which balance a
// cancellation releases to, and how a match settles. Status transitions
// stay in the OrderService so the state machine lives in one place.
type OrderStrategy interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*storage.Order, error)
	CancelOrder(ctx context.Context, order *storage.Order) (*storage.Order, error)
	MatchOrder(ctx context.Context, order *storage.Order) (*storage.Order, error)
}

func strategyForSide(store Store, side string) OrderStrategy {
	if side == storage.OrderSideBuy {
		return &buyStrategy{store: store}
	}
	return &sellStrategy{store: store}
}

// buyStrategy reserves and pays with the settlement currency and
// receives the traded asset.
type buyStrategy struct {
	store Store
}

func (s *buyStrategy) CreateOrder(ctx context.Context, input CreateOrderInput) (*storage.Order, error) {
	cost := input.Size.Mul(input.Price)
	order, err := s.store.CreateOrderReserving(ctx, storage.Order{
		CustomerID: input.CustomerID,
		AssetName:  input.AssetName,
		Side:       storage.OrderSideBuy,
		Size:       input.Size,
		Price:      input.Price,
	}, storage.BalanceChange{
		CustomerID: input.CustomerID,
		AssetName:  SettlementCurrency,
		Amount:     cost,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			return nil, fmt.Errorf("%w: no %s balance found, please deposit %s first",
				storage.ErrAssetNotFound, SettlementCurrency, SettlementCurrency)
		}
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return nil, fmt.Errorf("%w: usable %s is below the order cost of %s",
				storage.ErrInsufficientBalance, SettlementCurrency, cost)
		}
		return nil, err
	}
	return order, nil
}

func (s *buyStrategy) CancelOrder(ctx context.Context, order *storage.Order) (*storage.Order, error) {
	return s.store.CancelOrderReleasing(ctx, order.ID, storage.BalanceChange{
		CustomerID: order.CustomerID,
		AssetName:  SettlementCurrency,
		Amount:     order.Size.Mul(order.Price),
	})
}

func (s *buyStrategy) MatchOrder(ctx context.Context, order *storage.Order) (*storage.Order, error) {
	// The settlement balance loses size only: its usable_size was
	// already reduced when the order was created.
	return s.store.MatchOrderSettling(ctx, order.ID,
		storage.BalanceChange{
			CustomerID: order.CustomerID,
			AssetName:  SettlementCurrency,
			Amount:     order.Size.Mul(order.Price),
		},
		storage.BalanceChange{
			CustomerID: order.CustomerID,
			AssetName:  order.AssetName,
			Amount:     order.Size,
		},
	)
}

// sellStrategy reserves and gives up the traded asset and receives the
// settlement currency.
type sellStrategy struct {
	store Store
}

func (s *sellStrategy) CreateOrder(ctx context.Context, input CreateOrderInput) (*storage.Order, error) {
	order, err := s.store.CreateOrderReserving(ctx, storage.Order{
		CustomerID: input.CustomerID,
		AssetName:  input.AssetName,
		Side:       storage.OrderSideSell,
		Size:       input.Size,
		Price:      input.Price,
	}, storage.BalanceChange{
		CustomerID: input.CustomerID,
		AssetName:  input.AssetName,
		Amount:     input.Size,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAssetNotFound) {
			return nil, fmt.Errorf("%w: you don't own any %s", storage.ErrAssetNotFound, input.AssetName)
		}
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return nil, fmt.Errorf("%w: usable %s is below the order size of %s",
				storage.ErrInsufficientBalance, input.AssetName, input.Size)
		}
		return nil, err
	}
	return order, nil
}

func (s *sellStrategy) CancelOrder(ctx context.Context, order *storage.Order) (*storage.Order, error) {
	return s.store.CancelOrderReleasing(ctx, order.ID, storage.BalanceChange{
		CustomerID: order.CustomerID,
		AssetName:  order.AssetName,
		Amount:     order.Size,
	})
}

func (s *sellStrategy) MatchOrder(ctx context.Context, order *storage.Order) (*storage.Order, error) {
	return s.store.MatchOrderSettling(ctx, order.ID,
		storage.BalanceChange{
			CustomerID: order.CustomerID,
			AssetName:  order.AssetName,
			Amount:     order.Size,
		},
		storage.BalanceChange{
			CustomerID: order.CustomerID,
			AssetName:  SettlementCurrency,
			Amount:     order.Size.Mul(order.Price),
		},
	)
}
