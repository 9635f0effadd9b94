package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/dogukanozdemir/Brokerage/internal/kafka"
	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPermissionDenied        = errors.New("you don't have permission to access other customers' resources")
	ErrSettlementCurrencyOrder = errors.New("TRY cannot be bought or sold directly")
)

// Identity is the authenticated caller, resolved from the JWT by the
// handler layer and passed into every operation explicitly.
type Identity struct {
	CustomerID uuid.UUID
	Role       string
}

func (i Identity) IsAdmin() bool {
	return i.Role == storage.RoleAdmin
}

type Store interface {
	CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (*storage.Order, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, from, to *time.Time) ([]storage.Order, error)
	ListPendingOrders(ctx context.Context) ([]storage.Order, error)
	ListPendingOrdersByID(ctx context.Context, orderIDs []uuid.UUID) ([]storage.Order, error)

	CreateOrderReserving(ctx context.Context, order storage.Order, reservation storage.BalanceChange) (*storage.Order, error)
	CancelOrderReleasing(ctx context.Context, orderID uuid.UUID, release storage.BalanceChange) (*storage.Order, error)
	MatchOrderSettling(ctx context.Context, orderID uuid.UUID, outgoing, incoming storage.BalanceChange) (*storage.Order, error)
}

type Topics struct {
	OrderCreated  string
	OrderCanceled string
	OrderMatched  string
}

type OrderService struct {
	store    Store
	producer kafka.Publisher
	logger   *slog.Logger
	metrics  *Metrics
	topics   Topics
}

type CreateOrderInput struct {
	CustomerID uuid.UUID
	AssetName  string
	Side       string
	Size       decimal.Decimal
	Price      decimal.Decimal
}

type MatchOrdersInput struct {
	OrderIDs []uuid.UUID
	MatchAll bool
}

func NewOrderService(store Store, producer kafka.Publisher, logger *slog.Logger, metrics *Metrics, topics Topics) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		store:    store,
		producer: producer,
		logger:   logger,
		metrics:  metrics,
		topics:   topics,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, actor Identity, input CreateOrderInput) (*storage.Order, error) {
	if err := s.checkCustomerAndPermission(ctx, actor, input.CustomerID); err != nil {
		return nil, err
	}
	if strings.EqualFold(strings.TrimSpace(input.AssetName), SettlementCurrency) {
		return nil, ErrSettlementCurrencyOrder
	}

	order, err := strategyForSide(s.store, input.Side).CreateOrder(ctx, input)
	if s.metrics != nil {
		s.metrics.OrdersCreated.WithLabelValues(input.Side, statusLabel(err)).Inc()
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", order.ID, "customer_id", order.CustomerID, "side", order.Side)
	s.publish(ctx, s.topics.OrderCreated, order)
	return order, nil
}

// ListOrders returns the customer's orders, optionally limited to an
// inclusive date window (start of fromDate through end of toDate). The
// filter only applies when both dates are present.
func (s *OrderService) ListOrders(ctx context.Context, actor Identity, customerID uuid.UUID, fromDate, toDate *time.Time) ([]storage.Order, error) {
	if err := s.checkCustomerAndPermission(ctx, actor, customerID); err != nil {
		return nil, err
	}

	if fromDate != nil && toDate != nil {
		from := startOfDay(*fromDate)
		to := endOfDay(*toDate)
		return s.store.ListOrders(ctx, customerID, &from, &to)
	}
	return s.store.ListOrders(ctx, customerID, nil, nil)
}

func (s *OrderService) CancelOrder(ctx context.Context, actor Identity, orderID uuid.UUID) (*storage.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomerAndPermission(ctx, actor, order.CustomerID); err != nil {
		return nil, err
	}
	if order.Status != storage.OrderStatusPending {
		return nil, fmt.Errorf("%w: status is %s", storage.ErrOrderNotPending, order.Status)
	}

	canceled, err := strategyForSide(s.store, order.Side).CancelOrder(ctx, order)
	if s.metrics != nil {
		s.metrics.OrderCancellations.WithLabelValues(statusLabel(err)).Inc()
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("order canceled", "order_id", canceled.ID, "customer_id", canceled.CustomerID)
	s.publish(ctx, s.topics.OrderCanceled, canceled)
	return canceled, nil
}

// MatchOrders settles pending orders: all of them when MatchAll is set,
// otherwise the PENDING subset of the given ids. MatchAll wins when both
// are supplied. Each order settles in its own transaction; an order that
// lost a status race along the way is skipped, while an infrastructure
// failure stops the run and leaves earlier matches in place.
func (s *OrderService) MatchOrders(ctx context.Context, actor Identity, input MatchOrdersInput) ([]storage.Order, error) {
	if !actor.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.MatchRunDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var pending []storage.Order
	var err error
	if input.MatchAll {
		pending, err = s.store.ListPendingOrders(ctx)
	} else {
		pending, err = s.store.ListPendingOrdersByID(ctx, input.OrderIDs)
	}
	if err != nil {
		return nil, err
	}

	matched := make([]storage.Order, 0, len(pending))
	for i := range pending {
		order := &pending[i]
		settled, err := strategyForSide(s.store, order.Side).MatchOrder(ctx, order)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotPending) || errors.Is(err, storage.ErrOrderNotFound) {
				s.logger.Warn("order skipped during matching", "order_id", order.ID, "reason", err)
				continue
			}
			return matched, fmt.Errorf("match order %s: %w", order.ID, err)
		}
		if s.metrics != nil {
			s.metrics.OrdersMatched.WithLabelValues(settled.Side).Inc()
		}
		s.logger.Info("order matched", "order_id", settled.ID, "customer_id", settled.CustomerID)
		s.publish(ctx, s.topics.OrderMatched, settled)
		matched = append(matched, *settled)
	}
	return matched, nil
}

func (s *OrderService) checkCustomerAndPermission(ctx context.Context, actor Identity, customerID uuid.UUID) error {
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

type orderEvent struct {
	kafka.Envelope
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	AssetName  string `json:"asset_name"`
	Side       string `json:"side"`
	Size       string `json:"size"`
	Price      string `json:"price"`
	Status     string `json:"status"`
}

// publish emits the order lifecycle event when a producer is wired.
// Publishing is best effort; the state change has already committed.
func (s *OrderService) publish(ctx context.Context, topic string, order *storage.Order) {
	if s.producer == nil || topic == "" {
		return
	}
	envelope, err := kafka.NewEnvelope("order."+strings.ToLower(order.Status), 1, "")
	if err != nil {
		s.logger.Error("build order event failed", "error", err)
		return
	}
	event := orderEvent{
		Envelope:   envelope,
		OrderID:    order.ID.String(),
		CustomerID: order.CustomerID.String(),
		AssetName:  order.AssetName,
		Side:       order.Side,
		Size:       order.Size.String(),
		Price:      order.Price.String(),
		Status:     order.Status,
	}
	if _, _, err := s.producer.PublishJSON(ctx, topic, order.ID.String(), event); err != nil {
		s.logger.Error("publish order event failed", "topic", topic, "order_id", order.ID, "error", err)
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
