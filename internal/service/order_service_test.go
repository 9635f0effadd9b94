package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore keeps balances and orders in memory and applies the same
// balance rules as the Postgres store: reservations touch usable_size
// only, releases restore usable_size, settlements take size from the
// outgoing balance and credit both fields of the incoming one.
type memStore struct {
	customers map[uuid.UUID]bool
	assets    map[string]*storage.Asset
	orders    map[uuid.UUID]*storage.Order
	orderSeq  []uuid.UUID

	settleErr error
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[uuid.UUID]bool),
		assets:    make(map[string]*storage.Asset),
		orders:    make(map[uuid.UUID]*storage.Order),
	}
}

func assetKey(customerID uuid.UUID, assetName string) string {
	return customerID.String() + "/" + assetName
}

func (m *memStore) addCustomer() uuid.UUID {
	id := uuid.New()
	m.customers[id] = true
	return id
}

func (m *memStore) setBalance(customerID uuid.UUID, assetName, size, usable string) {
	m.assets[assetKey(customerID, assetName)] = &storage.Asset{
		CustomerID: customerID,
		AssetName:  assetName,
		Size:       decimal.RequireFromString(size),
		UsableSize: decimal.RequireFromString(usable),
		UpdatedAt:  time.Now(),
	}
}

func (m *memStore) balance(t *testing.T, customerID uuid.UUID, assetName string) *storage.Asset {
	t.Helper()
	asset, ok := m.assets[assetKey(customerID, assetName)]
	if !ok {
		t.Fatalf("no %s balance for %s", assetName, customerID)
	}
	return asset
}

func (m *memStore) CustomerExists(_ context.Context, customerID uuid.UUID) (bool, error) {
	return m.customers[customerID], nil
}

func (m *memStore) GetOrder(_ context.Context, orderID uuid.UUID) (*storage.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memStore) ListOrders(_ context.Context, customerID uuid.UUID, from, to *time.Time) ([]storage.Order, error) {
	var out []storage.Order
	for _, id := range m.orderSeq {
		order := m.orders[id]
		if order.CustomerID != customerID {
			continue
		}
		if from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.CreatedAt.After(*to) {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (m *memStore) ListPendingOrders(_ context.Context) ([]storage.Order, error) {
	var out []storage.Order
	for _, id := range m.orderSeq {
		if order := m.orders[id]; order.Status == storage.OrderStatusPending {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memStore) ListPendingOrdersByID(_ context.Context, orderIDs []uuid.UUID) ([]storage.Order, error) {
	wanted := make(map[uuid.UUID]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	var out []storage.Order
	for _, id := range m.orderSeq {
		order := m.orders[id]
		if wanted[id] && order.Status == storage.OrderStatusPending {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memStore) CreateOrderReserving(_ context.Context, order storage.Order, reservation storage.BalanceChange) (*storage.Order, error) {
	asset, ok := m.assets[assetKey(reservation.CustomerID, reservation.AssetName)]
	if !ok {
		return nil, storage.ErrAssetNotFound
	}
	if asset.UsableSize.LessThan(reservation.Amount) {
		return nil, storage.ErrInsufficientBalance
	}
	asset.UsableSize = asset.UsableSize.Sub(reservation.Amount)

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.Status = storage.OrderStatusPending
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	m.orders[order.ID] = &order
	m.orderSeq = append(m.orderSeq, order.ID)

	copied := order
	return &copied, nil
}

func (m *memStore) CancelOrderReleasing(_ context.Context, orderID uuid.UUID, release storage.BalanceChange) (*storage.Order, error) {
	order, err := m.transition(orderID, storage.OrderStatusCanceled)
	if err != nil {
		return nil, err
	}

	asset, ok := m.assets[assetKey(release.CustomerID, release.AssetName)]
	if !ok {
		return nil, storage.ErrAssetNotFound
	}
	asset.UsableSize = asset.UsableSize.Add(release.Amount)

	copied := *order
	return &copied, nil
}

func (m *memStore) MatchOrderSettling(_ context.Context, orderID uuid.UUID, outgoing, incoming storage.BalanceChange) (*storage.Order, error) {
	if m.settleErr != nil {
		return nil, m.settleErr
	}

	order, err := m.transition(orderID, storage.OrderStatusMatched)
	if err != nil {
		return nil, err
	}

	out, ok := m.assets[assetKey(outgoing.CustomerID, outgoing.AssetName)]
	if !ok {
		return nil, storage.ErrAssetNotFound
	}
	out.Size = out.Size.Sub(outgoing.Amount)

	inKey := assetKey(incoming.CustomerID, incoming.AssetName)
	in, ok := m.assets[inKey]
	if !ok {
		in = &storage.Asset{CustomerID: incoming.CustomerID, AssetName: incoming.AssetName}
		m.assets[inKey] = in
	}
	in.Size = in.Size.Add(incoming.Amount)
	in.UsableSize = in.UsableSize.Add(incoming.Amount)

	copied := *order
	return &copied, nil
}

func (m *memStore) transition(orderID uuid.UUID, status string) (*storage.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	if order.Status != storage.OrderStatusPending {
		return nil, fmt.Errorf("%w: status is %s", storage.ErrOrderNotPending, order.Status)
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return order, nil
}

type recordProducer struct {
	published []string
}

func (r *recordProducer) PublishJSON(_ context.Context, topic, _ string, _ any) (int32, int64, error) {
	r.published = append(r.published, topic)
	return 0, 0, nil
}

func (r *recordProducer) Close() error { return nil }

var testTopics = Topics{
	OrderCreated:  "orders.created",
	OrderCanceled: "orders.canceled",
	OrderMatched:  "orders.matched",
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func admin() Identity {
	return Identity{CustomerID: uuid.New(), Role: storage.RoleAdmin}
}

func TestCreateBuyOrderReservesSettlementCurrency(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "1000", "1000")

	producer := &recordProducer{}
	svc := NewOrderService(store, producer, nil, nil, testTopics)

	order, err := svc.CreateOrder(context.Background(), Identity{CustomerID: customerID, Role: storage.RoleCustomer}, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("2"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != storage.OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}

	try := store.balance(t, customerID, "TRY")
	if !try.Size.Equal(dec("1000")) {
		t.Fatalf("size should be untouched by reservation, got %s", try.Size)
	}
	if !try.UsableSize.Equal(dec("800")) {
		t.Fatalf("expected usable 800, got %s", try.UsableSize)
	}
	if len(producer.published) != 1 || producer.published[0] != "orders.created" {
		t.Fatalf("expected orders.created publish, got %v", producer.published)
	}
}

func TestCreateSellOrderReservesAsset(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "THYAO", "50", "50")

	svc := NewOrderService(store, nil, nil, nil, testTopics)

	_, err := svc.CreateOrder(context.Background(), Identity{CustomerID: customerID, Role: storage.RoleCustomer}, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "THYAO",
		Side:       storage.OrderSideSell,
		Size:       dec("10"),
		Price:      dec("25"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	asset := store.balance(t, customerID, "THYAO")
	if !asset.Size.Equal(dec("50")) || !asset.UsableSize.Equal(dec("40")) {
		t.Fatalf("expected 50/40, got %s/%s", asset.Size, asset.UsableSize)
	}
}

func TestCreateOrderRejectsSettlementCurrency(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "1000", "1000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)

	for _, name := range []string{"TRY", "try", " Try "} {
		_, err := svc.CreateOrder(context.Background(), Identity{CustomerID: customerID, Role: storage.RoleCustomer}, CreateOrderInput{
			CustomerID: customerID,
			AssetName:  name,
			Side:       storage.OrderSideBuy,
			Size:       dec("1"),
			Price:      dec("1"),
		})
		if !errors.Is(err, ErrSettlementCurrencyOrder) {
			t.Fatalf("asset %q: expected ErrSettlementCurrencyOrder, got %v", name, err)
		}
	}
}

func TestCreateOrderInsufficientBalance(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "100", "100")

	svc := NewOrderService(store, nil, nil, nil, testTopics)

	_, err := svc.CreateOrder(context.Background(), Identity{CustomerID: customerID, Role: storage.RoleCustomer}, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("2"),
		Price:      dec("100"),
	})
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(store.orders) != 0 {
		t.Fatalf("no order should be created on a failed reservation")
	}

	try := store.balance(t, customerID, "TRY")
	if !try.UsableSize.Equal(dec("100")) {
		t.Fatalf("usable should be untouched, got %s", try.UsableSize)
	}
}

func TestCreateSellOrderWithoutHolding(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()

	svc := NewOrderService(store, nil, nil, nil, testTopics)

	_, err := svc.CreateOrder(context.Background(), Identity{CustomerID: customerID, Role: storage.RoleCustomer}, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "THYAO",
		Side:       storage.OrderSideSell,
		Size:       dec("1"),
		Price:      dec("10"),
	})
	if !errors.Is(err, storage.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestCreateOrderPermission(t *testing.T) {
	store := newMemStore()
	owner := store.addCustomer()
	other := store.addCustomer()
	store.setBalance(owner, "TRY", "1000", "1000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)

	input := CreateOrderInput{
		CustomerID: owner,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("1"),
		Price:      dec("10"),
	}

	_, err := svc.CreateOrder(context.Background(), Identity{CustomerID: other, Role: storage.RoleCustomer}, input)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	if _, err := svc.CreateOrder(context.Background(), admin(), input); err != nil {
		t.Fatalf("admin should act on any customer: %v", err)
	}
}

func TestCreateOrderUnknownCustomer(t *testing.T) {
	store := newMemStore()
	svc := NewOrderService(store, nil, nil, nil, testTopics)

	unknown := uuid.New()
	_, err := svc.CreateOrder(context.Background(), admin(), CreateOrderInput{
		CustomerID: unknown,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("1"),
		Price:      dec("10"),
	})
	if !errors.Is(err, storage.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestCancelBuyOrderReleasesReservation(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "1000", "1000")

	producer := &recordProducer{}
	svc := NewOrderService(store, producer, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	order, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("3"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	canceled, err := svc.CancelOrder(context.Background(), actor, order.ID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if canceled.Status != storage.OrderStatusCanceled {
		t.Fatalf("expected CANCELED, got %s", canceled.Status)
	}

	try := store.balance(t, customerID, "TRY")
	if !try.Size.Equal(dec("1000")) || !try.UsableSize.Equal(dec("1000")) {
		t.Fatalf("expected 1000/1000 after release, got %s/%s", try.Size, try.UsableSize)
	}
	if len(producer.published) != 2 || producer.published[1] != "orders.canceled" {
		t.Fatalf("expected orders.canceled publish, got %v", producer.published)
	}
}

func TestCancelOrderTwice(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "1000", "1000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	order, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("1"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.CancelOrder(context.Background(), actor, order.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	_, err = svc.CancelOrder(context.Background(), actor, order.ID)
	if !errors.Is(err, storage.ErrOrderNotPending) {
		t.Fatalf("expected ErrOrderNotPending, got %v", err)
	}

	try := store.balance(t, customerID, "TRY")
	if !try.UsableSize.Equal(dec("1000")) {
		t.Fatalf("second cancel must not release again, got usable %s", try.UsableSize)
	}
}

func TestCancelOrderOfOtherCustomer(t *testing.T) {
	store := newMemStore()
	owner := store.addCustomer()
	other := store.addCustomer()
	store.setBalance(owner, "TRY", "1000", "1000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)

	order, err := svc.CreateOrder(context.Background(), Identity{CustomerID: owner, Role: storage.RoleCustomer}, CreateOrderInput{
		CustomerID: owner,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("1"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	_, err = svc.CancelOrder(context.Background(), Identity{CustomerID: other, Role: storage.RoleCustomer}, order.ID)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestMatchBuyOrderSettles(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "1000", "1000")

	producer := &recordProducer{}
	svc := NewOrderService(store, producer, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	order, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("2"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	matched, err := svc.MatchOrders(context.Background(), admin(), MatchOrdersInput{OrderIDs: []uuid.UUID{order.ID}})
	if err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}
	if len(matched) != 1 || matched[0].Status != storage.OrderStatusMatched {
		t.Fatalf("expected one MATCHED order, got %+v", matched)
	}

	try := store.balance(t, customerID, "TRY")
	if !try.Size.Equal(dec("800")) || !try.UsableSize.Equal(dec("800")) {
		t.Fatalf("expected TRY 800/800, got %s/%s", try.Size, try.UsableSize)
	}
	aapl := store.balance(t, customerID, "AAPL")
	if !aapl.Size.Equal(dec("2")) || !aapl.UsableSize.Equal(dec("2")) {
		t.Fatalf("expected AAPL 2/2, got %s/%s", aapl.Size, aapl.UsableSize)
	}
	if producer.published[len(producer.published)-1] != "orders.matched" {
		t.Fatalf("expected orders.matched publish, got %v", producer.published)
	}
}

func TestMatchSellOrderSettles(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "THYAO", "50", "50")
	store.setBalance(customerID, "TRY", "100", "100")

	svc := NewOrderService(store, nil, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	order, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "THYAO",
		Side:       storage.OrderSideSell,
		Size:       dec("10"),
		Price:      dec("25"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if _, err := svc.MatchOrders(context.Background(), admin(), MatchOrdersInput{OrderIDs: []uuid.UUID{order.ID}}); err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}

	thyao := store.balance(t, customerID, "THYAO")
	if !thyao.Size.Equal(dec("40")) || !thyao.UsableSize.Equal(dec("40")) {
		t.Fatalf("expected THYAO 40/40, got %s/%s", thyao.Size, thyao.UsableSize)
	}
	try := store.balance(t, customerID, "TRY")
	if !try.Size.Equal(dec("350")) || !try.UsableSize.Equal(dec("350")) {
		t.Fatalf("expected TRY 350/350, got %s/%s", try.Size, try.UsableSize)
	}
}

func TestMatchAllOverridesOrderIDs(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "10000", "10000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	var first *storage.Order
	for i := 0; i < 3; i++ {
		order, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
			CustomerID: customerID,
			AssetName:  "AAPL",
			Side:       storage.OrderSideBuy,
			Size:       dec("1"),
			Price:      dec("100"),
		})
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		if first == nil {
			first = order
		}
	}

	matched, err := svc.MatchOrders(context.Background(), admin(), MatchOrdersInput{
		OrderIDs: []uuid.UUID{first.ID},
		MatchAll: true,
	})
	if err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}
	if len(matched) != 3 {
		t.Fatalf("matchAll should settle every pending order, got %d", len(matched))
	}
}

func TestMatchSkipsNonPendingAndUnknown(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "10000", "10000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	pending, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("1"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	canceled, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("1"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if _, err := svc.CancelOrder(context.Background(), actor, canceled.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	matched, err := svc.MatchOrders(context.Background(), admin(), MatchOrdersInput{
		OrderIDs: []uuid.UUID{pending.ID, canceled.ID, uuid.New()},
	})
	if err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}
	if len(matched) != 1 || matched[0].ID != pending.ID {
		t.Fatalf("only the pending order should match, got %+v", matched)
	}
}

func TestMatchRequiresAdmin(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()

	svc := NewOrderService(store, nil, nil, nil, testTopics)

	_, err := svc.MatchOrders(context.Background(), Identity{CustomerID: customerID, Role: storage.RoleCustomer}, MatchOrdersInput{MatchAll: true})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestMatchStopsOnInfrastructureError(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "10000", "10000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
			CustomerID: customerID,
			AssetName:  "AAPL",
			Side:       storage.OrderSideBuy,
			Size:       dec("1"),
			Price:      dec("100"),
		}); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	store.settleErr = errors.New("connection reset")
	matched, err := svc.MatchOrders(context.Background(), admin(), MatchOrdersInput{MatchAll: true})
	if err == nil {
		t.Fatalf("expected error from failing settlement")
	}
	if len(matched) != 0 {
		t.Fatalf("no order settled before the failure, got %d", len(matched))
	}
}

func TestListOrdersDateWindow(t *testing.T) {
	store := newMemStore()
	customerID := store.addCustomer()
	store.setBalance(customerID, "TRY", "10000", "10000")

	svc := NewOrderService(store, nil, nil, nil, testTopics)
	actor := Identity{CustomerID: customerID, Role: storage.RoleCustomer}

	order, err := svc.CreateOrder(context.Background(), actor, CreateOrderInput{
		CustomerID: customerID,
		AssetName:  "AAPL",
		Side:       storage.OrderSideBuy,
		Size:       dec("1"),
		Price:      dec("100"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	today := time.Now()
	orders, err := svc.ListOrders(context.Background(), actor, customerID, &today, &today)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != order.ID {
		t.Fatalf("expected the order inside today's window, got %+v", orders)
	}

	yesterday := today.AddDate(0, 0, -1)
	orders, err = svc.ListOrders(context.Background(), actor, customerID, &yesterday, &yesterday)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("yesterday's window should be empty, got %d", len(orders))
	}

	// A lone bound is ignored and the full history comes back.
	orders, err = svc.ListOrders(context.Background(), actor, customerID, &yesterday, nil)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("single-bound filter should be ignored, got %d", len(orders))
	}
}
