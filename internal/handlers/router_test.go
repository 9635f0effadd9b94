package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/dogukanozdemir/Brokerage/internal/auth"
	"github.com/dogukanozdemir/Brokerage/internal/security"
	"github.com/dogukanozdemir/Brokerage/internal/service"
	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret"

var testArgon2 = security.Argon2Params{Memory: 64 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// fakeStore backs the whole handler stack in tests. Balance rules match
// the Postgres store: reservations touch usable_size only, releases
// restore it, settlements move size out and credit both fields in.
type fakeStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*storage.Customer
	byName    map[string]*storage.Customer
	assets    map[string]*storage.Asset
	orders    map[uuid.UUID]*storage.Order
	orderSeq  []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[uuid.UUID]*storage.Customer),
		byName:    make(map[string]*storage.Customer),
		assets:    make(map[string]*storage.Asset),
		orders:    make(map[uuid.UUID]*storage.Order),
	}
}

func balanceKey(customerID uuid.UUID, assetName string) string {
	return customerID.String() + "/" + assetName
}

func (f *fakeStore) addCustomer(username, role string) *storage.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer := &storage.Customer{ID: uuid.New(), Username: username, Role: role, CreatedAt: time.Now()}
	f.customers[customer.ID] = customer
	f.byName[username] = customer
	return customer
}

func (f *fakeStore) setBalance(customerID uuid.UUID, assetName, size, usable string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[balanceKey(customerID, assetName)] = &storage.Asset{
		CustomerID: customerID,
		AssetName:  assetName,
		Size:       decimal.RequireFromString(size),
		UsableSize: decimal.RequireFromString(usable),
		UpdatedAt:  time.Now(),
	}
}

func (f *fakeStore) CreateCustomer(_ context.Context, username, passwordHash, role string) (*storage.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[username]; ok {
		return nil, storage.ErrUsernameTaken
	}
	customer := &storage.Customer{ID: uuid.New(), Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now()}
	f.customers[customer.ID] = customer
	f.byName[username] = customer
	return customer, nil
}

func (f *fakeStore) GetCustomerByUsername(_ context.Context, username string) (*storage.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	customer, ok := f.byName[username]
	if !ok {
		return nil, storage.ErrCustomerNotFound
	}
	return customer, nil
}

func (f *fakeStore) CustomerExists(_ context.Context, customerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.customers[customerID]
	return ok, nil
}

func (f *fakeStore) GetOrder(_ context.Context, orderID uuid.UUID) (*storage.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeStore) ListOrders(_ context.Context, customerID uuid.UUID, from, to *time.Time) ([]storage.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Order
	for _, id := range f.orderSeq {
		order := f.orders[id]
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

func (f *fakeStore) ListPendingOrders(_ context.Context) ([]storage.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Order
	for _, id := range f.orderSeq {
		if order := f.orders[id]; order.Status == storage.OrderStatusPending {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPendingOrdersByID(_ context.Context, orderIDs []uuid.UUID) ([]storage.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	var out []storage.Order
	for _, id := range f.orderSeq {
		order := f.orders[id]
		if wanted[id] && order.Status == storage.OrderStatusPending {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateOrderReserving(_ context.Context, order storage.Order, reservation storage.BalanceChange) (*storage.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[balanceKey(reservation.CustomerID, reservation.AssetName)]
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
	f.orders[order.ID] = &order
	f.orderSeq = append(f.orderSeq, order.ID)

	copied := order
	return &copied, nil
}

func (f *fakeStore) CancelOrderReleasing(_ context.Context, orderID uuid.UUID, release storage.BalanceChange) (*storage.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, err := f.transition(orderID, storage.OrderStatusCanceled)
	if err != nil {
		return nil, err
	}
	if asset, ok := f.assets[balanceKey(release.CustomerID, release.AssetName)]; ok {
		asset.UsableSize = asset.UsableSize.Add(release.Amount)
	}
	copied := *order
	return &copied, nil
}

func (f *fakeStore) MatchOrderSettling(_ context.Context, orderID uuid.UUID, outgoing, incoming storage.BalanceChange) (*storage.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, err := f.transition(orderID, storage.OrderStatusMatched)
	if err != nil {
		return nil, err
	}

	if out, ok := f.assets[balanceKey(outgoing.CustomerID, outgoing.AssetName)]; ok {
		out.Size = out.Size.Sub(outgoing.Amount)
	}

	inKey := balanceKey(incoming.CustomerID, incoming.AssetName)
	in, ok := f.assets[inKey]
	if !ok {
		in = &storage.Asset{CustomerID: incoming.CustomerID, AssetName: incoming.AssetName}
		f.assets[inKey] = in
	}
	in.Size = in.Size.Add(incoming.Amount)
	in.UsableSize = in.UsableSize.Add(incoming.Amount)

	copied := *order
	return &copied, nil
}

func (f *fakeStore) transition(orderID uuid.UUID, status string) (*storage.Order, error) {
	order, ok := f.orders[orderID]
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

func (f *fakeStore) ListAssets(_ context.Context, customerID uuid.UUID) ([]storage.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Asset
	for _, asset := range f.assets {
		if asset.CustomerID == customerID {
			out = append(out, *asset)
		}
	}
	return out, nil
}

func (f *fakeStore) DepositAsset(_ context.Context, customerID uuid.UUID, assetName string, amount decimal.Decimal) (*storage.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := balanceKey(customerID, assetName)
	asset, ok := f.assets[key]
	if !ok {
		asset = &storage.Asset{CustomerID: customerID, AssetName: assetName}
		f.assets[key] = asset
	}
	asset.Size = asset.Size.Add(amount)
	asset.UsableSize = asset.UsableSize.Add(amount)
	asset.UpdatedAt = time.Now()

	copied := *asset
	return &copied, nil
}

func newTestRouter(t *testing.T, store *fakeStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

	orderSvc := service.NewOrderService(store, nil, logger, nil, service.Topics{})
	assetSvc := service.NewAssetService(store, logger, nil)

	authHandler := NewAuthHandler(store, logger, testJWTSecret, time.Hour, testArgon2, nil)
	orderHandler := NewOrderHandler(orderSvc, logger)
	assetHandler := NewAssetHandler(assetSvc, logger)
	adminHandler := NewAdminHandler(orderSvc, logger)

	router := gin.New()
	authHandler.Register(router)

	authed := router.Group("", auth.Middleware([]byte(testJWTSecret)))
	orderHandler.Register(authed)
	assetHandler.Register(authed)

	adminGroup := router.Group("", auth.Middleware([]byte(testJWTSecret)), auth.RequireAdmin())
	adminHandler.Register(adminGroup)

	return router
}

func tokenFor(t *testing.T, customer *storage.Customer) string {
	t.Helper()
	token, err := auth.NewAccessToken(customer.ID.String(), customer.Role, []byte(testJWTSecret), time.Hour, time.Now())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func performRequest(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return out
}
