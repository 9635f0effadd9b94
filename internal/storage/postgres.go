package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInsufficientBalance = errors.New("insufficient usable balance")
	ErrOrderNotPending     = errors.New("order is not pending")
	ErrUsernameTaken       = errors.New("username already taken")
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateCustomer(ctx context.Context, username, passwordHash, role string) (*Customer, error) {
	var customer Customer
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (username, password_hash, role, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, username, password_hash, role, created_at
	`, username, passwordHash, role).Scan(&customer.ID, &customer.Username, &customer.PasswordHash, &customer.Role, &customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) GetCustomerByUsername(ctx context.Context, username string) (*Customer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM customers
		WHERE username = $1
	`, username)

	var customer Customer
	if err := row.Scan(&customer.ID, &customer.Username, &customer.PasswordHash, &customer.Role, &customer.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)
	`, customerID).Scan(&exists)
	return exists, err
}

func (s *Store) GetAsset(ctx context.Context, customerID uuid.UUID, assetName string) (*Asset, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT customer_id, asset_name, size::text, usable_size::text, updated_at
		FROM assets
		WHERE customer_id = $1 AND asset_name = $2
	`, customerID, assetName)
	return scanAsset(row)
}

func (s *Store) ListAssets(ctx context.Context, customerID uuid.UUID) ([]Asset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT customer_id, asset_name, size::text, usable_size::text, updated_at
		FROM assets
		WHERE customer_id = $1
		ORDER BY asset_name
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

// DepositAsset adds amount to both size and usable_size, creating the
// balance row with a zero baseline when the customer has never held the
// asset before.
func (s *Store) DepositAsset(ctx context.Context, customerID uuid.UUID, assetName string, amount decimal.Decimal) (*Asset, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be positive")
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO assets (customer_id, asset_name, size, usable_size, updated_at)
		VALUES ($1, $2, $3, $3, now())
		ON CONFLICT (customer_id, asset_name) DO UPDATE
		SET size = assets.size + EXCLUDED.size,
		    usable_size = assets.usable_size + EXCLUDED.usable_size,
		    updated_at = now()
		RETURNING customer_id, asset_name, size::text, usable_size::text, updated_at
	`, customerID, assetName, amount.String())
	return scanAsset(row)
}

func (s *Store) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, customer_id, asset_name, side, size::text, price::text, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Store) ListOrders(ctx context.Context, customerID uuid.UUID, from, to *time.Time) ([]Order, error) {
	query := `
		SELECT id, customer_id, asset_name, side, size::text, price::text, status, created_at, updated_at
		FROM orders
		WHERE customer_id = $1`
	args := []any{customerID}
	if from != nil && to != nil {
		query += ` AND created_at BETWEEN $2 AND $3`
		args = append(args, *from, *to)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Store) ListPendingOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, asset_name, side, size::text, price::text, status, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at
	`, OrderStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// ListPendingOrdersByID returns the PENDING subset of the given ids.
// Unknown or non-PENDING ids are dropped, not errored.
func (s *Store) ListPendingOrdersByID(ctx context.Context, orderIDs []uuid.UUID) ([]Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, customer_id, asset_name, side, size::text, price::text, status, created_at, updated_at
		FROM orders
		WHERE status = $1 AND id = ANY($2)
		ORDER BY created_at
	`, OrderStatusPending, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

// CreateOrderReserving inserts a PENDING order and reserves the given
// amount from the reservation balance's usable_size as one transaction.
// The balance row must already exist: a reservation never creates one.
func (s *Store) CreateOrderReserving(ctx context.Context, order Order, reservation BalanceChange) (*Order, error) {
	if reservation.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("reservation amount must be positive")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	asset, err := s.getAssetForUpdate(ctx, tx, reservation.CustomerID, reservation.AssetName)
	if err != nil {
		return nil, err
	}
	if asset.UsableSize.LessThan(reservation.Amount) {
		return nil, ErrInsufficientBalance
	}
	if err := s.applyBalance(ctx, tx, reservation.CustomerID, reservation.AssetName,
		asset.Size, asset.UsableSize.Sub(reservation.Amount)); err != nil {
		return nil, err
	}

	created := order
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, asset_name, side, size, price, status, created_at, updated_at)
		VALUES (COALESCE($1, gen_random_uuid()), $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id, created_at, updated_at
	`, nilIfZero(order.ID), order.CustomerID, order.AssetName, order.Side,
		order.Size.String(), order.Price.String(), OrderStatusPending,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	created.Status = OrderStatusPending

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return &created, nil
}

// CancelOrderReleasing flips a PENDING order to CANCELED and returns the
// released amount to the balance's usable_size as one transaction.
// Returns ErrOrderNotPending when the order already reached a terminal
// status, so concurrent cancels cannot release twice.
func (s *Store) CancelOrderReleasing(ctx context.Context, orderID uuid.UUID, release BalanceChange) (*Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	order, err := s.transitionOrder(ctx, tx, orderID, OrderStatusCanceled)
	if err != nil {
		return nil, err
	}

	asset, err := s.getAssetForUpdate(ctx, tx, release.CustomerID, release.AssetName)
	if err != nil {
		return nil, err
	}
	if err := s.applyBalance(ctx, tx, release.CustomerID, release.AssetName,
		asset.Size, asset.UsableSize.Add(release.Amount)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return order, nil
}

// MatchOrderSettling flips a PENDING order to MATCHED and applies the
// settlement as one transaction. The outgoing side loses size only (its
// usable_size was already reduced at reservation time); the incoming
// side gains both size and usable_size, with the balance row created at
// a zero baseline when absent.
func (s *Store) MatchOrderSettling(ctx context.Context, orderID uuid.UUID, outgoing, incoming BalanceChange) (*Order, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	order, err := s.transitionOrder(ctx, tx, orderID, OrderStatusMatched)
	if err != nil {
		return nil, err
	}

	out, err := s.getAssetForUpdate(ctx, tx, outgoing.CustomerID, outgoing.AssetName)
	if err != nil {
		return nil, err
	}
	if err := s.applyBalance(ctx, tx, outgoing.CustomerID, outgoing.AssetName,
		out.Size.Sub(outgoing.Amount), out.UsableSize); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO assets (customer_id, asset_name, size, usable_size, updated_at)
		VALUES ($1, $2, $3, $3, now())
		ON CONFLICT (customer_id, asset_name) DO UPDATE
		SET size = assets.size + EXCLUDED.size,
		    usable_size = assets.usable_size + EXCLUDED.usable_size,
		    updated_at = now()
	`, incoming.CustomerID, incoming.AssetName, incoming.Amount.String()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return order, nil
}

// transitionOrder moves a PENDING order into the given terminal status.
func (s *Store) transitionOrder(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status string) (*Order, error) {
	row := tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING id, customer_id, asset_name, side, size::text, price::text, status, created_at, updated_at
	`, status, orderID, OrderStatusPending)

	order, err := scanOrder(row)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var current string
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: status is %s", ErrOrderNotPending, current)
}

func (s *Store) getAssetForUpdate(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, assetName string) (*Asset, error) {
	row := tx.QueryRow(ctx, `
		SELECT customer_id, asset_name, size::text, usable_size::text, updated_at
		FROM assets
		WHERE customer_id = $1 AND asset_name = $2
		FOR UPDATE
	`, customerID, assetName)
	return scanAsset(row)
}

func (s *Store) applyBalance(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, assetName string, size, usableSize decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		UPDATE assets
		SET size = $1, usable_size = $2, updated_at = now()
		WHERE customer_id = $3 AND asset_name = $4
	`, size.String(), usableSize.String(), customerID, assetName)
	return err
}

func scanAsset(row pgx.Row) (*Asset, error) {
	var asset Asset
	var sizeStr, usableStr string
	if err := row.Scan(&asset.CustomerID, &asset.AssetName, &sizeStr, &usableStr, &asset.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}

	var err error
	if asset.Size, err = decimal.NewFromString(sizeStr); err != nil {
		return nil, fmt.Errorf("parse size: %w", err)
	}
	if asset.UsableSize, err = decimal.NewFromString(usableStr); err != nil {
		return nil, fmt.Errorf("parse usable_size: %w", err)
	}
	return &asset, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var order Order
	var sizeStr, priceStr string
	if err := row.Scan(&order.ID, &order.CustomerID, &order.AssetName, &order.Side,
		&sizeStr, &priceStr, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if order.Size, err = decimal.NewFromString(sizeStr); err != nil {
		return nil, fmt.Errorf("parse order size: %w", err)
	}
	if order.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("parse order price: %w", err)
	}
	return &order, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
