package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending  = "PENDING"
	OrderStatusMatched  = "MATCHED"
	OrderStatusCanceled = "CANCELED"

	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"

	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

type Customer struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Asset is a per-(customer, asset name) balance. UsableSize is the part
// not reserved by a PENDING order; 0 <= UsableSize <= Size always holds.
type Asset struct {
	CustomerID uuid.UUID
	AssetName  string
	Size       decimal.Decimal
	UsableSize decimal.Decimal
	UpdatedAt  time.Time
}

type Order struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	AssetName  string
	Side       string
	Size       decimal.Decimal
	Price      decimal.Decimal
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BalanceChange names one balance mutation applied inside a storage
// transaction: which (customer, asset) row and by how much.
type BalanceChange struct {
	CustomerID uuid.UUID
	AssetName  string
	Amount     decimal.Decimal
}
