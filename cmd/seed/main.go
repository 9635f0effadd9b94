package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dogukanozdemir/Brokerage/internal/security"
	"github.com/dogukanozdemir/Brokerage/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	env := getEnv("BRK_APP_ENV", "dev")
	if env != "dev" && env != "test" {
		log.Fatalf("refusing to seed: BRK_APP_ENV must be 'dev' or 'test' (got '%s')", env)
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	db := getEnv("POSTGRES_DB", "brokerage")
	user := getEnv("POSTGRES_USER", "brokerage")
	password := getEnv("POSTGRES_PASSWORD", "brokerage")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, db, sslmode)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	fmt.Println("Seeding database...")

	if err := seedCustomers(ctx, pool); err != nil {
		log.Fatalf("seed customers: %v", err)
	}
	fmt.Println("✓ Customers seeded")

	if err := seedBalances(ctx, pool); err != nil {
		log.Fatalf("seed balances: %v", err)
	}
	fmt.Println("✓ Balances seeded")

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nDemo Credentials:")
	fmt.Println("  Username: admin     Password: admin12345  (ADMIN)")
	fmt.Println("  Username: alice     Password: alice12345")
	fmt.Println("  Username: bob       Password: bob1234567")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

var (
	adminID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	aliceID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	bobID   = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

func seedCustomers(ctx context.Context, pool *pgxpool.Pool) error {
	customers := []struct {
		id       uuid.UUID
		username string
		password string
		role     string
	}{
		{adminID, "admin", "admin12345", storage.RoleAdmin},
		{aliceID, "alice", "alice12345", storage.RoleCustomer},
		{bobID, "bob", "bob1234567", storage.RoleCustomer},
	}

	params := security.DefaultArgon2Params()
	now := time.Now()

	for _, customer := range customers {
		hash, err := security.HashPassword(customer.password, params)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", customer.username, err)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO customers (id, username, password_hash, role, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (username) DO UPDATE
			SET password_hash = EXCLUDED.password_hash,
			    role = EXCLUDED.role
		`, customer.id, customer.username, hash, customer.role, now)
		if err != nil {
			return err
		}
	}

	return nil
}

func seedBalances(ctx context.Context, pool *pgxpool.Pool) error {
	balances := []struct {
		customerID uuid.UUID
		assetName  string
		size       string
	}{
		{aliceID, "TRY", "100000"},
		{aliceID, "AAPL", "50"},
		{bobID, "TRY", "50000"},
		{bobID, "THYAO", "200"},
	}

	now := time.Now()

	for _, balance := range balances {
		_, err := pool.Exec(ctx, `
			INSERT INTO assets (customer_id, asset_name, size, usable_size, updated_at)
			VALUES ($1, $2, $3, $3, $4)
			ON CONFLICT (customer_id, asset_name) DO UPDATE
			SET size = EXCLUDED.size,
			    usable_size = EXCLUDED.usable_size,
			    updated_at = EXCLUDED.updated_at
		`, balance.customerID, balance.assetName, balance.size, now)
		if err != nil {
			return err
		}
	}

	return nil
}
