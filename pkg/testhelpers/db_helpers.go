package testhelpers

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/db"
)

var uniqueCounter int64

func nextSuffix() int64 {
	return atomic.AddInt64(&uniqueCounter, 1)
}

// SetupTestPool connects to DATABASE_URL_FOR_TEST and applies the schema. The
// test is skipped when the variable is unset.
func SetupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL_FOR_TEST")
	if dsn == "" {
		t.Skip("DATABASE_URL_FOR_TEST not set; skipping repository tests")
	}

	ctx := context.Background()
	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, db.ApplySchema(ctx, pool))

	t.Cleanup(pool.Close)
	return pool
}

// UniqueRegistry returns a registry id no other test run uses, so tests can
// share one database without truncating it.
func UniqueRegistry() string {
	return fmt.Sprintf("0xtest%d%04d", time.Now().UnixNano(), nextSuffix())
}

// CreateTestAccount inserts a trader account and returns its ID and address.
func CreateTestAccount(t *testing.T, pool *pgxpool.Pool) (int64, string) {
	t.Helper()

	ctx := context.Background()
	suffix := nextSuffix()
	name := fmt.Sprintf("test-account-%d-%d", time.Now().UnixNano(), suffix)
	email := fmt.Sprintf("%s@example.com", name)
	address := fmt.Sprintf("0x%x", name)

	var id int64
	err := pool.QueryRow(ctx, "INSERT INTO accounts (address, name, email, role, password_hash) VALUES ($1, $2, $3, 'trader', $4) RETURNING id", address, name, email, "hash").Scan(&id)
	require.NoError(t, err)
	return id, address
}

// SeedListing inserts an active listing and its index entry directly.
func SeedListing(t *testing.T, pool *pgxpool.Pool, registry string, assetID uint64, seller string, price int64) {
	t.Helper()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `INSERT INTO listings (registry, asset_id, custodian, seller, price, active)
                              VALUES ($1, $2, 'market', $3, $4, true)`, registry, assetID, seller, price)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, "INSERT INTO listing_index (registry, asset_id) VALUES ($1, $2)", registry, assetID)
	require.NoError(t, err)
}
