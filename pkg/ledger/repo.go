package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	listingFeeConfigKey  = "listing_fee"
	accruedFeesConfigKey = "accrued_fees"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store backed by the listings, listing_index and
// market_config tables.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (r *postgresStore) GetListing(ctx context.Context, key ListingKey) (Listing, bool, error) {
	query := `SELECT registry, asset_id::text, custodian, seller, price::text, active
              FROM listings
              WHERE registry = $1 AND asset_id = $2::numeric`

	row := r.pool.QueryRow(ctx, query, string(key.Registry), strconv.FormatUint(key.AssetID, 10))

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Listing{}, false, nil
		}
		return Listing{}, false, err
	}
	return l, true, nil
}

func (r *postgresStore) SaveListing(ctx context.Context, l Listing) error {
	upsert := `INSERT INTO listings (registry, asset_id, custodian, seller, price, active, updated_at)
               VALUES ($1, $2::numeric, $3, $4, $5::numeric, $6, NOW())
               ON CONFLICT (registry, asset_id)
               DO UPDATE SET custodian = EXCLUDED.custodian, seller = EXCLUDED.seller,
                             price = EXCLUDED.price, active = EXCLUDED.active, updated_at = NOW()`
	index := `INSERT INTO listing_index (registry, asset_id)
              VALUES ($1, $2::numeric)
              ON CONFLICT (registry, asset_id) DO NOTHING`

	assetID := strconv.FormatUint(l.AssetID, 10)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsert, string(l.Registry), assetID, string(l.Custodian), string(l.Seller), l.Price.String(), l.Active); err != nil {
			return fmt.Errorf("upsert listing: %w", err)
		}
		if _, err := tx.Exec(ctx, index, string(l.Registry), assetID); err != nil {
			return fmt.Errorf("index listing: %w", err)
		}
		return nil
	})
}

func (r *postgresStore) ListListings(ctx context.Context, limit, offset int) ([]Listing, int64, error) {
	query := `SELECT l.registry, l.asset_id::text, l.custodian, l.seller, l.price::text, l.active
              FROM listing_index i
              JOIN listings l ON l.registry = i.registry AND l.asset_id = i.asset_id
              ORDER BY i.seq
              LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listing_index").Scan(&total); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *postgresStore) GetListingFee(ctx context.Context) (Amount, bool, error) {
	var raw string
	err := r.pool.QueryRow(ctx, "SELECT value FROM market_config WHERE key = $1", listingFeeConfigKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, err
	}

	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return zero, false, fmt.Errorf("parse stored listing fee %q: %w", raw, err)
	}
	return fee, true, nil
}

func (r *postgresStore) SetListingFee(ctx context.Context, fee Amount) error {
	query := `INSERT INTO market_config (key, value) VALUES ($1, $2)
              ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	_, err := r.pool.Exec(ctx, query, listingFeeConfigKey, fee.String())
	return err
}

func (r *postgresStore) AccruedFees(ctx context.Context) (Amount, error) {
	var raw string
	err := r.pool.QueryRow(ctx, "SELECT value FROM market_config WHERE key = $1", accruedFeesConfigKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, nil
		}
		return zero, err
	}

	accrued, err := decimal.NewFromString(raw)
	if err != nil {
		return zero, fmt.Errorf("parse accrued fees %q: %w", raw, err)
	}
	return accrued, nil
}

func (r *postgresStore) AddAccruedFees(ctx context.Context, delta Amount) error {
	query := `INSERT INTO market_config (key, value) VALUES ($1, $2)
              ON CONFLICT (key) DO UPDATE SET value = (market_config.value::numeric + EXCLUDED.value::numeric)::text`
	_, err := r.pool.Exec(ctx, query, accruedFeesConfigKey, delta.String())
	return err
}

func scanListing(row pgx.Row) (Listing, error) {
	var (
		l                 Listing
		registry, assetID string
		custodian, seller string
		price             string
	)
	if err := row.Scan(&registry, &assetID, &custodian, &seller, &price, &l.Active); err != nil {
		return Listing{}, err
	}

	id, err := strconv.ParseUint(assetID, 10, 64)
	if err != nil {
		return Listing{}, fmt.Errorf("parse asset id %q: %w", assetID, err)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Listing{}, fmt.Errorf("parse price %q: %w", price, err)
	}

	l.Registry = Address(registry)
	l.AssetID = id
	l.Custodian = Address(custodian)
	l.Seller = Address(seller)
	l.Price = p
	return l, nil
}
