package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"nftmarket/pkg/ledger"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory returns a Store whose collections, tokens and operator
// approvals live in Postgres.
func NewPostgresDirectory(pool *pgxpool.Pool) Store {
	return &postgresDirectory{pool: pool}
}

// Registry returns a handle without a lookup; a collection that does not
// exist fails on first use.
func (d *postgresDirectory) Registry(id ledger.Address) (ledger.AssetRegistry, bool) {
	if id.IsZero() {
		return nil, false
	}
	return &postgresCollection{pool: d.pool, id: id}, true
}

func (d *postgresDirectory) CreateCollection(ctx context.Context, name string, creator ledger.Address, royalty Royalty) (CollectionInfo, error) {
	if creator.IsZero() {
		return CollectionInfo{}, ErrInvalidRecipient
	}
	if err := royalty.validate(); err != nil {
		return CollectionInfo{}, err
	}

	info := CollectionInfo{ID: ledger.NewAddress(), Name: name, Creator: creator, Royalty: royalty}
	query := `INSERT INTO collections (id, name, creator, royalty_receiver, royalty_bps)
              VALUES ($1, $2, $3, $4, $5)`
	if _, err := d.pool.Exec(ctx, query, string(info.ID), name, string(creator), string(royalty.Receiver), int32(royalty.Bps)); err != nil {
		return CollectionInfo{}, fmt.Errorf("insert collection: %w", err)
	}
	return info, nil
}

func (d *postgresDirectory) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	query := `SELECT c.id, c.name, c.creator, c.royalty_receiver, c.royalty_bps, COUNT(t.asset_id)
              FROM collections c
              LEFT JOIN tokens t ON t.registry = c.id
              GROUP BY c.seq, c.id
              ORDER BY c.seq`

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]CollectionInfo, 0)
	for rows.Next() {
		var (
			info                  CollectionInfo
			id, creator, receiver string
			bps                   int32
			supply                int64
		)
		if err := rows.Scan(&id, &info.Name, &creator, &receiver, &bps, &supply); err != nil {
			return nil, err
		}
		info.ID = ledger.Address(id)
		info.Creator = ledger.Address(creator)
		info.Royalty = Royalty{Receiver: ledger.Address(receiver), Bps: uint16(bps)}
		info.Supply = int(supply)
		items = append(items, info)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (d *postgresDirectory) Mint(ctx context.Context, registry, caller, to ledger.Address, assetID uint64) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		creator, err := collectionCreator(ctx, tx, registry)
		if err != nil {
			return err
		}
		if caller != creator {
			return ErrNotCreator
		}
		if to.IsZero() {
			return ErrInvalidRecipient
		}

		query := `INSERT INTO tokens (registry, asset_id, owner)
                  VALUES ($1, $2::numeric, $3)
                  ON CONFLICT (registry, asset_id) DO NOTHING`
		tag, err := tx.Exec(ctx, query, string(registry), formatID(assetID), string(to))
		if err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %d", ErrTokenExists, assetID)
		}
		return nil
	})
}

func (d *postgresDirectory) Approve(ctx context.Context, registry, caller, operator ledger.Address, assetID uint64) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if _, err := collectionCreator(ctx, tx, registry); err != nil {
			return err
		}
		owner, _, err := lockToken(ctx, tx, registry, assetID)
		if err != nil {
			return err
		}
		if caller != owner {
			ok, err := isOperator(ctx, tx, registry, owner, caller)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotApproved
			}
		}

		query := `UPDATE tokens SET approved = $3, updated_at = NOW()
                  WHERE registry = $1 AND asset_id = $2::numeric`
		_, err = tx.Exec(ctx, query, string(registry), formatID(assetID), string(operator))
		return err
	})
}

func (d *postgresDirectory) SetApprovalForAll(ctx context.Context, registry, owner, operator ledger.Address, approved bool) error {
	if owner.IsZero() || operator.IsZero() || owner == operator {
		return ErrInvalidRecipient
	}
	if _, err := collectionCreator(ctx, d.pool, registry); err != nil {
		return err
	}

	query := `INSERT INTO token_operators (registry, owner, operator, approved)
              VALUES ($1, $2, $3, $4)
              ON CONFLICT (registry, owner, operator) DO UPDATE SET approved = EXCLUDED.approved`
	_, err := d.pool.Exec(ctx, query, string(registry), string(owner), string(operator), approved)
	return err
}

func (d *postgresDirectory) SetTokenRoyalty(ctx context.Context, registry, caller ledger.Address, assetID uint64, royalty Royalty) error {
	if err := royalty.validate(); err != nil {
		return err
	}

	creator, err := collectionCreator(ctx, d.pool, registry)
	if err != nil {
		return err
	}
	if caller != creator {
		return ErrNotCreator
	}

	query := `UPDATE tokens SET royalty_receiver = $3, royalty_bps = $4, updated_at = NOW()
              WHERE registry = $1 AND asset_id = $2::numeric`
	tag, err := d.pool.Exec(ctx, query, string(registry), formatID(assetID), string(royalty.Receiver), int32(royalty.Bps))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
	}
	return nil
}

func (d *postgresDirectory) Token(ctx context.Context, registry ledger.Address, assetID uint64) (Token, error) {
	if _, err := collectionCreator(ctx, d.pool, registry); err != nil {
		return Token{}, err
	}

	query := `SELECT t.owner, t.approved,
                     COALESCE(t.royalty_receiver, c.royalty_receiver), COALESCE(t.royalty_bps, c.royalty_bps)
              FROM tokens t
              JOIN collections c ON c.id = t.registry
              WHERE t.registry = $1 AND t.asset_id = $2::numeric`

	var (
		owner, approved, receiver string
		bps                       int32
	)
	err := d.pool.QueryRow(ctx, query, string(registry), formatID(assetID)).Scan(&owner, &approved, &receiver, &bps)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
		}
		return Token{}, err
	}

	return Token{
		Registry: registry,
		AssetID:  assetID,
		Owner:    ledger.Address(owner),
		Approved: ledger.Address(approved),
		Royalty:  Royalty{Receiver: ledger.Address(receiver), Bps: uint16(bps)},
	}, nil
}

// postgresCollection is one collection seen as a ledger.AssetRegistry.
type postgresCollection struct {
	pool *pgxpool.Pool
	id   ledger.Address
}

func (c *postgresCollection) OwnerOf(ctx context.Context, assetID uint64) (ledger.Address, error) {
	var owner string
	query := `SELECT owner FROM tokens WHERE registry = $1 AND asset_id = $2::numeric`
	if err := c.pool.QueryRow(ctx, query, string(c.id), formatID(assetID)).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.NoParty, fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
		}
		return ledger.NoParty, err
	}
	return ledger.Address(owner), nil
}

func (c *postgresCollection) TransferCustody(ctx context.Context, operator, from, to ledger.Address, assetID uint64) error {
	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		owner, approved, err := lockToken(ctx, tx, c.id, assetID)
		if err != nil {
			return err
		}
		if owner != from {
			return ErrWrongOwner
		}
		if to.IsZero() {
			return ErrInvalidRecipient
		}
		if operator != owner && operator != approved {
			ok, err := isOperator(ctx, tx, c.id, owner, operator)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotApproved
			}
		}

		query := `UPDATE tokens SET owner = $3, approved = '', updated_at = NOW()
                  WHERE registry = $1 AND asset_id = $2::numeric`
		_, err = tx.Exec(ctx, query, string(c.id), formatID(assetID), string(to))
		return err
	})
}

func (c *postgresCollection) RoyaltyInfo(ctx context.Context, assetID uint64, salePrice ledger.Amount) (ledger.Address, ledger.Amount, error) {
	query := `SELECT COALESCE(t.royalty_receiver, c.royalty_receiver), COALESCE(t.royalty_bps, c.royalty_bps)
              FROM collections c
              LEFT JOIN tokens t ON t.registry = c.id AND t.asset_id = $2::numeric
              WHERE c.id = $1`

	var (
		receiver string
		bps      int32
	)
	if err := c.pool.QueryRow(ctx, query, string(c.id), formatID(assetID)).Scan(&receiver, &bps); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.NoParty, decimal.Zero, fmt.Errorf("%w: %s", ErrRegistryNotFound, c.id)
		}
		return ledger.NoParty, decimal.Zero, err
	}

	r := Royalty{Receiver: ledger.Address(receiver), Bps: uint16(bps)}
	return r.Receiver, r.amount(salePrice), nil
}

func collectionCreator(ctx context.Context, q querier, registry ledger.Address) (ledger.Address, error) {
	var creator string
	if err := q.QueryRow(ctx, "SELECT creator FROM collections WHERE id = $1", string(registry)).Scan(&creator); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.NoParty, fmt.Errorf("%w: %s", ErrRegistryNotFound, registry)
		}
		return ledger.NoParty, err
	}
	return ledger.Address(creator), nil
}

// lockToken returns the owner and single-token approval, holding the row
// until the transaction ends.
func lockToken(ctx context.Context, tx pgx.Tx, registry ledger.Address, assetID uint64) (ledger.Address, ledger.Address, error) {
	var owner, approved string
	query := `SELECT owner, approved FROM tokens
              WHERE registry = $1 AND asset_id = $2::numeric
              FOR UPDATE`
	if err := tx.QueryRow(ctx, query, string(registry), formatID(assetID)).Scan(&owner, &approved); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.NoParty, ledger.NoParty, fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
		}
		return ledger.NoParty, ledger.NoParty, err
	}
	return ledger.Address(owner), ledger.Address(approved), nil
}

func isOperator(ctx context.Context, q querier, registry, owner, operator ledger.Address) (bool, error) {
	var ok bool
	query := `SELECT COALESCE((SELECT approved FROM token_operators
                               WHERE registry = $1 AND owner = $2 AND operator = $3), FALSE)`
	err := q.QueryRow(ctx, query, string(registry), string(owner), string(operator)).Scan(&ok)
	return ok, err
}

func formatID(assetID uint64) string {
	return strconv.FormatUint(assetID, 10)
}
