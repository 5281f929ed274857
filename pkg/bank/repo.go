package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"nftmarket/pkg/ledger"
)

// Store is a native value ledger: the marketplace moves value through it and
// the HTTP routes read and credit balances.
type Store interface {
	ledger.ValueTransfer
	Deposit(ctx context.Context, to ledger.Address, amount ledger.Amount) error
}

var _ Store = (*Bank)(nil)

type postgresBank struct {
	pool *pgxpool.Pool
}

// NewPostgresBank returns a Store whose balances live in the balances table.
func NewPostgresBank(pool *pgxpool.Pool) Store {
	return &postgresBank{pool: pool}
}

func (r *postgresBank) BalanceOf(ctx context.Context, party ledger.Address) (ledger.Amount, error) {
	var raw string
	err := r.pool.QueryRow(ctx, "SELECT amount::text FROM balances WHERE party = $1", string(party)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return parseAmount(raw)
}

func (r *postgresBank) Deposit(ctx context.Context, to ledger.Address, amount ledger.Amount) error {
	if to.IsZero() {
		return ErrInvalidParty
	}
	if err := validAmount(amount); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx, creditQuery, string(to), amount.String())
	return err
}

const creditQuery = `INSERT INTO balances (party, amount, updated_at)
                     VALUES ($1, $2::numeric, NOW())
                     ON CONFLICT (party)
                     DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()`

// Transfer applies every leg in one transaction with the payer's row locked.
func (r *postgresBank) Transfer(ctx context.Context, from ledger.Address, legs ...ledger.Payment) error {
	if from.IsZero() {
		return ErrInvalidParty
	}

	total := decimal.Zero
	for _, leg := range legs {
		if leg.To.IsZero() {
			return ErrInvalidParty
		}
		if err := validAmount(leg.Amount); err != nil {
			return err
		}
		total = total.Add(leg.Amount)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		have := decimal.Zero
		var raw string
		err := tx.QueryRow(ctx, "SELECT amount::text FROM balances WHERE party = $1 FOR UPDATE", string(from)).Scan(&raw)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			if have, err = parseAmount(raw); err != nil {
				return err
			}
		}

		if have.LessThan(total) {
			return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, from, have, total)
		}
		if total.IsZero() {
			return nil
		}

		debit := `UPDATE balances SET amount = amount - $2::numeric, updated_at = NOW() WHERE party = $1`
		if _, err := tx.Exec(ctx, debit, string(from), total.String()); err != nil {
			return fmt.Errorf("debit %s: %w", from, err)
		}
		for _, leg := range legs {
			if _, err := tx.Exec(ctx, creditQuery, string(leg.To), leg.Amount.String()); err != nil {
				return fmt.Errorf("credit %s: %w", leg.To, err)
			}
		}
		return nil
	})
}

func parseAmount(raw string) (ledger.Amount, error) {
	a, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return a, nil
}
