// Package bank is an in-process native value ledger: balances per party and
// atomic multi-leg transfers. It backs the marketplace in development and tests.
package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"nftmarket/pkg/ledger"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be a non-negative whole number")
	ErrInvalidParty      = errors.New("party address is required")
)

type Bank struct {
	mu       sync.RWMutex
	balances map[ledger.Address]ledger.Amount
}

func NewBank() *Bank {
	return &Bank{balances: make(map[ledger.Address]ledger.Amount)}
}

func (b *Bank) BalanceOf(_ context.Context, party ledger.Address) (ledger.Amount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.balance(party), nil
}

// Deposit credits newly issued value to a party.
func (b *Bank) Deposit(_ context.Context, to ledger.Address, amount ledger.Amount) error {
	if to.IsZero() {
		return ErrInvalidParty
	}
	if err := validAmount(amount); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[to] = b.balance(to).Add(amount)
	return nil
}

// Transfer debits the sum of all legs from `from` and credits each leg's
// recipient. Either every leg is applied or none is.
func (b *Bank) Transfer(_ context.Context, from ledger.Address, legs ...ledger.Payment) error {
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

	b.mu.Lock()
	defer b.mu.Unlock()

	if have := b.balance(from); have.LessThan(total) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, from, have, total)
	}

	b.balances[from] = b.balance(from).Sub(total)
	for _, leg := range legs {
		b.balances[leg.To] = b.balance(leg.To).Add(leg.Amount)
	}
	return nil
}

func (b *Bank) balance(party ledger.Address) ledger.Amount {
	if v, ok := b.balances[party]; ok {
		return v
	}
	return decimal.Zero
}

func validAmount(a ledger.Amount) error {
	if a.IsNegative() || !a.Equal(a.Truncate(0)) {
		return ErrInvalidAmount
	}
	return nil
}
