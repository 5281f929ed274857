package bank

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/ledger"
)

func amt(v int64) ledger.Amount {
	return decimal.NewFromInt(v)
}

func TestBank_TransferAllLegsOrNone(t *testing.T) {
	b := NewBank()
	ctx := context.Background()
	require.NoError(t, b.Deposit(ctx, "0xbuyer", amt(100)))

	err := b.Transfer(ctx, "0xbuyer", ledger.Payment{To: "0xa", Amount: amt(60)}, ledger.Payment{To: "0xb", Amount: amt(50)})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	for _, p := range []ledger.Address{"0xa", "0xb"} {
		got, err := b.BalanceOf(ctx, p)
		require.NoError(t, err)
		require.True(t, got.IsZero())
	}

	require.NoError(t, b.Transfer(ctx, "0xbuyer", ledger.Payment{To: "0xa", Amount: amt(60)}, ledger.Payment{To: "0xb", Amount: amt(40)}))
	got, _ := b.BalanceOf(ctx, "0xbuyer")
	require.True(t, got.IsZero())
	got, _ = b.BalanceOf(ctx, "0xb")
	require.True(t, got.Equal(amt(40)))
}

func TestBank_RejectsBadLegs(t *testing.T) {
	b := NewBank()
	ctx := context.Background()
	require.NoError(t, b.Deposit(ctx, "0xbuyer", amt(100)))

	require.ErrorIs(t, b.Transfer(ctx, "0xbuyer", ledger.Payment{To: "", Amount: amt(1)}), ErrInvalidParty)
	require.ErrorIs(t, b.Transfer(ctx, "", ledger.Payment{To: "0xa", Amount: amt(1)}), ErrInvalidParty)
	require.ErrorIs(t, b.Transfer(ctx, "0xbuyer", ledger.Payment{To: "0xa", Amount: amt(-1)}), ErrInvalidAmount)
	require.ErrorIs(t, b.Transfer(ctx, "0xbuyer", ledger.Payment{To: "0xa", Amount: decimal.RequireFromString("0.5")}), ErrInvalidAmount)
	require.ErrorIs(t, b.Deposit(ctx, "0xbuyer", amt(-5)), ErrInvalidAmount)

	got, _ := b.BalanceOf(ctx, "0xbuyer")
	require.True(t, got.Equal(amt(100)))
}

func TestBank_SelfTransferKeepsBalance(t *testing.T) {
	b := NewBank()
	ctx := context.Background()
	require.NoError(t, b.Deposit(ctx, "0xs", amt(10)))

	require.NoError(t, b.Transfer(ctx, "0xs", ledger.Payment{To: "0xs", Amount: amt(10)}))

	got, _ := b.BalanceOf(ctx, "0xs")
	require.True(t, got.Equal(amt(10)))
}
