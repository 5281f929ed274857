package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"nftmarket/pkg/ledger"
)

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) CreateAccount(ctx context.Context, a Account, passwordHash string) (Account, error) {
	args := m.Called(ctx, a, passwordHash)
	out, _ := args.Get(0).(Account)
	return out, args.Error(1)
}

func (m *mockAccountRepository) GetAccountByAddress(ctx context.Context, address ledger.Address) (Account, error) {
	args := m.Called(ctx, address)
	out, _ := args.Get(0).(Account)
	return out, args.Error(1)
}

func (m *mockAccountRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).(Account)
	return out, args.Error(1)
}

func (m *mockAccountRepository) ListAccounts(ctx context.Context, limit, offset int) ([]Account, int64, error) {
	args := m.Called(ctx, limit, offset)
	out, _ := args.Get(0).([]Account)
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockAccountRepository) GetAuthByEmail(ctx context.Context, email string) (Account, string, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).(Account)
	return out, args.String(1), args.Error(2)
}

func TestAccountService_Register(t *testing.T) {
	svc := NewAccountService(NewMemoryAccountRepository())
	ctx := context.Background()

	a, err := svc.Register(ctx, " Alice ", "Alice@Example.com", "correct horse")

	require.NoError(t, err)
	require.NotZero(t, a.ID)
	require.Equal(t, "Alice", a.Name)
	require.Equal(t, "alice@example.com", a.Email)
	require.Equal(t, RoleTrader, a.Role)
	require.True(t, strings.HasPrefix(a.Address.String(), "0x"))
	require.Len(t, a.Address.String(), 34)

	_, err = svc.Register(ctx, "Alice", "alice@example.com", "another pass")
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestAccountService_Register_Validation(t *testing.T) {
	svc := NewAccountService(NewMemoryAccountRepository())
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"", "a@example.com", "longenough"},
		{"a", "not-an-email", "longenough"},
		{"a", "a@example.com", "short"},
	}
	for _, tc := range cases {
		_, err := svc.Register(ctx, tc.name, tc.email, tc.password)
		require.ErrorIs(t, err, ErrInvalidAccount)
	}
}

func TestAccountService_Authenticate(t *testing.T) {
	svc := NewAccountService(NewMemoryAccountRepository())
	ctx := context.Background()
	created, err := svc.Register(ctx, "Bob", "bob@example.com", "s3cret-pass")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "BOB@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, created.Address, got.Address)

	_, err = svc.Authenticate(ctx, "bob@example.com", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccountService_Authenticate_RepoError(t *testing.T) {
	repo := new(mockAccountRepository)
	svc := NewAccountService(repo)
	boom := errors.New("db down")
	repo.On("GetAuthByEmail", mock.Anything, "x@example.com").Return(Account{}, "", boom)

	_, err := svc.Authenticate(context.Background(), "x@example.com", "whatever")

	require.ErrorIs(t, err, boom)
	repo.AssertExpectations(t)
}

func TestAccountService_EnsureAccount(t *testing.T) {
	svc := NewAccountService(NewMemoryAccountRepository())
	ctx := context.Background()

	first, err := svc.EnsureAccount(ctx, "admin", "admin@example.com", "admin-pass", RoleAdmin)
	require.NoError(t, err)
	require.True(t, first.IsAdmin())

	again, err := svc.EnsureAccount(ctx, "admin", "admin@example.com", "other-pass", RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, first.Address, again.Address)

	byAddr, err := svc.GetByAddress(ctx, first.Address)
	require.NoError(t, err)
	require.Equal(t, first.Email, byAddr.Email)
}

func TestAccountService_ListAccounts_Defaults(t *testing.T) {
	repo := new(mockAccountRepository)
	svc := NewAccountService(repo)
	repo.On("ListAccounts", mock.Anything, 10, 0).Return([]Account{{ID: 1}}, int64(1), nil)

	items, total, err := svc.ListAccounts(context.Background(), 0, 0)

	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 1, total)
	repo.AssertExpectations(t)
}
