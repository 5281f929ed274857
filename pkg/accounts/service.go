package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"nftmarket/pkg/ledger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAccount     = errors.New("name, a valid email and a password of at least 8 characters are required")
)

type AccountService interface {
	Register(ctx context.Context, name, email, password string) (Account, error)
	Authenticate(ctx context.Context, email, password string) (Account, error)
	// EnsureAccount returns the account for email, creating it with role if
	// it does not exist yet.
	EnsureAccount(ctx context.Context, name, email, password, role string) (Account, error)
	GetByAddress(ctx context.Context, address ledger.Address) (Account, error)
	ListAccounts(ctx context.Context, page, limit int) ([]Account, int64, error)
}

type accountService struct {
	repo AccountRepository
}

func NewAccountService(repo AccountRepository) AccountService {
	return &accountService{repo: repo}
}

func (s *accountService) Register(ctx context.Context, name, email, password string) (Account, error) {
	return s.create(ctx, name, email, password, RoleTrader)
}

func (s *accountService) create(ctx context.Context, name, email, password, role string) (Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || len(password) < 8 {
		return Account{}, ErrInvalidAccount
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Account{}, ErrInvalidAccount
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}

	return s.repo.CreateAccount(ctx, Account{
		Address: ledger.NewAddress(),
		Name:    name,
		Email:   email,
		Role:    role,
	}, string(hashBytes))
}

func (s *accountService) Authenticate(ctx context.Context, email, password string) (Account, error) {
	a, hash, err := s.repo.GetAuthByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return a, nil
}

func (s *accountService) EnsureAccount(ctx context.Context, name, email, password, role string) (Account, error) {
	a, err := s.repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		if a.Role != role {
			zap.L().With(zap.String("email", a.Email), zap.String("role", a.Role)).Warn("Accounts: existing account has a different role")
		}
		return a, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return Account{}, err
	}

	a, err = s.create(ctx, name, email, password, role)
	if err != nil {
		return Account{}, err
	}
	zap.L().With(zap.String("email", a.Email), zap.String("address", a.Address.String())).Info("Accounts: account created")
	return a, nil
}

func (s *accountService) GetByAddress(ctx context.Context, address ledger.Address) (Account, error) {
	return s.repo.GetAccountByAddress(ctx, address)
}

func (s *accountService) ListAccounts(ctx context.Context, page, limit int) ([]Account, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.ListAccounts(ctx, limit, offset)
}
