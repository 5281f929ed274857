package accounts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nftmarket/pkg/ledger"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account exists with that email")
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, a Account, passwordHash string) (Account, error)
	GetAccountByAddress(ctx context.Context, address ledger.Address) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]Account, int64, error)
	// GetAuthByEmail returns the account and its password hash.
	GetAuthByEmail(ctx context.Context, email string) (Account, string, error)
}

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &postgresAccountRepository{pool: pool}
}

func (r *postgresAccountRepository) CreateAccount(ctx context.Context, a Account, passwordHash string) (Account, error) {
	query := `INSERT INTO accounts (address, name, email, role, password_hash, created_at)
              VALUES ($1, $2, $3, $4, $5, NOW())
              RETURNING id, address, name, email, role, created_at`
	row := r.pool.QueryRow(ctx, query, string(a.Address), a.Name, a.Email, a.Role, passwordHash)

	out, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrAccountExists
		}
		return Account{}, err
	}
	return out, nil
}

func (r *postgresAccountRepository) GetAccountByAddress(ctx context.Context, address ledger.Address) (Account, error) {
	query := `SELECT id, address, name, email, role, created_at
              FROM accounts
              WHERE address = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, query, string(address)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *postgresAccountRepository) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT id, address, name, email, role, created_at
              FROM accounts
              WHERE email = $1`
	a, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *postgresAccountRepository) ListAccounts(ctx context.Context, limit, offset int) ([]Account, int64, error) {
	query := `SELECT id, address, name, email, role, created_at
              FROM accounts
              ORDER BY id
              LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&total); err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *postgresAccountRepository) GetAuthByEmail(ctx context.Context, email string) (Account, string, error) {
	query := `SELECT id, address, name, email, role, created_at, password_hash
              FROM accounts
              WHERE email = $1`
	var (
		a       Account
		address string
		hash    string
	)
	err := r.pool.QueryRow(ctx, query, email).Scan(&a.ID, &address, &a.Name, &a.Email, &a.Role, &a.CreatedAt, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, "", ErrAccountNotFound
		}
		return Account{}, "", err
	}
	a.Address = ledger.Address(address)
	return a, hash, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a       Account
		address string
	)
	if err := row.Scan(&a.ID, &address, &a.Name, &a.Email, &a.Role, &a.CreatedAt); err != nil {
		return Account{}, err
	}
	a.Address = ledger.Address(address)
	return a, nil
}

type memoryAccount struct {
	Account
	hash string
}

type memoryAccountRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byEmail map[string]*memoryAccount
}

// NewMemoryAccountRepository keeps accounts in process memory. Used when the
// ledger runs without Postgres.
func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{byEmail: make(map[string]*memoryAccount)}
}

func (r *memoryAccountRepository) CreateAccount(_ context.Context, a Account, passwordHash string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(a.Email)
	if _, ok := r.byEmail[key]; ok {
		return Account{}, ErrAccountExists
	}
	for _, m := range r.byEmail {
		if m.Address == a.Address {
			return Account{}, ErrAccountExists
		}
	}

	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now().UTC()
	r.byEmail[key] = &memoryAccount{Account: a, hash: passwordHash}
	return a, nil
}

func (r *memoryAccountRepository) GetAccountByAddress(_ context.Context, address ledger.Address) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byEmail {
		if m.Address == address {
			return m.Account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (r *memoryAccountRepository) GetAccountByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.byEmail[strings.ToLower(email)]; ok {
		return m.Account, nil
	}
	return Account{}, ErrAccountNotFound
}

func (r *memoryAccountRepository) ListAccounts(_ context.Context, limit, offset int) ([]Account, int64, error) {
	r.mu.RLock()
	all := make([]Account, 0, len(r.byEmail))
	for _, m := range r.byEmail {
		all = append(all, m.Account)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := int64(len(all))
	if offset >= len(all) {
		return []Account{}, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (r *memoryAccountRepository) GetAuthByEmail(_ context.Context, email string) (Account, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if m, ok := r.byEmail[strings.ToLower(email)]; ok {
		return m.Account, m.hash, nil
	}
	return Account{}, "", ErrAccountNotFound
}
