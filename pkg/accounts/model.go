package accounts

import (
	"time"

	"nftmarket/pkg/ledger"
)

const (
	RoleTrader = "trader"
	RoleAdmin  = "admin"
)

// Account is a registered party. Address is its identity on the ledger.
type Account struct {
	ID        int64          `json:"id"`
	Address   ledger.Address `json:"address"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type AccountList struct {
	Items []Account `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}
