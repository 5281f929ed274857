package market

import (
	"context"

	"nftmarket/pkg/ledger"
)

// MarketService is the marketplace surface served over HTTP.
// *ledger.Marketplace implements it.
type MarketService interface {
	CreateListing(ctx context.Context, caller, registry ledger.Address, assetID uint64, price, value ledger.Amount) (ledger.Listing, error)
	Delist(ctx context.Context, caller, registry ledger.Address, assetID uint64) (ledger.Listing, error)
	UpdatePrice(ctx context.Context, caller, registry ledger.Address, assetID uint64, price ledger.Amount) (ledger.Listing, error)
	ExecuteSale(ctx context.Context, caller, registry ledger.Address, assetID uint64, value ledger.Amount) (ledger.Listing, error)
	SetListingFee(ctx context.Context, caller ledger.Address, fee ledger.Amount) error
	ListingFee(ctx context.Context) (ledger.Amount, error)
	Withdraw(ctx context.Context, caller ledger.Address) (ledger.Amount, error)
	Listing(ctx context.Context, registry ledger.Address, assetID uint64) (ledger.Listing, error)
	Listings(ctx context.Context, page, limit int) (ledger.ListingPage, error)
	Address() ledger.Address
	Administrator() ledger.Address
}

var _ MarketService = (*ledger.Marketplace)(nil)
