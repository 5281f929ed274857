package market

import "nftmarket/pkg/ledger"

// ListingView is a listing as returned by the API.
type ListingView struct {
	ledger.Listing
	Slug string `json:"slug"`
}

func newListingView(l ledger.Listing) ListingView {
	return ListingView{Listing: l, Slug: l.Slug()}
}

type ListingList struct {
	Items []ListingView `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type MarketInfo struct {
	Address       ledger.Address `json:"address"`
	Administrator ledger.Address `json:"administrator"`
	ListingFee    ledger.Amount  `json:"listing_fee"`
}

type Withdrawal struct {
	To     ledger.Address `json:"to"`
	Amount ledger.Amount  `json:"amount"`
}
