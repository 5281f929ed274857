package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// Address identifies a party or a collaborator (asset registry) on the ledger.
// The empty Address is the null party.
type Address string

const NoParty Address = ""

func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

func (a Address) String() string {
	return string(a)
}

// NewAddress returns a fresh random party address.
func NewAddress() Address {
	id := uuid.New()
	return Address(fmt.Sprintf("0x%x", id[:]))
}

// Amount is a quantity of native value in its smallest unit.
type Amount = decimal.Decimal

var (
	// MinPrice is the lowest price a listing may carry.
	MinPrice = decimal.NewFromInt(1)
	zero     = decimal.Zero
)

// ListingKey is the identity of a listing: one per registry and asset id.
type ListingKey struct {
	Registry Address `json:"registry"`
	AssetID  uint64  `json:"asset_id"`
}

func (k ListingKey) String() string {
	return fmt.Sprintf("%s/%d", k.Registry, k.AssetID)
}

type Listing struct {
	Registry  Address `json:"registry"`
	AssetID   uint64  `json:"asset_id"`
	Custodian Address `json:"custodian"`
	Seller    Address `json:"seller"`
	Price     Amount  `json:"price"`
	Active    bool    `json:"active"`
}

func (l Listing) Key() ListingKey {
	return ListingKey{Registry: l.Registry, AssetID: l.AssetID}
}

// Slug returns a URL friendly handle for the listing identity.
func (l Listing) Slug() string {
	return CreateListingSlug(l.AssetID, l.Registry)
}

func CreateListingSlug(assetID uint64, registry Address) string {
	return slug.Make(fmt.Sprintf("nft-%d-%s", assetID, registry))
}

type ListingPage struct {
	Items []Listing `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Payment is one leg of a native value transfer.
type Payment struct {
	To     Address `json:"to"`
	Amount Amount  `json:"amount"`
}

func isWholeAmount(a Amount) bool {
	return a.Equal(a.Truncate(0))
}
