package ledger

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	ListingCreatedEvent    EventType = "ListingCreated"
	ListingDelistedEvent   EventType = "ListingDelisted"
	PriceUpdatedEvent      EventType = "PriceUpdated"
	SaleExecutedEvent      EventType = "SaleExecuted"
	ListingFeeUpdatedEvent EventType = "ListingFeeUpdated"
	FeesWithdrawnEvent     EventType = "FeesWithdrawn"
)

// Event is the notification emitted after an operation commits. Fields that
// do not apply to the event type are left empty.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Registry  Address   `json:"registry,omitempty"`
	AssetID   uint64    `json:"asset_id,omitempty"`
	Custodian Address   `json:"custodian,omitempty"`
	Seller    Address   `json:"seller,omitempty"`
	Buyer     Address   `json:"buyer,omitempty"`
	Price     *Amount   `json:"price,omitempty"`
	Amount    *Amount   `json:"amount,omitempty"`

	RoyaltyBeneficiary Address `json:"royalty_beneficiary,omitempty"`
	RoyaltyAmount      *Amount `json:"royalty_amount,omitempty"`

	Time time.Time `json:"time"`
}

func newEvent(t EventType) Event {
	return Event{
		ID:   uuid.New().String(),
		Type: t,
		Time: time.Now().UTC(),
	}
}

func amountRef(a Amount) *Amount {
	return &a
}
