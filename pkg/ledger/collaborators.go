package ledger

import "context"

// AssetRegistry is the custody and royalty surface of one NFT collection.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, assetID uint64) (Address, error)
	// TransferCustody moves assetID from -> to on behalf of operator. It fails
	// unless from holds the asset and operator is from or approved by it.
	TransferCustody(ctx context.Context, operator, from, to Address, assetID uint64) error
	RoyaltyInfo(ctx context.Context, assetID uint64, salePrice Amount) (Address, Amount, error)
}

// RegistryDirectory resolves a registry identity to its implementation.
type RegistryDirectory interface {
	Registry(id Address) (AssetRegistry, bool)
}

// Registries is a fixed RegistryDirectory.
type Registries map[Address]AssetRegistry

func (r Registries) Registry(id Address) (AssetRegistry, bool) {
	reg, ok := r[id]
	return reg, ok
}

// ValueTransfer moves native value between parties. Transfer applies all legs
// or none of them.
type ValueTransfer interface {
	Transfer(ctx context.Context, from Address, legs ...Payment) error
	BalanceOf(ctx context.Context, party Address) (Amount, error)
}

// Publisher receives committed ledger events. Publish must not block.
type Publisher interface {
	Publish(e Event)
}

type PublisherFunc func(e Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
