package registry

import (
	"context"
	"errors"
	"sync"

	"nftmarket/pkg/ledger"
)

var ErrRegistryNotFound = errors.New("registry not found")

// Service is the registry surface exposed over HTTP.
type Service interface {
	CreateCollection(ctx context.Context, name string, creator ledger.Address, royalty Royalty) (CollectionInfo, error)
	ListCollections(ctx context.Context) ([]CollectionInfo, error)
	Mint(ctx context.Context, registry, caller, to ledger.Address, assetID uint64) error
	Approve(ctx context.Context, registry, caller, operator ledger.Address, assetID uint64) error
	SetApprovalForAll(ctx context.Context, registry, caller, operator ledger.Address, approved bool) error
	SetTokenRoyalty(ctx context.Context, registry, caller ledger.Address, assetID uint64, royalty Royalty) error
	Token(ctx context.Context, registry ledger.Address, assetID uint64) (Token, error)
}

// Store is a collection directory the marketplace can escrow through.
type Store interface {
	Service
	ledger.RegistryDirectory
}

var _ Store = (*Directory)(nil)

// Directory holds every collection by id in memory.
type Directory struct {
	mu          sync.RWMutex
	collections map[ledger.Address]*Collection
	order       []ledger.Address
}

func NewDirectory() *Directory {
	return &Directory{collections: make(map[ledger.Address]*Collection)}
}

func (d *Directory) Add(c *Collection) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[c.ID()]; !ok {
		d.order = append(d.order, c.ID())
	}
	d.collections[c.ID()] = c
}

func (d *Directory) Collection(id ledger.Address) (*Collection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[id]
	return c, ok
}

func (d *Directory) Registry(id ledger.Address) (ledger.AssetRegistry, bool) {
	c, ok := d.Collection(id)
	if !ok {
		return nil, false
	}
	return c, true
}

func (d *Directory) CreateCollection(_ context.Context, name string, creator ledger.Address, royalty Royalty) (CollectionInfo, error) {
	c, err := NewCollection(ledger.NewAddress(), name, creator, royalty)
	if err != nil {
		return CollectionInfo{}, err
	}
	d.Add(c)
	return c.Info(), nil
}

func (d *Directory) ListCollections(_ context.Context) ([]CollectionInfo, error) {
	d.mu.RLock()
	ids := make([]ledger.Address, len(d.order))
	copy(ids, d.order)
	d.mu.RUnlock()

	out := make([]CollectionInfo, 0, len(ids))
	for _, id := range ids {
		if c, ok := d.Collection(id); ok {
			out = append(out, c.Info())
		}
	}
	return out, nil
}

func (d *Directory) Mint(ctx context.Context, registry, caller, to ledger.Address, assetID uint64) error {
	c, ok := d.Collection(registry)
	if !ok {
		return ErrRegistryNotFound
	}
	return c.Mint(ctx, caller, to, assetID)
}

func (d *Directory) Approve(ctx context.Context, registry, caller, operator ledger.Address, assetID uint64) error {
	c, ok := d.Collection(registry)
	if !ok {
		return ErrRegistryNotFound
	}
	return c.Approve(ctx, caller, operator, assetID)
}

func (d *Directory) SetApprovalForAll(ctx context.Context, registry, caller, operator ledger.Address, approved bool) error {
	c, ok := d.Collection(registry)
	if !ok {
		return ErrRegistryNotFound
	}
	return c.SetApprovalForAll(ctx, caller, operator, approved)
}

func (d *Directory) SetTokenRoyalty(ctx context.Context, registry, caller ledger.Address, assetID uint64, royalty Royalty) error {
	c, ok := d.Collection(registry)
	if !ok {
		return ErrRegistryNotFound
	}
	return c.SetTokenRoyalty(ctx, caller, assetID, royalty)
}

func (d *Directory) Token(ctx context.Context, registry ledger.Address, assetID uint64) (Token, error) {
	c, ok := d.Collection(registry)
	if !ok {
		return Token{}, ErrRegistryNotFound
	}
	return c.Token(ctx, assetID)
}
