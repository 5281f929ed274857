// Package registry provides in-memory NFT collections with ERC-721 style
// ownership and approvals and ERC-2981 style royalties. Collections satisfy
// ledger.AssetRegistry so the marketplace can escrow and deliver their tokens.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"nftmarket/pkg/ledger"
)

var (
	ErrTokenNotFound    = errors.New("token does not exist")
	ErrTokenExists      = errors.New("token already minted")
	ErrNotCreator       = errors.New("only the collection creator can do this")
	ErrNotApproved      = errors.New("caller is not token owner or approved")
	ErrWrongOwner       = errors.New("transfer from incorrect owner")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidRoyalty   = errors.New("royalty fee will exceed sale price")
)

// FeeDenominator is the basis-point scale for royalties.
const FeeDenominator = 10000

type Royalty struct {
	Receiver ledger.Address `json:"receiver"`
	Bps      uint16         `json:"bps"`
}

func (r Royalty) validate() error {
	if r.Bps > FeeDenominator {
		return ErrInvalidRoyalty
	}
	if r.Bps > 0 && r.Receiver.IsZero() {
		return ErrInvalidRecipient
	}
	return nil
}

// amount is salePrice * bps / 10000, truncated.
func (r Royalty) amount(salePrice ledger.Amount) ledger.Amount {
	return salePrice.Mul(decimal.NewFromInt(int64(r.Bps))).Div(decimal.NewFromInt(FeeDenominator)).Truncate(0)
}

type CollectionInfo struct {
	ID      ledger.Address `json:"id"`
	Name    string         `json:"name"`
	Creator ledger.Address `json:"creator"`
	Royalty Royalty        `json:"royalty"`
	Supply  int            `json:"supply"`
}

type Token struct {
	Registry ledger.Address `json:"registry"`
	AssetID  uint64         `json:"asset_id"`
	Owner    ledger.Address `json:"owner"`
	Approved ledger.Address `json:"approved,omitempty"`
	Royalty  Royalty        `json:"royalty"`
}

type Collection struct {
	mu        sync.RWMutex
	id        ledger.Address
	name      string
	creator   ledger.Address
	royalty   Royalty
	owners    map[uint64]ledger.Address
	approvals map[uint64]ledger.Address
	operators map[ledger.Address]map[ledger.Address]bool
	royalties map[uint64]Royalty
}

func NewCollection(id ledger.Address, name string, creator ledger.Address, royalty Royalty) (*Collection, error) {
	if id.IsZero() || creator.IsZero() {
		return nil, ErrInvalidRecipient
	}
	if err := royalty.validate(); err != nil {
		return nil, err
	}
	return &Collection{
		id:        id,
		name:      name,
		creator:   creator,
		royalty:   royalty,
		owners:    make(map[uint64]ledger.Address),
		approvals: make(map[uint64]ledger.Address),
		operators: make(map[ledger.Address]map[ledger.Address]bool),
		royalties: make(map[uint64]Royalty),
	}, nil
}

func (c *Collection) ID() ledger.Address {
	return c.id
}

func (c *Collection) Info() CollectionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CollectionInfo{ID: c.id, Name: c.name, Creator: c.creator, Royalty: c.royalty, Supply: len(c.owners)}
}

// Mint creates assetID owned by to. Only the creator may mint.
func (c *Collection) Mint(_ context.Context, caller, to ledger.Address, assetID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.creator {
		return ErrNotCreator
	}
	if to.IsZero() {
		return ErrInvalidRecipient
	}
	if _, ok := c.owners[assetID]; ok {
		return fmt.Errorf("%w: %d", ErrTokenExists, assetID)
	}
	c.owners[assetID] = to
	return nil
}

// SetTokenRoyalty overrides the collection royalty for one token.
func (c *Collection) SetTokenRoyalty(_ context.Context, caller ledger.Address, assetID uint64, royalty Royalty) error {
	if err := royalty.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.creator {
		return ErrNotCreator
	}
	if _, ok := c.owners[assetID]; !ok {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
	}
	c.royalties[assetID] = royalty
	return nil
}

// Approve lets operator move assetID once. The owner or an approved-for-all
// operator may approve; approving the empty address clears the approval.
func (c *Collection) Approve(_ context.Context, caller, operator ledger.Address, assetID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[assetID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
	}
	if caller != owner && !c.operators[owner][caller] {
		return ErrNotApproved
	}
	if operator.IsZero() {
		delete(c.approvals, assetID)
		return nil
	}
	c.approvals[assetID] = operator
	return nil
}

func (c *Collection) SetApprovalForAll(_ context.Context, owner, operator ledger.Address, approved bool) error {
	if owner.IsZero() || operator.IsZero() || owner == operator {
		return ErrInvalidRecipient
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.operators[owner] == nil {
		c.operators[owner] = make(map[ledger.Address]bool)
	}
	c.operators[owner][operator] = approved
	return nil
}

func (c *Collection) OwnerOf(_ context.Context, assetID uint64) (ledger.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owner, ok := c.owners[assetID]
	if !ok {
		return ledger.NoParty, fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
	}
	return owner, nil
}

func (c *Collection) Token(_ context.Context, assetID uint64) (Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owner, ok := c.owners[assetID]
	if !ok {
		return Token{}, fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
	}
	return Token{
		Registry: c.id,
		AssetID:  assetID,
		Owner:    owner,
		Approved: c.approvals[assetID],
		Royalty:  c.royaltyFor(assetID),
	}, nil
}

func (c *Collection) TransferCustody(_ context.Context, operator, from, to ledger.Address, assetID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	owner, ok := c.owners[assetID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrTokenNotFound, assetID)
	}
	if owner != from {
		return ErrWrongOwner
	}
	if to.IsZero() {
		return ErrInvalidRecipient
	}
	if operator != owner && c.approvals[assetID] != operator && !c.operators[owner][operator] {
		return ErrNotApproved
	}

	delete(c.approvals, assetID)
	c.owners[assetID] = to
	return nil
}

// RoyaltyInfo returns the receiver and salePrice * bps / 10000, truncated.
func (c *Collection) RoyaltyInfo(_ context.Context, assetID uint64, salePrice ledger.Amount) (ledger.Address, ledger.Amount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r := c.royaltyFor(assetID)
	return r.Receiver, r.amount(salePrice), nil
}

func (c *Collection) royaltyFor(assetID uint64) Royalty {
	if r, ok := c.royalties[assetID]; ok {
		return r
	}
	return c.royalty
}
