// Package ledger implements the fixed-price NFT marketplace: the listing state
// machine, sale settlement with royalty split, and listing fee administration.
//
// A Marketplace owns its listing Store and reaches the outside world only
// through the AssetRegistry, ValueTransfer and Publisher interfaces. Mutating
// operations are serialized; each one validates every precondition before its
// first effect and reverts applied effects if a later step fails, so callers
// observe either the whole transition or none of it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type Config struct {
	// Address is the marketplace's own party: escrow custodian and fee account.
	Address       Address
	Administrator Address
	// ListingFee seeds the fee when the store does not hold one yet.
	ListingFee Amount
}

type Marketplace struct {
	mu         sync.RWMutex
	cfg        Config
	store      Store
	registries RegistryDirectory
	funds      ValueTransfer
	publisher  Publisher
}

func NewMarketplace(ctx context.Context, cfg Config, store Store, registries RegistryDirectory, funds ValueTransfer, publisher Publisher) (*Marketplace, error) {
	if cfg.Address.IsZero() {
		return nil, errors.New("marketplace address is required")
	}
	if cfg.Administrator.IsZero() {
		return nil, errors.New("marketplace administrator is required")
	}
	if cfg.ListingFee.IsNegative() || !isWholeAmount(cfg.ListingFee) {
		return nil, fmt.Errorf("listing fee must be a non-negative whole amount, got %s", cfg.ListingFee)
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}

	if _, ok, err := store.GetListingFee(ctx); err != nil {
		return nil, fmt.Errorf("load listing fee: %w", err)
	} else if !ok {
		if err := store.SetListingFee(ctx, cfg.ListingFee); err != nil {
			return nil, fmt.Errorf("seed listing fee: %w", err)
		}
	}

	return &Marketplace{
		cfg:        cfg,
		store:      store,
		registries: registries,
		funds:      funds,
		publisher:  publisher,
	}, nil
}

func (m *Marketplace) Address() Address {
	return m.cfg.Address
}

func (m *Marketplace) Administrator() Address {
	return m.cfg.Administrator
}

// CreateListing escrows the caller's asset and lists it at price. value is
// the payment attached by the caller and must equal the listing fee.
func (m *Marketplace) CreateListing(ctx context.Context, caller, registry Address, assetID uint64, price, value Amount) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}
	if caller.IsZero() {
		return Listing{}, fmt.Errorf("%w: caller is required", ErrNotAuthorized)
	}
	if price.LessThan(MinPrice) || !isWholeAmount(price) {
		return Listing{}, fmt.Errorf("%w: price must be at least 1", ErrInvalidPrice)
	}

	fee, err := m.listingFee(ctx)
	if err != nil {
		return Listing{}, err
	}
	if !value.Equal(fee) {
		return Listing{}, fmt.Errorf("%w: payment must be equal to the listing fee of %s", ErrIncorrectPayment, fee)
	}

	reg, err := m.registry(registry)
	if err != nil {
		return Listing{}, err
	}

	key := ListingKey{Registry: registry, AssetID: assetID}
	j := newJournal("CreateListing")

	if err := reg.TransferCustody(ctx, m.cfg.Address, caller, m.cfg.Address, assetID); err != nil {
		return Listing{}, fmt.Errorf("%w: escrow %s: %w", ErrTransferFailed, key, err)
	}
	j.record(func(ctx context.Context) error {
		return reg.TransferCustody(ctx, m.cfg.Address, m.cfg.Address, caller, assetID)
	})

	if fee.IsPositive() {
		if err := m.funds.Transfer(ctx, caller, Payment{To: m.cfg.Address, Amount: fee}); err != nil {
			j.rollback(ctx)
			return Listing{}, fmt.Errorf("%w: listing fee: %w", ErrTransferFailed, err)
		}
		j.record(func(ctx context.Context) error {
			return m.funds.Transfer(ctx, m.cfg.Address, Payment{To: caller, Amount: fee})
		})

		if err := m.store.AddAccruedFees(ctx, fee); err != nil {
			j.rollback(ctx)
			return Listing{}, fmt.Errorf("accrue listing fee: %w", err)
		}
		j.record(func(ctx context.Context) error {
			return m.store.AddAccruedFees(ctx, fee.Neg())
		})
	}

	l := Listing{
		Registry:  registry,
		AssetID:   assetID,
		Custodian: m.cfg.Address,
		Seller:    caller,
		Price:     price,
		Active:    true,
	}
	if err := m.store.SaveListing(ctx, l); err != nil {
		j.rollback(ctx)
		return Listing{}, fmt.Errorf("save listing %s: %w", key, err)
	}

	zap.L().With(zap.String("listing", key.String()), zap.String("seller", caller.String()), zap.Stringer("price", price)).
		Info("Marketplace: listing created")

	e := newEvent(ListingCreatedEvent)
	e.Registry, e.AssetID = registry, assetID
	e.Custodian, e.Seller = m.cfg.Address, caller
	e.Price = amountRef(price)
	e.Amount = amountRef(fee)
	m.publisher.Publish(e)

	return l, nil
}

// Delist returns an escrowed asset to its seller.
func (m *Marketplace) Delist(ctx context.Context, caller, registry Address, assetID uint64) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	key := ListingKey{Registry: registry, AssetID: assetID}
	l, err := m.activeListing(ctx, key)
	if err != nil {
		return Listing{}, err
	}
	if caller != l.Seller {
		return Listing{}, fmt.Errorf("%w: only the seller can delist", ErrNotAuthorized)
	}

	reg, err := m.registry(registry)
	if err != nil {
		return Listing{}, err
	}

	j := newJournal("Delist")
	if err := reg.TransferCustody(ctx, m.cfg.Address, m.cfg.Address, caller, assetID); err != nil {
		return Listing{}, fmt.Errorf("%w: release %s: %w", ErrTransferFailed, key, err)
	}
	j.record(func(ctx context.Context) error {
		return reg.TransferCustody(ctx, caller, caller, m.cfg.Address, assetID)
	})

	l.Custodian = caller
	l.Seller = NoParty
	l.Active = false
	if err := m.store.SaveListing(ctx, l); err != nil {
		j.rollback(ctx)
		return Listing{}, fmt.Errorf("save listing %s: %w", key, err)
	}

	zap.L().With(zap.String("listing", key.String()), zap.String("seller", caller.String())).Info("Marketplace: listing delisted")

	e := newEvent(ListingDelistedEvent)
	e.Registry, e.AssetID = registry, assetID
	e.Custodian, e.Seller = caller, caller
	m.publisher.Publish(e)

	return l, nil
}

// UpdatePrice reprices an active listing. No funds or custody move.
func (m *Marketplace) UpdatePrice(ctx context.Context, caller, registry Address, assetID uint64, price Amount) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	key := ListingKey{Registry: registry, AssetID: assetID}
	l, err := m.activeListing(ctx, key)
	if err != nil {
		return Listing{}, err
	}
	if caller != l.Seller {
		return Listing{}, fmt.Errorf("%w: only the seller can update its price", ErrNotAuthorized)
	}
	if price.LessThan(MinPrice) || !isWholeAmount(price) {
		return Listing{}, fmt.Errorf("%w: price must be at least 1", ErrInvalidPrice)
	}

	l.Price = price
	if err := m.store.SaveListing(ctx, l); err != nil {
		return Listing{}, fmt.Errorf("save listing %s: %w", key, err)
	}

	zap.L().With(zap.String("listing", key.String()), zap.Stringer("price", price)).Info("Marketplace: price updated")

	e := newEvent(PriceUpdatedEvent)
	e.Registry, e.AssetID = registry, assetID
	e.Custodian, e.Seller = l.Custodian, l.Seller
	e.Price = amountRef(price)
	m.publisher.Publish(e)

	return l, nil
}

// ExecuteSale buys an active listing for the caller. value must equal the
// listing price; it is split between the royalty beneficiary and the seller.
func (m *Marketplace) ExecuteSale(ctx context.Context, caller, registry Address, assetID uint64, value Amount) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	key := ListingKey{Registry: registry, AssetID: assetID}
	l, err := m.activeListing(ctx, key)
	if err != nil {
		return Listing{}, err
	}
	if caller.IsZero() {
		return Listing{}, fmt.Errorf("%w: caller is required", ErrNotAuthorized)
	}
	if !value.Equal(l.Price) {
		return Listing{}, fmt.Errorf("%w: please submit the asking price of %s in order to complete the purchase", ErrIncorrectPayment, l.Price)
	}

	reg, err := m.registry(registry)
	if err != nil {
		return Listing{}, err
	}

	beneficiary, royalty, err := reg.RoyaltyInfo(ctx, assetID, l.Price)
	if err != nil {
		return Listing{}, fmt.Errorf("%w: royalty info for %s: %w", ErrTransferFailed, key, err)
	}
	legs, err := SplitSale(l.Price, l.Seller, beneficiary, royalty)
	if err != nil {
		return Listing{}, err
	}

	seller := l.Seller
	j := newJournal("ExecuteSale")

	if err := m.funds.Transfer(ctx, caller, legs...); err != nil {
		return Listing{}, fmt.Errorf("%w: sale payment: %w", ErrTransferFailed, err)
	}
	for _, leg := range legs {
		leg := leg // per-iteration copy; go.mod targets go 1.21 loop semantics
		j.record(func(ctx context.Context) error {
			return m.funds.Transfer(ctx, leg.To, Payment{To: caller, Amount: leg.Amount})
		})
	}

	if err := reg.TransferCustody(ctx, m.cfg.Address, m.cfg.Address, caller, assetID); err != nil {
		j.rollback(ctx)
		return Listing{}, fmt.Errorf("%w: deliver %s: %w", ErrTransferFailed, key, err)
	}
	j.record(func(ctx context.Context) error {
		return reg.TransferCustody(ctx, caller, caller, m.cfg.Address, assetID)
	})

	l.Custodian = caller
	l.Seller = NoParty
	l.Active = false
	if err := m.store.SaveListing(ctx, l); err != nil {
		j.rollback(ctx)
		return Listing{}, fmt.Errorf("save listing %s: %w", key, err)
	}

	zap.L().With(
		zap.String("listing", key.String()),
		zap.String("buyer", caller.String()),
		zap.String("seller", seller.String()),
		zap.Stringer("price", l.Price),
		zap.Stringer("royalty", royalty),
	).Info("Marketplace: sale executed")

	e := newEvent(SaleExecutedEvent)
	e.Registry, e.AssetID = registry, assetID
	e.Custodian, e.Seller, e.Buyer = caller, seller, caller
	e.Price = amountRef(l.Price)
	e.Amount = amountRef(l.Price.Sub(royalty))
	e.RoyaltyBeneficiary = beneficiary
	e.RoyaltyAmount = amountRef(royalty)
	m.publisher.Publish(e)

	return l, nil
}

// SplitSale computes the payment legs for a sale at price: royalty to the
// beneficiary and the remainder to the seller. Zero legs are omitted. A
// royalty outside [0, price], or a positive royalty without beneficiary, is
// rejected.
func SplitSale(price Amount, seller, beneficiary Address, royalty Amount) ([]Payment, error) {
	if royalty.IsNegative() {
		return nil, fmt.Errorf("%w: negative royalty %s", ErrTransferFailed, royalty)
	}
	if royalty.GreaterThan(price) {
		return nil, fmt.Errorf("%w: royalty %s exceeds sale price %s", ErrTransferFailed, royalty, price)
	}
	if royalty.IsPositive() && beneficiary.IsZero() {
		return nil, fmt.Errorf("%w: royalty %s has no beneficiary", ErrTransferFailed, royalty)
	}

	legs := make([]Payment, 0, 2)
	if royalty.IsPositive() {
		legs = append(legs, Payment{To: beneficiary, Amount: royalty})
	}
	if rest := price.Sub(royalty); rest.IsPositive() {
		legs = append(legs, Payment{To: seller, Amount: rest})
	}
	return legs, nil
}

func (m *Marketplace) SetListingFee(ctx context.Context, caller Address, fee Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if caller != m.cfg.Administrator {
		return fmt.Errorf("%w: only the administrator can update the listing fee", ErrNotAuthorized)
	}
	if fee.IsNegative() || !isWholeAmount(fee) {
		return fmt.Errorf("%w: listing fee must be a non-negative whole amount", ErrInvalidPrice)
	}

	if err := m.store.SetListingFee(ctx, fee); err != nil {
		return fmt.Errorf("save listing fee: %w", err)
	}

	zap.L().With(zap.Stringer("fee", fee)).Info("Marketplace: listing fee updated")

	e := newEvent(ListingFeeUpdatedEvent)
	e.Amount = amountRef(fee)
	m.publisher.Publish(e)

	return nil
}

func (m *Marketplace) ListingFee(ctx context.Context) (Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.listingFee(ctx)
}

// Withdraw pays every listing fee collected since the last withdrawal to the
// administrator and returns the amount paid.
func (m *Marketplace) Withdraw(ctx context.Context, caller Address) (Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if caller != m.cfg.Administrator {
		return zero, fmt.Errorf("%w: only the administrator can withdraw", ErrNotAuthorized)
	}

	// Only collected listing fees are paid out. Other value that reaches the
	// marketplace account, such as a royalty naming it, stays there.
	balance, err := m.store.AccruedFees(ctx)
	if err != nil {
		return zero, fmt.Errorf("load accrued fees: %w", err)
	}
	if balance.IsPositive() {
		if err := m.funds.Transfer(ctx, m.cfg.Address, Payment{To: caller, Amount: balance}); err != nil {
			return zero, fmt.Errorf("%w: withdraw: %w", ErrTransferFailed, err)
		}
		j := newJournal("Withdraw")
		j.record(func(ctx context.Context) error {
			return m.funds.Transfer(ctx, caller, Payment{To: m.cfg.Address, Amount: balance})
		})
		if err := m.store.AddAccruedFees(ctx, balance.Neg()); err != nil {
			j.rollback(ctx)
			return zero, fmt.Errorf("reset accrued fees: %w", err)
		}
	}

	zap.L().With(zap.String("to", caller.String()), zap.Stringer("amount", balance)).Info("Marketplace: fees withdrawn")

	e := newEvent(FeesWithdrawnEvent)
	e.Buyer = caller
	e.Amount = amountRef(balance)
	m.publisher.Publish(e)

	return balance, nil
}

// Listing returns the record for an asset, active or not. An asset that was
// never listed yields a zero-valued record carrying only its identity.
func (m *Marketplace) Listing(ctx context.Context, registry Address, assetID uint64) (Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok, err := m.store.GetListing(ctx, ListingKey{Registry: registry, AssetID: assetID})
	if err != nil {
		return Listing{}, err
	}
	if !ok {
		return Listing{Registry: registry, AssetID: assetID, Price: zero}, nil
	}
	return l, nil
}

// Listings enumerates every asset ever listed, in first-listing order.
func (m *Marketplace) Listings(ctx context.Context, page, limit int) (ListingPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	items, total, err := m.store.ListListings(ctx, limit, (page-1)*limit)
	if err != nil {
		return ListingPage{}, err
	}
	return ListingPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (m *Marketplace) listingFee(ctx context.Context) (Amount, error) {
	fee, ok, err := m.store.GetListingFee(ctx)
	if err != nil {
		return zero, fmt.Errorf("load listing fee: %w", err)
	}
	if !ok {
		return m.cfg.ListingFee, nil
	}
	return fee, nil
}

func (m *Marketplace) activeListing(ctx context.Context, key ListingKey) (Listing, error) {
	l, ok, err := m.store.GetListing(ctx, key)
	if err != nil {
		return Listing{}, fmt.Errorf("load listing %s: %w", key, err)
	}
	if !ok || !l.Active {
		return Listing{}, fmt.Errorf("%w: %s", ErrNotListed, key)
	}
	return l, nil
}

func (m *Marketplace) registry(id Address) (AssetRegistry, error) {
	if m.registries != nil {
		if reg, ok := m.registries.Registry(id); ok {
			return reg, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown asset registry %q", ErrTransferFailed, id)
}
