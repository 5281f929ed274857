package ledger

import (
	"context"
	"sync"
)

// Store persists listings, the listing index, the listing fee and the fees
// collected but not yet withdrawn.
type Store interface {
	// GetListing returns the record for key and whether one exists.
	GetListing(ctx context.Context, key ListingKey) (Listing, bool, error)
	// SaveListing upserts l and appends its key to the index if new, atomically.
	SaveListing(ctx context.Context, l Listing) error
	// ListListings returns indexed listings in insertion order and the index size.
	ListListings(ctx context.Context, limit, offset int) ([]Listing, int64, error)
	GetListingFee(ctx context.Context) (Amount, bool, error)
	SetListingFee(ctx context.Context, fee Amount) error
	AccruedFees(ctx context.Context) (Amount, error)
	// AddAccruedFees adds delta, which is negative for a payout or a revert.
	AddAccruedFees(ctx context.Context, delta Amount) error
}

type memoryStore struct {
	mu       sync.RWMutex
	listings map[ListingKey]Listing
	index    *listingIndex
	fee      *Amount
	accrued  Amount
}

// NewMemoryStore returns a Store kept entirely in process memory.
func NewMemoryStore() Store {
	return &memoryStore{
		listings: make(map[ListingKey]Listing),
		index:    newListingIndex(),
		accrued:  zero,
	}
}

func (s *memoryStore) GetListing(_ context.Context, key ListingKey) (Listing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[key]
	return l, ok, nil
}

func (s *memoryStore) SaveListing(_ context.Context, l Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[l.Key()] = l
	s.index.add(l.Key())
	return nil
}

func (s *memoryStore) ListListings(_ context.Context, limit, offset int) ([]Listing, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.index.page(offset, limit)
	items := make([]Listing, 0, len(keys))
	for _, k := range keys {
		items = append(items, s.listings[k])
	}
	return items, int64(s.index.len()), nil
}

func (s *memoryStore) GetListingFee(_ context.Context) (Amount, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fee == nil {
		return zero, false, nil
	}
	return *s.fee, true, nil
}

func (s *memoryStore) SetListingFee(_ context.Context, fee Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fee = &fee
	return nil
}

func (s *memoryStore) AccruedFees(_ context.Context) (Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.accrued, nil
}

func (s *memoryStore) AddAccruedFees(_ context.Context, delta Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accrued = s.accrued.Add(delta)
	return nil
}
