package ledger

// listingIndex is an insertion-ordered set of listing identities.
type listingIndex struct {
	keys []ListingKey
	seen map[ListingKey]struct{}
}

func newListingIndex() *listingIndex {
	return &listingIndex{seen: make(map[ListingKey]struct{})}
}

// add appends k unless it is already present and reports whether it did.
func (ix *listingIndex) add(k ListingKey) bool {
	if _, ok := ix.seen[k]; ok {
		return false
	}
	ix.seen[k] = struct{}{}
	ix.keys = append(ix.keys, k)
	return true
}

func (ix *listingIndex) len() int {
	return len(ix.keys)
}

// page returns a copy of keys[offset:offset+limit], clamped to the set size.
func (ix *listingIndex) page(offset, limit int) []ListingKey {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ix.keys) || limit <= 0 {
		return []ListingKey{}
	}
	end := offset + limit
	if end > len(ix.keys) {
		end = len(ix.keys)
	}
	out := make([]ListingKey, end-offset)
	copy(out, ix.keys[offset:end])
	return out
}
