package signer

import (
	"sync"

	"github.com/huandu/skiplist"
)

// NonceCache tracks the next payload nonce per account
type NonceCache struct {
	nonces map[string]uint64
	mu     sync.Mutex
}

// NewNonceCache creates a new nonce cache
func NewNonceCache() *NonceCache {
	return &NonceCache{
		nonces: make(map[string]uint64),
	}
}

// Next returns the account's current nonce and advances it
func (c *NonceCache) Next(account string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.nonces[account]
	c.nonces[account] = n + 1
	return n
}

// Get returns the account's next nonce without advancing it
func (c *NonceCache) Get(account string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account]
}

// Set overwrites the account's next nonce
func (c *NonceCache) Set(account string, nonce uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonces[account] = nonce
}

// Len returns the number of tracked accounts
func (c *NonceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nonces)
}

// Clear removes all tracked accounts
func (c *NonceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonces = make(map[string]uint64)
}

// expiryKeyAsc orders issued payloads by ascending expiry height
type expiryKeyAsc struct{}

func (k expiryKeyAsc) Compare(lhs, rhs interface{}) int {
	l := lhs.(int64)
	r := rhs.(int64)
	if l < r {
		return -1
	}
	if l > r {
		return 1
	}
	return 0
}

func (k expiryKeyAsc) CalcScore(key interface{}) float64 {
	return float64(key.(int64))
}

// IssuedIndex tracks issued payloads ordered by expiry height, so
// expired records can be pruned from the front in O(log n)
type IssuedIndex struct {
	byExpiry *skiplist.SkipList // expiry height -> []*IssuedPayload
	byID     map[string]*IssuedPayload
	mu       sync.RWMutex
}

// NewIssuedIndex creates a new issued-payload index
func NewIssuedIndex() *IssuedIndex {
	return &IssuedIndex{
		byExpiry: skiplist.New(expiryKeyAsc{}),
		byID:     make(map[string]*IssuedPayload),
	}
}

// Add records an issued payload
func (idx *IssuedIndex) Add(p *IssuedPayload) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.byID[p.ID] = p

	elem := idx.byExpiry.Get(p.ExpiresAt)
	if elem != nil {
		bucket := elem.Value.([]*IssuedPayload)
		idx.byExpiry.Set(p.ExpiresAt, append(bucket, p))
	} else {
		idx.byExpiry.Set(p.ExpiresAt, []*IssuedPayload{p})
	}
}

// Get returns an issued payload by ID
func (idx *IssuedIndex) Get(id string) *IssuedPayload {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.byID[id]
}

// Remove removes an issued payload by ID
func (idx *IssuedIndex) Remove(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	p, ok := idx.byID[id]
	if !ok {
		return
	}
	delete(idx.byID, id)

	elem := idx.byExpiry.Get(p.ExpiresAt)
	if elem == nil {
		return
	}
	bucket := elem.Value.([]*IssuedPayload)
	kept := make([]*IssuedPayload, 0, len(bucket))
	for _, q := range bucket {
		if q.ID != id {
			kept = append(kept, q)
		}
	}
	if len(kept) == 0 {
		idx.byExpiry.Remove(p.ExpiresAt)
	} else {
		idx.byExpiry.Set(p.ExpiresAt, kept)
	}
}

// PruneExpired removes and returns all payloads with expiry below the
// given height. A payload expiring exactly at height is still valid.
func (idx *IssuedIndex) PruneExpired(height int64) []*IssuedPayload {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var pruned []*IssuedPayload
	for {
		front := idx.byExpiry.Front()
		if front == nil {
			break
		}
		expiry := front.Key().(int64)
		if expiry >= height {
			break
		}
		bucket := front.Value.([]*IssuedPayload)
		for _, p := range bucket {
			delete(idx.byID, p.ID)
			pruned = append(pruned, p)
		}
		idx.byExpiry.Remove(expiry)
	}
	return pruned
}

// ByAccount returns all issued payloads for an account
func (idx *IssuedIndex) ByAccount(account string) []*IssuedPayload {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]*IssuedPayload, 0)
	for _, p := range idx.byID {
		if p.Account == account {
			result = append(result, p)
		}
	}
	return result
}

// Len returns the number of tracked issued payloads
func (idx *IssuedIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byID)
}

// PayloadBuffer is a thread-safe buffer for payloads pending submission
type PayloadBuffer struct {
	payloads []*IssuedPayload
	maxSize  int
	mu       sync.Mutex
}

// NewPayloadBuffer creates a new payload buffer with the given max size
func NewPayloadBuffer(maxSize int) *PayloadBuffer {
	if maxSize <= 0 {
		maxSize = 50
	}
	return &PayloadBuffer{
		payloads: make([]*IssuedPayload, 0, maxSize),
		maxSize:  maxSize,
	}
}

// Add adds a payload to the buffer
func (b *PayloadBuffer) Add(p *IssuedPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, p)
}

// Flush returns all buffered payloads and clears the buffer
func (b *PayloadBuffer) Flush() []*IssuedPayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	payloads := b.payloads
	b.payloads = make([]*IssuedPayload, 0, b.maxSize)
	return payloads
}

// FlushBatch returns up to maxSize payloads and removes them
func (b *PayloadBuffer) FlushBatch() []*IssuedPayload {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.payloads) == 0 {
		return nil
	}

	count := b.maxSize
	if len(b.payloads) < count {
		count = len(b.payloads)
	}

	batch := b.payloads[:count]
	b.payloads = b.payloads[count:]
	return batch
}

// Len returns the number of buffered payloads
func (b *PayloadBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.payloads)
}

// IsFull returns true if the buffer is at or above max size
func (b *PayloadBuffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.payloads) >= b.maxSize
}

// Clear removes all buffered payloads
func (b *PayloadBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = make([]*IssuedPayload, 0, b.maxSize)
}
