package status

import (
	"math/big"
	"sync"
	"time"
)

// CrlInfo is the cached metadata of the most recently processed CRL of one
// issuer.
type CrlInfo struct {
	Number     int64
	ThisUpdate time.Time
	NextUpdate time.Time
	IsDelta    bool
}

// Usable reports whether the cached revocation data may still be asserted at
// the given time. Past NextUpdate the resolver reports unavailability rather
// than claiming good status from outdated data.
func (ci *CrlInfo) Usable(now time.Time) bool {
	return !ci.NextUpdate.IsZero() && !now.After(ci.NextUpdate)
}

type deltaKey struct {
	caID   int
	serial string
}

// DeltaCrlCache records (issuer, serial) pairs flagged in a delta CRL that
// have not yet been folded into the base CRL view. A hit here always takes
// precedence over the base record for that serial. A single background
// updater per issuer writes; queries take the read lock only.
type DeltaCrlCache struct {
	mu      sync.RWMutex
	entries map[deltaKey]struct{}
}

// NewDeltaCrlCache returns an empty cache.
func NewDeltaCrlCache() *DeltaCrlCache {
	return &DeltaCrlCache{entries: make(map[deltaKey]struct{})}
}

func key(caID int, serial *big.Int) deltaKey {
	return deltaKey{caID: caID, serial: serial.Text(16)}
}

// Put records a serial flagged by a delta CRL of the given issuer.
func (c *DeltaCrlCache) Put(caID int, serial *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(caID, serial)] = struct{}{}
}

// Contains reports whether the pair is pending reconciliation.
func (c *DeltaCrlCache) Contains(caID int, serial *big.Int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key(caID, serial)]
	return ok
}

// Remove drops one pair, after the base CRL view has absorbed it.
func (c *DeltaCrlCache) Remove(caID int, serial *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(caID, serial))
}

// PruneIssuer drops every entry of one issuer, for when the CA is removed or
// a fresh base CRL supersedes the pending deltas.
func (c *DeltaCrlCache) PruneIssuer(caID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.caID == caID {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of pending entries.
func (c *DeltaCrlCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
