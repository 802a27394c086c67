package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kedai-pos/engine/internal/order"
)

// Cache is the process-local suppression store: hash of a dispatched order to
// the time it was sent. Entries are only consulted within the duplicate
// window, so stale ones are harmless and never evicted. Each terminal owns
// its own Cache; it is never shared module-level state.
type Cache struct {
	mu     sync.Mutex
	sentAt map[string]time.Time
}

// NewCache returns an empty suppression cache.
func NewCache() *Cache {
	return &Cache{sentAt: make(map[string]time.Time)}
}

// Record remembers that the order with this hash was dispatched at ts.
func (c *Cache) Record(hash string, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentAt[hash] = ts
}

// SentWithin reports whether the hash was recorded within window of now.
func (c *Cache) SentWithin(hash string, now time.Time, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.sentAt[hash]
	return ok && now.Sub(ts) <= window
}

// Hash derives the suppression key for a cart: the source plus the sorted
// menuItemID:quantity:price tuples of its lines. Two carts with the same
// items for the same source collide regardless of line order.
func Hash(source string, items []order.LineItem) string {
	tuples := make([]string, len(items))
	for i, li := range items {
		id := li.MenuItemID
		if id == "" {
			id = li.Name // custom extras have no menu item reference
		}
		tuples[i] = fmt.Sprintf("%s:%d:%s", id, li.Quantity, li.Total().String())
	}
	sort.Strings(tuples)

	sum := sha256.Sum256([]byte(source + "|" + strings.Join(tuples, "|")))
	return hex.EncodeToString(sum[:])
}
