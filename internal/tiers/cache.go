// Package tiers keeps a priced snapshot of the subscription tiers in memory.
package tiers

import (
	"sync/atomic"
)

// FreeTierID is the tier every account starts on. It is never billed.
const FreeTierID int32 = 0

type Tier struct {
	ID         int32  `json:"id"`
	Name       string `json:"name"`
	VisitLimit *int32 `json:"visit_limit"`
	// MonthlyPrice is in cents. Nil when the provider could not price the tier.
	MonthlyPrice *int64 `json:"monthly_price"`
	StripePlan   string `json:"-"`
}

// Cache is read by handlers and written only by the Refresher. A snapshot is
// never modified after it is published.
type Cache struct {
	snapshot atomic.Pointer[[]Tier]
}

func NewCache() *Cache {
	return &Cache{}
}

// Snapshot returns the current tier list. It is empty until the first
// refresh completes. Callers must not modify the result.
func (c *Cache) Snapshot() []Tier {
	p := c.snapshot.Load()
	if p == nil {
		return []Tier{}
	}

	return *p
}

func (c *Cache) Get(id int32) (Tier, bool) {
	for _, t := range c.Snapshot() {
		if t.ID == id {
			return t, true
		}
	}

	return Tier{}, false
}

// Replace publishes list as the new snapshot.
func (c *Cache) Replace(list []Tier) {
	c.snapshot.Store(&list)
}
