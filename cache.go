package auctionhouse

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/nftbiennial/auctionhouse/schema"
)

// Cache keeps terminal auction outcomes around after the record leaves the
// registry, so reads of a settled or canceled id still get an answer without
// a relational query. Eviction is acceptable; the audit trail in the wdb is
// the durable copy.
type Cache struct {
	outcomes *bigcache.BigCache
}

func NewCache() *Cache {
	outcomes, err := bigcache.New(context.Background(), bigcache.DefaultConfig(72*time.Hour))
	if err != nil {
		panic(err)
	}
	return &Cache{outcomes: outcomes}
}

func (c *Cache) SetOutcome(id uint64, out schema.AuctionOutcome) {
	by, err := json.Marshal(&out)
	if err != nil {
		log.Error("marshal auction outcome", "id", id, "err", err)
		return
	}
	if err := c.outcomes.Set(strconv.FormatUint(id, 10), by); err != nil {
		log.Error("cache auction outcome", "id", id, "err", err)
	}
}

func (c *Cache) GetOutcome(id uint64) (*schema.AuctionOutcome, bool) {
	by, err := c.outcomes.Get(strconv.FormatUint(id, 10))
	if err != nil {
		return nil, false
	}
	out := &schema.AuctionOutcome{}
	if err := json.Unmarshal(by, out); err != nil {
		return nil, false
	}
	return out, true
}

func (c *Cache) Close() {
	c.outcomes.Close()
}
