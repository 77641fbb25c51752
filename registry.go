package auctionhouse

import (
	"sort"

	"github.com/nftbiennial/auctionhouse/schema"
)

// AuctionRegistry owns the live auction records: an in-memory map written
// through to the KV store, with a monotonically increasing id counter that
// is never decremented and never reused after removal.
//
// The registry is not internally locked; the house serializes every
// operation that touches it.
type AuctionRegistry struct {
	auctions map[uint64]*schema.Auction
	nextId   uint64
	store    *Store
}

func NewAuctionRegistry(store *Store) (*AuctionRegistry, error) {
	auctions, err := store.LoadAllAuctions()
	if err != nil {
		return nil, err
	}
	r := &AuctionRegistry{
		auctions: make(map[uint64]*schema.Auction, len(auctions)),
		nextId:   store.LoadNextAuctionId(),
		store:    store,
	}
	for _, a := range auctions {
		r.auctions[a.Id] = a
		// the counter write can lag the record write after a crash
		if a.Id >= r.nextId {
			r.nextId = a.Id + 1
		}
	}
	return r, nil
}

func (r *AuctionRegistry) Get(id uint64) (*schema.Auction, error) {
	a, ok := r.auctions[id]
	if !ok {
		return nil, schema.ErrUnknownAuction
	}
	return a, nil
}

// Insert assigns the next id to a, persists it and advances the counter.
// Nothing is mutated if persistence fails.
func (r *AuctionRegistry) Insert(a *schema.Auction) error {
	a.Id = r.nextId
	if err := r.store.SaveAuction(*a); err != nil {
		return err
	}
	if err := r.store.SaveNextAuctionId(r.nextId + 1); err != nil {
		// recoverable: startup bumps the counter past any persisted record
		log.Error("save next auction id", "id", r.nextId+1, "err", err)
	}
	r.nextId++
	r.auctions[a.Id] = a
	return nil
}

// Save writes an updated record through to the store.
func (r *AuctionRegistry) Save(a *schema.Auction) error {
	if _, ok := r.auctions[a.Id]; !ok {
		return schema.ErrUnknownAuction
	}
	return r.store.SaveAuction(*a)
}

func (r *AuctionRegistry) Remove(id uint64) error {
	if _, ok := r.auctions[id]; !ok {
		return schema.ErrUnknownAuction
	}
	if err := r.store.DeleteAuction(id); err != nil {
		return err
	}
	delete(r.auctions, id)
	return nil
}

func (r *AuctionRegistry) Len() int {
	return len(r.auctions)
}

// List returns the live auctions ordered by id.
func (r *AuctionRegistry) List() []*schema.Auction {
	out := make([]*schema.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}
