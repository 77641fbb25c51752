package auctionhouse

import (
	"encoding/json"
	"strconv"

	"github.com/nftbiennial/auctionhouse/rawdb"
	"github.com/nftbiennial/auctionhouse/schema"
)

type Store struct {
	KVDb rawdb.KeyValueDB
}

func NewBoltStore(boltDirPath string) (*Store, error) {
	boltDb, err := rawdb.NewBoltDB(boltDirPath)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: boltDb}, nil
}

func NewS3Store(accKey, secretKey, region, bucketPrefix, endpoint string) (*Store, error) {
	s3Db, err := rawdb.NewS3DB(accKey, secretKey, region, bucketPrefix, endpoint)
	if err != nil {
		return nil, err
	}
	return &Store{KVDb: s3Db}, nil
}

func (s *Store) Close() error {
	return s.KVDb.Close()
}

func auctionKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func (s *Store) SaveAuction(a schema.Auction) error {
	by, err := json.Marshal(&a)
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.AuctionBucket, auctionKey(a.Id), by)
}

func (s *Store) LoadAuction(id uint64) (*schema.Auction, error) {
	by, err := s.KVDb.Get(schema.AuctionBucket, auctionKey(id))
	if err != nil {
		return nil, err
	}
	a := &schema.Auction{}
	if err := json.Unmarshal(by, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) IsExistAuction(id uint64) bool {
	return s.KVDb.Exist(schema.AuctionBucket, auctionKey(id))
}

func (s *Store) DeleteAuction(id uint64) error {
	return s.KVDb.Delete(schema.AuctionBucket, auctionKey(id))
}

func (s *Store) LoadAllAuctions() ([]*schema.Auction, error) {
	keys, err := s.KVDb.GetAllKey(schema.AuctionBucket)
	if err != nil {
		return nil, err
	}
	auctions := make([]*schema.Auction, 0, len(keys))
	for _, key := range keys {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			log.Error("invalid auction key", "key", key, "err", err)
			continue
		}
		a, err := s.LoadAuction(id)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, nil
}

func (s *Store) SaveSettlement(p schema.SettlementProgress) error {
	by, err := json.Marshal(&p)
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.SettlementBucket, auctionKey(p.AuctionId), by)
}

func (s *Store) LoadSettlement(id uint64) (*schema.SettlementProgress, error) {
	by, err := s.KVDb.Get(schema.SettlementBucket, auctionKey(id))
	if err != nil {
		return nil, err
	}
	p := &schema.SettlementProgress{}
	if err := json.Unmarshal(by, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) DeleteSettlement(id uint64) error {
	return s.KVDb.Delete(schema.SettlementBucket, auctionKey(id))
}

// LoadNextAuctionId returns 0 for a fresh store.
func (s *Store) LoadNextAuctionId() uint64 {
	by, err := s.KVDb.Get(schema.ConstantsBucket, schema.NextAuctionIdKey)
	if err != nil {
		return 0
	}
	id, err := strconv.ParseUint(string(by), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (s *Store) SaveNextAuctionId(id uint64) error {
	return s.KVDb.Put(schema.ConstantsBucket, schema.NextAuctionIdKey, []byte(strconv.FormatUint(id, 10)))
}

func (s *Store) LoadGovernance() (*schema.Governance, error) {
	by, err := s.KVDb.Get(schema.ConstantsBucket, schema.GovernanceKey)
	if err != nil {
		return nil, err
	}
	g := &schema.Governance{}
	if err := json.Unmarshal(by, g); err != nil {
		return nil, err
	}
	if g.Mods == nil {
		g.Mods = make(map[string]bool)
	}
	return g, nil
}

func (s *Store) SaveGovernance(g schema.Governance) error {
	by, err := json.Marshal(&g)
	if err != nil {
		return err
	}
	return s.KVDb.Put(schema.ConstantsBucket, schema.GovernanceKey, by)
}
