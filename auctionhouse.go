package auctionhouse

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/nftbiennial/auctionhouse/common"
	"github.com/nftbiennial/auctionhouse/config"
	"github.com/nftbiennial/auctionhouse/schema"
	"github.com/panjf2000/ants/v2"
)

var log = common.NewLog("auctionhouse")

const eventPoolSize = 10

type AuctionHouse struct {
	store      *Store
	registry   *AuctionRegistry
	governance *schema.Governance
	engine     *gin.Engine
	opLocker   sync.Mutex

	custody Custody
	ledger  Ledger

	wdb       *Wdb
	cache     *Cache
	scheduler *gocron.Scheduler
	cfg       *config.Config

	KWriters   map[string]*KWriter
	eventsPool *ants.Pool
}

func New(
	boltDirPath, mySqlDsn string, sqliteDir string, useSqlite bool,
	useS3 bool, s3AccKey, s3SecretKey, s3BucketPrefix, s3Region, s3Endpoint string,
	custodyUrl, ledgerUrl, kafkaUri string,
	initialMods []string, cfg *config.Config,
) *AuctionHouse {
	var err error
	KVDb := &Store{}
	if useS3 {
		KVDb, err = NewS3Store(s3AccKey, s3SecretKey, s3Region, s3BucketPrefix, s3Endpoint)
	} else {
		KVDb, err = NewBoltStore(boltDirPath)
	}
	if err != nil {
		panic(err)
	}

	registry, err := NewAuctionRegistry(KVDb)
	if err != nil {
		panic(err)
	}

	governance, err := KVDb.LoadGovernance()
	if err != nil {
		if err != schema.ErrNotExist {
			panic(err)
		}
		governance = &schema.Governance{
			Mods:         make(map[string]bool),
			PlatformFees: schema.DefaultPlatformFees,
		}
		for _, mod := range initialMods {
			governance.Mods[mod] = true
		}
		if err := KVDb.SaveGovernance(*governance); err != nil {
			panic(err)
		}
	}

	wdb := &Wdb{}
	if useSqlite {
		wdb = NewSqliteDb(sqliteDir)
	} else {
		wdb = NewMysqlDb(mySqlDsn)
	}
	if err = wdb.Migrate(); err != nil {
		panic(err)
	}

	var kWriters map[string]*KWriter
	if kafkaUri != "" {
		kWriters, err = NewKWriters(kafkaUri)
		if err != nil {
			panic(err)
		}
	}

	eventsPool, err := ants.NewPool(eventPoolSize)
	if err != nil {
		panic(err)
	}

	s := &AuctionHouse{
		store:      KVDb,
		registry:   registry,
		governance: governance,
		engine:     gin.Default(),
		custody:    NewHttpCustody(custodyUrl),
		ledger:     NewHttpLedger(ledgerUrl, cfg.EscrowAccount),
		wdb:        wdb,
		cache:      NewCache(),
		scheduler:  gocron.NewScheduler(time.UTC),
		cfg:        cfg,
		KWriters:   kWriters,
		eventsPool: eventsPool,
	}
	activeAuctions.Set(float64(registry.Len()))
	return s
}

func (s *AuctionHouse) Run(port string) {
	go s.runAPI(port)
	s.runJobs()
}

func (s *AuctionHouse) Close() {
	s.scheduler.Stop()
	for _, kw := range s.KWriters {
		kw.Close()
	}
	s.eventsPool.Release()
	s.cache.Close()
	s.wdb.Close()
	if err := s.store.Close(); err != nil {
		log.Error("close store", "err", err)
	}
}
