package auctionhouse

import (
	"math/big"
	"path"
	"time"

	"github.com/nftbiennial/auctionhouse/schema"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteName = "auctionhouse.sqlite"

type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) *Wdb {
	logLevel := logger.Error
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logLevel),
		CreateBatchSize: 200,
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}
}

func NewSqliteDb(dbDir string) *Wdb {
	db, err := gorm.Open(sqlite.Open(path.Join(dbDir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		panic(err)
	}
	log.Info("connect sqlite db success")
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.BidRecord{}, &schema.SettlementRecord{})
}

func (w *Wdb) InsertBidRecord(r schema.BidRecord) error {
	return w.Db.Create(&r).Error
}

func (w *Wdb) InsertSettlementRecord(r schema.SettlementRecord) error {
	return w.Db.Create(&r).Error
}

func (w *Wdb) GetBidRecords(auctionId uint64) ([]schema.BidRecord, error) {
	res := make([]schema.BidRecord, 0)
	err := w.Db.Where("auction_id = ?", auctionId).Order("id asc").Find(&res).Error
	return res, err
}

func (w *Wdb) GetSettlementRecord(auctionId uint64) (res schema.SettlementRecord, err error) {
	err = w.Db.Where("auction_id = ?", auctionId).First(&res).Error
	return
}

// GetDailyStatistics aggregates terminal auctions per day over [start, end).
// Volume is summed with decimal so large settlements cannot overflow.
func (w *Wdb) GetDailyStatistics(start, end time.Time) ([]schema.AuctionStatistic, error) {
	records := make([]schema.SettlementRecord, 0)
	err := w.Db.Where("created_at >= ? and created_at < ?", start, end).Order("created_at asc").Find(&records).Error
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*schema.AuctionStatistic)
	dates := make([]string, 0)
	volumes := make(map[string]decimal.Decimal)
	for _, r := range records {
		date := r.CreatedAt.UTC().Format("2006-01-02")
		st, ok := byDate[date]
		if !ok {
			st = &schema.AuctionStatistic{Date: date}
			byDate[date] = st
			dates = append(dates, date)
			volumes[date] = decimal.Zero
		}
		switch r.Status {
		case schema.OutcomeSettled:
			st.Settled++
			volumes[date] = volumes[date].Add(decimal.NewFromBigInt(new(big.Int).SetUint64(r.Amount), 0))
		case schema.OutcomeCanceled:
			st.Canceled++
		}
	}

	out := make([]schema.AuctionStatistic, 0, len(dates))
	for _, date := range dates {
		st := byDate[date]
		st.SettledVolume = volumes[date].String()
		out = append(out, *st)
	}
	return out, nil
}

func (w *Wdb) Close() {
	sql, err := w.Db.DB()
	if err == nil {
		sql.Close()
	}
}
