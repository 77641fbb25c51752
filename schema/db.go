package schema

import (
	"time"

	"gorm.io/datatypes"
)

// relational audit trail; the bolt registry is the source of truth for live
// auction state, these records only survive it.

type BidRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	AuctionId uint64 `gorm:"index:idx_bid_auction" json:"auctionId"`
	Bidder    string `gorm:"index:idx_bid_bidder" json:"bidder"`
	Amount    uint64 `json:"amount"`

	// previous bid refunded when this one was accepted; zero for the first bid
	RefundedBidder string `json:"refundedBidder"`
	RefundedAmount uint64 `json:"refundedAmount"`
}

type SettlementRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	AuctionId uint64 `gorm:"uniqueIndex:idx_settle_auction" json:"auctionId"`
	Status    string `json:"status"` // "settled" | "canceled"
	Caller    string `json:"caller"`
	Winner    string `json:"winner"`
	Amount    uint64 `json:"amount"` // final current_price

	Payouts datatypes.JSON `json:"payouts"` // json([]Payout)
}

type AuctionStatistic struct {
	Date          string `json:"date"`
	Settled       int64  `json:"settled"`
	Canceled      int64  `json:"canceled"`
	SettledVolume string `json:"settledVolume"`
}
