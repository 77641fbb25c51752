package schema

var (
	// bucket
	AuctionBucket    = "auction-bucket"    // key: auctionId, val: json(Auction)
	SettlementBucket = "settlement-bucket" // key: auctionId, val: json(SettlementProgress)
	ConstantsBucket  = "constants-bucket"  // next auction id, governance state
)

const (
	NextAuctionIdKey = "next-auction-id"
	GovernanceKey    = "governance"
)
