package schema

const (
	MaxSharesPerAuction = 100
)

type ReqCreateAuction struct {
	Caller         string  `json:"caller"`
	Creator        string  `json:"creator"`
	Asset          Asset   `json:"asset"`
	StartTime      int64   `json:"startTime"`
	EndTime        int64   `json:"endTime"`
	PriceIncrement uint64  `json:"priceIncrement"`
	ReservePrice   uint64  `json:"reservePrice"`
	Shares         []Share `json:"shares"`
}

type ReqBid struct {
	Bidder string `json:"bidder"`
	Amount uint64 `json:"amount"`
}

type ReqCaller struct {
	Caller string `json:"caller"`
}

type ReqModerator struct {
	Caller    string `json:"caller"`
	Moderator string `json:"moderator"`
}

type ReqPlatformFees struct {
	Caller       string `json:"caller"`
	PlatformFees uint32 `json:"platformFees"`
}

type RespAuctionId struct {
	AuctionId uint64 `json:"auctionId"`
}

type RespAuction struct {
	Auction *Auction `json:"auction,omitempty"`
	Status  string   `json:"status"` // "active" | "settled" | "canceled"
	Caller  string   `json:"caller,omitempty"`
	Payouts []Payout `json:"payouts,omitempty"`
}

type RespGovernance struct {
	Mods         []string `json:"mods"`
	PlatformFees uint32   `json:"platformFees"`
	Paused       bool     `json:"paused"`
}

type RespErr struct {
	Err string `json:"error"`
}
