package schema

// Event kinds published to kafka. Delivery is fire-and-forget; events are
// observability only and never load-bearing for auction state.
const (
	EventModeratorAdded     = "MODERATOR_ADDED"
	EventModeratorRemoved   = "MODERATOR_REMOVED"
	EventUpdatePlatformFees = "UPDATE_PLATFORM_FEES"
	EventAuctionCreated     = "AUCTION_CREATED"
	EventAuctionCanceled    = "AUCTION_CANCELED"
	EventNewBid             = "NEW_BID"
	EventAuctionSettled     = "AUCTION_SETTLED"
)

type Event struct {
	Id        string      `json:"id"` // uuid
	Kind      string      `json:"kind"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type EventAuction struct {
	AuctionId       uint64 `json:"auctionId"`
	CustodyContract string `json:"custodyContract,omitempty"`
	AssetId         uint64 `json:"assetId,omitempty"`
}

type EventBid struct {
	AuctionId       uint64 `json:"auctionId"`
	CustodyContract string `json:"custodyContract"`
	AssetId         uint64 `json:"assetId"`
	Bidder          string `json:"bidder"`
	Bid             uint64 `json:"bid"`
}

type EventModerator struct {
	Moderator string `json:"moderator"`
}

type EventPlatformFees struct {
	PlatformFees uint32 `json:"platformFees"`
}
