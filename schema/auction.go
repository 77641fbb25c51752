package schema

const (
	// WeightDenominator is the fixed denominator for all share and fee
	// weights. A weight is a parts-per-million numerator over it.
	WeightDenominator = 1000000

	DefaultPlatformFees = uint32(20000) // 2%
)

// Asset references the externally custodied unit under auction. The custody
// contract, not this service, is the source of truth for who holds it.
type Asset struct {
	CustodyContract string `json:"custodyContract"`
	AssetId         uint64 `json:"assetId"`
}

// Share is one revenue-share recipient. Weight is a ppm numerator over
// WeightDenominator. Immutable once embedded in an Auction.
type Share struct {
	Recipient string `json:"recipient"`
	Weight    uint32 `json:"weight"`
}

// Auction is the per-auction state record owned by the registry.
//
// HighestBidder is initialized to Creator; while they are equal no real bid
// has been placed and no refund is owed on the next bid.
type Auction struct {
	Id             uint64  `json:"id"`
	Creator        string  `json:"creator"`
	Asset          Asset   `json:"asset"`
	StartTime      int64   `json:"startTime"` // unix seconds
	EndTime        int64   `json:"endTime"`
	PriceIncrement uint64  `json:"priceIncrement"`
	CurrentPrice   uint64  `json:"currentPrice"`
	HighestBidder  string  `json:"highestBidder"`
	Shares         []Share `json:"shares"`

	// FeeWeight is set only when the house runs with fee snapshotting
	// enabled; nil means settlement reads the governance fee weight current
	// at settlement time.
	FeeWeight *uint32 `json:"feeWeight,omitempty"`
}

// HasBid reports whether a real bid has been accepted. The creator is the
// sentinel highest bidder before the first bid.
func (a *Auction) HasBid() bool {
	return a.HighestBidder != a.Creator
}

// Governance is the global contract state: moderator set, platform fee
// weight and pause flag. It is initialized once at deployment and mutated
// only through the governance entrypoints.
type Governance struct {
	Mods         map[string]bool `json:"mods"`
	PlatformFees uint32          `json:"platformFees"`
	Paused       bool            `json:"paused"`
}

func (g *Governance) IsMod(acc string) bool {
	return g.Mods[acc]
}

// Payout is a single native-currency transfer issued during settlement or
// cancellation.
type Payout struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

const (
	// terminal auction outcomes
	OutcomeSettled  = "settled"
	OutcomeCanceled = "canceled"
)

// SettlementProgress is the durable cursor of an in-flight settlement. The
// payout plan is fixed and persisted before any money moves and the cursor
// advances after each completed transfer, so a failed settle can be retried
// without re-releasing the unit or re-issuing payouts that already went out.
type SettlementProgress struct {
	AuctionId     uint64   `json:"auctionId"`
	Caller        string   `json:"caller"`
	Payouts       []Payout `json:"payouts"`
	AssetReleased bool     `json:"assetReleased"`
	Paid          int      `json:"paid"`
}

// AuctionOutcome is the terminal record cached after an auction leaves the
// registry, so reads of a settled or canceled id can still be answered.
type AuctionOutcome struct {
	Status  string   `json:"status"` // "settled" | "canceled"
	Auction Auction  `json:"auction"`
	Caller  string   `json:"caller"`
	Payouts []Payout `json:"payouts"`
}
