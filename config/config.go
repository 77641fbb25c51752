package config

// Config carries the deploy-time parameters of the house. Governance state
// (moderators, fee weight, pause flag) is not here: it lives in the KV store
// and changes only through the governance entrypoints.
type Config struct {
	// EscrowAccount holds the auctioned units and bid funds between
	// creation and settlement or cancellation.
	EscrowAccount string
	// FeeRecipient receives the platform fee cut at settlement.
	FeeRecipient string
	// Operator is the caller used by the auto-settle job; it captures the
	// settlement residual of auctions it closes.
	Operator string

	// SnapshotFeeAtCreation freezes the platform fee weight into each
	// auction when it is created. Off by default: settlement then reads the
	// weight current at settlement time, so a fee update changes the
	// economics of in-flight auctions.
	SnapshotFeeAtCreation bool

	// AutoSettle enables the periodic job that settles auctions past their
	// end time on behalf of the operator.
	AutoSettle bool

	// RateLimit requests per minute per origin+ip; 0 disables limiting.
	RateLimit int
}

func New(escrowAccount, feeRecipient, operator string, snapshotFee, autoSettle bool, rateLimit int) *Config {
	return &Config{
		EscrowAccount:         escrowAccount,
		FeeRecipient:          feeRecipient,
		Operator:              operator,
		SnapshotFeeAtCreation: snapshotFee,
		AutoSettle:            autoSettle,
		RateLimit:             rateLimit,
	}
}
