package schema

import (
	"errors"
)

var (
	ErrUnknownAuction     = errors.New("unknown_auction")
	ErrInvalidCreator     = errors.New("invalid_creator")
	ErrInvalidShares      = errors.New("invalid_shares")
	ErrInsufficientAmount = errors.New("insufficient_amount")
	ErrAuctionNotStarted  = errors.New("auction_not_started")
	ErrAuctionEnded       = errors.New("auction_ended")
	ErrNotModerator       = errors.New("not_moderator")
	ErrPaused             = errors.New("contract_paused")
	ErrCustodyRejected    = errors.New("custody_transfer_rejected")
	ErrPayoutFailed       = errors.New("payout_failed")
	ErrSettling           = errors.New("settlement_in_progress")

	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidIncrement = errors.New("invalid_price_increment")

	ErrNotExist = errors.New("not_exist_record")
)
