package auctionhouse

import (
	"context"
	"encoding/json"
	"math"

	"github.com/nftbiennial/auctionhouse/schema"
	"gorm.io/datatypes"
)

// The four lifecycle operations below run one at a time under opLocker, so
// each observes and commits registry state as a single indivisible step.
// Ordering inside an operation: validate, then external transfers, then the
// registry mutation. A rejected collaborator call aborts before anything is
// persisted.

// CreateAuction escrows the unit with the custody contract and registers the
// auction. The caller must be the creator; the reserve price becomes the
// initial current price and the creator is recorded as the sentinel highest
// bidder.
func (s *AuctionHouse) CreateAuction(ctx context.Context, caller string, req schema.ReqCreateAuction) (uint64, error) {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if s.governance.Paused {
		return 0, schema.ErrPaused
	}
	if req.Creator != caller {
		return 0, schema.ErrInvalidCreator
	}
	if req.StartTime >= req.EndTime {
		return 0, schema.ErrInvalidTimeRange
	}
	if req.PriceIncrement == 0 {
		return 0, schema.ErrInvalidIncrement
	}
	if len(req.Shares) > schema.MaxSharesPerAuction {
		return 0, schema.ErrInvalidShares
	}
	if err := CheckShares(s.governance.PlatformFees, req.Shares); err != nil {
		return 0, err
	}

	a := &schema.Auction{
		Creator:        req.Creator,
		Asset:          req.Asset,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		PriceIncrement: req.PriceIncrement,
		CurrentPrice:   req.ReservePrice,
		HighestBidder:  req.Creator,
		Shares:         req.Shares,
	}
	if s.cfg.SnapshotFeeAtCreation {
		fw := s.governance.PlatformFees
		a.FeeWeight = &fw
	}

	if err := s.custody.Transfer(ctx, req.Asset, req.Creator, s.cfg.EscrowAccount); err != nil {
		return 0, err
	}
	if err := s.registry.Insert(a); err != nil {
		return 0, err
	}

	auctionsCreated.Inc()
	s.emitEvent(AuctionTopic, schema.EventAuctionCreated, schema.EventAuction{
		AuctionId:       a.Id,
		CustodyContract: a.Asset.CustodyContract,
		AssetId:         a.Asset.AssetId,
	})
	log.Info("auction created", "id", a.Id, "creator", a.Creator, "assetId", a.Asset.AssetId)
	return a.Id, nil
}

// Bid validates amount and time window, escrows the new bid, refunds the
// previous highest bidder and records the new high bid. The first bid never
// triggers a refund because the creator is the sentinel highest bidder.
func (s *AuctionHouse) Bid(ctx context.Context, id uint64, bidder string, amount uint64, now int64) error {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if s.governance.Paused {
		return schema.ErrPaused
	}
	a, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if now < a.StartTime {
		return schema.ErrAuctionNotStarted
	}
	if now > a.EndTime {
		return schema.ErrAuctionEnded
	}
	// saturating add: a pathological reserve price plus increment must not
	// wrap and let a tiny bid through
	minBid := a.CurrentPrice + a.PriceIncrement
	if minBid < a.CurrentPrice {
		minBid = math.MaxUint64
	}
	if amount < minBid {
		return schema.ErrInsufficientAmount
	}

	if err := s.ledger.Collect(ctx, bidder, amount); err != nil {
		return err
	}
	var refundedBidder string
	var refundedAmount uint64
	if a.HasBid() {
		refundedBidder, refundedAmount = a.HighestBidder, a.CurrentPrice
		if err := s.ledger.Pay(ctx, refundedBidder, refundedAmount); err != nil {
			// hand the freshly collected escrow back; the bid leaves no trace
			if payErr := s.ledger.Pay(ctx, bidder, amount); payErr != nil {
				log.Error("return escrow after failed refund", "auction", id, "bidder", bidder, "amount", amount, "err", payErr)
			}
			return err
		}
	}

	prevPrice, prevBidder := a.CurrentPrice, a.HighestBidder
	a.CurrentPrice = amount
	a.HighestBidder = bidder
	if err := s.registry.Save(a); err != nil {
		a.CurrentPrice, a.HighestBidder = prevPrice, prevBidder
		return err
	}

	if err := s.wdb.InsertBidRecord(schema.BidRecord{
		AuctionId:      id,
		Bidder:         bidder,
		Amount:         amount,
		RefundedBidder: refundedBidder,
		RefundedAmount: refundedAmount,
	}); err != nil {
		log.Error("insert bid record", "auction", id, "err", err)
	}

	bidsPlaced.Inc()
	s.emitEvent(AuctionTopic, schema.EventNewBid, schema.EventBid{
		AuctionId:       id,
		CustodyContract: a.Asset.CustodyContract,
		AssetId:         a.Asset.AssetId,
		Bidder:          bidder,
		Bid:             amount,
	})
	return nil
}

// CancelAuction lets the creator abort at any time, even with live bids: the
// highest bidder is refunded in full and the unit goes back to the creator.
func (s *AuctionHouse) CancelAuction(ctx context.Context, id uint64, caller string) error {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if s.governance.Paused {
		return schema.ErrPaused
	}
	a, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if a.Creator != caller {
		return schema.ErrInvalidCreator
	}
	// once a settlement has started its cursor owns the escrowed money
	if _, err := s.store.LoadSettlement(id); err == nil {
		return schema.ErrSettling
	} else if err != schema.ErrNotExist {
		return err
	}

	// unit first, refund second: each failure path below unwinds whatever
	// already moved, so a retry starts from a clean slate and never refunds
	// the same bid twice
	if err := s.custody.Transfer(ctx, a.Asset, s.cfg.EscrowAccount, a.Creator); err != nil {
		return err
	}
	payouts := make([]schema.Payout, 0, 1)
	// a reserve price with no bid is not escrowed money; only refund a real bid
	if a.HasBid() && a.CurrentPrice > 0 {
		if err := s.ledger.Pay(ctx, a.HighestBidder, a.CurrentPrice); err != nil {
			if trErr := s.custody.Transfer(ctx, a.Asset, a.Creator, s.cfg.EscrowAccount); trErr != nil {
				log.Error("return unit to escrow after failed refund", "auction", id, "err", trErr)
			}
			return err
		}
		payouts = append(payouts, schema.Payout{Recipient: a.HighestBidder, Amount: a.CurrentPrice})
	}
	if err := s.registry.Remove(id); err != nil {
		if a.HasBid() && a.CurrentPrice > 0 {
			if colErr := s.ledger.Collect(ctx, a.HighestBidder, a.CurrentPrice); colErr != nil {
				log.Error("reclaim refund after failed removal", "auction", id, "err", colErr)
			}
		}
		if trErr := s.custody.Transfer(ctx, a.Asset, a.Creator, s.cfg.EscrowAccount); trErr != nil {
			log.Error("return unit to escrow after failed removal", "auction", id, "err", trErr)
		}
		return err
	}

	s.recordOutcome(schema.OutcomeCanceled, *a, caller, payouts)
	s.emitEvent(AuctionTopic, schema.EventAuctionCanceled, schema.EventAuction{AuctionId: id})
	log.Info("auction canceled", "id", id, "creator", a.Creator)
	return nil
}

// SettleAuction transfers the unit to the highest bidder and splits the
// winning amount: platform fee first, then each share in table order against
// the shrinking pool, with the residual paid to the caller. There is no
// check against end time; settling early simply closes the auction at the
// current price. An auction with no bids settles back to its creator with
// no payouts.
//
// The payout plan is persisted before the first transfer and a cursor
// advances behind each one, so a settle that fails mid-way resumes where it
// stopped instead of re-releasing the unit or duplicating payouts. The plan
// is fixed by the first caller; a retry by anyone completes that plan.
func (s *AuctionHouse) SettleAuction(ctx context.Context, id uint64, caller string) error {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if s.governance.Paused {
		return schema.ErrPaused
	}
	a, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	prog, err := s.store.LoadSettlement(id)
	if err != nil {
		if err != schema.ErrNotExist {
			return err
		}
		feeWeight := s.governance.PlatformFees
		if a.FeeWeight != nil {
			feeWeight = *a.FeeWeight
		}
		var payouts []schema.Payout
		if a.HasBid() {
			payouts = SplitSettlement(a.CurrentPrice, feeWeight, s.cfg.FeeRecipient, a.Shares, caller)
		}
		prog = &schema.SettlementProgress{AuctionId: id, Caller: caller, Payouts: payouts}
		if err := s.store.SaveSettlement(*prog); err != nil {
			return err
		}
	}

	if !prog.AssetReleased {
		if err := s.custody.Transfer(ctx, a.Asset, s.cfg.EscrowAccount, a.HighestBidder); err != nil {
			return err
		}
		prog.AssetReleased = true
		if err := s.store.SaveSettlement(*prog); err != nil {
			log.Error("save settlement progress", "auction", id, "err", err)
		}
	}
	for prog.Paid < len(prog.Payouts) {
		p := prog.Payouts[prog.Paid]
		if err := s.ledger.Pay(ctx, p.Recipient, p.Amount); err != nil {
			log.Error("settlement payout", "auction", id, "recipient", p.Recipient, "amount", p.Amount, "err", err)
			return err
		}
		prog.Paid++
		if err := s.store.SaveSettlement(*prog); err != nil {
			log.Error("save settlement progress", "auction", id, "err", err)
		}
	}
	if err := s.registry.Remove(id); err != nil {
		return err
	}
	if err := s.store.DeleteSettlement(id); err != nil {
		log.Error("delete settlement progress", "auction", id, "err", err)
	}

	s.recordOutcome(schema.OutcomeSettled, *a, prog.Caller, prog.Payouts)
	s.emitEvent(AuctionTopic, schema.EventAuctionSettled, schema.EventAuction{AuctionId: id})
	log.Info("auction settled", "id", id, "winner", a.HighestBidder, "price", a.CurrentPrice)
	return nil
}

// recordOutcome writes the terminal audit record and caches the outcome for
// reads after registry removal. Both are best-effort side channels.
func (s *AuctionHouse) recordOutcome(status string, a schema.Auction, caller string, payouts []schema.Payout) {
	payoutsJson, err := json.Marshal(payouts)
	if err != nil {
		payoutsJson = []byte("[]")
	}
	if err := s.wdb.InsertSettlementRecord(schema.SettlementRecord{
		AuctionId: a.Id,
		Status:    status,
		Caller:    caller,
		Winner:    a.HighestBidder,
		Amount:    a.CurrentPrice,
		Payouts:   datatypes.JSON(payoutsJson),
	}); err != nil {
		log.Error("insert settlement record", "auction", a.Id, "err", err)
	}
	s.cache.SetOutcome(a.Id, schema.AuctionOutcome{
		Status:  status,
		Auction: a,
		Caller:  caller,
		Payouts: payouts,
	})
	metricAuctionClosed(status, payouts)
	activeAuctions.Set(float64(s.registry.Len()))
}

// GetAuction serves live registry state, falling back to the terminal
// outcome cache once the record is gone.
func (s *AuctionHouse) GetAuction(id uint64) (*schema.RespAuction, error) {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if a, err := s.registry.Get(id); err == nil {
		cp := *a
		return &schema.RespAuction{Auction: &cp, Status: "active"}, nil
	}
	if out, ok := s.cache.GetOutcome(id); ok {
		return &schema.RespAuction{
			Auction: &out.Auction,
			Status:  out.Status,
			Caller:  out.Caller,
			Payouts: out.Payouts,
		}, nil
	}
	return nil, schema.ErrUnknownAuction
}

func (s *AuctionHouse) ListAuctions() []schema.Auction {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	live := s.registry.List()
	out := make([]schema.Auction, 0, len(live))
	for _, a := range live {
		out = append(out, *a)
	}
	return out
}
