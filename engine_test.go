package auctionhouse

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/nftbiennial/auctionhouse/config"
	"github.com/nftbiennial/auctionhouse/schema"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
)

type transferCall struct {
	asset    schema.Asset
	from, to string
}

type mockCustody struct {
	transfers []transferCall
	reject    bool
}

func (m *mockCustody) Transfer(ctx context.Context, asset schema.Asset, from, to string) error {
	if m.reject {
		return schema.ErrCustodyRejected
	}
	m.transfers = append(m.transfers, transferCall{asset: asset, from: from, to: to})
	return nil
}

type payment struct {
	account string
	amount  uint64
}

type mockLedger struct {
	collected []payment
	paid      []payment
	failPay   bool
	payLimit  int // when > 0, Pay fails once this many payments went out
}

func (m *mockLedger) Collect(ctx context.Context, account string, amount uint64) error {
	m.collected = append(m.collected, payment{account: account, amount: amount})
	return nil
}

func (m *mockLedger) Pay(ctx context.Context, account string, amount uint64) error {
	if m.failPay {
		return schema.ErrPayoutFailed
	}
	if m.payLimit > 0 && len(m.paid) >= m.payLimit {
		return schema.ErrPayoutFailed
	}
	m.paid = append(m.paid, payment{account: account, amount: amount})
	return nil
}

func newTestHouse(t *testing.T) (*AuctionHouse, *mockCustody, *mockLedger) {
	t.Helper()

	store, err := NewBoltStore(t.TempDir())
	assert.NoError(t, err)
	registry, err := NewAuctionRegistry(store)
	assert.NoError(t, err)

	governance := &schema.Governance{
		Mods:         map[string]bool{"admin": true},
		PlatformFees: schema.DefaultPlatformFees,
	}
	assert.NoError(t, store.SaveGovernance(*governance))

	wdb := NewSqliteDb(t.TempDir())
	assert.NoError(t, wdb.Migrate())

	eventsPool, err := ants.NewPool(2)
	assert.NoError(t, err)

	custody := &mockCustody{}
	ledger := &mockLedger{}
	s := &AuctionHouse{
		store:      store,
		registry:   registry,
		governance: governance,
		custody:    custody,
		ledger:     ledger,
		wdb:        wdb,
		cache:      NewCache(),
		scheduler:  gocron.NewScheduler(time.UTC),
		cfg:        config.New("escrow", "fund", "operator", false, false, 0),
		eventsPool: eventsPool,
	}
	t.Cleanup(s.Close)
	return s, custody, ledger
}

func testAuctionReq(creator string) schema.ReqCreateAuction {
	return schema.ReqCreateAuction{
		Creator:        creator,
		Asset:          schema.Asset{CustodyContract: "KT1custody", AssetId: 7},
		StartTime:      0,
		EndTime:        1000,
		PriceIncrement: 1,
		Shares: []schema.Share{
			{Recipient: "admin", Weight: 40000},
			{Recipient: "mark", Weight: 5000},
		},
	}
}

func TestCreateAuction(t *testing.T) {
	s, custody, _ := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	// the unit moves into escrow on creation
	assert.Equal(t, []transferCall{{
		asset: schema.Asset{CustodyContract: "KT1custody", AssetId: 7},
		from:  "alice",
		to:    "escrow",
	}}, custody.transfers)

	a, err := s.registry.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, "alice", a.Creator)
	assert.Equal(t, "alice", a.HighestBidder)
	assert.Equal(t, uint64(0), a.CurrentPrice)

	id, err = s.CreateAuction(ctx, "bob", testAuctionReq("bob"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestCreateAuctionValidation(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	_, err := s.CreateAuction(ctx, "bob", testAuctionReq("alice"))
	assert.ErrorIs(t, err, schema.ErrInvalidCreator)

	req := testAuctionReq("alice")
	req.StartTime, req.EndTime = 10, 10
	_, err = s.CreateAuction(ctx, "alice", req)
	assert.ErrorIs(t, err, schema.ErrInvalidTimeRange)

	req = testAuctionReq("alice")
	req.PriceIncrement = 0
	_, err = s.CreateAuction(ctx, "alice", req)
	assert.ErrorIs(t, err, schema.ErrInvalidIncrement)

	// platform fee 20000 + 980000 hits the ppm cap
	req = testAuctionReq("alice")
	req.Shares = []schema.Share{{Recipient: "x", Weight: 980000}}
	_, err = s.CreateAuction(ctx, "alice", req)
	assert.ErrorIs(t, err, schema.ErrInvalidShares)
}

func TestCreateAuctionCustodyRejected(t *testing.T) {
	s, custody, _ := newTestHouse(t)
	custody.reject = true

	_, err := s.CreateAuction(context.Background(), "alice", testAuctionReq("alice"))
	assert.ErrorIs(t, err, schema.ErrCustodyRejected)
	assert.Equal(t, 0, s.registry.Len())

	// the failed create consumed no id
	custody.reject = false
	id, err := s.CreateAuction(context.Background(), "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), id)
}

func TestFirstBid(t *testing.T) {
	s, _, ledger := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.PriceIncrement = 5
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)

	err = s.Bid(ctx, id, "elon", 4, 100)
	assert.ErrorIs(t, err, schema.ErrInsufficientAmount)

	err = s.Bid(ctx, id, "elon", 5, 100)
	assert.NoError(t, err)

	// the creator is the sentinel bidder, so the first bid refunds nobody
	assert.Equal(t, []payment{{account: "elon", amount: 5}}, ledger.collected)
	assert.Empty(t, ledger.paid)

	a, err := s.registry.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, "elon", a.HighestBidder)
	assert.Equal(t, uint64(5), a.CurrentPrice)
}

func TestBidTimeWindow(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.StartTime, req.EndTime = 100, 200
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Bid(ctx, id, "elon", 10, 99), schema.ErrAuctionNotStarted)
	assert.ErrorIs(t, s.Bid(ctx, id, "elon", 10, 201), schema.ErrAuctionEnded)
	// both boundaries are inclusive
	assert.NoError(t, s.Bid(ctx, id, "elon", 10, 100))
	assert.NoError(t, s.Bid(ctx, id, "bob", 20, 200))

	assert.ErrorIs(t, s.Bid(ctx, 99, "elon", 10, 100), schema.ErrUnknownAuction)
}

func TestBidRefundsPreviousBidder(t *testing.T) {
	s, _, ledger := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)

	bids := []payment{
		{account: "elon", amount: 1},
		{account: "bob", amount: 2},
		{account: "mark", amount: 3},
		{account: "admin", amount: 5},
	}
	for _, b := range bids {
		assert.NoError(t, s.Bid(ctx, id, b.account, b.amount, 10))
	}

	// every outbid bidder got back exactly what they escrowed
	assert.Equal(t, bids, ledger.collected)
	assert.Equal(t, bids[:3], ledger.paid)

	a, err := s.registry.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, "admin", a.HighestBidder)
	assert.Equal(t, uint64(5), a.CurrentPrice)
}

func TestBidMonotonicPrice(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.PriceIncrement = 3
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)

	prev := uint64(0)
	for _, amount := range []uint64{3, 6, 10, 13} {
		assert.NoError(t, s.Bid(ctx, id, "bidder", amount, 10))
		a, err := s.registry.Get(id)
		assert.NoError(t, err)
		assert.Greater(t, a.CurrentPrice, prev)
		prev = a.CurrentPrice
	}

	assert.ErrorIs(t, s.Bid(ctx, id, "bidder", 15, 10), schema.ErrInsufficientAmount)
	assert.ErrorIs(t, s.Bid(ctx, id, "bidder", 13, 10), schema.ErrInsufficientAmount)
}

// A reserve price near the top of the range must not wrap the minimum bid
// threshold down to a tiny value.
func TestBidThresholdNoOverflow(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.ReservePrice = math.MaxUint64 - 1
	req.PriceIncrement = 10
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.Bid(ctx, id, "elon", 10, 10), schema.ErrInsufficientAmount)
	assert.NoError(t, s.Bid(ctx, id, "elon", math.MaxUint64, 10))
}

func TestBidRefundFailureLeavesNoTrace(t *testing.T) {
	s, _, ledger := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "elon", 10, 10))

	ledger.failPay = true
	err = s.Bid(ctx, id, "bob", 20, 10)
	assert.ErrorIs(t, err, schema.ErrPayoutFailed)

	a, err := s.registry.Get(id)
	assert.NoError(t, err)
	assert.Equal(t, "elon", a.HighestBidder)
	assert.Equal(t, uint64(10), a.CurrentPrice)
}

func TestCancelAuction(t *testing.T) {
	s, custody, ledger := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "elon", 10, 10))

	assert.ErrorIs(t, s.CancelAuction(ctx, id, "bob"), schema.ErrInvalidCreator)

	// cancellation is allowed with a live bid; the bidder is made whole
	assert.NoError(t, s.CancelAuction(ctx, id, "alice"))
	assert.Equal(t, payment{account: "elon", amount: 10}, ledger.paid[len(ledger.paid)-1])
	assert.Equal(t, transferCall{
		asset: schema.Asset{CustodyContract: "KT1custody", AssetId: 7},
		from:  "escrow",
		to:    "alice",
	}, custody.transfers[len(custody.transfers)-1])

	assert.ErrorIs(t, s.CancelAuction(ctx, id, "alice"), schema.ErrUnknownAuction)
	assert.ErrorIs(t, s.SettleAuction(ctx, id, "alice"), schema.ErrUnknownAuction)
	assert.ErrorIs(t, s.Bid(ctx, id, "bob", 20, 10), schema.ErrUnknownAuction)

	resp, err := s.GetAuction(id)
	assert.NoError(t, err)
	assert.Equal(t, schema.OutcomeCanceled, resp.Status)
}

// A cancel that fails on the custody leg must not refund; retrying it must
// refund exactly once.
func TestCancelCustodyRejectedNoRefund(t *testing.T) {
	s, custody, ledger := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "elon", 10, 10))

	custody.reject = true
	assert.ErrorIs(t, s.CancelAuction(ctx, id, "alice"), schema.ErrCustodyRejected)
	assert.Empty(t, ledger.paid)
	_, err = s.registry.Get(id)
	assert.NoError(t, err)

	custody.reject = false
	assert.NoError(t, s.CancelAuction(ctx, id, "alice"))
	assert.Equal(t, []payment{{account: "elon", amount: 10}}, ledger.paid)
}

// A failed refund puts the unit back into escrow so the retry replays both
// legs from the start.
func TestCancelRefundFailureReturnsUnit(t *testing.T) {
	s, custody, ledger := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "elon", 10, 10))

	ledger.failPay = true
	assert.ErrorIs(t, s.CancelAuction(ctx, id, "alice"), schema.ErrPayoutFailed)

	n := len(custody.transfers)
	assert.Equal(t, transferCall{
		asset: schema.Asset{CustodyContract: "KT1custody", AssetId: 7},
		from:  "escrow",
		to:    "alice",
	}, custody.transfers[n-2])
	assert.Equal(t, transferCall{
		asset: schema.Asset{CustodyContract: "KT1custody", AssetId: 7},
		from:  "alice",
		to:    "escrow",
	}, custody.transfers[n-1])
	_, err = s.registry.Get(id)
	assert.NoError(t, err)

	ledger.failPay = false
	assert.NoError(t, s.CancelAuction(ctx, id, "alice"))
	assert.Equal(t, []payment{{account: "elon", amount: 10}}, ledger.paid)
}

func TestCancelNoBidNoRefund(t *testing.T) {
	s, _, ledger := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.ReservePrice = 500
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)

	// a reserve price is not escrowed money; nothing to refund
	assert.NoError(t, s.CancelAuction(ctx, id, "alice"))
	assert.Empty(t, ledger.paid)
}

func TestSettleAuction(t *testing.T) {
	s, custody, ledger := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.Shares = []schema.Share{
		{Recipient: "A", Weight: 40000},
		{Recipient: "B", Weight: 5000},
		{Recipient: "B", Weight: 5000},
	}
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "winner", 1000000, 10))

	ledger.paid = nil
	assert.NoError(t, s.SettleAuction(ctx, id, "alice"))

	assert.Equal(t, transferCall{
		asset: schema.Asset{CustodyContract: "KT1custody", AssetId: 7},
		from:  "escrow",
		to:    "winner",
	}, custody.transfers[len(custody.transfers)-1])

	assert.Equal(t, []payment{
		{account: "fund", amount: 20000},
		{account: "A", amount: 39200},
		{account: "B", amount: 4704},
		{account: "B", amount: 4680},
		{account: "alice", amount: 931416},
	}, ledger.paid)

	var sum uint64
	for _, p := range ledger.paid {
		sum += p.amount
	}
	assert.Equal(t, uint64(1000000), sum)

	assert.ErrorIs(t, s.SettleAuction(ctx, id, "alice"), schema.ErrUnknownAuction)
	assert.ErrorIs(t, s.CancelAuction(ctx, id, "alice"), schema.ErrUnknownAuction)

	resp, err := s.GetAuction(id)
	assert.NoError(t, err)
	assert.Equal(t, schema.OutcomeSettled, resp.Status)
	assert.Equal(t, "winner", resp.Auction.HighestBidder)
}

// A settle that dies mid-payout resumes from the persisted cursor: the unit
// is not re-released and no payout is issued twice, even when the retry
// comes from a different caller.
func TestSettleResumesAfterPayoutFailure(t *testing.T) {
	s, custody, ledger := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.Shares = []schema.Share{
		{Recipient: "A", Weight: 40000},
		{Recipient: "B", Weight: 5000},
		{Recipient: "B", Weight: 5000},
	}
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "winner", 1000000, 10))

	ledger.paid = nil
	ledger.payLimit = 2
	assert.ErrorIs(t, s.SettleAuction(ctx, id, "alice"), schema.ErrPayoutFailed)

	assert.Equal(t, []payment{
		{account: "fund", amount: 20000},
		{account: "A", amount: 39200},
	}, ledger.paid)
	transfersBefore := len(custody.transfers)
	_, err = s.registry.Get(id)
	assert.NoError(t, err)

	// the started settlement owns the money; cancel may not touch it
	assert.ErrorIs(t, s.CancelAuction(ctx, id, "alice"), schema.ErrSettling)

	ledger.payLimit = 0
	assert.NoError(t, s.SettleAuction(ctx, id, "other"))

	// the unit moved exactly once and the retry finished the original plan,
	// residual included
	assert.Equal(t, transfersBefore, len(custody.transfers))
	assert.Equal(t, []payment{
		{account: "fund", amount: 20000},
		{account: "A", amount: 39200},
		{account: "B", amount: 4704},
		{account: "B", amount: 4680},
		{account: "alice", amount: 931416},
	}, ledger.paid)

	assert.ErrorIs(t, s.SettleAuction(ctx, id, "alice"), schema.ErrUnknownAuction)
	resp, err := s.GetAuction(id)
	assert.NoError(t, err)
	assert.Equal(t, schema.OutcomeSettled, resp.Status)
	assert.Equal(t, "alice", resp.Caller)
}

// Whoever calls settle pockets the split residual, even when they are not
// the creator. Deliberate behavior, easy to break by "fixing" it.
func TestSettleCallerCapturesRemainder(t *testing.T) {
	s, _, ledger := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "winner", 1000000, 10))

	ledger.paid = nil
	assert.NoError(t, s.SettleAuction(ctx, id, "mallory"))

	last := ledger.paid[len(ledger.paid)-1]
	assert.Equal(t, "mallory", last.account)
	for _, p := range ledger.paid {
		assert.NotEqual(t, "alice", p.account)
	}
}

// There is no end-time gate on settlement; settling early just closes the
// auction at the current price.
func TestSettleBeforeEndTime(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.EndTime = time.Now().Unix() + 3600
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "winner", 100, time.Now().Unix()))

	assert.NoError(t, s.SettleAuction(ctx, id, "alice"))
}

func TestSettleWithoutBids(t *testing.T) {
	s, custody, ledger := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)

	assert.NoError(t, s.SettleAuction(ctx, id, "bob"))

	// the sentinel highest bidder is the creator: the unit goes home
	assert.Equal(t, "alice", custody.transfers[len(custody.transfers)-1].to)
	assert.Empty(t, ledger.paid)
}

func TestAuctionIdsNeverReused(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	id0, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	id1, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.Equal(t, id0+1, id1)

	assert.NoError(t, s.SettleAuction(ctx, id0, "alice"))

	id2, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.Equal(t, id1+1, id2)
}

func TestPauseRejectsLifecycleOps(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)

	assert.NoError(t, s.TogglePause("admin"))

	_, err = s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.ErrorIs(t, err, schema.ErrPaused)
	assert.ErrorIs(t, s.Bid(ctx, id, "elon", 10, 10), schema.ErrPaused)
	assert.ErrorIs(t, s.CancelAuction(ctx, id, "alice"), schema.ErrPaused)
	assert.ErrorIs(t, s.SettleAuction(ctx, id, "alice"), schema.ErrPaused)

	assert.NoError(t, s.TogglePause("admin"))
	assert.NoError(t, s.Bid(ctx, id, "elon", 10, 10))
}

func TestFeeSnapshotAtCreation(t *testing.T) {
	s, _, ledger := newTestHouse(t)
	s.cfg.SnapshotFeeAtCreation = true
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.Shares = nil
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "winner", 1000000, 10))

	// the fee hike after creation must not reprice the in-flight auction
	assert.NoError(t, s.UpdatePlatformFees("admin", 100000))

	ledger.paid = nil
	assert.NoError(t, s.SettleAuction(ctx, id, "alice"))
	assert.Equal(t, payment{account: "fund", amount: 20000}, ledger.paid[0])
}

func TestFeeReadAtSettlementByDefault(t *testing.T) {
	s, _, ledger := newTestHouse(t)
	ctx := context.Background()

	req := testAuctionReq("alice")
	req.Shares = nil
	id, err := s.CreateAuction(ctx, "alice", req)
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "winner", 1000000, 10))

	assert.NoError(t, s.UpdatePlatformFees("admin", 100000))

	ledger.paid = nil
	assert.NoError(t, s.SettleAuction(ctx, id, "alice"))
	assert.Equal(t, payment{account: "fund", amount: 100000}, ledger.paid[0])
}

func TestBidHistoryRecorded(t *testing.T) {
	s, _, _ := newTestHouse(t)
	ctx := context.Background()

	id, err := s.CreateAuction(ctx, "alice", testAuctionReq("alice"))
	assert.NoError(t, err)
	assert.NoError(t, s.Bid(ctx, id, "elon", 10, 10))
	assert.NoError(t, s.Bid(ctx, id, "bob", 20, 10))

	records, err := s.wdb.GetBidRecords(id)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "elon", records[0].Bidder)
	assert.Equal(t, "", records[0].RefundedBidder)
	assert.Equal(t, "bob", records[1].Bidder)
	assert.Equal(t, "elon", records[1].RefundedBidder)
	assert.Equal(t, uint64(10), records[1].RefundedAmount)
}
