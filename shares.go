package auctionhouse

import (
	"math/big"

	"github.com/nftbiennial/auctionhouse/schema"
)

// CheckShares verifies the platform fee weight plus all share weights stay
// strictly below the ppm denominator. Pure, no side effects.
func CheckShares(platformFees uint32, shares []schema.Share) error {
	total := uint64(platformFees)
	for _, sh := range shares {
		total += uint64(sh.Weight)
	}
	if total >= schema.WeightDenominator {
		return schema.ErrInvalidShares
	}
	return nil
}

// splitTokens is floor(amount * weight / 1e6), computed exactly.
func splitTokens(amount uint64, weight uint32) uint64 {
	x := new(big.Int).SetUint64(amount)
	x.Mul(x, big.NewInt(int64(weight)))
	x.Div(x, big.NewInt(schema.WeightDenominator))
	return x.Uint64()
}

// SplitSettlement computes the payout sequence for a winning amount: the
// platform fee first, then each share in table order, each cut taken from the
// remaining pool rather than the original amount, and whatever is left goes
// to the collector. Payouts always sum to exactly total. Because the pool
// shrinks as it is consumed, share order changes per-recipient amounts; the
// order supplied at auction creation is preserved verbatim.
//
// The collector is the account that triggered settlement, not necessarily
// the auction creator.
func SplitSettlement(total uint64, platformFees uint32, feeRecipient string, shares []schema.Share, collector string) []schema.Payout {
	payouts := make([]schema.Payout, 0, len(shares)+2)
	remaining := total

	fee := splitTokens(remaining, platformFees)
	if fee > 0 {
		payouts = append(payouts, schema.Payout{Recipient: feeRecipient, Amount: fee})
	}
	remaining -= fee

	for _, sh := range shares {
		cut := splitTokens(remaining, sh.Weight)
		if cut > 0 {
			payouts = append(payouts, schema.Payout{Recipient: sh.Recipient, Amount: cut})
		}
		remaining -= cut
	}

	if remaining > 0 {
		payouts = append(payouts, schema.Payout{Recipient: collector, Amount: remaining})
	}
	return payouts
}
