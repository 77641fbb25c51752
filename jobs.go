package auctionhouse

import (
	"context"
	"time"

	"github.com/nftbiennial/auctionhouse/schema"
)

func (s *AuctionHouse) runJobs() {
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.updateRegistryMetrics)
	if s.cfg.AutoSettle {
		s.scheduler.Every(1).Minute().SingletonMode().Do(s.settleEndedAuctions)
	}

	s.scheduler.StartAsync()
}

func (s *AuctionHouse) updateRegistryMetrics() {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()
	activeAuctions.Set(float64(s.registry.Len()))
}

// settleEndedAuctions closes auctions past their end time with the operator
// as the settling caller, so the operator collects the split residual.
func (s *AuctionHouse) settleEndedAuctions() {
	now := time.Now().Unix()

	s.opLocker.Lock()
	if s.governance.Paused {
		s.opLocker.Unlock()
		return
	}
	endedIds := make([]uint64, 0)
	for _, a := range s.registry.List() {
		if now >= a.EndTime {
			endedIds = append(endedIds, a.Id)
		}
	}
	s.opLocker.Unlock()

	for _, id := range endedIds {
		if err := s.SettleAuction(context.Background(), id, s.cfg.Operator); err != nil {
			// a racing cancel or settle removed it, or a pause landed mid-sweep
			if err == schema.ErrUnknownAuction || err == schema.ErrPaused {
				continue
			}
			log.Error("auto settle", "auction", id, "err", err)
		}
	}
}
