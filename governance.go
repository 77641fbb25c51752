package auctionhouse

import (
	"sort"

	"github.com/nftbiennial/auctionhouse/schema"
)

// governance entrypoints: every setter is moderator-gated and persists the
// whole governance state before reporting success. Fee changes never touch
// auctions already in the registry unless fee snapshotting is off, in which
// case settlement reads the weight current at settlement time.

func (s *AuctionHouse) AddModerator(caller, moderator string) error {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if !s.governance.IsMod(caller) {
		return schema.ErrNotModerator
	}
	if s.governance.Mods[moderator] {
		return nil
	}
	s.governance.Mods[moderator] = true
	if err := s.store.SaveGovernance(*s.governance); err != nil {
		delete(s.governance.Mods, moderator)
		return err
	}
	s.emitEvent(GovernanceTopic, schema.EventModeratorAdded, schema.EventModerator{Moderator: moderator})
	return nil
}

func (s *AuctionHouse) RemoveModerator(caller, moderator string) error {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if !s.governance.IsMod(caller) {
		return schema.ErrNotModerator
	}
	if !s.governance.IsMod(moderator) {
		return schema.ErrNotModerator
	}
	delete(s.governance.Mods, moderator)
	if err := s.store.SaveGovernance(*s.governance); err != nil {
		s.governance.Mods[moderator] = true
		return err
	}
	s.emitEvent(GovernanceTopic, schema.EventModeratorRemoved, schema.EventModerator{Moderator: moderator})
	return nil
}

func (s *AuctionHouse) UpdatePlatformFees(caller string, platformFees uint32) error {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if !s.governance.IsMod(caller) {
		return schema.ErrNotModerator
	}
	if platformFees >= schema.WeightDenominator {
		return schema.ErrInvalidShares
	}
	prev := s.governance.PlatformFees
	s.governance.PlatformFees = platformFees
	if err := s.store.SaveGovernance(*s.governance); err != nil {
		s.governance.PlatformFees = prev
		return err
	}
	s.emitEvent(GovernanceTopic, schema.EventUpdatePlatformFees, schema.EventPlatformFees{PlatformFees: platformFees})
	return nil
}

func (s *AuctionHouse) TogglePause(caller string) error {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	if !s.governance.IsMod(caller) {
		return schema.ErrNotModerator
	}
	s.governance.Paused = !s.governance.Paused
	if err := s.store.SaveGovernance(*s.governance); err != nil {
		s.governance.Paused = !s.governance.Paused
		return err
	}
	log.Info("pause toggled", "paused", s.governance.Paused, "caller", caller)
	return nil
}

// Governance returns a read-only snapshot for the API.
func (s *AuctionHouse) Governance() schema.RespGovernance {
	s.opLocker.Lock()
	defer s.opLocker.Unlock()

	mods := make([]string, 0, len(s.governance.Mods))
	for m := range s.governance.Mods {
		mods = append(mods, m)
	}
	sort.Strings(mods)
	return schema.RespGovernance{
		Mods:         mods,
		PlatformFees: s.governance.PlatformFees,
		Paused:       s.governance.Paused,
	}
}
