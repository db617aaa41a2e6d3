package fusion

import (
	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/safemath"
)

// Read-only views. Each runs against the live state under the engine lock
// and copies out what it returns, mirroring the readonly action set.

// PendingRewards reports what a staker could claim right now, including
// the part of the running farm period that has not been settled yet.
func (e *Engine) PendingRewards(user model.AccountName, now uint64) (model.Asset, error) {
	out := model.NewWax(0)
	var err error
	e.view(func(s *State) {
		st, ok := s.Stakers[user]
		if !ok {
			err = ErrStakerNotFound
			return
		}
		rpt := rewardPerToken(&s.Rewards, now)
		out.Amount = safemath.Add(st.ClaimableWax.Amount, earned(st, &rpt))
	})
	return out, err
}

// ExchangeRate reports how much WAX one LSWAX is redeemable for. 1.0 until
// the first compound.
func (e *Engine) ExchangeRate() float64 {
	rate := 1.0
	e.view(func(s *State) {
		if s.Global.LiquifiedSwax.Amount > 0 {
			rate = float64(s.Global.SwaxBackingLswax.Amount) / float64(s.Global.LiquifiedSwax.Amount)
		}
	})
	return rate
}

func (e *Engine) GlobalLedger() GlobalLedger {
	var out GlobalLedger
	e.view(func(s *State) { out = s.Global })
	return out
}

func (e *Engine) RewardFarm() RewardFarm {
	var out RewardFarm
	e.view(func(s *State) { out = s.Rewards })
	return out
}

func (e *Engine) StakerInfo(user model.AccountName) (Staker, bool) {
	var out Staker
	found := false
	e.view(func(s *State) {
		if st, ok := s.Stakers[user]; ok {
			out = *st
			found = true
		}
	})
	return out, found
}

// RedemptionRequests returns the caller's queued requests keyed by epoch
// start time.
func (e *Engine) RedemptionRequests(user model.AccountName) map[uint64]model.Asset {
	out := map[uint64]model.Asset{}
	e.view(func(s *State) {
		for epStart, amount := range s.Redemptions[user] {
			out[epStart] = model.NewSwax(amount)
		}
	})
	return out
}

func (e *Engine) EpochInfo(start uint64) (Epoch, bool) {
	var out Epoch
	found := false
	e.view(func(s *State) {
		if ep, ok := s.Epochs[start]; ok {
			out = *ep
			out.Rentals = make(map[string]*Rental, len(ep.Rentals))
			for k, v := range ep.Rentals {
				cp := *v
				out.Rentals[k] = &cp
			}
			found = true
		}
	})
	return out, found
}

// UnstakeDue reports the epoch whose CPU stake can be undelegated right
// now, if any.
func (e *Engine) UnstakeDue(now uint64) (uint64, bool) {
	due := uint64(0)
	found := false
	e.view(func(s *State) {
		for start, ep := range s.Epochs {
			if now >= ep.TimeToUnstake && start > due &&
				ep.TotalCPUFundsReturned.Amount < ep.WaxBucket.Amount {
				due = start
				found = true
			}
		}
	})
	return due, found
}
