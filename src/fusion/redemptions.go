package fusion

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/safemath"
)

func (s *State) userRequests(user model.AccountName) map[uint64]int64 {
	reqs, ok := s.Redemptions[user]
	if !ok {
		reqs = map[uint64]int64{}
		s.Redemptions[user] = reqs
	}
	return reqs
}

func (s *State) windowOpen(ep *Epoch, now uint64) bool {
	return ep.RedemptionPeriodStart <= now && now < ep.RedemptionPeriodEnd
}

// burnRedeemedStake applies the shared debits for paying a redemption:
// the SWAX principal is burned and the WAX leaves the redemption bucket.
func (s *State) burnRedeemedStake(fx *effects, st *Staker, ep *Epoch, payout int64) {
	s.Global.WaxForRedemption.Amount = safemath.SubBalance(s.Global.WaxForRedemption.Amount, payout)
	ep.WaxToRefund.Amount = safemath.SubBalance(ep.WaxToRefund.Amount, payout)
	st.SwaxBalance.Amount = safemath.SubBalance(st.SwaxBalance.Amount, payout)
	s.Global.SwaxEarning.Amount = safemath.SubBalance(s.Global.SwaxEarning.Amount, payout)
	s.Rewards.TotalSupply.Amount = safemath.SubBalance(s.Rewards.TotalSupply.Amount, payout)
	fx.retire(model.NewSwax(payout), "redeemed")
	fx.transfer(st.Wallet, model.NewWax(payout), "redeemed wax")
}

// settleOpenWindowRequest pays whatever part of the user's requests sits in
// a currently open window, bounded by how much the redemption bucket holds.
// Returns how much of `remaining` was satisfied.
func (s *State) settleOpenWindowRequest(fx *effects, st *Staker, remaining int64, now uint64) int64 {
	reqs := s.userRequests(st.Wallet)
	satisfied := int64(0)
	for epStart, amount := range reqs {
		ep, ok := s.Epochs[epStart]
		if !ok || !s.windowOpen(ep, now) {
			continue
		}
		payout := minI64(minI64(amount, remaining-satisfied), s.Global.WaxForRedemption.Amount)
		if payout <= 0 {
			continue
		}
		s.burnRedeemedStake(fx, st, ep, payout)
		if amount == payout {
			delete(reqs, epStart)
		} else {
			reqs[epStart] = amount - payout
		}
		satisfied = safemath.Add(satisfied, payout)
		if satisfied >= remaining {
			break
		}
	}
	return satisfied
}

// requestableEpochs returns the tracked epochs whose funds have not yet
// come back, oldest first, so requests queue into the nearest window.
func (s *State) requestableEpochs(now uint64) []*Epoch {
	cfg := &s.Settings
	candidates := []uint64{
		s.Global.LastEpochStartTime - cfg.SecondsBetweenEpochs,
		s.Global.LastEpochStartTime,
		s.nextEpochStart(),
	}
	out := make([]*Epoch, 0, len(candidates))
	for _, start := range candidates {
		if ep, ok := s.Epochs[start]; ok && ep.RedemptionPeriodStart > now {
			out = append(out, ep)
		}
	}
	return out
}

// RequestRedeem queues a redemption against upcoming epochs. If part of an
// earlier request is already claimable it is paid out first; if the queue
// can not absorb the rest, the rental pool fills it instantly.
func (e *Engine) RequestRedeem(user model.AccountName, quantity model.Asset, acceptReplacing bool, now uint64) error {
	return e.apply("reqredeem", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		if err := validatePositive(quantity, model.SWAX); err != nil {
			return err
		}
		st, ok := s.Stakers[user]
		if !ok {
			return ErrStakerNotFound
		}
		s.updateReward(st, now)

		remaining := safemath.Sub(quantity.Amount, s.settleOpenWindowRequest(fx, st, quantity.Amount, now))
		if remaining == 0 {
			return nil
		}
		if st.SwaxBalance.Amount < remaining {
			return errors.Wrapf(ErrInsufficientFunds, "staked balance %s can not cover redemption of %s",
				st.SwaxBalance, model.NewSwax(remaining))
		}

		reqs := s.userRequests(user)
		epochs := s.requestableEpochs(now)
		for _, ep := range epochs {
			existing, ok := reqs[ep.StartTime]
			if !ok {
				continue
			}
			if !acceptReplacing {
				return ErrRequestExists
			}
			ep.WaxToRefund.Amount = safemath.SubBalance(ep.WaxToRefund.Amount, existing)
			delete(reqs, ep.StartTime)
		}

		for _, ep := range epochs {
			available := safemath.Sub(ep.WaxBucket.Amount, ep.WaxToRefund.Amount)
			if available <= 0 {
				continue
			}
			take := minI64(available, remaining)
			ep.WaxToRefund.Amount = safemath.Add(ep.WaxToRefund.Amount, take)
			reqs[ep.StartTime] = safemath.Add(reqs[ep.StartTime], take)
			remaining = safemath.Sub(remaining, take)
			if remaining == 0 {
				return nil
			}
		}

		// Nothing left to queue against; pay the rest from the rental pool.
		if s.Global.WaxAvailableForRentals.Amount < remaining {
			return errors.Wrapf(ErrInsufficientFunds, "redemption capacity is exhausted, %s can not be covered",
				model.NewSwax(remaining))
		}
		s.Global.WaxAvailableForRentals.Amount = safemath.SubBalance(s.Global.WaxAvailableForRentals.Amount, remaining)
		st.SwaxBalance.Amount = safemath.SubBalance(st.SwaxBalance.Amount, remaining)
		s.Global.SwaxEarning.Amount = safemath.SubBalance(s.Global.SwaxEarning.Amount, remaining)
		s.Rewards.TotalSupply.Amount = safemath.SubBalance(s.Rewards.TotalSupply.Amount, remaining)
		fx.retire(model.NewSwax(remaining), "redeemed")
		fx.transfer(user, model.NewWax(remaining), "redeemed wax")
		s.debitUserRedemptions(st)
		return nil
	})
}

// Redeem pays out the caller's requests whose window is currently open.
func (e *Engine) Redeem(user model.AccountName, now uint64) error {
	return e.apply("redeem", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		st, ok := s.Stakers[user]
		if !ok {
			return ErrStakerNotFound
		}
		s.updateReward(st, now)

		open := false
		for _, ep := range s.Epochs {
			if s.windowOpen(ep, now) {
				open = true
				break
			}
		}
		if !open {
			return ErrNoRedemptionOpen
		}

		reqs := s.userRequests(user)
		paid := false
		for _, epStart := range sortedEpochKeys(reqs) {
			ep, ok := s.Epochs[epStart]
			if !ok || !s.windowOpen(ep, now) {
				continue
			}
			amount := reqs[epStart]
			payout := minI64(amount, s.Global.WaxForRedemption.Amount)
			if payout <= 0 {
				continue
			}
			s.burnRedeemedStake(fx, st, ep, payout)
			if amount == payout {
				delete(reqs, epStart)
			} else {
				reqs[epStart] = amount - payout
			}
			paid = true
		}
		if !paid {
			return ErrNoRequestsToFill
		}
		s.debitUserRedemptions(st)
		return nil
	})
}

// ClearExpired drops the caller's requests whose window closed unredeemed.
// The unclaimed WAX stays in the redemption bucket until Reallocate.
func (e *Engine) ClearExpired(user model.AccountName, now uint64) error {
	return e.apply("clearexpired", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		reqs := s.userRequests(user)
		cleared := false
		for epStart, amount := range reqs {
			ep, ok := s.Epochs[epStart]
			if ok && ep.RedemptionPeriodEnd > now {
				continue
			}
			if ok {
				ep.WaxToRefund.Amount = safemath.SubBalance(ep.WaxToRefund.Amount, amount)
			}
			delete(reqs, epStart)
			cleared = true
		}
		if !cleared {
			return errors.Wrap(ErrNothingToClaim, "you have no expired redemption requests")
		}
		return nil
	})
}

// debitUserRedemptions trims queued requests after a balance decrease so a
// user can never have more queued than they have staked. Requests in the
// farthest window are trimmed first.
func (s *State) debitUserRedemptions(st *Staker) {
	reqs, ok := s.Redemptions[st.Wallet]
	if !ok || len(reqs) == 0 {
		return
	}
	total := int64(0)
	for _, amount := range reqs {
		total = safemath.Add(total, amount)
	}
	excess := total - st.SwaxBalance.Amount
	if excess <= 0 {
		return
	}
	keys := sortedEpochKeys(reqs)
	for i := len(keys) - 1; i >= 0 && excess > 0; i-- {
		epStart := keys[i]
		take := minI64(excess, reqs[epStart])
		if ep, ok := s.Epochs[epStart]; ok {
			ep.WaxToRefund.Amount = safemath.SubBalance(ep.WaxToRefund.Amount, take)
		}
		if reqs[epStart] == take {
			delete(reqs, epStart)
		} else {
			reqs[epStart] -= take
		}
		excess -= take
	}
}

func sortedEpochKeys(reqs map[uint64]int64) []uint64 {
	keys := make([]uint64, 0, len(reqs))
	for k := range reqs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
