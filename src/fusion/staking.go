package fusion

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/safemath"
	"github.com/waxfusion/fusiond/src/waxapi"
)

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// calculateAssetShare applies a 1e6 scaled percentage to an amount,
// rounding down. 100% is 1e8.
func calculateAssetShare(amount int64, percent1e6 uint64) int64 {
	if amount == 0 || percent1e6 == 0 {
		return 0
	}
	return safemath.MulDiv(amount, int64(percent1e6), safemath.Scale1e8)
}

// rewardPerToken extends the stored accumulator to min(now, periodFinish).
// The result is scaled 1e16 per unit of staked SWAX.
func rewardPerToken(r *RewardFarm, now uint64) uint256.Int {
	if r.TotalSupply.Amount == 0 {
		return r.RewardPerTokenStored
	}
	applicable := minU64(now, r.PeriodFinish)
	from := maxU64(r.LastUpdateTime, r.PeriodStart)
	if applicable <= from {
		return r.RewardPerTokenStored
	}
	elapsed := applicable - from
	accrued := safemath.MulDivWide(&r.RewardRate, elapsed*safemath.Scale1e8, uint64(r.TotalSupply.Amount))
	out := new(uint256.Int).Add(&r.RewardPerTokenStored, accrued)
	return *out
}

func earned(st *Staker, rpt *uint256.Int) int64 {
	if st.SwaxBalance.Amount == 0 || rpt.Cmp(&st.UserRewardPerTokenPaid) <= 0 {
		return 0
	}
	delta := new(uint256.Int).Sub(rpt, &st.UserRewardPerTokenPaid)
	return safemath.ToInt64(safemath.MulDivWide(delta, uint64(st.SwaxBalance.Amount), safemath.Scale1e16))
}

// updateReward settles a staker against the accumulator. Must run before
// any change to the staker's balance or the farm supply.
func (s *State) updateReward(st *Staker, now uint64) {
	r := &s.Rewards
	rpt := rewardPerToken(r, now)
	r.RewardPerTokenStored = rpt
	r.LastUpdateTime = maxU64(r.LastUpdateTime, minU64(now, r.PeriodFinish))

	if pending := earned(st, &rpt); pending > 0 {
		st.ClaimableWax.Amount = safemath.Add(st.ClaimableWax.Amount, pending)
		r.TotalRewardsPaidOut.Amount = safemath.Add(r.TotalRewardsPaidOut.Amount, pending)
	}
	st.UserRewardPerTokenPaid = rpt
	st.LastUpdate = now
}

// maxDailyReward caps the next 24h distribution at the configured staker
// APR. The cap is computed on the gross amount so the user slice, after
// the POL and ecosystem cuts, lands at most on MaxStakerApr1e6.
func (s *State) maxDailyReward() int64 {
	revenue := s.Global.RevenueAwaitingDistribution.Amount
	supply := s.Rewards.TotalSupply.Amount
	if revenue == 0 || supply == 0 {
		return 0
	}
	adjustedApr := safemath.MulDiv(int64(s.Settings.MaxStakerApr1e6), int64(safemath.Scale1e8), s.Settings.UserShare1e6)
	maxYearly := calculateAssetShare(supply, uint64(adjustedApr))
	maxDaily := maxYearly / 365
	return minI64(revenue, maxDaily)
}

// rollFarmForward starts the next 24h period on the daily grid, skipping
// any whole periods that passed with nobody poking the contract.
func (s *State) rollFarmForward(now uint64, userAlloc int64) {
	r := &s.Rewards
	duration := s.Settings.FarmDurationSeconds
	elapsedPeriods := (now - r.PeriodFinish) / duration
	start := r.PeriodFinish + duration*elapsedPeriods
	r.PeriodStart = start
	r.LastUpdateTime = start
	r.PeriodFinish = start + duration

	if userAlloc == 0 {
		r.RewardRate = uint256.Int{}
		return
	}
	r.RewardRate = *safemath.MulDivWide(uint256.NewInt(uint64(userAlloc)), safemath.Scale1e8, duration)
	r.RewardPool.Amount = safemath.Add(r.RewardPool.Amount, userAlloc)
}

// extendReward runs at most once per 24h boundary: it settles the finished
// farm, slices the revenue bucket between stakers, POL and the ecosystem
// fund, and opens the next period. Called lazily at the top of every
// operation that touches balances.
func (s *State) extendReward(fx *effects, chain waxapi.Chain, now uint64) {
	r := &s.Rewards
	if now < r.PeriodFinish {
		return
	}
	rpt := rewardPerToken(r, now)
	r.RewardPerTokenStored = rpt
	r.LastUpdateTime = r.PeriodFinish

	amount := s.maxDailyReward()
	if amount == 0 {
		s.rollFarmForward(now, 0)
		return
	}

	cfg := &s.Settings
	userAlloc := calculateAssetShare(amount, cfg.UserShare1e6)
	polAlloc := calculateAssetShare(amount, cfg.PolShare1e6)
	ecoAlloc := calculateAssetShare(amount, cfg.EcosystemShare1e6)
	if leftover := amount - (userAlloc + polAlloc + ecoAlloc); leftover > 0 {
		userAlloc = safemath.Add(userAlloc, leftover)
	}

	// A POL decline keeps that slice queued for a later distribution.
	polPaid := int64(0)
	if polAlloc > 0 && chain.OfferPolAllocation(model.NewWax(polAlloc)) {
		polPaid = polAlloc
		fx.transfer(cfg.PolAccount, model.NewWax(polAlloc), "pol allocation for liquidity and cpu rentals")
	}

	distributed := safemath.Add(safemath.Add(userAlloc, ecoAlloc), polPaid)
	s.Global.RevenueAwaitingDistribution.Amount = safemath.SubBalance(s.Global.RevenueAwaitingDistribution.Amount, distributed)
	s.Global.TotalRevenueDistributed.Amount = safemath.Add(s.Global.TotalRevenueDistributed.Amount, distributed)

	if ecoAlloc > 0 {
		s.mintEcosystemIncentives(fx, ecoAlloc, now)
	}
	s.rollFarmForward(now, userAlloc)
}

// mintEcosystemIncentives converts the ecosystem slice to LSWAX held in the
// incentives bucket. The backing SWAX lands on the protocol self stake so
// the exchange rate is unaffected.
func (s *State) mintEcosystemIncentives(fx *effects, ecoAlloc int64, now uint64) {
	self := s.selfStaker()
	s.updateReward(self, now)

	lswaxOut := s.lswaxForSwax(ecoAlloc)
	self.SwaxBalance.Amount = safemath.Add(self.SwaxBalance.Amount, ecoAlloc)
	s.Rewards.TotalSupply.Amount = safemath.Add(s.Rewards.TotalSupply.Amount, ecoAlloc)
	s.Global.SwaxBackingLswax.Amount = safemath.Add(s.Global.SwaxBackingLswax.Amount, ecoAlloc)
	s.Global.LiquifiedSwax.Amount = safemath.Add(s.Global.LiquifiedSwax.Amount, lswaxOut)
	s.Global.IncentivesBucket.Amount = safemath.Add(s.Global.IncentivesBucket.Amount, lswaxOut)
	s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, ecoAlloc)

	fx.issue(model.NewSwax(ecoAlloc), s.Settings.ProtocolAccount, "ecosystem incentives backing")
	fx.issue(model.NewLswax(lswaxOut), s.Settings.ProtocolAccount, "ecosystem incentives")
}

// ClaimRewards pays out a staker's accrued WAX rewards.
func (e *Engine) ClaimRewards(user model.AccountName, now uint64) error {
	return e.apply("claimrewards", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		st, ok := s.Stakers[user]
		if !ok {
			return ErrStakerNotFound
		}
		s.updateReward(st, now)
		amount := st.ClaimableWax.Amount
		if amount == 0 {
			return ErrNothingToClaim
		}
		st.ClaimableWax.Amount = 0
		fx.transfer(user, model.NewWax(amount), "staking rewards")
		return nil
	})
}

// ClaimSwax folds a staker's accrued rewards into their staked principal.
func (e *Engine) ClaimSwax(user model.AccountName, now uint64) error {
	return e.apply("claimswax", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		st, ok := s.Stakers[user]
		if !ok {
			return ErrStakerNotFound
		}
		s.updateReward(st, now)
		amount := st.ClaimableWax.Amount
		if amount == 0 {
			return ErrNothingToClaim
		}
		st.ClaimableWax.Amount = 0
		st.SwaxBalance.Amount = safemath.Add(st.SwaxBalance.Amount, amount)
		s.Rewards.TotalSupply.Amount = safemath.Add(s.Rewards.TotalSupply.Amount, amount)
		s.Global.SwaxEarning.Amount = safemath.Add(s.Global.SwaxEarning.Amount, amount)
		s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, amount)
		fx.issue(model.NewSwax(amount), user, "claimed rewards as swax")
		return nil
	})
}

// ClaimAsLswax pays out a staker's accrued rewards as freshly minted LSWAX
// at the current exchange rate.
func (e *Engine) ClaimAsLswax(user model.AccountName, minimumOutput model.Asset, now uint64) error {
	return e.apply("claimaslswax", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		st, ok := s.Stakers[user]
		if !ok {
			return ErrStakerNotFound
		}
		s.updateReward(st, now)
		amount := st.ClaimableWax.Amount
		if amount == 0 {
			return ErrNothingToClaim
		}
		self := s.selfStaker()
		s.updateReward(self, now)

		lswaxOut := s.lswaxForSwax(amount)
		if lswaxOut < minimumOutput.Amount {
			return errors.Wrapf(ErrSlippage, "output %s is below minimum %s", model.NewLswax(lswaxOut), minimumOutput)
		}
		st.ClaimableWax.Amount = 0
		self.SwaxBalance.Amount = safemath.Add(self.SwaxBalance.Amount, amount)
		s.Rewards.TotalSupply.Amount = safemath.Add(s.Rewards.TotalSupply.Amount, amount)
		s.Global.SwaxBackingLswax.Amount = safemath.Add(s.Global.SwaxBackingLswax.Amount, amount)
		s.Global.LiquifiedSwax.Amount = safemath.Add(s.Global.LiquifiedSwax.Amount, lswaxOut)
		s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, amount)
		fx.issue(model.NewSwax(amount), s.Settings.ProtocolAccount, "claimed rewards backing")
		fx.issue(model.NewLswax(lswaxOut), user, "claimed rewards as lswax")
		return nil
	})
}

// Compound folds the protocol self stake's accrued rewards back into the
// LSWAX backing, lifting the exchange rate for every holder. Anyone may
// trigger it, at most once per cooldown window.
func (e *Engine) Compound(now uint64) error {
	return e.apply("compound", func(s *State, fx *effects) error {
		if now < s.Global.LastCompoundTime+s.Settings.CompoundCooldownSeconds {
			return ErrCompoundCooldown
		}
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		self := s.selfStaker()
		s.updateReward(self, now)
		amount := self.ClaimableWax.Amount
		if amount == 0 {
			return ErrNothingToCompound
		}
		self.ClaimableWax.Amount = 0
		self.SwaxBalance.Amount = safemath.Add(self.SwaxBalance.Amount, amount)
		s.Rewards.TotalSupply.Amount = safemath.Add(s.Rewards.TotalSupply.Amount, amount)
		s.Global.SwaxBackingLswax.Amount = safemath.Add(s.Global.SwaxBackingLswax.Amount, amount)
		s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, amount)
		s.Global.LastCompoundTime = now
		fx.issue(model.NewSwax(amount), s.Settings.ProtocolAccount, "compound")
		return nil
	})
}
