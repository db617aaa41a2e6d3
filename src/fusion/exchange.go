package fusion

import (
	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/safemath"
)

// lswaxForSwax converts SWAX to LSWAX at the current backing ratio. The
// two sides start equal, so the bootstrap rate is exactly 1:1.
func (s *State) lswaxForSwax(amount int64) int64 {
	g := &s.Global
	if g.LiquifiedSwax.Amount == g.SwaxBackingLswax.Amount {
		return amount
	}
	return safemath.MulDiv(g.LiquifiedSwax.Amount, amount, uint64(g.SwaxBackingLswax.Amount))
}

func (s *State) swaxForLswax(amount int64) int64 {
	g := &s.Global
	if g.LiquifiedSwax.Amount == g.SwaxBackingLswax.Amount {
		return amount
	}
	return safemath.MulDiv(g.SwaxBackingLswax.Amount, amount, uint64(g.LiquifiedSwax.Amount))
}

func validatePositive(quantity model.Asset, symbol model.Symbol) error {
	if quantity.Symbol != symbol {
		return errors.Wrapf(ErrInvalidQuantity, "expected %s, got %s", symbol, quantity.Symbol)
	}
	if !quantity.IsValid() || !quantity.IsPositive() {
		return errors.Wrapf(ErrInvalidQuantity, "quantity %s must be positive", quantity)
	}
	return nil
}

// stakeDeposit handles an inbound WAX transfer with the "stake" memo. The
// deposit router has already synced the epoch and farm.
func (s *State) stakeDeposit(fx *effects, user model.AccountName, quantity model.Asset, now uint64) error {
	if err := validatePositive(quantity, model.WAX); err != nil {
		return err
	}
	if quantity.Amount < s.Settings.MinimumStake.Amount {
		return errors.Wrapf(ErrBelowMinimum, "minimum stake is %s", s.Settings.MinimumStake)
	}
	st := s.getOrCreateStaker(user, now)
	s.updateReward(st, now)

	st.SwaxBalance.Amount = safemath.Add(st.SwaxBalance.Amount, quantity.Amount)
	s.Rewards.TotalSupply.Amount = safemath.Add(s.Rewards.TotalSupply.Amount, quantity.Amount)
	s.Global.SwaxEarning.Amount = safemath.Add(s.Global.SwaxEarning.Amount, quantity.Amount)
	s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, quantity.Amount)
	fx.issue(model.NewSwax(quantity.Amount), user, "staked wax")
	return nil
}

func (s *State) liquify(fx *effects, user model.AccountName, quantity model.Asset, minimumOutput int64, now uint64) error {
	if err := validatePositive(quantity, model.SWAX); err != nil {
		return err
	}
	st, ok := s.Stakers[user]
	if !ok {
		return ErrStakerNotFound
	}
	s.updateReward(st, now)
	self := s.selfStaker()
	s.updateReward(self, now)
	if st.SwaxBalance.Amount < quantity.Amount {
		return errors.Wrapf(ErrInsufficientFunds, "staked balance %s is less than %s", st.SwaxBalance, quantity)
	}

	lswaxOut := s.lswaxForSwax(quantity.Amount)
	if minimumOutput >= 0 && lswaxOut < minimumOutput {
		return errors.Wrapf(ErrSlippage, "output %s is below minimum %s", model.NewLswax(lswaxOut), model.NewLswax(minimumOutput))
	}
	st.SwaxBalance.Amount = safemath.SubBalance(st.SwaxBalance.Amount, quantity.Amount)
	self.SwaxBalance.Amount = safemath.Add(self.SwaxBalance.Amount, quantity.Amount)
	s.Global.SwaxEarning.Amount = safemath.SubBalance(s.Global.SwaxEarning.Amount, quantity.Amount)
	s.Global.SwaxBackingLswax.Amount = safemath.Add(s.Global.SwaxBackingLswax.Amount, quantity.Amount)
	s.Global.LiquifiedSwax.Amount = safemath.Add(s.Global.LiquifiedSwax.Amount, lswaxOut)
	fx.issue(model.NewLswax(lswaxOut), user, "liquified swax")

	s.debitUserRedemptions(st)
	return nil
}

// Liquify converts part of the caller's staked SWAX into LSWAX.
func (e *Engine) Liquify(user model.AccountName, quantity model.Asset, now uint64) error {
	return e.apply("liquify", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		return s.liquify(fx, user, quantity, -1, now)
	})
}

// LiquifyExact is Liquify with a minimum acceptable LSWAX output.
func (e *Engine) LiquifyExact(user model.AccountName, quantity, minimumOutput model.Asset, now uint64) error {
	return e.apply("liquifyexact", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		if err := validatePositive(minimumOutput, model.LSWAX); err != nil {
			return err
		}
		return s.liquify(fx, user, quantity, minimumOutput.Amount, now)
	})
}

// unliquifyDeposit handles an inbound LSWAX transfer. The LSWAX is burned
// and the backing SWAX moves onto the sender's staking balance.
// minimumOutput < 0 means no slippage bound was requested.
func (s *State) unliquifyDeposit(fx *effects, user model.AccountName, quantity model.Asset, minimumOutput int64, now uint64) error {
	if err := validatePositive(quantity, model.LSWAX); err != nil {
		return err
	}
	if quantity.Amount < s.Settings.MinimumStake.Amount {
		return errors.Wrapf(ErrBelowMinimum, "minimum unliquify is %s", model.NewLswax(s.Settings.MinimumStake.Amount))
	}
	st := s.getOrCreateStaker(user, now)
	s.updateReward(st, now)
	self := s.selfStaker()
	s.updateReward(self, now)

	swaxOut := s.swaxForLswax(quantity.Amount)
	if minimumOutput >= 0 && swaxOut < minimumOutput {
		return errors.Wrapf(ErrSlippage, "output %s is below minimum %s", model.NewSwax(swaxOut), model.NewSwax(minimumOutput))
	}
	self.SwaxBalance.Amount = safemath.SubBalance(self.SwaxBalance.Amount, swaxOut)
	st.SwaxBalance.Amount = safemath.Add(st.SwaxBalance.Amount, swaxOut)
	s.Global.SwaxBackingLswax.Amount = safemath.SubBalance(s.Global.SwaxBackingLswax.Amount, swaxOut)
	s.Global.SwaxEarning.Amount = safemath.Add(s.Global.SwaxEarning.Amount, swaxOut)
	s.Global.LiquifiedSwax.Amount = safemath.SubBalance(s.Global.LiquifiedSwax.Amount, quantity.Amount)
	fx.retire(quantity, "unliquified")
	return nil
}

// InstaRedeem burns staked SWAX and pays WAX immediately out of the rental
// pool, charging the instant redemption fee into the revenue bucket.
func (e *Engine) InstaRedeem(user model.AccountName, quantity model.Asset, now uint64) error {
	return e.apply("instaredeem", func(s *State, fx *effects) error {
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
		if st.SwaxBalance.Amount < quantity.Amount {
			return errors.Wrapf(ErrInsufficientFunds, "staked balance %s is less than %s", st.SwaxBalance, quantity)
		}
		if s.Global.WaxAvailableForRentals.Amount < quantity.Amount {
			return errors.Wrapf(ErrInsufficientFunds, "rental pool %s can not cover instant redemption of %s",
				s.Global.WaxAvailableForRentals, quantity)
		}

		fee := calculateAssetShare(quantity.Amount, s.Settings.ProtocolFee1e6)
		userShare := safemath.Sub(quantity.Amount, fee)

		st.SwaxBalance.Amount = safemath.SubBalance(st.SwaxBalance.Amount, quantity.Amount)
		s.Rewards.TotalSupply.Amount = safemath.SubBalance(s.Rewards.TotalSupply.Amount, quantity.Amount)
		s.Global.SwaxEarning.Amount = safemath.SubBalance(s.Global.SwaxEarning.Amount, quantity.Amount)
		s.Global.WaxAvailableForRentals.Amount = safemath.SubBalance(s.Global.WaxAvailableForRentals.Amount, quantity.Amount)
		s.Global.RevenueAwaitingDistribution.Amount = safemath.Add(s.Global.RevenueAwaitingDistribution.Amount, fee)
		fx.retire(model.NewSwax(quantity.Amount), "instant redemption")
		fx.transfer(user, model.NewWax(userShare), "instant redemption")

		s.debitUserRedemptions(st)
		return nil
	})
}

// polInstantExit converts POL owned LSWAX straight to WAX out of the rental
// pool. Used by the POL collaborator to rebalance its two sides; the
// "instant redeem" variant pays the protocol fee, "rebalance" does not.
func (s *State) polInstantExit(fx *effects, from model.AccountName, quantity model.Asset, takeFee bool, now uint64) error {
	if from != s.Settings.PolAccount {
		return errors.Wrapf(ErrNotAuthorized, "only %s may use this memo", s.Settings.PolAccount)
	}
	if err := validatePositive(quantity, model.LSWAX); err != nil {
		return err
	}
	self := s.selfStaker()
	s.updateReward(self, now)

	swaxOut := s.swaxForLswax(quantity.Amount)
	if s.Global.WaxAvailableForRentals.Amount < swaxOut {
		return errors.Wrapf(ErrInsufficientFunds, "rental pool %s can not cover exit of %s",
			s.Global.WaxAvailableForRentals, quantity)
	}
	fee := int64(0)
	if takeFee {
		fee = calculateAssetShare(swaxOut, s.Settings.ProtocolFee1e6)
	}

	self.SwaxBalance.Amount = safemath.SubBalance(self.SwaxBalance.Amount, swaxOut)
	s.Rewards.TotalSupply.Amount = safemath.SubBalance(s.Rewards.TotalSupply.Amount, swaxOut)
	s.Global.SwaxBackingLswax.Amount = safemath.SubBalance(s.Global.SwaxBackingLswax.Amount, swaxOut)
	s.Global.LiquifiedSwax.Amount = safemath.SubBalance(s.Global.LiquifiedSwax.Amount, quantity.Amount)
	s.Global.WaxAvailableForRentals.Amount = safemath.SubBalance(s.Global.WaxAvailableForRentals.Amount, swaxOut)
	s.Global.RevenueAwaitingDistribution.Amount = safemath.Add(s.Global.RevenueAwaitingDistribution.Amount, fee)
	fx.retire(quantity, "pol exit")
	fx.retire(model.NewSwax(swaxOut), "pol exit")
	fx.transfer(from, model.NewWax(safemath.Sub(swaxOut, fee)), "pol exit")
	return nil
}
