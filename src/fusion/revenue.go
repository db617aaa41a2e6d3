package fusion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/safemath"
	"github.com/waxfusion/fusiond/src/waxapi"
)

// HandleDeposit is the intake for every inbound token transfer. The memo
// selects the route; an unknown memo rejects the whole deposit so funds
// never land unattributed.
func (e *Engine) HandleDeposit(d waxapi.Deposit, now uint64) error {
	op := "deposit_" + depositRoute(d.Memo)
	return e.apply(op, func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)

		memo := strings.TrimSpace(d.Memo)
		switch memo {
		case memoStake:
			return s.stakeDeposit(fx, d.From, d.Quantity, now)
		case memoUnliquify:
			return s.unliquifyDeposit(fx, d.From, d.Quantity, -1, now)
		case memoRevenue:
			return s.revenueDeposit(d.Quantity)
		case memoCPURentalReturn:
			return s.handleCPUReturn(fx, d.From, d.Quantity, now)
		case memoLpIncentives:
			return s.lpIncentivesDeposit(fx, d.Quantity, now)
		case memoInstantRedeem:
			return s.polInstantExit(fx, d.From, d.Quantity, true, now)
		case memoRebalance:
			return s.polInstantExit(fx, d.From, d.Quantity, false, now)
		}

		fields := memoFields(memo)
		if len(fields) > 0 {
			switch fields[0] {
			case memoUnliquifyExact:
				minOut, err := parseUnliquifyExactMemo(memo)
				if err != nil {
					return err
				}
				return s.unliquifyDeposit(fx, d.From, d.Quantity, minOut, now)
			case memoRentCPU:
				rental, err := parseRentCPUMemo(memo)
				if err != nil {
					return err
				}
				return s.rentCPUDeposit(fx, d.From, d.Quantity, rental.Receiver, rental.WholeWax, rental.EpochStart, now)
			}
		}
		return errors.Wrapf(ErrUnknownMemo, "memo `%s`", d.Memo)
	})
}

// revenueDeposit queues protocol revenue for the next daily distribution.
func (s *State) revenueDeposit(quantity model.Asset) error {
	if err := validatePositive(quantity, model.WAX); err != nil {
		return err
	}
	s.Global.RevenueAwaitingDistribution.Amount = safemath.Add(s.Global.RevenueAwaitingDistribution.Amount, quantity.Amount)
	return nil
}

// lpIncentivesDeposit accepts donations to the liquidity incentives
// bucket. WAX is converted to LSWAX at the current rate; LSWAX is taken
// as is.
func (s *State) lpIncentivesDeposit(fx *effects, quantity model.Asset, now uint64) error {
	switch quantity.Symbol {
	case model.LSWAX:
		if err := validatePositive(quantity, model.LSWAX); err != nil {
			return err
		}
		s.Global.IncentivesBucket.Amount = safemath.Add(s.Global.IncentivesBucket.Amount, quantity.Amount)
		return nil
	case model.WAX:
		if err := validatePositive(quantity, model.WAX); err != nil {
			return err
		}
		self := s.selfStaker()
		s.updateReward(self, now)
		lswaxOut := s.lswaxForSwax(quantity.Amount)
		self.SwaxBalance.Amount = safemath.Add(self.SwaxBalance.Amount, quantity.Amount)
		s.Rewards.TotalSupply.Amount = safemath.Add(s.Rewards.TotalSupply.Amount, quantity.Amount)
		s.Global.SwaxBackingLswax.Amount = safemath.Add(s.Global.SwaxBackingLswax.Amount, quantity.Amount)
		s.Global.LiquifiedSwax.Amount = safemath.Add(s.Global.LiquifiedSwax.Amount, lswaxOut)
		s.Global.IncentivesBucket.Amount = safemath.Add(s.Global.IncentivesBucket.Amount, lswaxOut)
		s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, quantity.Amount)
		fx.issue(model.NewSwax(quantity.Amount), s.Settings.ProtocolAccount, "lp incentives backing")
		fx.issue(model.NewLswax(lswaxOut), s.Settings.ProtocolAccount, "lp incentives")
		return nil
	default:
		return errors.Wrapf(ErrInvalidQuantity, "unexpected symbol %s for lp incentives", quantity.Symbol)
	}
}

// CreateFarms sweeps the incentives bucket to the dex farms once per epoch
// spacing, split by each incentive's configured share.
func (e *Engine) CreateFarms(now uint64) error {
	return e.apply("createfarms", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		if now < s.Global.NextFarmsTime {
			return errors.Wrapf(ErrTooEarly, "next farm distribution is at %d", s.Global.NextFarmsTime)
		}
		if len(s.Incentives) == 0 {
			return errors.Wrap(ErrNothingToClaim, "no liquidity incentives are configured")
		}
		bucket := s.Global.IncentivesBucket.Amount
		if bucket == 0 {
			return errors.Wrap(ErrNothingToClaim, "the incentives bucket is empty")
		}

		allocated := int64(0)
		for _, poolId := range sortedIncentiveKeys(s.Incentives) {
			inc := s.Incentives[poolId]
			share := calculateAssetShare(bucket, inc.PercentShare1e6)
			if share == 0 {
				continue
			}
			allocated = safemath.Add(allocated, share)
			fx.transfer(s.Settings.DexAccount, model.NewLswax(share), fmt.Sprintf("incentreward#%d", poolId))
		}
		s.Global.IncentivesBucket.Amount = safemath.SubBalance(s.Global.IncentivesBucket.Amount, allocated)
		for s.Global.NextFarmsTime <= now {
			s.Global.NextFarmsTime += s.Settings.SecondsBetweenEpochs
		}
		return nil
	})
}

func sortedIncentiveKeys(incentives map[uint64]Incentive) []uint64 {
	keys := make([]uint64, 0, len(incentives))
	for k := range incentives {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
