package fusion

import (
	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/safemath"
)

func (s *State) createEpoch(start uint64, proxy model.AccountName, bucket model.Asset) *Epoch {
	cfg := &s.Settings
	ep := &Epoch{
		StartTime:                    start,
		TimeToUnstake:                start + cfg.EpochLengthSeconds - cfg.UnstakeLeadSeconds,
		ProxyWallet:                  proxy,
		WaxBucket:                    model.NewWax(bucket.Amount),
		WaxToRefund:                  model.NewWax(0),
		RedemptionPeriodStart:        start + cfg.EpochLengthSeconds,
		RedemptionPeriodEnd:          start + cfg.EpochLengthSeconds + cfg.RedemptionPeriodSeconds,
		TotalCPUFundsReturned:        model.NewWax(0),
		TotalAddedToRedemptionBucket: model.NewWax(0),
		Rentals:                      map[string]*Rental{},
	}
	s.Epochs[start] = ep
	return ep
}

// syncEpoch rolls the weekly epoch grid forward to cover now, creating any
// missed epochs and rotating the CPU proxy once per epoch. Runs at the top
// of every operation so the schedule never depends on timers firing.
func (s *State) syncEpoch(fx *effects, now uint64) {
	cfg := &s.Settings
	for now >= s.Global.LastEpochStartTime+cfg.SecondsBetweenEpochs {
		nextStart := s.Global.LastEpochStartTime + cfg.SecondsBetweenEpochs
		s.Global.LastEpochStartTime = nextStart
		s.Global.CurrentProxyIndex = (s.Global.CurrentProxyIndex + 1) % len(cfg.Proxies)
		if _, ok := s.Epochs[nextStart]; !ok {
			s.createEpoch(nextStart, cfg.Proxies[s.Global.CurrentProxyIndex], model.NewWax(0))
		}
	}
}

func (s *State) nextEpochStart() uint64 {
	return s.Global.LastEpochStartTime + s.Settings.SecondsBetweenEpochs
}

// StakeAllCPU runs the daily sweep that sends the idle rental pool to the
// next epoch's proxy. With stake_unused_funds off it still advances the
// cadence so rentals remain instantly fillable from the pool.
func (e *Engine) StakeAllCPU(now uint64) error {
	return e.apply("stakeallcpu", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		if now < s.Global.NextStakeallTime {
			return errors.Wrapf(ErrTooEarly, "next stakeall is at %d", s.Global.NextStakeallTime)
		}
		cfg := &s.Settings
		amount := s.Global.WaxAvailableForRentals.Amount
		if amount > 0 && cfg.StakeUnusedFunds {
			nextStart := s.nextEpochStart()
			ep, ok := s.Epochs[nextStart]
			if !ok {
				proxy := cfg.Proxies[(s.Global.CurrentProxyIndex+1)%len(cfg.Proxies)]
				ep = s.createEpoch(nextStart, proxy, model.NewWax(0))
			}
			ep.WaxBucket.Amount = safemath.Add(ep.WaxBucket.Amount, amount)
			s.Global.WaxAvailableForRentals.Amount = 0
			fx.delegate(ep.ProxyWallet, model.NewWax(amount), "unused funds for cpu")
		}
		for s.Global.NextStakeallTime <= now {
			s.Global.NextStakeallTime += cfg.SecondsBetweenStakeall
		}
		return nil
	})
}

// UnstakeCPU requests undelegation for an epoch whose CPU period is over.
// epochStart == 0 means the default epoch, one spacing behind the newest.
// proxyIndex < 0 skips the proxy check.
func (e *Engine) UnstakeCPU(epochStart uint64, proxyIndex int, now uint64) error {
	return e.apply("unstakecpu", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		cfg := &s.Settings
		if epochStart == 0 {
			epochStart = s.Global.LastEpochStartTime - cfg.SecondsBetweenEpochs
		}
		ep, ok := s.Epochs[epochStart]
		if !ok {
			return errors.Wrapf(ErrEpochNotFound, "no epoch starting at %d", epochStart)
		}
		if proxyIndex >= 0 {
			if proxyIndex >= len(cfg.Proxies) || cfg.Proxies[proxyIndex] != ep.ProxyWallet {
				return errors.Wrapf(ErrNothingToUnstake, "proxy index %d has nothing staked in epoch %d", proxyIndex, epochStart)
			}
		}
		if now < ep.TimeToUnstake {
			return errors.Wrapf(ErrTooEarlyToUnstake, "wait another %d seconds", ep.TimeToUnstake-now)
		}
		if e.chain.DelegatedTo(ep.ProxyWallet) == 0 {
			return errors.Wrapf(ErrNothingToUnstake, "proxy %s has no delegated cpu", ep.ProxyWallet)
		}
		fx.undelegate(ep.ProxyWallet, now)
		return nil
	})
}

// ClaimRefunds collects every proxy refund that has cleared the system
// refund delay. The chain routes the funds back as a cpu rental return
// deposit, which refills the redemption bucket first.
func (e *Engine) ClaimRefunds(now uint64) error {
	return e.apply("claimrefunds", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		claimed := false
		for _, proxy := range s.Settings.Proxies {
			refund, ok := e.chain.PendingRefund(proxy)
			if !ok {
				continue
			}
			if refund.RequestTime+s.Settings.RefundDelaySeconds > now {
				continue
			}
			fx.claimRefund(proxy, now)
			claimed = true
		}
		if !claimed {
			return ErrNoRefundsToClaim
		}
		return nil
	})
}

// handleCPUReturn routes funds coming back from a proxy. The redemption
// bucket is topped up to whatever this epoch still owes before anything
// returns to the rental pool.
func (s *State) handleCPUReturn(fx *effects, from model.AccountName, quantity model.Asset, now uint64) error {
	if err := validatePositive(quantity, model.WAX); err != nil {
		return err
	}
	cfg := &s.Settings
	start := s.Global.LastEpochStartTime
	var ep *Epoch
	for i := 0; i < 2*len(cfg.Proxies)+2; i++ {
		if candidate, ok := s.Epochs[start]; ok && candidate.ProxyWallet == from {
			ep = candidate
			break
		}
		if start < cfg.SecondsBetweenEpochs {
			break
		}
		start -= cfg.SecondsBetweenEpochs
	}
	if ep == nil {
		return errors.Errorf("no epoch found for cpu return from %s", from)
	}

	ep.TotalCPUFundsReturned.Amount = safemath.Add(ep.TotalCPUFundsReturned.Amount, quantity.Amount)
	remaining := quantity.Amount
	if shortfall := safemath.Sub(ep.WaxToRefund.Amount, ep.TotalAddedToRedemptionBucket.Amount); shortfall > 0 {
		fill := minI64(shortfall, remaining)
		s.Global.WaxForRedemption.Amount = safemath.Add(s.Global.WaxForRedemption.Amount, fill)
		ep.TotalAddedToRedemptionBucket.Amount = safemath.Add(ep.TotalAddedToRedemptionBucket.Amount, fill)
		remaining = safemath.Sub(remaining, fill)
	}
	s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, remaining)
	return nil
}

// Reallocate moves redemption wax nobody claimed back into the rental pool
// once no redemption window is open.
func (e *Engine) Reallocate(now uint64) error {
	return e.apply("reallocate", func(s *State, fx *effects) error {
		s.syncEpoch(fx, now)
		s.extendReward(fx, e.chain, now)
		for _, ep := range s.Epochs {
			if ep.RedemptionPeriodStart <= now && now < ep.RedemptionPeriodEnd {
				return errors.Wrapf(ErrTooEarly, "redemption window for epoch %d is still open", ep.StartTime)
			}
		}
		amount := s.Global.WaxForRedemption.Amount
		if amount == 0 {
			return errors.Wrap(ErrNothingToClaim, "there is no unclaimed redemption wax")
		}
		s.Global.WaxForRedemption.Amount = 0
		s.Global.WaxAvailableForRentals.Amount = safemath.Add(s.Global.WaxAvailableForRentals.Amount, amount)
		return nil
	})
}

// secondsToRent prices the rental window for an epoch: upcoming epochs are
// billed from now through their unstake time (up to 18 days), the running
// epoch for its remainder (up to 11 days), with a 1 day floor.
func (s *State) secondsToRent(ep *Epoch, now uint64) (uint64, error) {
	if ep.StartTime > now {
		return ep.TimeToUnstake - now, nil
	}
	if now >= ep.TimeToUnstake {
		return 0, errors.Wrapf(ErrTooEarly, "the rental period for epoch %d is over", ep.StartTime)
	}
	remaining := ep.TimeToUnstake - now
	if remaining < SecondsPerDay {
		return 0, errors.Wrapf(ErrTooEarly, "less than a day remains in epoch %d, rent from the next epoch", ep.StartTime)
	}
	return remaining, nil
}

// rentCPUDeposit handles an inbound WAX payment with a rent_cpu memo.
// wholeWax is the amount of CPU to power up, in whole WAX. Overpayment is
// refunded; the fee lands in the revenue bucket.
func (s *State) rentCPUDeposit(fx *effects, renter model.AccountName, payment model.Asset,
	receiver model.AccountName, wholeWax int64, epochStart uint64, now uint64) error {
	if err := validatePositive(payment, model.WAX); err != nil {
		return err
	}
	cfg := &s.Settings
	if receiver == "" {
		receiver = cfg.FallbackCPUReceiver
	}
	if epochStart == 0 {
		epochStart = s.Global.LastEpochStartTime
	}
	ep, ok := s.Epochs[epochStart]
	if !ok {
		if epochStart != s.nextEpochStart() {
			return errors.Wrapf(ErrEpochNotFound, "no epoch starting at %d", epochStart)
		}
		proxy := cfg.Proxies[(s.Global.CurrentProxyIndex+1)%len(cfg.Proxies)]
		ep = s.createEpoch(epochStart, proxy, model.NewWax(0))
	}

	amount := safemath.Mul(wholeWax, int64(model.WaxDigitMultiplier))
	if amount < cfg.MinimumRental.Amount || amount > cfg.MaximumRental.Amount {
		return errors.Wrapf(ErrBelowMinimum, "rentals must be between %s and %s", cfg.MinimumRental, cfg.MaximumRental)
	}
	seconds, err := s.secondsToRent(ep, now)
	if err != nil {
		return err
	}
	expected := safemath.MulDiv(safemath.Mul(cfg.CostToRent1Wax.Amount, wholeWax), int64(seconds), SecondsPerDay)
	if expected <= 0 {
		return errors.Wrap(ErrInvalidQuantity, "rental rounds to a zero fee")
	}
	if payment.Amount < expected {
		return errors.Wrapf(ErrInsufficientFunds, "renting %d WAX costs %s", wholeWax, model.NewWax(expected))
	}
	if s.Global.WaxAvailableForRentals.Amount < amount {
		return errors.Wrapf(ErrInsufficientFunds, "rental pool %s can not fund %s",
			s.Global.WaxAvailableForRentals, model.NewWax(amount))
	}

	s.Global.WaxAvailableForRentals.Amount = safemath.SubBalance(s.Global.WaxAvailableForRentals.Amount, amount)
	ep.WaxBucket.Amount = safemath.Add(ep.WaxBucket.Amount, amount)
	s.Global.RevenueAwaitingDistribution.Amount = safemath.Add(s.Global.RevenueAwaitingDistribution.Amount, expected)

	key := rentalKey(renter, receiver)
	if existing, ok := ep.Rentals[key]; ok {
		existing.AmountStaked.Amount = safemath.Add(existing.AmountStaked.Amount, amount)
	} else {
		ep.Rentals[key] = &Rental{
			Renter:       renter,
			CPUReceiver:  receiver,
			AmountStaked: model.NewWax(amount),
			Expires:      ep.StartTime + cfg.EpochLengthSeconds,
		}
	}

	fx.delegate(ep.ProxyWallet, model.NewWax(amount), "rented cpu for "+string(receiver))
	if overpaid := safemath.Sub(payment.Amount, expected); overpaid > 0 {
		fx.transfer(renter, model.NewWax(overpaid), "rental overpayment refund")
	}
	return nil
}
