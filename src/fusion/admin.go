package fusion

import (
	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
)

func (s *State) requireProtocol(caller model.AccountName) error {
	if caller != s.Settings.ProtocolAccount {
		return errors.Wrapf(ErrNotAuthorized, "only %s may do this", s.Settings.ProtocolAccount)
	}
	return nil
}

func (s *State) requireAdmin(caller model.AccountName) error {
	if !s.Settings.isAdmin(caller) {
		return errors.Wrapf(ErrNotAuthorized, "%s is not an admin", caller)
	}
	return nil
}

func (e *Engine) AddAdmin(caller, admin model.AccountName) error {
	return e.apply("addadmin", func(s *State, fx *effects) error {
		if err := s.requireProtocol(caller); err != nil {
			return err
		}
		for _, a := range s.Settings.Admins {
			if a == admin {
				return errors.Wrapf(ErrInvalidQuantity, "%s is already an admin", admin)
			}
		}
		s.Settings.Admins = append(s.Settings.Admins, admin)
		return nil
	})
}

func (e *Engine) RemoveAdmin(caller, admin model.AccountName) error {
	return e.apply("rmvadmin", func(s *State, fx *effects) error {
		if err := s.requireProtocol(caller); err != nil {
			return err
		}
		for i, a := range s.Settings.Admins {
			if a == admin {
				s.Settings.Admins = append(s.Settings.Admins[:i], s.Settings.Admins[i+1:]...)
				return nil
			}
		}
		return errors.Wrapf(ErrInvalidQuantity, "%s is not an admin", admin)
	})
}

func (e *Engine) AddCPUProxy(caller, proxy model.AccountName) error {
	return e.apply("addcpucntrct", func(s *State, fx *effects) error {
		if err := s.requireProtocol(caller); err != nil {
			return err
		}
		for _, p := range s.Settings.Proxies {
			if p == proxy {
				return errors.Wrapf(ErrInvalidQuantity, "%s is already a cpu proxy", proxy)
			}
		}
		s.Settings.Proxies = append(s.Settings.Proxies, proxy)
		return nil
	})
}

// RemoveCPUProxy drops a proxy from the rotation. Epochs already assigned
// to it keep it until they finish.
func (e *Engine) RemoveCPUProxy(caller, proxy model.AccountName) error {
	return e.apply("rmvcpucntrct", func(s *State, fx *effects) error {
		if err := s.requireProtocol(caller); err != nil {
			return err
		}
		if len(s.Settings.Proxies) <= 1 {
			return errors.Wrap(ErrInvalidQuantity, "can not remove the last cpu proxy")
		}
		for i, p := range s.Settings.Proxies {
			if p == proxy {
				s.Settings.Proxies = append(s.Settings.Proxies[:i], s.Settings.Proxies[i+1:]...)
				if s.Global.CurrentProxyIndex >= len(s.Settings.Proxies) {
					s.Global.CurrentProxyIndex = 0
				}
				return nil
			}
		}
		return errors.Wrapf(ErrInvalidQuantity, "%s is not a cpu proxy", proxy)
	})
}

func (e *Engine) SetRentPrice(caller model.AccountName, price model.Asset) error {
	return e.apply("setrentprice", func(s *State, fx *effects) error {
		if err := s.requireAdmin(caller); err != nil {
			return err
		}
		if err := validatePositive(price, model.WAX); err != nil {
			return err
		}
		s.Settings.CostToRent1Wax = price
		return nil
	})
}

// SetRevenueShares adjusts the daily distribution split. The POL cut is
// bounded to keep liquidity funded without starving stakers.
func (e *Engine) SetRevenueShares(caller model.AccountName, user1e6, pol1e6, eco1e6 uint64) error {
	return e.apply("setpolshare", func(s *State, fx *effects) error {
		if err := s.requireAdmin(caller); err != nil {
			return err
		}
		if user1e6+pol1e6+eco1e6 != OneHundredPercent1e6 {
			return errors.Wrap(ErrInvalidQuantity, "shares must sum to exactly 100%")
		}
		if pol1e6 < 5*OnePercent1e6 || pol1e6 > 10*OnePercent1e6 {
			return errors.Wrap(ErrInvalidQuantity, "pol share must be between 5% and 10%")
		}
		s.Settings.UserShare1e6 = user1e6
		s.Settings.PolShare1e6 = pol1e6
		s.Settings.EcosystemShare1e6 = eco1e6
		return nil
	})
}

func (e *Engine) SetRedeemFee(caller model.AccountName, fee1e6 uint64) error {
	return e.apply("setredeemfee", func(s *State, fx *effects) error {
		if err := s.requireProtocol(caller); err != nil {
			return err
		}
		if fee1e6 > OnePercent1e6 {
			return errors.Wrap(ErrInvalidQuantity, "instant redeem fee can not exceed 1%")
		}
		s.Settings.ProtocolFee1e6 = fee1e6
		return nil
	})
}

func (e *Engine) SetFallbackCPUReceiver(caller, receiver model.AccountName) error {
	return e.apply("setfallback", func(s *State, fx *effects) error {
		if err := s.requireAdmin(caller); err != nil {
			return err
		}
		if receiver == "" {
			return errors.Wrap(ErrInvalidQuantity, "fallback receiver can not be empty")
		}
		s.Settings.FallbackCPUReceiver = receiver
		return nil
	})
}

func (e *Engine) SetStakeUnusedFunds(caller model.AccountName, enabled bool) error {
	return e.apply("setstakeall", func(s *State, fx *effects) error {
		if err := s.requireAdmin(caller); err != nil {
			return err
		}
		s.Settings.StakeUnusedFunds = enabled
		return nil
	})
}

// SetIncentive creates or updates a liquidity incentive for a dex pool.
func (e *Engine) SetIncentive(caller model.AccountName, poolId uint64, symbol model.Symbol, percent1e6 uint64) error {
	return e.apply("setincentive", func(s *State, fx *effects) error {
		if err := s.requireProtocol(caller); err != nil {
			return err
		}
		if percent1e6 == 0 || percent1e6 > OneHundredPercent1e6 {
			return errors.Wrap(ErrInvalidQuantity, "incentive share must be between 0% and 100%")
		}
		total := percent1e6
		for id, inc := range s.Incentives {
			if id != poolId {
				total += inc.PercentShare1e6
			}
		}
		if total > OneHundredPercent1e6 {
			return errors.Wrap(ErrInvalidQuantity, "incentive shares can not sum past 100%")
		}
		s.Incentives[poolId] = Incentive{PoolId: poolId, Symbol: symbol, PercentShare1e6: percent1e6}
		return nil
	})
}

func (e *Engine) RemoveIncentive(caller model.AccountName, poolId uint64) error {
	return e.apply("rmvincentive", func(s *State, fx *effects) error {
		if err := s.requireProtocol(caller); err != nil {
			return err
		}
		if _, ok := s.Incentives[poolId]; !ok {
			return errors.Wrapf(ErrInvalidQuantity, "no incentive for pool %d", poolId)
		}
		delete(s.Incentives, poolId)
		return nil
	})
}
