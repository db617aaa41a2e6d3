package fusion

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/safemath"
)

// GlobalLedger is the protocol-wide accounting row. Every WAX that enters
// the contract account is attributed to exactly one bucket here.
type GlobalLedger struct {
	SwaxEarning                 model.Asset `json:"swax_currently_earning"`
	SwaxBackingLswax            model.Asset `json:"swax_currently_backing_lswax"`
	LiquifiedSwax               model.Asset `json:"liquified_swax"`
	RevenueAwaitingDistribution model.Asset `json:"revenue_awaiting_distribution"`
	TotalRevenueDistributed     model.Asset `json:"total_revenue_distributed"`
	WaxForRedemption            model.Asset `json:"wax_for_redemption"`
	WaxAvailableForRentals      model.Asset `json:"wax_available_for_rentals"`
	IncentivesBucket            model.Asset `json:"incentives_bucket"`

	LastEpochStartTime uint64 `json:"last_epoch_start_time"`
	NextStakeallTime   uint64 `json:"next_stakeall_time"`
	NextFarmsTime      uint64 `json:"next_farms_time"`
	LastCompoundTime   uint64 `json:"last_compound_time"`
	CurrentProxyIndex  int    `json:"current_proxy_index"`
}

// RewardFarm is the Synthetix style accumulator for the 24 hour staking
// farm. RewardRate is scaled 1e8 and RewardPerTokenStored 1e16; both can
// exceed 64 bits when total supply is small, hence the wide integers.
type RewardFarm struct {
	PeriodStart          uint64      `json:"period_start"`
	PeriodFinish         uint64      `json:"period_finish"`
	LastUpdateTime       uint64      `json:"last_update_time"`
	RewardRate           uint256.Int `json:"-"`
	RewardPerTokenStored uint256.Int `json:"-"`
	RewardPool           model.Asset `json:"reward_pool"`
	TotalRewardsPaidOut  model.Asset `json:"total_rewards_paid_out"`
	TotalSupply          model.Asset `json:"total_supply"`
}

type Staker struct {
	Wallet                 model.AccountName `json:"wallet"`
	SwaxBalance            model.Asset       `json:"swax_balance"`
	ClaimableWax           model.Asset       `json:"claimable_wax"`
	LastUpdate             uint64            `json:"last_update"`
	UserRewardPerTokenPaid uint256.Int       `json:"-"`
}

// Rental is one CPU rental inside an epoch, keyed by renter plus receiver.
type Rental struct {
	Renter       model.AccountName `json:"renter"`
	CPUReceiver  model.AccountName `json:"cpu_receiver"`
	AmountStaked model.Asset       `json:"amount_staked"`
	Expires      uint64            `json:"expires"`
}

// Epoch is one weekly CPU staking round. StartTime doubles as the id.
type Epoch struct {
	StartTime                    uint64             `json:"start_time"`
	TimeToUnstake                uint64             `json:"time_to_unstake"`
	ProxyWallet                  model.AccountName  `json:"cpu_wallet"`
	WaxBucket                    model.Asset        `json:"wax_bucket"`
	WaxToRefund                  model.Asset        `json:"wax_to_refund"`
	RedemptionPeriodStart        uint64             `json:"redemption_period_start_time"`
	RedemptionPeriodEnd          uint64             `json:"redemption_period_end_time"`
	TotalCPUFundsReturned        model.Asset        `json:"total_cpu_funds_returned"`
	TotalAddedToRedemptionBucket model.Asset        `json:"total_added_to_redemption_bucket"`
	Rentals                      map[string]*Rental `json:"rentals"`
}

func rentalKey(renter, receiver model.AccountName) string {
	return fmt.Sprintf("%s|%s", renter, receiver)
}

// Incentive is one LSWAX liquidity incentive, keyed by the dex pool id.
type Incentive struct {
	PoolId          uint64       `json:"pool_id"`
	Symbol          model.Symbol `json:"symbol"`
	PercentShare1e6 uint64       `json:"percent_share_1e6"`
}

// State is the complete protocol state. Operations mutate a clone and the
// engine swaps it in only when they succeed, so a failed operation can
// never leave partial writes behind.
type State struct {
	Global      GlobalLedger                           `json:"global"`
	Rewards     RewardFarm                             `json:"rewards"`
	Settings    Settings                               `json:"settings"`
	Stakers     map[model.AccountName]*Staker          `json:"stakers"`
	Epochs      map[uint64]*Epoch                      `json:"epochs"`
	Redemptions map[model.AccountName]map[uint64]int64 `json:"redemptions"`
	Incentives  map[uint64]Incentive                   `json:"incentives"`
}

// NewState builds genesis state with the first epoch open and the protocol
// self staker registered. genesisTime anchors the weekly epoch grid and the
// daily farm grid; everything after is derived from it.
func NewState(cfg Settings, genesisTime uint64) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &State{
		Settings:    cfg.clone(),
		Stakers:     map[model.AccountName]*Staker{},
		Epochs:      map[uint64]*Epoch{},
		Redemptions: map[model.AccountName]map[uint64]int64{},
		Incentives:  map[uint64]Incentive{},
	}
	s.Global = GlobalLedger{
		SwaxEarning:                 model.NewSwax(0),
		SwaxBackingLswax:            model.NewSwax(0),
		LiquifiedSwax:               model.NewLswax(0),
		RevenueAwaitingDistribution: model.NewWax(0),
		TotalRevenueDistributed:     model.NewWax(0),
		WaxForRedemption:            model.NewWax(0),
		WaxAvailableForRentals:      model.NewWax(0),
		IncentivesBucket:            model.NewLswax(0),
		LastEpochStartTime:          genesisTime,
		NextStakeallTime:            genesisTime + cfg.SecondsBetweenStakeall,
		NextFarmsTime:               genesisTime + cfg.SecondsBetweenEpochs,
		LastCompoundTime:            genesisTime,
	}
	s.Rewards = RewardFarm{
		PeriodStart:         genesisTime,
		PeriodFinish:        genesisTime + cfg.FarmDurationSeconds,
		LastUpdateTime:      genesisTime,
		RewardPool:          model.NewWax(0),
		TotalRewardsPaidOut: model.NewWax(0),
		TotalSupply:         model.NewSwax(0),
	}
	s.Stakers[cfg.ProtocolAccount] = &Staker{
		Wallet:       cfg.ProtocolAccount,
		SwaxBalance:  model.NewSwax(0),
		ClaimableWax: model.NewWax(0),
		LastUpdate:   genesisTime,
	}
	s.createEpoch(genesisTime, cfg.Proxies[s.Global.CurrentProxyIndex], model.NewWax(0))
	return s, nil
}

func (s *State) Clone() *State {
	out := &State{
		Global:      s.Global,
		Rewards:     s.Rewards,
		Settings:    s.Settings.clone(),
		Stakers:     make(map[model.AccountName]*Staker, len(s.Stakers)),
		Epochs:      make(map[uint64]*Epoch, len(s.Epochs)),
		Redemptions: make(map[model.AccountName]map[uint64]int64, len(s.Redemptions)),
		Incentives:  make(map[uint64]Incentive, len(s.Incentives)),
	}
	for k, v := range s.Stakers {
		cp := *v
		out.Stakers[k] = &cp
	}
	for k, v := range s.Epochs {
		ep := *v
		ep.Rentals = make(map[string]*Rental, len(v.Rentals))
		for rk, rv := range v.Rentals {
			rcp := *rv
			ep.Rentals[rk] = &rcp
		}
		out.Epochs[k] = &ep
	}
	for k, v := range s.Redemptions {
		reqs := make(map[uint64]int64, len(v))
		for ek, ev := range v {
			reqs[ek] = ev
		}
		out.Redemptions[k] = reqs
	}
	for k, v := range s.Incentives {
		out.Incentives[k] = v
	}
	return out
}

// selfStaker is the protocol row whose balance mirrors SwaxBackingLswax.
func (s *State) selfStaker() *Staker {
	return s.Stakers[s.Settings.ProtocolAccount]
}

func (s *State) getOrCreateStaker(wallet model.AccountName, now uint64) *Staker {
	if st, ok := s.Stakers[wallet]; ok {
		return st
	}
	st := &Staker{
		Wallet:                 wallet,
		SwaxBalance:            model.NewSwax(0),
		ClaimableWax:           model.NewWax(0),
		LastUpdate:             now,
		UserRewardPerTokenPaid: s.Rewards.RewardPerTokenStored,
	}
	s.Stakers[wallet] = st
	return st
}

// checkConsistency enforces the conservation rules after every successful
// operation. A failure here is a bug, not a user error, so it panics.
func (s *State) checkConsistency() {
	if s.Rewards.TotalRewardsPaidOut.Amount > s.Rewards.RewardPool.Amount {
		panic(fmt.Sprintf("rewards paid out %s exceed reward pool %s",
			s.Rewards.TotalRewardsPaidOut, s.Rewards.RewardPool))
	}
	self := s.selfStaker()
	if self == nil || self.SwaxBalance.Amount != s.Global.SwaxBackingLswax.Amount {
		panic("protocol self stake does not mirror swax backing lswax")
	}
	sum := int64(0)
	for _, st := range s.Stakers {
		if st.SwaxBalance.Amount < 0 || st.ClaimableWax.Amount < 0 {
			panic(fmt.Sprintf("negative staker balance for %s", st.Wallet))
		}
		sum = safemath.Add(sum, st.SwaxBalance.Amount)
	}
	issued := safemath.Add(s.Global.SwaxEarning.Amount, s.Global.SwaxBackingLswax.Amount)
	if sum != issued {
		panic(fmt.Sprintf("staker balances %d do not sum to issued swax %d", sum, issued))
	}
	if s.Rewards.TotalSupply.Amount != issued {
		panic(fmt.Sprintf("farm supply %d does not match issued swax %d", s.Rewards.TotalSupply.Amount, issued))
	}
	for _, b := range []model.Asset{
		s.Global.RevenueAwaitingDistribution, s.Global.WaxForRedemption,
		s.Global.WaxAvailableForRentals, s.Global.IncentivesBucket, s.Global.LiquifiedSwax,
	} {
		if b.Amount < 0 {
			panic(fmt.Sprintf("negative bucket %s", b))
		}
	}
}
