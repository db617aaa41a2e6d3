package fusion

import (
	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
)

const ( // percentages are scaled 1e6, so 100% == 100000000
	OneHundredPercent1e6 = uint64(100000000)
	OnePercent1e6        = uint64(1000000)
)

const SecondsPerDay = uint64(86400)

// Settings holds every protocol parameter the admin surface can touch,
// plus the timing constants the scheduler runs on. It lives inside State
// so parameter changes commit atomically with everything else.
type Settings struct {
	ProtocolAccount model.AccountName `yaml:"protocol_account" json:"protocol_account"`
	PolAccount      model.AccountName `yaml:"pol_account" json:"pol_account"`
	DexAccount      model.AccountName `yaml:"dex_account" json:"dex_account"`

	Admins              []model.AccountName `yaml:"admins" json:"admins"`
	Proxies             []model.AccountName `yaml:"cpu_proxies" json:"cpu_proxies"`
	FallbackCPUReceiver model.AccountName   `yaml:"fallback_cpu_receiver" json:"fallback_cpu_receiver"`

	EpochLengthSeconds      uint64 `yaml:"epoch_length_seconds" json:"epoch_length_seconds"`
	SecondsBetweenEpochs    uint64 `yaml:"seconds_between_epochs" json:"seconds_between_epochs"`
	SecondsBetweenStakeall  uint64 `yaml:"seconds_between_stakeall" json:"seconds_between_stakeall"`
	RedemptionPeriodSeconds uint64 `yaml:"redemption_period_seconds" json:"redemption_period_seconds"`
	UnstakeLeadSeconds      uint64 `yaml:"unstake_lead_seconds" json:"unstake_lead_seconds"`
	RefundDelaySeconds      uint64 `yaml:"refund_delay_seconds" json:"refund_delay_seconds"`
	FarmDurationSeconds     uint64 `yaml:"farm_duration_seconds" json:"farm_duration_seconds"`
	CompoundCooldownSeconds uint64 `yaml:"compound_cooldown_seconds" json:"compound_cooldown_seconds"`

	UserShare1e6      uint64 `yaml:"user_share_1e6" json:"user_share_1e6"`
	PolShare1e6       uint64 `yaml:"pol_share_1e6" json:"pol_share_1e6"`
	EcosystemShare1e6 uint64 `yaml:"ecosystem_share_1e6" json:"ecosystem_share_1e6"`
	MaxStakerApr1e6   uint64 `yaml:"max_staker_apr_1e6" json:"max_staker_apr_1e6"`
	ProtocolFee1e6    uint64 `yaml:"protocol_fee_1e6" json:"protocol_fee_1e6"`

	CostToRent1Wax   model.Asset `yaml:"cost_to_rent_1_wax" json:"cost_to_rent_1_wax"`
	MinimumStake     model.Asset `yaml:"minimum_stake" json:"minimum_stake"`
	MinimumRental    model.Asset `yaml:"minimum_rental" json:"minimum_rental"`
	MaximumRental    model.Asset `yaml:"maximum_rental" json:"maximum_rental"`
	StakeUnusedFunds bool        `yaml:"stake_unused_funds" json:"stake_unused_funds"`
}

func DefaultSettings() Settings {
	return Settings{
		ProtocolAccount: "dapp.fusion",
		PolAccount:      "pol.fusion",
		DexAccount:      "swap.alcor",

		Proxies:             []model.AccountName{"cpu1.fusion", "cpu2.fusion", "cpu3.fusion"},
		FallbackCPUReceiver: "idle.fusion",

		EpochLengthSeconds:      14 * SecondsPerDay,
		SecondsBetweenEpochs:    7 * SecondsPerDay,
		SecondsBetweenStakeall:  SecondsPerDay,
		RedemptionPeriodSeconds: 2 * SecondsPerDay,
		UnstakeLeadSeconds:      3 * SecondsPerDay,
		RefundDelaySeconds:      3 * SecondsPerDay,
		FarmDurationSeconds:     SecondsPerDay,
		CompoundCooldownSeconds: 300,

		UserShare1e6:      85 * OnePercent1e6,
		PolShare1e6:       7 * OnePercent1e6,
		EcosystemShare1e6: 8 * OnePercent1e6,
		MaxStakerApr1e6:   12 * OnePercent1e6,
		ProtocolFee1e6:    50000, // 0.05% instant redeem fee

		CostToRent1Wax:   model.NewWax(120), // 0.00000120 WAX per staked WAX per day
		MinimumStake:     model.NewWax(1 * model.WaxDigitMultiplier),
		MinimumRental:    model.NewWax(10 * model.WaxDigitMultiplier),
		MaximumRental:    model.NewWax(10000000 * model.WaxDigitMultiplier),
		StakeUnusedFunds: true,
	}
}

func (s *Settings) Validate() error {
	if s.ProtocolAccount == "" || s.PolAccount == "" {
		return errors.New("protocol and pol accounts are required")
	}
	if len(s.Proxies) == 0 {
		return errors.New("at least one cpu proxy is required")
	}
	if s.UserShare1e6+s.PolShare1e6+s.EcosystemShare1e6 != OneHundredPercent1e6 {
		return errors.New("revenue shares must sum to exactly 100%")
	}
	if s.SecondsBetweenEpochs == 0 || s.EpochLengthSeconds%s.SecondsBetweenEpochs != 0 {
		return errors.New("epoch length must be a multiple of the epoch spacing")
	}
	if s.UnstakeLeadSeconds >= s.EpochLengthSeconds {
		return errors.New("unstake lead must be shorter than the epoch")
	}
	if !s.CostToRent1Wax.IsPositive() {
		return errors.New("rent price must be positive")
	}
	return nil
}

func (s *Settings) clone() Settings {
	out := *s
	out.Admins = append([]model.AccountName(nil), s.Admins...)
	out.Proxies = append([]model.AccountName(nil), s.Proxies...)
	return out
}

func (s *Settings) isAdmin(account model.AccountName) bool {
	if account == s.ProtocolAccount {
		return true
	}
	for _, a := range s.Admins {
		if a == account {
			return true
		}
	}
	return false
}
