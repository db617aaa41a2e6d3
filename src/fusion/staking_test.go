package fusion

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
)

// The daily split with shares at 85/7/8 and revenue well under the APR cap.
func TestDailyDistributionSplit(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 1000000*int64(model.WaxDigitMultiplier), genesis+100)
	depositRevenue(t, eng, 100*int64(model.WaxDigitMultiplier), genesis+200)

	// First touch past the 24h boundary settles the finished farm and
	// slices the revenue bucket.
	if err := eng.StakeAllCPU(genesis + day + 10); err != nil {
		t.Fatal(err)
	}

	g := eng.GlobalLedger()
	if g.RevenueAwaitingDistribution.Amount != 0 {
		t.Fatalf("expected the whole bucket distributed, got %s", g.RevenueAwaitingDistribution)
	}
	if g.TotalRevenueDistributed.Amount != 10000000000 {
		t.Fatalf("expected 100 WAX distributed, got %s", g.TotalRevenueDistributed)
	}
	farm := eng.RewardFarm()
	if farm.RewardPool.Amount != 8500000000 {
		t.Fatalf("expected the 85%% staker slice in the pool, got %s", farm.RewardPool)
	}
	if got := farm.RewardRate.Uint64(); got != 9837962962962 {
		t.Fatalf("expected reward rate 9837962962962, got %d", got)
	}
	if farm.PeriodStart != genesis+day || farm.PeriodFinish != genesis+2*day {
		t.Fatalf("farm period off the daily grid: [%d, %d)", farm.PeriodStart, farm.PeriodFinish)
	}

	polPaid := lastTransferTo(t, chain, "pol.fusion")
	if polPaid.Quantity.Amount != 700000000 {
		t.Fatalf("expected the 7%% pol slice, got %s", polPaid.Quantity)
	}
	if g.IncentivesBucket.Amount != 800000000 {
		t.Fatalf("expected the 8%% ecosystem slice as LSWAX, got %s", g.IncentivesBucket)
	}
	if g.SwaxBackingLswax.Amount != 800000000 {
		t.Fatalf("ecosystem slice must be backed by self staked SWAX, got %s", g.SwaxBackingLswax)
	}
	assertConservation(t, eng, chain)
}

func TestDistributionPolDeclineKeepsSlice(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	chain.PolAccepts = false
	stakeWax(t, eng, "alice", 1000000*int64(model.WaxDigitMultiplier), genesis+100)
	depositRevenue(t, eng, 100*int64(model.WaxDigitMultiplier), genesis+200)

	if err := eng.StakeAllCPU(genesis + day + 10); err != nil {
		t.Fatal(err)
	}
	g := eng.GlobalLedger()
	if g.RevenueAwaitingDistribution.Amount != 700000000 {
		t.Fatalf("a declined pol slice must stay queued, got %s", g.RevenueAwaitingDistribution)
	}
	if g.TotalRevenueDistributed.Amount != 9300000000 {
		t.Fatalf("expected only the user and ecosystem slices distributed, got %s", g.TotalRevenueDistributed)
	}
}

// With a tiny supply the APR cap, not the bucket, bounds the distribution.
func TestDistributionAprCap(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 10*int64(model.WaxDigitMultiplier), genesis+100)
	depositRevenue(t, eng, 100*int64(model.WaxDigitMultiplier), genesis+200)

	if err := eng.StakeAllCPU(genesis + day + 10); err != nil {
		t.Fatal(err)
	}

	// Gross cap: 12% apr grossed up by the 85% user share over 10 SWAX,
	// divided over 365 days, is 386784 raw. Slices round down and the
	// 2 raw leftover lands on the staker slice.
	farm := eng.RewardFarm()
	if farm.RewardPool.Amount != 328768 {
		t.Fatalf("expected reward pool 328768, got %d", farm.RewardPool.Amount)
	}
	g := eng.GlobalLedger()
	if g.IncentivesBucket.Amount != 30942 {
		t.Fatalf("expected ecosystem slice 30942, got %d", g.IncentivesBucket.Amount)
	}
	if g.RevenueAwaitingDistribution.Amount != 10000000000-386784 {
		t.Fatalf("expected the rest of the bucket held back, got %s", g.RevenueAwaitingDistribution)
	}
	polPaid := lastTransferTo(t, chain, "pol.fusion")
	if polPaid.Quantity.Amount != 27074 {
		t.Fatalf("expected pol slice 27074, got %d", polPaid.Quantity.Amount)
	}
	assertConservation(t, eng, chain)
}

func TestClaimRewardsFullDay(t *testing.T) {
	eng, chain := newTestEngine(t, func(cfg *Settings) {
		cfg.UserShare1e6 = OneHundredPercent1e6
		cfg.PolShare1e6 = 0
		cfg.EcosystemShare1e6 = 0
	})
	stakeWax(t, eng, "alice", 1000000*int64(model.WaxDigitMultiplier), genesis+100)
	depositRevenue(t, eng, 100*int64(model.WaxDigitMultiplier), genesis+200)
	if err := eng.StakeAllCPU(genesis + day); err != nil {
		t.Fatal(err)
	}

	// A full farm period later, alice holds the entire supply so she earns
	// the whole pool less integer truncation in the rate.
	pending, err := eng.PendingRewards("alice", genesis+2*day)
	if err != nil {
		t.Fatal(err)
	}
	if pending.Amount != 9999999999 {
		t.Fatalf("expected pending 9999999999, got %d", pending.Amount)
	}
	if err := eng.ClaimRewards("alice", genesis+2*day+1); err != nil {
		t.Fatal(err)
	}
	paid := lastTransferTo(t, chain, "alice")
	if paid.Quantity.Amount != 9999999999 || paid.Quantity.Symbol != model.WAX {
		t.Fatalf("expected 99.99999999 WAX paid, got %s", paid.Quantity)
	}
	farm := eng.RewardFarm()
	if farm.TotalRewardsPaidOut.Amount != 9999999999 {
		t.Fatalf("paid out ledger off: %s", farm.TotalRewardsPaidOut)
	}

	if err := eng.ClaimRewards("alice", genesis+2*day+2); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim on the second claim, got %v", err)
	}
}

func TestClaimSwaxFoldsIntoPrincipal(t *testing.T) {
	eng, chain := newTestEngine(t, func(cfg *Settings) {
		cfg.UserShare1e6 = OneHundredPercent1e6
		cfg.PolShare1e6 = 0
		cfg.EcosystemShare1e6 = 0
	})
	stakeWax(t, eng, "alice", 1000000*int64(model.WaxDigitMultiplier), genesis+100)
	depositRevenue(t, eng, 100*int64(model.WaxDigitMultiplier), genesis+200)
	if err := eng.StakeAllCPU(genesis + day); err != nil {
		t.Fatal(err)
	}

	if err := eng.ClaimSwax("alice", genesis+2*day+1); err != nil {
		t.Fatal(err)
	}
	st, _ := eng.StakerInfo("alice")
	if st.SwaxBalance.Amount != 100000000000000+9999999999 {
		t.Fatalf("expected rewards folded into principal, got %s", st.SwaxBalance)
	}
	if st.ClaimableWax.Amount != 0 {
		t.Fatalf("claimable must be zero after folding, got %s", st.ClaimableWax)
	}
	assertConservation(t, eng, chain)
}

func TestClaimAsLswaxMintsAtBootstrapRate(t *testing.T) {
	eng, chain := newTestEngine(t, func(cfg *Settings) {
		cfg.UserShare1e6 = OneHundredPercent1e6
		cfg.PolShare1e6 = 0
		cfg.EcosystemShare1e6 = 0
	})
	stakeWax(t, eng, "alice", 1000000*int64(model.WaxDigitMultiplier), genesis+100)
	depositRevenue(t, eng, 100*int64(model.WaxDigitMultiplier), genesis+200)
	if err := eng.StakeAllCPU(genesis + day); err != nil {
		t.Fatal(err)
	}

	// Asking for one raw unit more than the accrued pool trips the
	// slippage bound and leaves the claim pending.
	err := eng.ClaimAsLswax("alice", model.NewLswax(10000000000), genesis+2*day+1)
	if !errors.Is(err, ErrSlippage) {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}
	if err := eng.ClaimAsLswax("alice", model.NewLswax(9999999999), genesis+2*day+1); err != nil {
		t.Fatal(err)
	}

	// Nothing was liquified before the claim, so LSWAX mints 1:1. The
	// claimed SWAX lands on the protocol self stake, not on alice.
	g := eng.GlobalLedger()
	if g.SwaxBackingLswax.Amount != 9999999999 || g.LiquifiedSwax.Amount != 9999999999 {
		t.Fatalf("backing/liquified ledgers off: %s / %s", g.SwaxBackingLswax, g.LiquifiedSwax)
	}
	st, _ := eng.StakerInfo("alice")
	if st.SwaxBalance.Amount != 100000000000000 || st.ClaimableWax.Amount != 0 {
		t.Fatalf("alice row should keep its principal only, got %s / %s", st.SwaxBalance, st.ClaimableWax)
	}
	assertConservation(t, eng, chain)

	if err := eng.ClaimAsLswax("bob", model.NewLswax(0), genesis+2*day+2); !errors.Is(err, ErrStakerNotFound) {
		t.Fatalf("expected ErrStakerNotFound for bob, got %v", err)
	}
}

func TestCompoundLiftsExchangeRate(t *testing.T) {
	eng, chain := newTestEngine(t, func(cfg *Settings) {
		cfg.UserShare1e6 = OneHundredPercent1e6
		cfg.PolShare1e6 = 0
		cfg.EcosystemShare1e6 = 0
	})
	stakeWax(t, eng, "alice", 1000000*int64(model.WaxDigitMultiplier), genesis+100)
	if err := eng.Liquify("alice", model.NewSwax(100000000000000), genesis+200); err != nil {
		t.Fatal(err)
	}
	depositRevenue(t, eng, 100*int64(model.WaxDigitMultiplier), genesis+300)
	if err := eng.StakeAllCPU(genesis + day); err != nil {
		t.Fatal(err)
	}

	// 300 seconds into the period the self stake has accrued exactly
	// 1/288 of the daily pool.
	if err := eng.Compound(genesis + day + 300); err != nil {
		t.Fatal(err)
	}
	g := eng.GlobalLedger()
	if g.SwaxBackingLswax.Amount != 100000000000000+34722222 {
		t.Fatalf("expected backing lifted by 0.34722222 WAX, got %s", g.SwaxBackingLswax)
	}
	if rate := eng.ExchangeRate(); rate <= 1.0 {
		t.Fatalf("expected the rate above 1.0, got %f", rate)
	}

	if err := eng.Compound(genesis + day + 310); !errors.Is(err, ErrCompoundCooldown) {
		t.Fatalf("expected ErrCompoundCooldown, got %v", err)
	}
	assertConservation(t, eng, chain)
}

func TestCompoundNothingAccrued(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+100)
	if err := eng.Compound(genesis + 400); !errors.Is(err, ErrNothingToCompound) {
		t.Fatalf("expected ErrNothingToCompound, got %v", err)
	}
}
