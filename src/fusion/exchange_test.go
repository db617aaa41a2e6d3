package fusion

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/waxapi"
)

func TestStakeDeposit(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 10*int64(model.WaxDigitMultiplier), genesis+100)

	g := eng.GlobalLedger()
	if g.SwaxEarning.Amount != 1000000000 {
		t.Fatalf("expected 10 SWAX earning, got %s", g.SwaxEarning)
	}
	if g.WaxAvailableForRentals.Amount != 1000000000 {
		t.Fatalf("expected the full stake in the rental pool, got %s", g.WaxAvailableForRentals)
	}
	farm := eng.RewardFarm()
	if farm.TotalSupply.Amount != 1000000000 {
		t.Fatalf("expected farm supply 10 SWAX, got %s", farm.TotalSupply)
	}
	st, ok := eng.StakerInfo("alice")
	if !ok || st.SwaxBalance.Amount != 1000000000 {
		t.Fatalf("expected alice to hold 10 SWAX, got %+v", st)
	}
	if got := chain.Balance("alice", model.SWAX); got != 1000000000 {
		t.Fatalf("expected 10 SWAX issued to alice, got %d", got)
	}
	assertConservation(t, eng, chain)
}

func TestStakeBelowMinimum(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	err := eng.HandleDeposit(waxapi.Deposit{
		From:     "alice",
		Quantity: model.NewWax(5000000), // 0.05 WAX
		Memo:     "stake",
	}, genesis+100)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if g := eng.GlobalLedger(); g.SwaxEarning.Amount != 0 {
		t.Fatalf("rejected stake must not move the ledger, got %s", g.SwaxEarning)
	}
}

func TestLiquifyBootstrapRate(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+100)

	if err := eng.Liquify("alice", model.NewSwax(4000000000), genesis+200); err != nil {
		t.Fatal(err)
	}
	g := eng.GlobalLedger()
	if g.LiquifiedSwax.Amount != 4000000000 {
		t.Fatalf("expected 40 LSWAX at the 1:1 bootstrap rate, got %s", g.LiquifiedSwax)
	}
	if g.SwaxBackingLswax.Amount != 4000000000 || g.SwaxEarning.Amount != 6000000000 {
		t.Fatalf("backing/earning split wrong: %s / %s", g.SwaxBackingLswax, g.SwaxEarning)
	}
	if got := chain.Balance("alice", model.LSWAX); got != 4000000000 {
		t.Fatalf("expected 40 LSWAX issued to alice, got %d", got)
	}

	// Roundtrip: at rate 1.0 unliquifying returns the exact SWAX amount.
	err := eng.HandleDeposit(waxapi.Deposit{
		From:     "alice",
		Quantity: model.NewLswax(1000000000),
		Memo:     "unliquify",
	}, genesis+300)
	if err != nil {
		t.Fatal(err)
	}
	g = eng.GlobalLedger()
	if g.LiquifiedSwax.Amount != 3000000000 || g.SwaxEarning.Amount != 7000000000 {
		t.Fatalf("unliquify did not restore the split: %s / %s", g.LiquifiedSwax, g.SwaxEarning)
	}
	st, _ := eng.StakerInfo("alice")
	if st.SwaxBalance.Amount != 7000000000 {
		t.Fatalf("expected alice back at 70 SWAX, got %s", st.SwaxBalance)
	}
	assertConservation(t, eng, chain)
}

func TestLiquifyInsufficientBalance(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+100)

	err := eng.Liquify("alice", model.NewSwax(20000000000), genesis+200)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if err := eng.Liquify("bob", model.NewSwax(100000000), genesis+200); !errors.Is(err, ErrStakerNotFound) {
		t.Fatalf("expected ErrStakerNotFound, got %v", err)
	}
}

func TestUnliquifyExactSlippage(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+100)
	if err := eng.Liquify("alice", model.NewSwax(4000000000), genesis+200); err != nil {
		t.Fatal(err)
	}

	deposit := waxapi.Deposit{
		From:     "alice",
		Quantity: model.NewLswax(1000000000),
		Memo:     "|unliquify_exact|1000000001|",
	}
	if err := eng.HandleDeposit(deposit, genesis+300); !errors.Is(err, ErrSlippage) {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}

	deposit.Memo = "|unliquify_exact|1000000000|"
	if err := eng.HandleDeposit(deposit, genesis+300); err != nil {
		t.Fatalf("exact minimum should pass, got %v", err)
	}
}

func TestLiquifyExactSlippage(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+100)

	err := eng.LiquifyExact("alice", model.NewSwax(1000000000), model.NewLswax(1000000001), genesis+200)
	if !errors.Is(err, ErrSlippage) {
		t.Fatalf("expected ErrSlippage, got %v", err)
	}
	if err := eng.LiquifyExact("alice", model.NewSwax(1000000000), model.NewLswax(1000000000), genesis+200); err != nil {
		t.Fatalf("exact minimum should pass, got %v", err)
	}
}

func TestInstaRedeemTakesFee(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+100)

	if err := eng.InstaRedeem("alice", model.NewSwax(4000000000), genesis+200); err != nil {
		t.Fatal(err)
	}
	g := eng.GlobalLedger()
	// 0.05% of 40 WAX is 0.02 WAX.
	if g.RevenueAwaitingDistribution.Amount != 2000000 {
		t.Fatalf("expected the 0.02 WAX fee in revenue, got %s", g.RevenueAwaitingDistribution)
	}
	if g.WaxAvailableForRentals.Amount != 6000000000 {
		t.Fatalf("expected 60 WAX left in the rental pool, got %s", g.WaxAvailableForRentals)
	}
	paid := lastTransferTo(t, chain, "alice")
	if paid.Quantity.Amount != 3998000000 {
		t.Fatalf("expected alice paid 39.98 WAX, got %s", paid.Quantity)
	}
	assertConservation(t, eng, chain)
}
