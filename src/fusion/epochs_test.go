package fusion

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/waxapi"
)

func TestEpochSyncRotatesProxies(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+100)

	// Three weeks of silence; the next committed operation back-fills the
	// missed epochs with the proxy rotation intact.
	stakeWax(t, eng, "alice", 100*int64(model.WaxDigitMultiplier), genesis+3*week+5)

	for _, tc := range []struct {
		start uint64
		proxy model.AccountName
	}{
		{genesis, "cpu1.fusion"},
		{genesis + week, "cpu2.fusion"},
		{genesis + 2*week, "cpu3.fusion"},
		{genesis + 3*week, "cpu1.fusion"},
	} {
		ep, ok := eng.EpochInfo(tc.start)
		if !ok {
			t.Fatalf("expected an epoch starting at %d", tc.start)
		}
		if ep.ProxyWallet != tc.proxy {
			t.Fatalf("epoch %d: expected proxy %s, got %s", tc.start, tc.proxy, ep.ProxyWallet)
		}
		if ep.TimeToUnstake != tc.start+11*day {
			t.Fatalf("epoch %d: unstake time off: %d", tc.start, ep.TimeToUnstake)
		}
		if ep.RedemptionPeriodStart != tc.start+14*day || ep.RedemptionPeriodEnd != tc.start+16*day {
			t.Fatalf("epoch %d: redemption window off: [%d, %d)", tc.start, ep.RedemptionPeriodStart, ep.RedemptionPeriodEnd)
		}
	}
}

// The sweep must run with stock settings, no toggle needed.
func TestStakeAllCPUDailyCadence(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 500*int64(model.WaxDigitMultiplier), genesis+100)

	if err := eng.StakeAllCPU(genesis + day + 5); err != nil {
		t.Fatal(err)
	}
	g := eng.GlobalLedger()
	if g.WaxAvailableForRentals.Amount != 0 {
		t.Fatalf("expected the idle pool swept, got %s", g.WaxAvailableForRentals)
	}
	ep, ok := eng.EpochInfo(genesis + week)
	if !ok || ep.WaxBucket.Amount != 50000000000 {
		t.Fatalf("expected the funds on the next epoch, got %+v", ep)
	}
	if got := chain.DelegatedTo("cpu2.fusion"); got != 50000000000 {
		t.Fatalf("expected 500 WAX delegated to cpu2.fusion, got %d", got)
	}

	if err := eng.StakeAllCPU(genesis + day + 10); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly inside the same day, got %v", err)
	}
}

func TestUnstakeCPU(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 500*int64(model.WaxDigitMultiplier), genesis+100)
	if err := eng.StakeAllCPU(genesis + day + 5); err != nil {
		t.Fatal(err)
	}

	if err := eng.UnstakeCPU(0, -1, genesis+day+20); !errors.Is(err, ErrEpochNotFound) {
		t.Fatalf("expected ErrEpochNotFound for the default epoch this early, got %v", err)
	}
	if err := eng.UnstakeCPU(genesis+week, -1, genesis+day+20); !errors.Is(err, ErrTooEarlyToUnstake) {
		t.Fatalf("expected ErrTooEarlyToUnstake, got %v", err)
	}
	if err := eng.UnstakeCPU(genesis+week, 0, genesis+18*day+5); !errors.Is(err, ErrNothingToUnstake) {
		t.Fatalf("expected the proxy check to reject index 0, got %v", err)
	}

	if err := eng.UnstakeCPU(genesis+week, -1, genesis+18*day+5); err != nil {
		t.Fatal(err)
	}
	if got := chain.DelegatedTo("cpu2.fusion"); got != 0 {
		t.Fatalf("expected the delegation released, got %d", got)
	}
	refund, ok := chain.PendingRefund("cpu2.fusion")
	if !ok || refund.Amount.Amount != 50000000000 {
		t.Fatalf("expected a pending refund of 500 WAX, got %+v", refund)
	}

	if err := eng.UnstakeCPU(genesis+week, -1, genesis+18*day+10); !errors.Is(err, ErrNothingToUnstake) {
		t.Fatalf("expected ErrNothingToUnstake after the release, got %v", err)
	}
}

// The full CPU return path: unstake, wait out the refund delay, claim, and
// watch the refund fill the redemption bucket before the rental pool.
func TestClaimRefundsFillsRedemptionShortfall(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 500*int64(model.WaxDigitMultiplier), genesis+100)
	if err := eng.StakeAllCPU(genesis + day + 5); err != nil {
		t.Fatal(err)
	}
	if err := eng.RequestRedeem("alice", model.NewSwax(15000000000), false, genesis+2*day); err != nil {
		t.Fatal(err)
	}
	if err := eng.UnstakeCPU(genesis+week, -1, genesis+18*day+5); err != nil {
		t.Fatal(err)
	}

	if err := eng.ClaimRefunds(genesis + 18*day + 10); !errors.Is(err, ErrNoRefundsToClaim) {
		t.Fatalf("expected nothing claimable before the refund delay, got %v", err)
	}
	if err := eng.ClaimRefunds(genesis + 21*day + 10); err != nil {
		t.Fatal(err)
	}

	g := eng.GlobalLedger()
	if g.WaxForRedemption.Amount != 15000000000 {
		t.Fatalf("expected the redemption bucket topped up first, got %s", g.WaxForRedemption)
	}
	if g.WaxAvailableForRentals.Amount != 35000000000 {
		t.Fatalf("expected the remainder in the rental pool, got %s", g.WaxAvailableForRentals)
	}
	ep, _ := eng.EpochInfo(genesis + week)
	if ep.TotalCPUFundsReturned.Amount != 50000000000 {
		t.Fatalf("expected the full bucket returned, got %s", ep.TotalCPUFundsReturned)
	}
	if ep.TotalAddedToRedemptionBucket.Amount != 15000000000 {
		t.Fatalf("redemption fill ledger off: %s", ep.TotalAddedToRedemptionBucket)
	}

	// The window for this epoch is open; the queued request pays out.
	if err := eng.Redeem("alice", genesis+21*day+20); err != nil {
		t.Fatal(err)
	}
	paid := lastTransferTo(t, chain, "alice")
	if paid.Quantity.Amount != 15000000000 || paid.Quantity.Symbol != model.WAX {
		t.Fatalf("expected 150 WAX redeemed, got %s", paid.Quantity)
	}
	st, _ := eng.StakerInfo("alice")
	if st.SwaxBalance.Amount != 35000000000 {
		t.Fatalf("expected 350 SWAX left staked, got %s", st.SwaxBalance)
	}
	if err := eng.Redeem("alice", genesis+21*day+30); !errors.Is(err, ErrNoRequestsToFill) {
		t.Fatalf("expected ErrNoRequestsToFill after paying out, got %v", err)
	}
	assertConservation(t, eng, chain)
}

func TestReallocateAfterWindowsClose(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 500*int64(model.WaxDigitMultiplier), genesis+100)
	if err := eng.StakeAllCPU(genesis + day + 5); err != nil {
		t.Fatal(err)
	}
	if err := eng.RequestRedeem("alice", model.NewSwax(15000000000), false, genesis+2*day); err != nil {
		t.Fatal(err)
	}
	if err := eng.UnstakeCPU(genesis+week, -1, genesis+18*day+5); err != nil {
		t.Fatal(err)
	}
	if err := eng.ClaimRefunds(genesis + 21*day + 10); err != nil {
		t.Fatal(err)
	}

	// Nobody redeems. While the window is open the bucket is off limits.
	if err := eng.Reallocate(genesis + 22*day); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly with the window open, got %v", err)
	}

	if err := eng.ClearExpired("alice", genesis+23*day+10); err != nil {
		t.Fatal(err)
	}
	if reqs := eng.RedemptionRequests("alice"); len(reqs) != 0 {
		t.Fatalf("expected the expired request cleared, got %v", reqs)
	}
	if err := eng.Reallocate(genesis + 23*day + 20); err != nil {
		t.Fatal(err)
	}
	g := eng.GlobalLedger()
	if g.WaxForRedemption.Amount != 0 {
		t.Fatalf("expected the redemption bucket drained, got %s", g.WaxForRedemption)
	}
	if g.WaxAvailableForRentals.Amount != 50000000000 {
		t.Fatalf("expected the full bucket back in the rental pool, got %s", g.WaxAvailableForRentals)
	}
}

func TestRentCPU(t *testing.T) {
	eng, chain := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 1000*int64(model.WaxDigitMultiplier), genesis+100)

	rent := func(payment int64, now uint64) error {
		return eng.HandleDeposit(waxapi.Deposit{
			From:     "bob",
			Quantity: model.NewWax(payment),
			Memo:     "|rent_cpu|bob.game|500|0|",
		}, now)
	}

	now := genesis + 100000
	// 850400 seconds remain in the running epoch; 500 WAX at the default
	// price works out to 590555 raw.
	if err := rent(100, now); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected underpayment rejected, got %v", err)
	}
	if err := rent(int64(model.WaxDigitMultiplier), now); err != nil {
		t.Fatal(err)
	}

	g := eng.GlobalLedger()
	if g.WaxAvailableForRentals.Amount != 50000000000 {
		t.Fatalf("expected 500 WAX left in the pool, got %s", g.WaxAvailableForRentals)
	}
	if g.RevenueAwaitingDistribution.Amount != 590555 {
		t.Fatalf("expected the rental fee in revenue, got %s", g.RevenueAwaitingDistribution)
	}
	if got := chain.DelegatedTo("cpu1.fusion"); got != 50000000000 {
		t.Fatalf("expected 500 WAX delegated for the rental, got %d", got)
	}
	refund := lastTransferTo(t, chain, "bob")
	if refund.Quantity.Amount != int64(model.WaxDigitMultiplier)-590555 {
		t.Fatalf("expected the overpayment refunded, got %s", refund.Quantity)
	}

	ep, _ := eng.EpochInfo(genesis)
	rental, ok := ep.Rentals["bob|bob.game"]
	if !ok || rental.AmountStaked.Amount != 50000000000 {
		t.Fatalf("expected a 500 WAX rental row, got %+v", rental)
	}
	if rental.Expires != genesis+14*day {
		t.Fatalf("rental expiry off: %d", rental.Expires)
	}

	// Renting again for the same receiver extends the existing row.
	if err := rent(int64(model.WaxDigitMultiplier), now+50); err != nil {
		t.Fatal(err)
	}
	ep, _ = eng.EpochInfo(genesis)
	if ep.Rentals["bob|bob.game"].AmountStaked.Amount != 100000000000 {
		t.Fatalf("expected the rental extended to 1000 WAX, got %s", ep.Rentals["bob|bob.game"].AmountStaked)
	}

	// The pool is empty now.
	if err := rent(int64(model.WaxDigitMultiplier), now+100); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected an empty pool rejection, got %v", err)
	}
}

func TestRentCPUBounds(t *testing.T) {
	eng, _ := newTestEngine(t, nil)
	stakeWax(t, eng, "alice", 1000*int64(model.WaxDigitMultiplier), genesis+100)

	err := eng.HandleDeposit(waxapi.Deposit{
		From:     "bob",
		Quantity: model.NewWax(int64(model.WaxDigitMultiplier)),
		Memo:     "|rent_cpu|bob.game|5|0|",
	}, genesis+100000)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected the 10 WAX floor enforced, got %v", err)
	}
}
