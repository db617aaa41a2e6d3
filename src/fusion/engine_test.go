package fusion

import (
	"testing"

	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/waxapi"
)

const genesis = uint64(1700000000)

const day = SecondsPerDay
const week = 7 * SecondsPerDay

func newTestEngine(t *testing.T, mutate func(cfg *Settings)) (*Engine, *waxapi.MockChain) {
	t.Helper()
	cfg := DefaultSettings()
	if mutate != nil {
		mutate(&cfg)
	}
	st, err := NewState(cfg, genesis)
	if err != nil {
		t.Fatal(err)
	}
	chain := waxapi.NewMockChain(zap.NewNop())
	eng := NewEngine(st, chain, zap.NewNop())
	chain.SetDepositSink(eng.HandleDeposit)
	return eng, chain
}

func stakeWax(t *testing.T, eng *Engine, user model.AccountName, amount int64, now uint64) {
	t.Helper()
	err := eng.HandleDeposit(waxapi.Deposit{
		From:     user,
		Quantity: model.NewWax(amount),
		Memo:     "stake",
	}, now)
	if err != nil {
		t.Fatalf("stake for %s failed: %v", user, err)
	}
}

func depositRevenue(t *testing.T, eng *Engine, amount int64, now uint64) {
	t.Helper()
	err := eng.HandleDeposit(waxapi.Deposit{
		From:     "revenue.src",
		Quantity: model.NewWax(amount),
		Memo:     "waxfusion_revenue",
	}, now)
	if err != nil {
		t.Fatalf("revenue deposit failed: %v", err)
	}
}

// assertConservation checks the issued token supplies on the mock chain
// against the internal ledgers.
func assertConservation(t *testing.T, eng *Engine, chain *waxapi.MockChain) {
	t.Helper()
	g := eng.GlobalLedger()
	issued := g.SwaxEarning.Amount + g.SwaxBackingLswax.Amount
	if got := chain.Supply(model.SWAX); got != issued {
		t.Fatalf("swax supply %d does not match internal ledgers %d", got, issued)
	}
	if got := chain.Supply(model.LSWAX); got != g.LiquifiedSwax.Amount {
		t.Fatalf("lswax supply %d does not match liquified ledger %d", got, g.LiquifiedSwax.Amount)
	}
}

func lastTransferTo(t *testing.T, chain *waxapi.MockChain, to model.AccountName) waxapi.TransferRecord {
	t.Helper()
	transfers := chain.Transfers()
	for i := len(transfers) - 1; i >= 0; i-- {
		if transfers[i].To == to {
			return transfers[i]
		}
	}
	t.Fatalf("no transfer to %s found", to)
	return waxapi.TransferRecord{}
}
