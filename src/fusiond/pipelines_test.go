package fusiond

import (
	"testing"

	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/fusion"
	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/waxapi"
)

const genesis = uint64(1700000000)

func newTestService(t *testing.T, mutate func(cfg *fusion.Settings)) (*Service, *waxapi.MockChain) {
	t.Helper()
	protocol := fusion.DefaultSettings()
	if mutate != nil {
		mutate(&protocol)
	}
	st, err := fusion.NewState(protocol, genesis)
	if err != nil {
		t.Fatal(err)
	}
	chain := waxapi.NewMockChain(zap.NewNop())
	svc := &Service{
		cfg:    Config{Protocol: protocol},
		chain:  chain,
		engine: fusion.NewEngine(st, chain, zap.NewNop()),
		logger: zap.NewNop(),
	}
	chain.SetDepositSink(svc.SubmitDeposit)
	return svc, chain
}

// A scheduler pass where nothing is due must not record any events; every
// rejection on that path is an expected one.
func TestScheduleOnceNothingDue(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.DoScheduleOnce(genesis + 10)

	svc.historyMu.Lock()
	defer svc.historyMu.Unlock()
	if len(svc.pending) != 0 {
		t.Fatalf("expected no events recorded, got %+v", svc.pending)
	}
}

func TestScheduleOnceRunsDueOperations(t *testing.T) {
	svc, _ := newTestService(t, nil)
	err := svc.SubmitDeposit(waxapi.Deposit{
		From:     "alice",
		Quantity: model.NewWax(500 * int64(model.WaxDigitMultiplier)),
		Memo:     "stake",
	}, genesis+100)
	if err != nil {
		t.Fatal(err)
	}

	svc.DoScheduleOnce(genesis + 86400 + 5)

	svc.historyMu.Lock()
	defer svc.historyMu.Unlock()
	// The deposit plus the daily stakeall sweep.
	ops := map[string]int{}
	for _, ev := range svc.pending {
		ops[ev.Op]++
	}
	if ops["deposit"] != 1 || ops["stakeallcpu"] != 1 {
		t.Fatalf("expected the deposit and the stakeall sweep recorded, got %v", ops)
	}
	if len(svc.pending) != 2 {
		t.Fatalf("expected exactly two events, got %+v", svc.pending)
	}
}

func TestExpectedRejections(t *testing.T) {
	for _, err := range []error{
		fusion.ErrTooEarly,
		fusion.ErrCompoundCooldown,
		fusion.ErrNothingToUnstake,
		fusion.ErrNoRefundsToClaim,
	} {
		if !expectedRejection(err) {
			t.Fatalf("%v should be an expected scheduler rejection", err)
		}
	}
	if expectedRejection(fusion.ErrNotAuthorized) {
		t.Fatal("an authority failure is never an expected scheduler outcome")
	}
}
