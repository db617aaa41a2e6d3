package waxapi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/model"
)

// DepositSink receives the transfers the mock chain sends back toward the
// protocol account, e.g. CPU refunds. Wired to the engine's deposit intake.
type DepositSink func(d Deposit, now uint64) error

type TransferRecord struct {
	To       model.AccountName
	Quantity model.Asset
	Memo     string
}

// MockChain keeps token supplies, balances and the system staking tables in
// memory so tests and local runs can assert conservation end to end.
type MockChain struct {
	mu     sync.Mutex
	logger *zap.Logger

	supplies    map[model.Symbol]int64
	balances    map[model.AccountName]map[model.Symbol]int64
	delegations map[model.AccountName]int64
	refunds     map[model.AccountName]RefundStatus

	transfers []TransferRecord
	sink      DepositSink

	PolAccepts bool
	Rate       float64
}

func NewMockChain(logger *zap.Logger) *MockChain {
	return &MockChain{
		logger:      logger.Named("mockchain"),
		supplies:    map[model.Symbol]int64{},
		balances:    map[model.AccountName]map[model.Symbol]int64{},
		delegations: map[model.AccountName]int64{},
		refunds:     map[model.AccountName]RefundStatus{},
		PolAccepts:  true,
		Rate:        1.0,
	}
}

func (mc *MockChain) SetDepositSink(sink DepositSink) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.sink = sink
}

func (mc *MockChain) credit(account model.AccountName, quantity model.Asset) {
	if mc.balances[account] == nil {
		mc.balances[account] = map[model.Symbol]int64{}
	}
	mc.balances[account][quantity.Symbol] += quantity.Amount
}

func (mc *MockChain) Issue(quantity model.Asset, receiver model.AccountName, memo string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.supplies[quantity.Symbol] += quantity.Amount
	mc.credit(receiver, quantity)
}

func (mc *MockChain) Retire(quantity model.Asset, memo string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.supplies[quantity.Symbol] -= quantity.Amount
}

func (mc *MockChain) Transfer(to model.AccountName, quantity model.Asset, memo string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.credit(to, quantity)
	mc.transfers = append(mc.transfers, TransferRecord{To: to, Quantity: quantity, Memo: memo})
}

func (mc *MockChain) Delegate(proxy model.AccountName, quantity model.Asset, memo string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.delegations[proxy] += quantity.Amount
	mc.transfers = append(mc.transfers, TransferRecord{To: proxy, Quantity: quantity, Memo: memo})
}

func (mc *MockChain) Undelegate(proxy model.AccountName, now uint64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	amount := mc.delegations[proxy]
	if amount == 0 {
		return
	}
	delete(mc.delegations, proxy)
	existing := mc.refunds[proxy]
	mc.refunds[proxy] = RefundStatus{
		Amount:      model.NewWax(existing.Amount.Amount + amount),
		RequestTime: now,
	}
}

func (mc *MockChain) DelegatedTo(proxy model.AccountName) int64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.delegations[proxy]
}

func (mc *MockChain) PendingRefund(proxy model.AccountName) (RefundStatus, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	refund, ok := mc.refunds[proxy]
	return refund, ok
}

// ClaimRefund releases a matured refund and routes it back through the
// deposit sink the way the real chain notifies the contract account.
func (mc *MockChain) ClaimRefund(proxy model.AccountName, now uint64) {
	mc.mu.Lock()
	refund, ok := mc.refunds[proxy]
	if !ok {
		mc.mu.Unlock()
		return
	}
	delete(mc.refunds, proxy)
	sink := mc.sink
	mc.mu.Unlock()

	if sink == nil {
		mc.logger.Warn("refund claimed with no deposit sink wired", zap.String("proxy", string(proxy)))
		return
	}
	deposit := Deposit{From: proxy, Quantity: refund.Amount, Memo: "cpu rental return"}
	if err := sink(deposit, now); err != nil {
		mc.logger.Error("deposit sink rejected refund", zap.String("proxy", string(proxy)), zap.Error(err))
	}
}

func (mc *MockChain) OfferPolAllocation(quantity model.Asset) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.PolAccepts
}

func (mc *MockChain) MarketRate() (float64, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.Rate <= 0 {
		return 0, false
	}
	return mc.Rate, true
}

func (mc *MockChain) Supply(symbol model.Symbol) int64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.supplies[symbol]
}

func (mc *MockChain) Balance(account model.AccountName, symbol model.Symbol) int64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.balances[account][symbol]
}

func (mc *MockChain) Transfers() []TransferRecord {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return append([]TransferRecord(nil), mc.transfers...)
}
