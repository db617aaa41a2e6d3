package fusion

import (
	"sync"

	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/waxapi"
)

// Engine serializes every operation against a single State. Each operation
// runs on a clone; only a successful run swaps the clone in, so rejections
// leave no trace. Outbound chain actions are queued during the operation
// and delivered after the commit, outside the lock.
type Engine struct {
	mu     sync.Mutex
	state  *State
	chain  waxapi.Chain
	logger *zap.Logger
}

func NewEngine(st *State, chain waxapi.Chain, logger *zap.Logger) *Engine {
	return &Engine{
		state:  st,
		chain:  chain,
		logger: logger.Named("engine"),
	}
}

type effects struct {
	queued []func(chain waxapi.Chain)
}

func (fx *effects) issue(quantity model.Asset, receiver model.AccountName, memo string) {
	fx.queued = append(fx.queued, func(chain waxapi.Chain) { chain.Issue(quantity, receiver, memo) })
}

func (fx *effects) retire(quantity model.Asset, memo string) {
	fx.queued = append(fx.queued, func(chain waxapi.Chain) { chain.Retire(quantity, memo) })
}

func (fx *effects) transfer(to model.AccountName, quantity model.Asset, memo string) {
	fx.queued = append(fx.queued, func(chain waxapi.Chain) { chain.Transfer(to, quantity, memo) })
}

func (fx *effects) delegate(proxy model.AccountName, quantity model.Asset, memo string) {
	fx.queued = append(fx.queued, func(chain waxapi.Chain) { chain.Delegate(proxy, quantity, memo) })
}

func (fx *effects) undelegate(proxy model.AccountName, now uint64) {
	fx.queued = append(fx.queued, func(chain waxapi.Chain) { chain.Undelegate(proxy, now) })
}

func (fx *effects) claimRefund(proxy model.AccountName, now uint64) {
	fx.queued = append(fx.queued, func(chain waxapi.Chain) { chain.ClaimRefund(proxy, now) })
}

func (e *Engine) apply(op string, fn func(s *State, fx *effects) error) error {
	e.mu.Lock()
	next := e.state.Clone()
	fx := &effects{}
	if err := fn(next, fx); err != nil {
		e.mu.Unlock()
		RecordRejection(op, rejectionReason(err))
		e.logger.Debug("operation rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	next.checkConsistency()
	e.state = next
	RecordOperation(op)
	updateStateGauges(next)
	e.mu.Unlock()

	for _, f := range fx.queued {
		f(e.chain)
	}
	return nil
}

// Snapshot returns an isolated copy of the full state, safe to serialize.
func (e *Engine) Snapshot() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *Engine) view(fn func(s *State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.state)
}
