package fusiond

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/fusion"
	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/postgres"
	"github.com/waxfusion/fusiond/src/waxapi"
)

// Service wires the engine to its collaborators: the chain client for
// outbound actions, postgres for snapshots and history, redis for the
// rate feed.
type Service struct {
	cfg    Config
	engine *fusion.Engine
	chain  waxapi.Chain
	logger *zap.Logger

	rateHistory ZSet

	// watcher is nil on the mock chain, which pushes deposits itself.
	watcher       waxapi.TransferWatcher
	depositSeq    uint64
	depositPrimed bool

	historyMu sync.Mutex
	pending   []model.OperationEvent
}

func NewService(ctx context.Context, cfg Config, logger *zap.Logger) (*Service, error) {
	postgres.ConfigurePostgres(cfg.PostgresConfig)

	st, err := postgres.GetLatestSnapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed restoring state")
	}
	if st == nil {
		if cfg.GenesisTime == 0 {
			return nil, errors.New("no snapshot found and genesis_time is not set")
		}
		st, err = fusion.NewState(cfg.Protocol, cfg.GenesisTime)
		if err != nil {
			return nil, errors.Wrap(err, "failed building genesis state")
		}
		logger.Info("starting from genesis state", zap.Uint64("genesis_time", cfg.GenesisTime))
	} else {
		logger.Info("restored state from snapshot")
	}

	chain, err := waxapi.NewChainClient(cfg.Chain, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed creating chain client")
	}

	svc := &Service{
		cfg:    cfg,
		chain:  chain,
		engine: fusion.NewEngine(st, chain, logger),
		logger: logger.Named("service"),
	}
	if cfg.RedisAddress != "" {
		cache := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		svc.rateHistory = NewZSet(cache, rateHistoryKey)
	}
	if mock, ok := chain.(*waxapi.MockChain); ok {
		mock.SetDepositSink(svc.SubmitDeposit)
	}
	if watcher, ok := chain.(waxapi.TransferWatcher); ok {
		svc.watcher = watcher
	}
	return svc, nil
}

func (svc *Service) Engine() *fusion.Engine { return svc.engine }

// SubmitDeposit routes an inbound transfer into the engine and records the
// outcome in the operation history.
func (svc *Service) SubmitDeposit(d waxapi.Deposit, now uint64) error {
	err := svc.engine.HandleDeposit(d, now)
	svc.recordEvent(model.OperationEvent{
		Id:        uuid.New(),
		Op:        "deposit",
		Actor:     d.From,
		Quantity:  d.Quantity,
		Memo:      d.Memo,
		Status:    statusOf(err),
		Detail:    detailOf(err),
		Timestamp: now,
	})
	return err
}

func statusOf(err error) model.OperationStatus {
	if err != nil {
		return model.OperationStatusRejected
	}
	return model.OperationStatusApplied
}

func detailOf(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}

func (svc *Service) recordEvent(ev model.OperationEvent) {
	svc.historyMu.Lock()
	svc.pending = append(svc.pending, ev)
	svc.historyMu.Unlock()
}

// FlushHistory writes buffered operation events to postgres.
func (svc *Service) FlushHistory(ctx context.Context) error {
	svc.historyMu.Lock()
	batch := svc.pending
	svc.pending = nil
	svc.historyMu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	if err := postgres.PutOperations(ctx, batch); err != nil {
		// put the batch back so it retries on the next flush
		svc.historyMu.Lock()
		svc.pending = append(batch, svc.pending...)
		svc.historyMu.Unlock()
		return err
	}
	return nil
}
