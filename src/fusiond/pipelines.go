package fusiond

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/fusion"
	"github.com/waxfusion/fusiond/src/model"
	"github.com/waxfusion/fusiond/src/postgres"
)

// StartPipelines launches every recurring job. The scheduler pokes the
// time driven operations; the engine decides from its own stored
// timestamps whether anything is actually due.
func (svc *Service) StartPipelines(ctx context.Context) {
	go svc.startSnapshots(ctx, 5*time.Minute)
	go svc.startHistoryFlush(ctx, 1*time.Minute)
	if svc.rateHistory.client != nil {
		go svc.startRateSampler(ctx, 1*time.Minute)
	}
	if svc.watcher != nil {
		go svc.startDepositWatcher(ctx, 10*time.Second)
	}
	svc.startScheduler(ctx, 30*time.Second)
}

func (svc *Service) startScheduler(ctx context.Context, delay time.Duration) {
	ticker := time.NewTicker(delay)
	for {
		select {
		case <-ticker.C:
			svc.DoScheduleOnce(uint64(time.Now().Unix()))
		case <-ctx.Done():
			return
		}
	}
}

// DoScheduleOnce attempts every time driven operation at the given time.
// Most attempts are simply not due yet; those rejections are expected and
// logged at debug only.
func (svc *Service) DoScheduleOnce(now uint64) {
	svc.attempt("compound", now, func() error { return svc.engine.Compound(now) })
	svc.attempt("stakeallcpu", now, func() error { return svc.engine.StakeAllCPU(now) })
	svc.attempt("unstakecpu", now, func() error {
		due, ok := svc.engine.UnstakeDue(now)
		if !ok {
			return fusion.ErrNothingToUnstake
		}
		return svc.engine.UnstakeCPU(due, -1, now)
	})
	svc.attempt("claimrefunds", now, func() error { return svc.engine.ClaimRefunds(now) })
	svc.attempt("reallocate", now, func() error { return svc.engine.Reallocate(now) })
	svc.attempt("createfarms", now, func() error { return svc.engine.CreateFarms(now) })
}

func (svc *Service) attempt(op string, now uint64, fn func() error) {
	err := fn()
	if err == nil {
		svc.recordEvent(model.OperationEvent{
			Id:        uuid.New(),
			Op:        op,
			Actor:     svc.cfg.Protocol.ProtocolAccount,
			Status:    model.OperationStatusApplied,
			Timestamp: now,
		})
		return
	}
	if expectedRejection(err) {
		svc.logger.Debug("scheduled op not due", zap.String("op", op), zap.Error(err))
		return
	}
	svc.logger.Error("scheduled op failed", zap.String("op", op), zap.Error(err))
}

func expectedRejection(err error) bool {
	for _, sentinel := range []error{
		fusion.ErrTooEarly, fusion.ErrTooEarlyToUnstake, fusion.ErrCompoundCooldown,
		fusion.ErrNothingToCompound, fusion.ErrNothingToClaim, fusion.ErrNothingToUnstake,
		fusion.ErrNoRefundsToClaim, fusion.ErrEpochNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (svc *Service) startSnapshots(ctx context.Context, delay time.Duration) {
	ticker := time.NewTicker(delay)
	logger := svc.logger.Named("snapshots")
	for {
		select {
		case <-ticker.C:
			now := uint64(time.Now().Unix())
			if err := postgres.PutSnapshot(ctx, svc.engine.Snapshot(), now); err != nil {
				logger.Error("failed writing snapshot", zap.Error(err))
				continue
			}
			if err := postgres.PruneSnapshots(ctx, 288); err != nil {
				logger.Error("failed pruning snapshots", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (svc *Service) startHistoryFlush(ctx context.Context, delay time.Duration) {
	ticker := time.NewTicker(delay)
	logger := svc.logger.Named("history")
	for {
		select {
		case <-ticker.C:
			if err := svc.FlushHistory(ctx); err != nil {
				logger.Error("failed flushing operation history", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (svc *Service) startRateSampler(ctx context.Context, delay time.Duration) {
	ticker := time.NewTicker(delay)
	logger := svc.logger.Named("rates")
	for {
		select {
		case <-ticker.C:
			if err := svc.SampleRate(ctx, uint64(time.Now().Unix())); err != nil {
				logger.Error("failed sampling exchange rate", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
