package fusiond

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const depositPageSize = 100

func (svc *Service) startDepositWatcher(ctx context.Context, delay time.Duration) {
	ticker := time.NewTicker(delay)
	logger := svc.logger.Named("deposits")
	for {
		select {
		case <-ticker.C:
			if err := svc.PollDeposits(); err != nil {
				logger.Error("failed polling deposits", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// PollDeposits pages newly observed inbound transfers into the engine.
// The first pass only establishes the cursor: everything older is already
// folded into the restored snapshot, and replaying a deposit would double
// count it.
func (svc *Service) PollDeposits() error {
	transfers, err := svc.watcher.RecentTransfers(svc.cfg.Protocol.ProtocolAccount, svc.depositSeq, depositPageSize)
	if err != nil {
		return err
	}
	if !svc.depositPrimed {
		svc.depositPrimed = true
		if n := len(transfers); n > 0 {
			svc.depositSeq = transfers[n-1].GlobalSequence
		}
		return nil
	}
	for _, tr := range transfers {
		svc.depositSeq = tr.GlobalSequence
		if err := svc.SubmitDeposit(tr.Deposit, tr.Timestamp); err != nil {
			// recorded as a rejected operation; a bad memo must not stall the feed
			svc.logger.Warn("inbound transfer rejected",
				zap.String("from", string(tr.Deposit.From)),
				zap.String("memo", tr.Deposit.Memo), zap.Error(err))
		}
	}
	return nil
}
