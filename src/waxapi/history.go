package waxapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/model"
)

// TransferWatcher is the inbound half of the token channel. The chain has
// no push channel, so deposits are discovered by paging the account's
// transfer history. The mock chain pushes straight into the deposit sink
// instead and does not implement this.
type TransferWatcher interface {
	RecentTransfers(account model.AccountName, afterSeq uint64, limit int) ([]InboundTransfer, error)
}

// InboundTransfer is one observed transfer into the protocol account.
type InboundTransfer struct {
	GlobalSequence uint64
	Timestamp      uint64
	Deposit        Deposit
}

type historyResponse struct {
	Actions []struct {
		GlobalSequence uint64 `json:"global_sequence"`
		Timestamp      string `json:"timestamp"`
		Act            struct {
			Name string `json:"name"`
			Data struct {
				From     string `json:"from"`
				To       string `json:"to"`
				Quantity string `json:"quantity"`
				Memo     string `json:"memo"`
			} `json:"data"`
		} `json:"act"`
	} `json:"actions"`
}

// RecentTransfers reads the newest transfer actions touching the account
// from the history API and returns the inbound ones past afterSeq, oldest
// first. The feed also carries the protocol's own outbound payouts; those
// are dropped here.
func (cc *ChainClient) RecentTransfers(account model.AccountName, afterSeq uint64, limit int) ([]InboundTransfer, error) {
	url := fmt.Sprintf("%s/v2/history/get_actions?account=%s&filter=eosio.token:transfer&sort=desc&limit=%d",
		cc.config.ChainAPI, account, limit)
	resp, err := cc.client.Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed reading transfer history")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("history api returned %d", resp.StatusCode)
	}
	result := historyResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed decoding transfer history")
	}

	out := []InboundTransfer{}
	// the api pages newest first
	for i := len(result.Actions) - 1; i >= 0; i-- {
		act := result.Actions[i]
		if act.GlobalSequence <= afterSeq || act.Act.Data.To != string(account) {
			continue
		}
		quantity, err := model.ParseAsset(act.Act.Data.Quantity)
		if err != nil {
			cc.logger.Warn("skipping transfer with unparseable quantity",
				zap.Uint64("seq", act.GlobalSequence), zap.Error(err))
			continue
		}
		when, err := parseHistoryTime(act.Timestamp)
		if err != nil {
			cc.logger.Warn("skipping transfer with unparseable timestamp",
				zap.Uint64("seq", act.GlobalSequence), zap.Error(err))
			continue
		}
		out = append(out, InboundTransfer{
			GlobalSequence: act.GlobalSequence,
			Timestamp:      when,
			Deposit: Deposit{
				From:     model.AccountName(act.Act.Data.From),
				Quantity: quantity,
				Memo:     act.Act.Data.Memo,
			},
		})
	}
	return out, nil
}

// History endpoints report block time with millisecond precision, table
// reads without. Accept both.
func parseHistoryTime(raw string) (uint64, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.000", "2006-01-02T15:04:05"} {
		if when, err := time.Parse(layout, raw); err == nil {
			return uint64(when.Unix()), nil
		}
	}
	return 0, errors.Errorf("unrecognized history timestamp `%s`", raw)
}
