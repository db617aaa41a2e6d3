package waxapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/waxfusion/fusiond/src/model"
)

// Chain is everything the engine needs from the outside world: the token
// channel, the system staking tables, and the POL collaborator. The write
// methods are fire and forget; the engine only calls them after a state
// commit, so a delivery failure is an ops problem, never a ledger one.
type Chain interface {
	Issue(quantity model.Asset, receiver model.AccountName, memo string)
	Retire(quantity model.Asset, memo string)
	Transfer(to model.AccountName, quantity model.Asset, memo string)
	Delegate(proxy model.AccountName, quantity model.Asset, memo string)
	Undelegate(proxy model.AccountName, now uint64)

	DelegatedTo(proxy model.AccountName) int64
	PendingRefund(proxy model.AccountName) (RefundStatus, bool)
	ClaimRefund(proxy model.AccountName, now uint64)

	// OfferPolAllocation asks the POL collaborator whether it will take the
	// allocation. A decline keeps the funds in the revenue bucket.
	OfferPolAllocation(quantity model.Asset) bool

	// MarketRate reports the dex spot price of LSWAX in WAX, if known.
	MarketRate() (float64, bool)
}

// RefundStatus mirrors one row of the system refund table for a proxy.
type RefundStatus struct {
	Amount      model.Asset
	RequestTime uint64
}

// Deposit is an inbound token transfer delivered to the engine.
type Deposit struct {
	From     model.AccountName
	Quantity model.Asset
	Memo     string
}

type ChainConfig struct {
	SignerAddress string `yaml:"signer_address"`
	ChainAPI      string `yaml:"chain_api"`
	Mock          bool   `yaml:"use_mock"`
}

func NewChainClient(cfg ChainConfig, logger *zap.Logger) (Chain, error) {
	if cfg.Mock {
		return NewMockChain(logger), nil
	}
	if cfg.SignerAddress == "" || cfg.ChainAPI == "" {
		return nil, errors.New("signer_address and chain_api are required without use_mock")
	}
	return &ChainClient{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.Named("waxapi"),
	}, nil
}

// ChainClient pushes actions to a local signing sidecar and reads chain
// tables through a standard chain API endpoint.
type ChainClient struct {
	config ChainConfig
	client *http.Client
	logger *zap.Logger
}

type actionRequest struct {
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

func (cc *ChainClient) pushAction(action string, data map[string]any) {
	raw, err := json.Marshal(actionRequest{Action: action, Data: data})
	if err != nil {
		cc.logger.Error("failed encoding action", zap.String("action", action), zap.Error(err))
		return
	}
	resp, err := cc.client.Post(cc.config.SignerAddress+"/v1/actions", "application/json", bytes.NewReader(raw))
	if err != nil {
		cc.logger.Error("failed pushing action to signer", zap.String("action", action), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		cc.logger.Error("signer rejected action", zap.String("action", action), zap.Int("status", resp.StatusCode))
	}
}

func (cc *ChainClient) Issue(quantity model.Asset, receiver model.AccountName, memo string) {
	cc.pushAction("issue", map[string]any{"to": receiver, "quantity": quantity.String(), "memo": memo})
}

func (cc *ChainClient) Retire(quantity model.Asset, memo string) {
	cc.pushAction("retire", map[string]any{"quantity": quantity.String(), "memo": memo})
}

func (cc *ChainClient) Transfer(to model.AccountName, quantity model.Asset, memo string) {
	cc.pushAction("transfer", map[string]any{"to": to, "quantity": quantity.String(), "memo": memo})
}

func (cc *ChainClient) Delegate(proxy model.AccountName, quantity model.Asset, memo string) {
	cc.pushAction("delegatebw", map[string]any{"receiver": proxy, "stake_cpu_quantity": quantity.String(), "memo": memo})
}

func (cc *ChainClient) Undelegate(proxy model.AccountName, now uint64) {
	cc.pushAction("undelegatebw", map[string]any{"receiver": proxy})
}

func (cc *ChainClient) ClaimRefund(proxy model.AccountName, now uint64) {
	cc.pushAction("refund", map[string]any{"owner": proxy})
}

type tableRowsRequest struct {
	Code  string `json:"code"`
	Scope string `json:"scope"`
	Table string `json:"table"`
	Limit int    `json:"limit"`
	JSON  bool   `json:"json"`
}

func (cc *ChainClient) getTableRows(scope, table string, out any) error {
	raw, err := json.Marshal(tableRowsRequest{
		Code: "eosio", Scope: scope, Table: table, Limit: 10, JSON: true,
	})
	if err != nil {
		return err
	}
	resp, err := cc.client.Post(cc.config.ChainAPI+"/v1/chain/get_table_rows", "application/json", bytes.NewReader(raw))
	if err != nil {
		return errors.Wrapf(err, "failed reading table %s for %s", table, scope)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("chain api returned %d for table %s", resp.StatusCode, table)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (cc *ChainClient) DelegatedTo(proxy model.AccountName) int64 {
	var result struct {
		Rows []struct {
			CPUWeight string `json:"cpu_weight"`
		} `json:"rows"`
	}
	if err := cc.getTableRows(string(proxy), "delband", &result); err != nil {
		cc.logger.Error("failed reading delegated bandwidth", zap.String("proxy", string(proxy)), zap.Error(err))
		return 0
	}
	total := int64(0)
	for _, row := range result.Rows {
		parsed, err := model.ParseAsset(row.CPUWeight)
		if err != nil {
			continue
		}
		total += parsed.Amount
	}
	return total
}

func (cc *ChainClient) PendingRefund(proxy model.AccountName) (RefundStatus, bool) {
	var result struct {
		Rows []struct {
			RequestTime string `json:"request_time"`
			CPUAmount   string `json:"cpu_amount"`
		} `json:"rows"`
	}
	if err := cc.getTableRows(string(proxy), "refunds", &result); err != nil {
		cc.logger.Error("failed reading refund table", zap.String("proxy", string(proxy)), zap.Error(err))
		return RefundStatus{}, false
	}
	if len(result.Rows) == 0 {
		return RefundStatus{}, false
	}
	amount, err := model.ParseAsset(result.Rows[0].CPUAmount)
	if err != nil {
		return RefundStatus{}, false
	}
	requested, err := time.Parse("2006-01-02T15:04:05", result.Rows[0].RequestTime)
	if err != nil {
		return RefundStatus{}, false
	}
	return RefundStatus{Amount: amount, RequestTime: uint64(requested.Unix())}, true
}

func (cc *ChainClient) OfferPolAllocation(quantity model.Asset) bool {
	resp, err := cc.client.Get(fmt.Sprintf("%s/v1/pol/accepts?amount=%d", cc.config.SignerAddress, quantity.Amount))
	if err != nil {
		cc.logger.Warn("pol collaborator unreachable, keeping allocation", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (cc *ChainClient) MarketRate() (float64, bool) {
	var result struct {
		Rate float64 `json:"rate"`
	}
	resp, err := cc.client.Get(cc.config.SignerAddress + "/v1/pol/rate")
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, false
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, false
	}
	return result.Rate, true
}
