package fusion

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/waxfusion/fusiond/src/model"
)

// Inbound transfers are routed entirely on their memo. Structured memos
// use pipe separated fields, e.g. "|rent_cpu|receiver|500|1714003200|".
const (
	memoStake           = "stake"
	memoUnliquify       = "unliquify"
	memoUnliquifyExact  = "unliquify_exact"
	memoRevenue         = "waxfusion_revenue"
	memoCPURentalReturn = "cpu rental return"
	memoRentCPU         = "rent_cpu"
	memoLpIncentives    = "lp_incentives"
	memoInstantRedeem   = "instant redeem"
	memoRebalance       = "rebalance"
)

func memoFields(memo string) []string {
	parts := strings.Split(memo, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseUnliquifyExactMemo extracts the minimum output from a
// "|unliquify_exact|<min_amount>|" memo. The amount is raw, 8 decimals.
func parseUnliquifyExactMemo(memo string) (int64, error) {
	fields := memoFields(memo)
	if len(fields) != 2 || fields[0] != memoUnliquifyExact {
		return 0, errors.Wrapf(ErrUnknownMemo, "malformed unliquify_exact memo `%s`", memo)
	}
	minOut, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || minOut < 0 {
		return 0, errors.Wrapf(ErrUnknownMemo, "bad minimum output in memo `%s`", memo)
	}
	return minOut, nil
}

type rentCPUMemo struct {
	Receiver   model.AccountName
	WholeWax   int64
	EpochStart uint64
}

// parseRentCPUMemo extracts the fields of a
// "|rent_cpu|<receiver>|<whole_wax>|<epoch_start>|" memo. The epoch field
// may be 0 to target the current epoch.
func parseRentCPUMemo(memo string) (rentCPUMemo, error) {
	fields := memoFields(memo)
	if len(fields) != 4 || fields[0] != memoRentCPU {
		return rentCPUMemo{}, errors.Wrapf(ErrUnknownMemo, "malformed rent_cpu memo `%s`", memo)
	}
	wholeWax, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || wholeWax <= 0 {
		return rentCPUMemo{}, errors.Wrapf(ErrUnknownMemo, "bad wax amount in memo `%s`", memo)
	}
	epochStart, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return rentCPUMemo{}, errors.Wrapf(ErrUnknownMemo, "bad epoch in memo `%s`", memo)
	}
	return rentCPUMemo{
		Receiver:   model.AccountName(fields[1]),
		WholeWax:   wholeWax,
		EpochStart: epochStart,
	}, nil
}

// depositRoute names the memo route for labeling; unknown memos still get
// a stable label so the rejection shows up in metrics.
func depositRoute(memo string) string {
	memo = strings.TrimSpace(memo)
	switch memo {
	case memoStake, memoUnliquify, memoRevenue, memoLpIncentives:
		return memo
	case memoCPURentalReturn:
		return "cpu_rental_return"
	case memoInstantRedeem:
		return "instant_redeem"
	case memoRebalance:
		return memoRebalance
	}
	fields := memoFields(memo)
	if len(fields) > 0 {
		switch fields[0] {
		case memoUnliquifyExact, memoRentCPU:
			return fields[0]
		}
	}
	return "unknown"
}
