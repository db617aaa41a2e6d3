package fusion

import "github.com/pkg/errors"

// Sentinel rejections. Anything built on these is a caller mistake and the
// operation aborts with no state change; consistency violations are panics
// instead, see State.checkConsistency.
var (
	ErrNotAuthorized     = errors.New("missing required authority")
	ErrStakerNotFound    = errors.New("you don't have anything staked here")
	ErrNothingToClaim    = errors.New("you have nothing to claim")
	ErrNothingToCompound = errors.New("there is nothing to compound yet")
	ErrCompoundCooldown  = errors.New("compound can only run once every cooldown window")
	ErrBelowMinimum      = errors.New("amount is below the required minimum")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSlippage          = errors.New("output would be less than the minimum you requested")
	ErrEpochNotFound     = errors.New("epoch does not exist")
	ErrTooEarlyToUnstake = errors.New("can not unstake until the unstake time has passed")
	ErrNothingToUnstake  = errors.New("there is nothing to unstake from this epoch")
	ErrNoRefundsToClaim  = errors.New("there are no refunds to claim")
	ErrNoRedemptionOpen  = errors.New("there is no redemption window currently open")
	ErrNoRequestsToFill  = errors.New("you have no redemption requests for the current window")
	ErrRequestExists     = errors.New("you have previous requests but passed false for replacing them")
	ErrUnknownMemo       = errors.New("transfer memo does not match any expected format")
	ErrTooEarly          = errors.New("it is not time for this yet")
)

// rejectionReason buckets an error for the prometheus rejection counter so
// label cardinality stays bounded.
func rejectionReason(err error) string {
	for _, sentinel := range []struct {
		err    error
		reason string
	}{
		{ErrNotAuthorized, "not_authorized"},
		{ErrStakerNotFound, "staker_not_found"},
		{ErrNothingToClaim, "nothing_to_claim"},
		{ErrNothingToCompound, "nothing_to_compound"},
		{ErrCompoundCooldown, "compound_cooldown"},
		{ErrBelowMinimum, "below_minimum"},
		{ErrInvalidQuantity, "invalid_quantity"},
		{ErrInsufficientFunds, "insufficient_funds"},
		{ErrSlippage, "slippage"},
		{ErrEpochNotFound, "epoch_not_found"},
		{ErrTooEarlyToUnstake, "too_early_to_unstake"},
		{ErrNothingToUnstake, "nothing_to_unstake"},
		{ErrNoRefundsToClaim, "no_refunds"},
		{ErrNoRedemptionOpen, "no_redemption_open"},
		{ErrNoRequestsToFill, "no_requests"},
		{ErrRequestExists, "request_exists"},
		{ErrUnknownMemo, "unknown_memo"},
		{ErrTooEarly, "too_early"},
	} {
		if errors.Is(err, sentinel.err) {
			return sentinel.reason
		}
	}
	return "rejected"
}
