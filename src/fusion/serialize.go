package fusion

import (
	"encoding/json"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// The wide accumulator fields serialize as decimal strings so snapshots
// survive round trips through jsonb without precision loss.

func (r RewardFarm) MarshalJSON() ([]byte, error) {
	type alias RewardFarm
	return json.Marshal(struct {
		alias
		RewardRate           string `json:"reward_rate"`
		RewardPerTokenStored string `json:"reward_per_token_stored"`
	}{alias(r), r.RewardRate.Dec(), r.RewardPerTokenStored.Dec()})
}

func (r *RewardFarm) UnmarshalJSON(b []byte) error {
	type alias RewardFarm
	decoded := struct {
		alias
		RewardRate           string `json:"reward_rate"`
		RewardPerTokenStored string `json:"reward_per_token_stored"`
	}{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	*r = RewardFarm(decoded.alias)
	if err := setWide(&r.RewardRate, decoded.RewardRate); err != nil {
		return errors.Wrap(err, "bad reward_rate")
	}
	if err := setWide(&r.RewardPerTokenStored, decoded.RewardPerTokenStored); err != nil {
		return errors.Wrap(err, "bad reward_per_token_stored")
	}
	return nil
}

func (st Staker) MarshalJSON() ([]byte, error) {
	type alias Staker
	return json.Marshal(struct {
		alias
		UserRewardPerTokenPaid string `json:"user_reward_per_token_paid"`
	}{alias(st), st.UserRewardPerTokenPaid.Dec()})
}

func (st *Staker) UnmarshalJSON(b []byte) error {
	type alias Staker
	decoded := struct {
		alias
		UserRewardPerTokenPaid string `json:"user_reward_per_token_paid"`
	}{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	*st = Staker(decoded.alias)
	if err := setWide(&st.UserRewardPerTokenPaid, decoded.UserRewardPerTokenPaid); err != nil {
		return errors.Wrap(err, "bad user_reward_per_token_paid")
	}
	return nil
}

func setWide(dst *uint256.Int, raw string) error {
	if raw == "" {
		*dst = uint256.Int{}
		return nil
	}
	parsed, err := uint256.FromDecimal(raw)
	if err != nil {
		return err
	}
	*dst = *parsed
	return nil
}
