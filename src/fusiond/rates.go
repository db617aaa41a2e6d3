package fusiond

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const rateHistoryKey = "fusiond:lswax_rate"
const rateHistoryRetention = 30 * 86400 // seconds

// RateSample is one point of the exchange rate history kept in redis.
// Internal is the backing ratio; Market is the dex spot price, 0 when the
// oracle was unreachable.
type RateSample struct {
	Timestamp uint64  `json:"timestamp"`
	Internal  float64 `json:"internal"`
	Market    float64 `json:"market"`
}

func (rs RateSample) member() string {
	return fmt.Sprintf("%d:%0.8f:%0.8f", rs.Timestamp, rs.Internal, rs.Market)
}

func parseRateSample(raw string) (RateSample, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return RateSample{}, errors.Errorf("malformed rate sample `%s`", raw)
	}
	ts, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return RateSample{}, errors.Wrapf(err, "bad timestamp in rate sample `%s`", raw)
	}
	internal, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return RateSample{}, errors.Wrapf(err, "bad internal rate in sample `%s`", raw)
	}
	market, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return RateSample{}, errors.Wrapf(err, "bad market rate in sample `%s`", raw)
	}
	return RateSample{Timestamp: ts, Internal: internal, Market: market}, nil
}

// SampleRate appends the current exchange rate to the redis history and
// drops samples past the retention horizon.
func (svc *Service) SampleRate(ctx context.Context, now uint64) error {
	sample := RateSample{
		Timestamp: now,
		Internal:  svc.engine.ExchangeRate(),
	}
	if market, ok := svc.chain.MarketRate(); ok {
		sample.Market = market
	}
	if err := svc.rateHistory.AddValuesWithScore(ctx, float64(now), sample.member()); err != nil {
		return errors.Wrap(err, "failed writing rate sample")
	}
	if now > rateHistoryRetention {
		if _, err := svc.rateHistory.RemoveByScore(ctx, 0, int64(now-rateHistoryRetention)); err != nil {
			return errors.Wrap(err, "failed pruning rate history")
		}
	}
	return nil
}

// GetRateHistory reads samples in [from, to] ordered by time.
func (svc *Service) GetRateHistory(ctx context.Context, from, to uint64) ([]RateSample, error) {
	raw, err := svc.rateHistory.GetValuesByScore(ctx, int64(from), int64(to), 10000)
	if err != nil {
		return nil, errors.Wrap(err, "failed reading rate history")
	}
	out := make([]RateSample, 0, len(raw))
	for _, member := range raw {
		sample, err := parseRateSample(member)
		if err != nil {
			svc.logger.Warn(err.Error())
			continue
		}
		out = append(out, sample)
	}
	return out, nil
}
