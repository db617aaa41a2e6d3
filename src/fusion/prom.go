package fusion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/waxfusion/fusiond/src/model"
)

var opCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fusion_operations_total",
	Help: "count of successfully applied operations, by operation",
}, []string{"op"})

var rejectionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fusion_rejected_operations_total",
	Help: "count of rejected operations, by operation and reason",
}, []string{"op", "reason"})

var swaxEarningGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_swax_currently_earning",
	Help: "swax staked directly by users",
})

var swaxBackingGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_swax_backing_lswax",
	Help: "swax backing the liquid lswax supply",
})

var lswaxSupplyGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_liquified_swax",
	Help: "outstanding lswax supply",
})

var exchangeRateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_lswax_exchange_rate",
	Help: "wax redeemable per lswax",
})

var revenueGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_revenue_awaiting_distribution",
	Help: "wax revenue queued for the next daily distribution",
})

var rentalPoolGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_wax_available_for_rentals",
	Help: "idle wax available for cpu rentals and instant redemptions",
})

var redemptionPoolGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_wax_for_redemption",
	Help: "wax reserved for open redemption windows",
})

var rewardPoolGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fusion_reward_pool",
	Help: "cumulative wax allocated to the staking farm",
})

func RecordOperation(op string) {
	opCounter.With(prometheus.Labels{"op": op}).Inc()
}

func RecordRejection(op, reason string) {
	rejectionCounter.With(prometheus.Labels{"op": op, "reason": reason}).Inc()
}

func updateStateGauges(s *State) {
	swaxEarningGauge.Set(float64(s.Global.SwaxEarning.Amount) / model.WaxDigitMultiplier)
	swaxBackingGauge.Set(float64(s.Global.SwaxBackingLswax.Amount) / model.WaxDigitMultiplier)
	lswaxSupplyGauge.Set(float64(s.Global.LiquifiedSwax.Amount) / model.WaxDigitMultiplier)
	revenueGauge.Set(float64(s.Global.RevenueAwaitingDistribution.Amount) / model.WaxDigitMultiplier)
	rentalPoolGauge.Set(float64(s.Global.WaxAvailableForRentals.Amount) / model.WaxDigitMultiplier)
	redemptionPoolGauge.Set(float64(s.Global.WaxForRedemption.Amount) / model.WaxDigitMultiplier)
	rewardPoolGauge.Set(float64(s.Rewards.RewardPool.Amount) / model.WaxDigitMultiplier)
	if s.Global.LiquifiedSwax.Amount > 0 {
		exchangeRateGauge.Set(float64(s.Global.SwaxBackingLswax.Amount) / float64(s.Global.LiquifiedSwax.Amount))
	} else {
		exchangeRateGauge.Set(1)
	}
}
