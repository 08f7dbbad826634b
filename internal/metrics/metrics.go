package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"optionAMM/internal/amount"
	"optionAMM/internal/model"
)

const namespace = "amm"

// Metrics holds the prometheus collectors for the pool engine. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Operations       *prometheus.CounterVec
	SwapVolume       *prometheus.CounterVec
	SwapFees         *prometheus.CounterVec
	LiquidityAdded   *prometheus.CounterVec
	LiquidityRemoved *prometheus.CounterVec
	PoolsCreated     prometheus.Counter
	Notifications    *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Pool engine operations by type and outcome",
		}, []string{"op", "status"}),
		SwapVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "volume_tokens_total",
			Help:      "Gross swap input in token units",
		}, []string{"market"}),
		SwapFees: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "fees_tokens_total",
			Help:      "Fees withheld from swap inputs in token units",
		}, []string{"market"}),
		LiquidityAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "added_tokens_total",
			Help:      "Liquidity deposited in token units",
		}, []string{"market"}),
		LiquidityRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidity",
			Name:      "removed_shares_total",
			Help:      "LP shares burned",
		}, []string{"market"}),
		PoolsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pools_created_total",
			Help:      "Pools registered",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink and outcome",
		}, []string{"sink", "status"}),
	}
}

func (m *Metrics) ObserveOperation(op, status string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, status).Inc()
}

func (m *Metrics) ObservePoolCreated(market model.MarketID, liquidity amount.Amount) {
	if m == nil {
		return
	}
	m.PoolsCreated.Inc()
	m.LiquidityAdded.WithLabelValues(market.Hex()).Add(tokens(liquidity))
}

func (m *Metrics) ObserveSwap(market model.MarketID, gross, fee amount.Amount) {
	if m == nil {
		return
	}
	m.SwapVolume.WithLabelValues(market.Hex()).Add(tokens(gross))
	m.SwapFees.WithLabelValues(market.Hex()).Add(tokens(fee))
}

func (m *Metrics) ObserveDeposit(market model.MarketID, deposit amount.Amount) {
	if m == nil {
		return
	}
	m.LiquidityAdded.WithLabelValues(market.Hex()).Add(tokens(deposit))
}

func (m *Metrics) ObserveWithdrawal(market model.MarketID, shares amount.Amount) {
	if m == nil {
		return
	}
	m.LiquidityRemoved.WithLabelValues(market.Hex()).Add(tokens(shares))
}

func (m *Metrics) ObserveDelivery(sink, status string, count int) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(sink, status).Add(float64(count))
}

func tokens(a amount.Amount) float64 {
	f, err := a.Dec().Float64()
	if err != nil {
		return 0
	}
	return f
}
