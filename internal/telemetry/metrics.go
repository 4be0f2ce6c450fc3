package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "budget_gateway"

// Gate outcomes.
const (
	OutcomeAllowed  = "allowed"
	OutcomeDenied   = "denied"
	OutcomeFailOpen = "fail_open"
	OutcomeAnomaly  = "anomaly"
)

// Metrics holds the accounting collectors. A nil *Metrics is valid and
// records nothing.
//
// Metrics:
//   - budget_gateway_gate_decisions_total: budget checks by outcome
//   - budget_gateway_usage_cost_usd_total: reported cost by model
//   - budget_gateway_usage_tokens_total: reported tokens by model and kind
//   - budget_gateway_call_failures_total: failed model calls by model
//   - budget_gateway_accounting_errors_total: contained accounting errors by operation
type Metrics struct {
	gateDecisions    *prometheus.CounterVec
	usageCost        *prometheus.CounterVec
	usageTokens      *prometheus.CounterVec
	callFailures     *prometheus.CounterVec
	accountingErrors *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		gateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_decisions_total",
				Help:      "Budget checks by outcome",
			},
			[]string{"outcome"},
		),
		usageCost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_cost_usd_total",
				Help:      "Cost in USD reported to billing by model",
			},
			[]string{"model"},
		),
		usageTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_tokens_total",
				Help:      "Tokens reported to billing by model and kind",
			},
			[]string{"model", "kind"},
		),
		callFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "call_failures_total",
				Help:      "Failed model calls by model",
			},
			[]string{"model"},
		),
		accountingErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accounting_errors_total",
				Help:      "Accounting errors contained without affecting the caller",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		m.gateDecisions,
		m.usageCost,
		m.usageTokens,
		m.callFailures,
		m.accountingErrors,
	)

	return m
}

func (m *Metrics) GateDecision(outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Usage(model string, promptTokens, completionTokens uint64, cost float64) {
	if m == nil {
		return
	}
	m.usageCost.WithLabelValues(model).Add(cost)
	m.usageTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.usageTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

func (m *Metrics) CallFailure(model string) {
	if m == nil {
		return
	}
	m.callFailures.WithLabelValues(model).Inc()
}

func (m *Metrics) AccountingError(op string) {
	if m == nil {
		return
	}
	m.accountingErrors.WithLabelValues(op).Inc()
}
