package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.GateDecision(OutcomeAllowed)
	m.GateDecision(OutcomeAllowed)
	m.GateDecision(OutcomeFailOpen)
	m.Usage("gpt-4o", 1000, 500, 0.0075)
	m.CallFailure("gpt-4o")
	m.AccountingError("usage_log")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues(OutcomeAllowed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues(OutcomeFailOpen)))
	assert.InDelta(t, 0.0075, testutil.ToFloat64(m.usageCost.WithLabelValues("gpt-4o")), 1e-12)
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.usageTokens.WithLabelValues("gpt-4o", "prompt")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.usageTokens.WithLabelValues("gpt-4o", "completion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callFailures.WithLabelValues("gpt-4o")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.accountingErrors.WithLabelValues("usage_log")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GateDecision(OutcomeDenied)
		m.Usage("x", 1, 1, 1)
		m.CallFailure("x")
		m.AccountingError("x")
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger("loud")
	assert.Error(t, err)
}
