package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"gitpack/giterr"
)

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	m := NewMetrics("gitpack_test")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
}

func TestObserveErrorIncrementsByKind(t *testing.T) {
	m := NewMetrics("gitpack_test2")
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	m.ObserveError(giterr.Wrap(giterr.KindPolicyDenied, "denied"))
	m.ObserveError(nil) // must be a no-op

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "gitpack_test2_errors_total" {
			found = mf
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Metric, 1)
	require.Equal(t, float64(1), found.Metric[0].GetCounter().GetValue())
	require.Equal(t, "policy-denied", found.Metric[0].GetLabel()[0].GetValue())
}

func TestStartSpanReturnsUsableSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test-op")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()
}
