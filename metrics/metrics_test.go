package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/megayours/tma-session/auth"
	"github.com/megayours/tma-session/metrics"
	"github.com/megayours/tma-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(metrics.WithRegistry(reg), metrics.WithConstLabels(prometheus.Labels{"app": "test"}))

	c.PassCompleted(auth.OutcomeAuthenticated)
	c.PassCompleted(auth.OutcomeAuthenticated)
	c.PassCompleted(auth.OutcomeCancelled)
	c.CacheHit(session.ProviderHostShell)
	c.Validation(session.ProviderExternalOAuth, auth.ResultRejected, 20*time.Millisecond)
	c.Logout()

	expected := `
# HELP tma_session_passes_total Total number of resolution passes by outcome
# TYPE tma_session_passes_total counter
tma_session_passes_total{app="test",outcome="authenticated"} 2
tma_session_passes_total{app="test",outcome="cancelled"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tma_session_passes_total"))

	expected = `
# HELP tma_session_validations_total Total number of backend validations by provider and result
# TYPE tma_session_validations_total counter
tma_session_validations_total{app="test",provider="external_oauth",result="rejected"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tma_session_validations_total"))

	count, err := testutil.GatherAndCount(reg, "tma_session_validation_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "tma_session_cache_hits_total", "tma_session_logouts_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCollector_NamespaceAndSubsystem(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(metrics.WithRegistry(reg), metrics.WithNamespace("app"), metrics.WithSubsystem("auth"),
		metrics.WithBuckets([]float64{0.1, 1}))
	c.Logout()

	count, err := testutil.GatherAndCount(reg, "app_auth_logouts_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
