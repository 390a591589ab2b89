package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	// Vectors only show up once a label set exists.
	Searches.WithLabelValues("westlaw", "ok")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"lexgate_browser_launches_total",
		"lexgate_pages_in_use",
		"lexgate_searches_total",
	} {
		assert.True(t, names[want], want)
	}
}

func TestSearchCounterLabels(t *testing.T) {
	c := Searches.WithLabelValues("lexis", "timeout")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))

	other := testutil.ToFloat64(Searches.WithLabelValues("lexis", "ok"))
	assert.Zero(t, other)
}

func TestResultWaitTimeoutsExposition(t *testing.T) {
	expected := `
# HELP lexgate_result_wait_timeouts_total Searches where no result marker appeared before the wait elapsed.
# TYPE lexgate_result_wait_timeouts_total counter
lexgate_result_wait_timeouts_total{source="bloomberglaw"} 1
`
	ResultWaitTimeouts.WithLabelValues("bloomberglaw").Inc()
	assert.NoError(t, testutil.CollectAndCompare(ResultWaitTimeouts, strings.NewReader(expected)))
}
