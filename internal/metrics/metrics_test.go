package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordPair(PairScanned)
	r.RecordPair(PairScanned)
	r.RecordPair(PairFetchError)
	r.RecordMatch("4h", "vwma", true)
	r.RecordNotification(false)
	r.RecordRun("DONE", 12)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.pairs.WithLabelValues(PairScanned)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.pairs.WithLabelValues(PairFetchError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.matches.WithLabelValues("4h", "vwma", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifications.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("DONE")))

	n, err := testutil.GatherAndCount(reg, "channelscout_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
