package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveMutation(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveMutation("set_parent", 3, time.Millisecond, nil)
	r.ObserveMutation("set_parent", 0, time.Millisecond, errors.New("cycle"))
	r.ObserveMutation("remove", 0, time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.mutations.WithLabelValues("set_parent", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.mutations.WithLabelValues("set_parent", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.mutations.WithLabelValues("remove", ResultOK)))

	expected := `
# HELP treepath_descendants_rewritten Descendant paths rewritten by a single move
# TYPE treepath_descendants_rewritten histogram
treepath_descendants_rewritten_bucket{le="0"} 0
treepath_descendants_rewritten_bucket{le="1"} 0
treepath_descendants_rewritten_bucket{le="10"} 1
treepath_descendants_rewritten_bucket{le="100"} 1
treepath_descendants_rewritten_bucket{le="1000"} 1
treepath_descendants_rewritten_bucket{le="10000"} 1
treepath_descendants_rewritten_bucket{le="+Inf"} 1
treepath_descendants_rewritten_sum 3
treepath_descendants_rewritten_count 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "treepath_descendants_rewritten"))
}

func TestCacheEvents(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.CacheHit()
	r.CacheHit()
	r.CacheMiss()
	r.CacheInvalidated()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheEvents.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheEvents.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheEvents.WithLabelValues("invalidate")))
}

func TestNewRecorderPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	assert.Panics(t, func() { NewRecorder(reg) })
}
