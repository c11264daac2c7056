package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCacheCounters(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("lyrics", "hit"))
	misses := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("lyrics", "miss"))

	CacheHit("lyrics")
	CacheHit("lyrics")
	CacheMiss("lyrics")

	require.Equal(t, hits+2, testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("lyrics", "hit")))
	require.Equal(t, misses+1, testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("lyrics", "miss")))
}
