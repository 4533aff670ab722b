package promstats_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/graph-gophers/loadframe"
	"github.com/graph-gophers/loadframe/stats/promstats"
)

func TestSinkObserveStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := promstats.New(reg)

	sink.ObserveStats("users", loadframe.Stats{
		LoadRequests:    3,
		ItemsRequested:  10,
		CacheHits:       4,
		BatchExecutions: 2,
		ItemsLoaded:     6,
		AvgBatchSize:    3.5,
		MinBatchSize:    2,
		MaxBatchSize:    5,
		MinBatchUnique:  1,
		MaxBatchUnique:  4,
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}

	require.Contains(t, byName, "loadframe_load_requests_total")
	require.Contains(t, byName, "loadframe_batch_size_unique_max")
	require.Len(t, byName["loadframe_load_requests_total"].GetMetric(), 1)
}
