package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorMetrics(t *testing.T) {
	t.Run("pages_fetched_counts_per_mode", func(t *testing.T) {
		before := promtest.ToFloat64(PagesFetched.WithLabelValues("limit"))
		PagesFetched.WithLabelValues("limit").Inc()
		PagesFetched.WithLabelValues("limit").Inc()

		assert.Equal(t, before+2, promtest.ToFloat64(PagesFetched.WithLabelValues("limit")))
	})

	t.Run("messages_collected_adds", func(t *testing.T) {
		before := promtest.ToFloat64(MessagesCollected.WithLabelValues("date_range"))
		MessagesCollected.WithLabelValues("date_range").Add(42)

		assert.Equal(t, before+42, promtest.ToFloat64(MessagesCollected.WithLabelValues("date_range")))
	})

	t.Run("serialization_skipped_increments", func(t *testing.T) {
		before := promtest.ToFloat64(SerializationSkipped)
		SerializationSkipped.Inc()

		assert.Equal(t, before+1, promtest.ToFloat64(SerializationSkipped))
	})

	t.Run("remote_call_duration_accepts_labels", func(t *testing.T) {
		assert.NotPanics(t, func() {
			RemoteCallDuration.WithLabelValues("getChatHistory", "ok").Observe(0.2)
			RemoteCallDuration.WithLabelValues("getMessage", "error").Observe(30)
		})
	})
}

func TestHTTPMetrics(t *testing.T) {
	before := promtest.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/chats/last", "200"))
	HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/chats/last", "200").Inc()

	assert.Equal(t, before+1, promtest.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/chats/last", "200")))
	assert.NotPanics(t, func() {
		HTTPRequestDuration.WithLabelValues("POST", "/api/v1/chat-history/search", "502").Observe(31)
	})
}

func TestDBMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		DBQueryDuration.WithLabelValues("save_all", "tg_messages").Observe(0.004)
	})
	assert.Equal(t, 1, promtest.CollectAndCount(DBQueryDuration, "db_query_duration_seconds"))
}

func TestWorkerMetrics(t *testing.T) {
	before := promtest.ToFloat64(SyncRuns.WithLabelValues("ok"))
	SyncRuns.WithLabelValues("ok").Inc()
	assert.Equal(t, before+1, promtest.ToFloat64(SyncRuns.WithLabelValues("ok")))

	before = promtest.ToFloat64(CacheRequests.WithLabelValues("hit"))
	CacheRequests.WithLabelValues("hit").Inc()
	assert.Equal(t, before+1, promtest.ToFloat64(CacheRequests.WithLabelValues("hit")))
}

func TestMetricsCollectors(t *testing.T) {
	collectors := []prometheus.Collector{
		HTTPRequestDuration,
		HTTPRequestsTotal,
		RemoteCallDuration,
		PagesFetched,
		MessagesCollected,
		SerializationSkipped,
		BatchesPacked,
		JobsProcessed,
		CacheRequests,
		SyncRuns,
		DBQueryDuration,
	}
	for _, c := range collectors {
		assert.Implements(t, (*prometheus.Collector)(nil), c)
	}
}
