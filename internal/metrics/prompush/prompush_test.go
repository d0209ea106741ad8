package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tbetl/internal/metrics"
)

// readCounterValue reads the current value of a Counter for assertions in tests.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	require.NotNil(t, m.GetCounter())
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	require.True(t, ok)
	require.NoError(t, metric.Write(m))
	require.NotNil(t, m.GetSummary())
	return m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum()
}

func TestNewBackend(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("tb", "")
	require.Error(t, err)

	b, err := NewBackend("", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "tbetl", b.jobName)

	b, err = NewBackend("weekly", "http://pushgateway:9091")
	require.NoError(t, err)
	assert.Equal(t, "weekly", b.jobName)
	assert.Equal(t, "http://pushgateway:9091", b.gatewayURL)
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("tb", "http://example.com")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 3, metrics.Labels{"job": "tb", "source": "owid", "step": "coerce", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"source": "who", "kind": metrics.RowsClipped})
	b.IncCounter(metrics.RowsTotal, 0.5, metrics.Labels{"source": "who", "kind": metrics.RowsClipped})
	b.IncCounter(metrics.SourceTotal, 1, metrics.Labels{"source": "owid", "status": "failure"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	assert.Equal(t, 3.0, readCounterValue(t, b.stepCounter.WithLabelValues("owid", "coerce", "success")))
	assert.Equal(t, 5.5, readCounterValue(t, b.rowCounter.WithLabelValues("who", metrics.RowsClipped)))
	assert.Equal(t, 1.0, readCounterValue(t, b.sourceCounter.WithLabelValues("owid", "failure")))
	assert.Zero(t, readCounterValue(t, b.stepCounter.WithLabelValues("x", "y", "z")))
}

func TestIncCounterNilMetrics(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	assert.NotPanics(t, func() {
		b.IncCounter(metrics.StepTotal, 1, metrics.Labels{})
		b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{})
		b.IncCounter(metrics.SourceTotal, 1, metrics.Labels{})
		b.ObserveHistogram(metrics.StepDuration, 1, metrics.Labels{})
	})
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("tb", "http://example.com")
	require.NoError(t, err)

	lbls := metrics.Labels{"source": "owid", "step": "handle_missing", "status": "success"}
	b.ObserveHistogram(metrics.StepDuration, 1.5, lbls)
	b.ObserveHistogram("other_metric", 2.0, lbls)

	count, sum := readSummaryCountSum(t, b.stepDuration, "owid", "handle_missing", "success")
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, 1.5, sum)
}

func TestFlush(t *testing.T) {
	t.Parallel()

	type pushRequestInfo struct {
		method  string
		path    string
		bodyLen int
	}
	reqCh := make(chan pushRequestInfo, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushRequestInfo{method: r.Method, path: r.URL.Path, bodyLen: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("tb-job", server.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"source": "owid", "kind": metrics.RowsLoaded})
	require.NoError(t, b.Flush())

	select {
	case got := <-reqCh:
		assert.Equal(t, http.MethodPut, got.method)
		assert.Contains(t, got.path, "tb-job")
		assert.Positive(t, got.bodyLen)
	default:
		t.Fatal("Flush() did not result in any HTTP request to the Pushgateway")
	}
}

// BenchmarkIncCounterRows measures the cost of incrementing the row counter
// through the Backend abstraction.
func BenchmarkIncCounterRows(b *testing.B) {
	backend, err := NewBackend("tb", "http://example.com")
	if err != nil {
		b.Fatalf("NewBackend() error = %v", err)
	}
	labels := metrics.Labels{"source": "owid", "kind": metrics.RowsLoaded}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.IncCounter(metrics.RowsTotal, 1, labels)
	}
}
