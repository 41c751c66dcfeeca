package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteWriteSink decodes remote-write requests into a channel.
func remoteWriteSink(t *testing.T, received chan<- []prompb.TimeSeries) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		var writeReq prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &writeReq))

		received <- writeReq.Timeseries
		w.WriteHeader(http.StatusOK)
	}))
}

// findLabel returns the value of the named label, or "".
func findLabel(labels []prompb.Label, name string) string {
	for _, l := range labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

func TestPushGauge_RemoteWrite(t *testing.T) {
	received := make(chan []prompb.TimeSeries, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))
		assert.Equal(t, "0.1.0", r.Header.Get("X-Prometheus-Remote-Write-Version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		decoded, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		var writeReq prompb.WriteRequest
		require.NoError(t, proto.Unmarshal(decoded, &writeReq))
		received <- writeReq.Timeseries
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := NewPushRegistry(PushConfig{
		URL:      server.URL,
		Prefix:   "staging",
		Job:      "workflows",
		Instance: "host-1",
	})

	gauge, err := registry.NewGauge(prometheus.GaugeOpts{
		Namespace: "reactor",
		Name:      "execution_duration_seconds",
		Help:      "Wall time of the most recent execution.",
	})
	require.NoError(t, err)
	gauge.Set(4.2)

	select {
	case ts := <-received:
		require.Len(t, ts, 1)
		assert.Equal(t, "staging_reactor_execution_duration_seconds", findLabel(ts[0].Labels, "__name__"),
			"Namespace and prefix should both apply")
		assert.Equal(t, "workflows", findLabel(ts[0].Labels, "job"))
		assert.Equal(t, "host-1", findLabel(ts[0].Labels, "instance"))
		require.Len(t, ts[0].Samples, 1)
		assert.Equal(t, 4.2, ts[0].Samples[0].Value)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for remote write")
	}
}

func TestPushCounterVec_SequencesPerLabelSet(t *testing.T) {
	received := make(chan []prompb.TimeSeries, 4)
	server := remoteWriteSink(t, received)
	defer server.Close()

	registry := NewPushRegistry(PushConfig{URL: server.URL})

	vec, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "steps_finished_total",
	}, []string{"step", "status"})
	require.NoError(t, err)

	labels := prometheus.Labels{"step": "allocate", "status": "succeeded"}
	vec.With(labels).Inc()
	vec.With(labels).Inc()

	for i := 0; i < 2; i++ {
		select {
		case ts := <-received:
			require.Len(t, ts, 1)
			assert.Equal(t, "allocate", findLabel(ts[0].Labels, "step"))
			require.Len(t, ts[0].Samples, 1)
			assert.Equal(t, float64(i+1), ts[0].Samples[0].Value,
				"Repeated With calls must accumulate into one counter")
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for push %d", i+1)
		}
	}
}

func TestLabelsToKey_Stable(t *testing.T) {
	a := labelsToKey(prometheus.Labels{"step": "allocate", "status": "aborted", "extra": "x"})
	for i := 0; i < 50; i++ {
		b := labelsToKey(prometheus.Labels{"extra": "x", "status": "aborted", "step": "allocate"})
		require.Equal(t, a, b, "Key must not depend on map iteration order")
	}
}

func TestScrapeRegistry_ExposesMetrics(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)

	gauge, err := registry.NewGauge(prometheus.GaugeOpts{
		Namespace: "reactor",
		Name:      "execution_duration_seconds",
		Help:      "help",
	})
	require.NoError(t, err)
	gauge.Set(1.5)

	counter, err := registry.NewCounter(prometheus.CounterOpts{
		Namespace: "reactor",
		Name:      "executions_started_total",
		Help:      "help",
	})
	require.NoError(t, err)
	counter.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	registry.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "reactor_execution_duration_seconds 1.5")
	assert.Contains(t, body, "reactor_executions_started_total 1")
	assert.Contains(t, body, "go_goroutines", "Runtime collectors should be registered")
}

func TestScrapeRegistry_RejectsDuplicates(t *testing.T) {
	registry, err := NewScrapeRegistry()
	require.NoError(t, err)

	opts := prometheus.CounterOpts{Name: "dup_total", Help: "help"}
	_, err = registry.NewCounter(opts)
	require.NoError(t, err)

	_, err = registry.NewCounter(opts)
	require.Error(t, err, "Registering the same series twice should fail")
	assert.Contains(t, err.Error(), "dup_total")
}
