package apiscope

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func shutdownMonitor(t *testing.T, monitor *Monitor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := monitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown monitor: %v", err)
	}
}

func TestSendPostsGzippedRecord(t *testing.T) {
	type received struct {
		apiKey   string
		encoding string
		ctype    string
		record   Record
	}
	got := make(chan received, 1)

	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gr, err := gzip.NewReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payload, err := io.ReadAll(gr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		got <- received{
			apiKey:   r.Header.Get("x-api-key"),
			encoding: r.Header.Get("Content-Encoding"),
			ctype:    r.Header.Get("Content-Type"),
			record:   rec,
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer collector.Close()

	monitor, err := New(Config{ProjectID: "prj_1", APIKey: "sk_live_abc", Endpoint: collector.URL})
	if err != nil {
		t.Fatalf("init monitor: %v", err)
	}
	defer shutdownMonitor(t, monitor)

	monitor.Observe(testExchange())

	select {
	case r := <-got:
		if r.apiKey != "sk_live_abc" {
			t.Fatalf("expected api key header, got %q", r.apiKey)
		}
		if r.encoding != "gzip" || r.ctype != "application/json" {
			t.Fatalf("unexpected wire headers: %q %q", r.encoding, r.ctype)
		}
		if r.record.ProjectID != "prj_1" || r.record.Data.Response.Code != 201 {
			t.Fatalf("unexpected record: %+v", r.record)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for record")
	}

	waitFor(t, 3*time.Second, func() bool {
		return testutil.ToFloat64(monitor.metrics.sent) == 1
	}, "expected sent counter to reach 1")
}

func TestCollectorRejectionIsTerminal(t *testing.T) {
	var attempts atomic.Int64
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer collector.Close()

	monitor, err := New(Config{ProjectID: "prj_1", APIKey: "sk_live_abc", Endpoint: collector.URL})
	if err != nil {
		t.Fatalf("init monitor: %v", err)
	}

	monitor.Observe(testExchange())
	shutdownMonitor(t, monitor)

	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected exactly one attempt, got %d", got)
	}
	if got := testutil.ToFloat64(monitor.metrics.dropped.WithLabelValues(dropRejected)); got != 1 {
		t.Fatalf("expected one rejected drop, got %v", got)
	}
	if got := testutil.ToFloat64(monitor.metrics.sent); got != 0 {
		t.Fatalf("expected nothing sent, got %v", got)
	}
}

func TestTransportFailureIsTerminal(t *testing.T) {
	monitor, err := New(Config{
		ProjectID:   "prj_1",
		APIKey:      "sk_live_abc",
		Endpoint:    "http://127.0.0.1:1/v1/ingest",
		SendTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("init monitor: %v", err)
	}

	monitor.Observe(testExchange())
	shutdownMonitor(t, monitor)

	if got := testutil.ToFloat64(monitor.metrics.dropped.WithLabelValues(dropTransport)); got != 1 {
		t.Fatalf("expected one transport drop, got %v", got)
	}
}

func TestQueueFullDropsNewestRecord(t *testing.T) {
	release := make(chan struct{})
	hit := make(chan struct{}, 16)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	monitor, err := New(Config{
		ProjectID:   "prj_1",
		APIKey:      "sk_live_abc",
		Endpoint:    collector.URL,
		QueueSize:   2,
		Workers:     1,
		SendTimeout: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("init monitor: %v", err)
	}

	rec := func() Record { return Record{RecordID: "r", ProjectID: "prj_1"} }

	// First record occupies the single worker inside the blocked collector.
	monitor.Add(rec())
	<-hit

	// Second record is picked up by the drain loop, which then blocks on the
	// worker semaphore, leaving the queue itself empty again.
	monitor.Add(rec())
	waitFor(t, 3*time.Second, func() bool { return len(monitor.records) == 0 },
		"expected drain loop to pick up the queued record")

	// Fill the queue to capacity, then overflow by one.
	monitor.Add(rec())
	monitor.Add(rec())
	monitor.Add(rec())

	if got := testutil.ToFloat64(monitor.metrics.dropped.WithLabelValues(dropQueueFull)); got != 1 {
		t.Fatalf("expected exactly one queue-full drop, got %v", got)
	}
	if got := testutil.ToFloat64(monitor.metrics.enqueued); got != 4 {
		t.Fatalf("expected four accepted records, got %v", got)
	}

	close(release)
	shutdownMonitor(t, monitor)

	if got := testutil.ToFloat64(monitor.metrics.sent); got != 4 {
		t.Fatalf("expected all accepted records delivered, got %v", got)
	}
}

func TestShutdownFlushesQueuedRecords(t *testing.T) {
	var delivered atomic.Int64
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	monitor, err := New(Config{ProjectID: "prj_1", APIKey: "sk_live_abc", Endpoint: collector.URL})
	if err != nil {
		t.Fatalf("init monitor: %v", err)
	}

	for i := 0; i < 20; i++ {
		monitor.Observe(testExchange())
	}
	shutdownMonitor(t, monitor)

	if got := delivered.Load(); got != 20 {
		t.Fatalf("expected 20 records flushed, got %d", got)
	}
}
