// Package testserver provides a mock collector endpoint for integration tests.
package testserver

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	apiscope "github.com/apiscopehq/apiscope-go/apiscope"
)

// IngestPath is where the mock server accepts records.
const IngestPath = "/v1/ingest"

// MockServer emulates the collector ingest endpoint used by tests.
type MockServer struct {
	apiKey string

	srv *httptest.Server

	mu        sync.Mutex
	records   []apiscope.Record
	attempts  []int
	responses []int

	recordCh chan apiscope.Record
}

// StartMockServer boots a mock collector that checks the x-api-key header.
func StartMockServer(apiKey string) (*MockServer, error) {
	ms := &MockServer{
		apiKey:   apiKey,
		recordCh: make(chan apiscope.Record, 100),
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen tcp4: %w", err)
	}

	server := httptest.NewUnstartedServer(http.HandlerFunc(ms.handle))
	server.Listener = listener
	server.Start()

	ms.srv = server
	return ms, nil
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != IngestPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	_ = r.Body.Close()

	if !hmac.Equal([]byte(r.Header.Get("x-api-key")), []byte(m.apiKey)) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	record, err := decodeRecord(body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	status := http.StatusOK
	if len(m.responses) > 0 {
		status = m.responses[0]
		m.responses = m.responses[1:]
	}
	m.attempts = append(m.attempts, status)
	if status >= 200 && status < 300 {
		m.records = append(m.records, record)
		select {
		case m.recordCh <- record:
		default:
		}
	}
	m.mu.Unlock()

	w.WriteHeader(status)
}

func decodeRecord(body []byte) (apiscope.Record, error) {
	gr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return apiscope.Record{}, err
	}
	defer gr.Close()

	payload, err := io.ReadAll(gr)
	if err != nil {
		return apiscope.Record{}, err
	}

	var rec apiscope.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return apiscope.Record{}, err
	}
	return rec, nil
}

// Endpoint returns the ingest endpoint URL for the mock server.
func (m *MockServer) Endpoint() string {
	return m.srv.URL + IngestPath
}

// SetResponses configures the sequence of HTTP statuses the mock server
// should emit, one per request; afterwards it goes back to 200.
func (m *MockServer) SetResponses(statuses []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]int(nil), statuses...)
}

// Records returns a snapshot of all accepted records.
func (m *MockServer) Records() []apiscope.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]apiscope.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Attempts returns the statuses emitted so far, in order.
func (m *MockServer) Attempts() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// WaitForRecord blocks until a record is accepted or the timeout elapses.
func (m *MockServer) WaitForRecord(timeout time.Duration) (apiscope.Record, error) {
	select {
	case rec := <-m.recordCh:
		return rec, nil
	case <-time.After(timeout):
		return apiscope.Record{}, fmt.Errorf("timeout waiting for record")
	}
}

// Stop shuts down the server and releases resources.
func (m *MockServer) Stop() {
	if m == nil || m.srv == nil {
		return
	}
	m.srv.Close()
	close(m.recordCh)
}
