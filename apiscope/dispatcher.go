package apiscope

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Drop reasons reported in the records_dropped_total metric.
const (
	dropQueueFull = "queue_full"
	dropEncode    = "encode"
	dropTransport = "transport"
	dropRejected  = "rejected"
)

func (m *Monitor) run() {
	defer m.wg.Done()
	for {
		select {
		case rec := <-m.records:
			m.dispatch(rec)
		case <-m.closeCh:
			for {
				select {
				case rec := <-m.records:
					m.dispatch(rec)
				default:
					return
				}
			}
		}
	}
}

func (m *Monitor) dispatch(rec Record) {
	m.sem <- struct{}{}
	m.wg.Add(1)
	go func(r Record) {
		defer m.wg.Done()
		defer func() { <-m.sem }()
		m.deliver(r)
	}(rec)
}

func (m *Monitor) deliver(rec Record) {
	reason, err := m.send(rec)
	if reason == "" {
		m.metrics.sent.Inc()
		return
	}
	m.metrics.dropped.WithLabelValues(reason).Inc()
	evt := m.logger.Debug().Str("record_id", rec.RecordID).Str("reason", reason)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("record not delivered")
}

// send posts one record to the collector. An empty reason means delivered;
// any other outcome is terminal for the record, there are no retries.
func (m *Monitor) send(rec Record) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return dropEncode, err
	}
	if m.cfg.Debug {
		m.logger.Debug().RawJSON("record", body).Msg("dispatching record")
	}

	payload, err := gzipPayload(body)
	if err != nil {
		return dropEncode, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return dropTransport, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("x-api-key", m.cfg.APIKey)
	req.Header.Set("x-apiscope-version", VersionHeaderValue())

	start := time.Now()
	resp, err := m.cfg.HTTPClient.Do(req)
	m.metrics.sendDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return dropTransport, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dropRejected, fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return "", nil
}

func gzipPayload(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		if closeErr := gz.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
