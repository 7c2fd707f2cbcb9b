package apiscope

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Monitor owns the masking policy and the dispatch pipeline. Create one per
// process with New and share it across handlers; all methods are safe for
// concurrent use.
type Monitor struct {
	cfg     Config
	policy  FieldPolicy
	build   *builder
	logger  zerolog.Logger
	metrics *metrics
	records chan Record
	sem     chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	closeCh chan struct{}
	enabled bool
}

// New validates cfg, applies defaults and starts the dispatch workers. With
// Enabled set to false it returns a no-op monitor and no error.
func New(cfg Config) (*Monitor, error) {
	enabled := true
	if cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}
	if !enabled {
		return newNoopMonitor(cfg), nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if err := validateConfig(cfg.ProjectID, cfg.APIKey, endpoint); err != nil {
		return nil, err
	}

	cfg = normalizeConfig(cfg)
	policy := NewFieldPolicy(!cfg.DisableDefaultMaskedFields, cfg.MaskedFields)

	monitor := &Monitor{
		cfg:     cfg,
		policy:  policy,
		build:   newBuilder(cfg, policy),
		logger:  *cfg.Logger,
		records: make(chan Record, cfg.QueueSize),
		sem:     make(chan struct{}, cfg.Workers),
		closeCh: make(chan struct{}),
		enabled: true,
	}
	monitor.metrics = newMetrics(cfg.MetricsRegistry, func() int { return len(monitor.records) })

	monitor.wg.Add(1)
	go monitor.run()

	return monitor, nil
}

// NewNoop returns a monitor that observes nothing and sends nothing.
func NewNoop() *Monitor {
	return newNoopMonitor(Config{})
}

func newNoopMonitor(cfg Config) *Monitor {
	cfg = normalizeConfig(cfg)
	monitor := &Monitor{
		cfg:     cfg,
		logger:  *cfg.Logger,
		closeCh: make(chan struct{}),
		enabled: false,
	}
	monitor.metrics = newMetrics(nil, func() int { return len(monitor.records) })
	return monitor
}

// Observe masks one captured exchange and queues the resulting record. It
// runs on the caller's goroutine but never touches the network and never
// blocks on the collector.
func (m *Monitor) Observe(ex Exchange) {
	if m == nil || !m.enabled {
		return
	}
	m.Add(m.build.build(ex))
}

// Add queues an already-built record. A full queue drops the record and
// counts the drop.
func (m *Monitor) Add(rec Record) {
	if m == nil || !m.enabled {
		return
	}
	select {
	case m.records <- rec:
		m.metrics.enqueued.Inc()
	case <-m.closeCh:
	default:
		m.metrics.dropped.WithLabelValues(dropQueueFull).Inc()
		m.logger.Debug().Str("record_id", rec.RecordID).Msg("record queue is full; dropping record")
	}
}

// Ignores reports whether the given request path is excluded from capture.
func (m *Monitor) Ignores(path string) bool {
	if m == nil {
		return false
	}
	for _, pattern := range m.cfg.IgnoredRoutes {
		if matchRoute(pattern, path) {
			return true
		}
	}
	return false
}

// Shutdown stops intake and flushes queued records until ctx expires.
// Records still queued after that are discarded.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.once.Do(func() {
		close(m.closeCh)
	})

	if !m.enabled {
		return nil
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline.
func (m *Monitor) Close() error {
	return m.Shutdown(context.Background())
}

// Enabled reports whether the monitor records anything at all.
func (m *Monitor) Enabled() bool {
	if m == nil {
		return false
	}
	return m.enabled
}

// Config returns the normalized configuration the monitor runs with.
func (m *Monitor) Config() Config {
	if m == nil {
		return Config{}
	}
	return m.cfg
}

// Registry exposes the registry holding the monitor's metrics.
func (m *Monitor) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.metrics.registry
}
