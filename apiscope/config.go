package apiscope

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	defaultEndpoint     = "https://ingest.apiscope.dev/v1/ingest"
	defaultQueueSize    = 1024
	defaultWorkers      = 3
	defaultSendTimeout  = 2 * time.Second
	defaultMaxBodyBytes = 2 << 20
	defaultHTTPTimeout  = 10 * time.Second
)

// Config configures a Monitor. The value passed to New is copied and
// normalized; a running monitor never sees later mutations.
type Config struct {
	// ProjectID identifies the project on the collector. Required.
	ProjectID string
	// APIKey authenticates against the collector. It is sent as the
	// x-api-key header and never appears in logs or records. Required.
	APIKey string
	// Endpoint overrides the collector ingest URL.
	Endpoint string
	// Enabled turns the monitor off when set to false; nil means on.
	// A disabled monitor observes nothing and sends nothing.
	Enabled *bool

	// DisableRequestBody and DisableResponseBody switch off body capture
	// per direction. Headers and timing are still recorded.
	DisableRequestBody  bool
	DisableResponseBody bool
	// MaskedFields adds field names to the masking policy.
	MaskedFields []string
	// DisableDefaultMaskedFields starts the policy from an empty set
	// instead of the built-in one.
	DisableDefaultMaskedFields bool
	// ExcludedHeaders are removed from records entirely.
	ExcludedHeaders []string
	// IgnoredRoutes lists paths that bypass capture. A trailing '*' makes
	// the entry a prefix pattern.
	IgnoredRoutes []string

	// MaxBodyBytes bounds how much of each body is captured. Bodies beyond
	// the bound are served in full but recorded truncated.
	MaxBodyBytes int
	// QueueSize bounds the dispatch queue; a full queue drops new records.
	QueueSize int
	// Workers bounds concurrent sends to the collector.
	Workers int
	// SendTimeout bounds each individual send attempt.
	SendTimeout time.Duration

	HTTPClient *http.Client
	// Logger receives diagnostics. Nil keeps the monitor silent.
	Logger *zerolog.Logger
	// Debug additionally logs every outgoing record at debug level.
	Debug bool
	// MetricsRegistry receives the monitor's metrics. Nil uses a private
	// registry, readable via Monitor.Registry.
	MetricsRegistry *prometheus.Registry
}

func validateConfig(projectID, apiKey, endpoint string) error {
	if projectID == "" {
		return errors.New("ProjectID is required")
	}
	if apiKey == "" {
		return errors.New("APIKey is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("endpoint must be an http or https URL")
	}
	if u.Host == "" {
		return errors.New("endpoint must include a host")
	}
	return nil
}

func normalizeConfig(cfg Config) Config {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	return cfg
}
