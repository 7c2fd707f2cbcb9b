// Package config loads monitor configuration from YAML files and
// APISCOPE_-prefixed environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	apiscope "github.com/apiscopehq/apiscope-go/apiscope"
)

const envPrefix = "APISCOPE_"

// DefaultFile is the config file Load falls back to when no path is given.
const DefaultFile = "apiscope.yaml"

type settings struct {
	ProjectID string `koanf:"project_id"`
	APIKey    string `koanf:"api_key"`
	Endpoint  string `koanf:"endpoint"`
	Enabled   *bool  `koanf:"enabled"`

	DisableRequestBody         bool     `koanf:"disable_request_body"`
	DisableResponseBody        bool     `koanf:"disable_response_body"`
	MaskedFields               []string `koanf:"masked_fields"`
	DisableDefaultMaskedFields bool     `koanf:"disable_default_masked_fields"`
	ExcludedHeaders            []string `koanf:"excluded_headers"`
	IgnoredRoutes              []string `koanf:"ignored_routes"`

	MaxBodyBytes int           `koanf:"max_body_bytes"`
	QueueSize    int           `koanf:"queue_size"`
	Workers      int           `koanf:"workers"`
	SendTimeout  time.Duration `koanf:"send_timeout"`

	Debug    bool   `koanf:"debug"`
	LogLevel string `koanf:"log_level"`
}

// Load reads the YAML file at path, then overlays environment variables.
// A missing file is fine; env vars alone can carry the whole configuration.
// In env names, dots become double underscores: APISCOPE_PROJECT_ID,
// APISCOPE_MASKED_FIELDS (comma separated), APISCOPE_SEND_TIMEOUT ("2s").
func Load(path string) (apiscope.Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return apiscope.Config{}, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return apiscope.Config{}, err
	}

	var s settings
	if err := k.Unmarshal("", &s); err != nil {
		return apiscope.Config{}, err
	}

	return s.toConfig(), nil
}

// FromEnv builds a configuration from environment variables only.
func FromEnv() (apiscope.Config, error) {
	return Load(string(os.PathSeparator) + "nonexistent")
}

func (s settings) toConfig() apiscope.Config {
	cfg := apiscope.Config{
		ProjectID: s.ProjectID,
		APIKey:    s.APIKey,
		Endpoint:  s.Endpoint,
		Enabled:   s.Enabled,

		DisableRequestBody:         s.DisableRequestBody,
		DisableResponseBody:        s.DisableResponseBody,
		MaskedFields:               s.MaskedFields,
		DisableDefaultMaskedFields: s.DisableDefaultMaskedFields,
		ExcludedHeaders:            s.ExcludedHeaders,
		IgnoredRoutes:              s.IgnoredRoutes,

		MaxBodyBytes: s.MaxBodyBytes,
		QueueSize:    s.QueueSize,
		Workers:      s.Workers,
		SendTimeout:  s.SendTimeout,

		Debug: s.Debug,
	}
	if s.LogLevel != "" {
		cfg.Logger = NewLogger(s.LogLevel)
	}
	return cfg
}
