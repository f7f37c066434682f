// Package config loads the daemon settings from a YAML file, with
// environment overrides for secrets and deployment knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the full settings file. Durations are expressed in seconds in
// the file, matching the operational knobs they tune.
type Settings struct {
	DatabaseURL string `yaml:"database_url"`

	InternetArchive struct {
		LimiterMaxRate int `yaml:"limiter_max_rate"`
		// LimiterTimePeriod is the token bucket window in seconds.
		LimiterTimePeriod int `yaml:"limiter_time_period"`
		// Forced quiet after each error class, in seconds.
		RelaxationTimeAfterError429     int    `yaml:"relaxation_time_after_error_429"`
		RelaxationTimeAfterErrorConnect int    `yaml:"relaxation_time_after_error_connect"`
		RequestTimeout                  int    `yaml:"request_timeout"`
		GateDir                         string `yaml:"gate_dir"`
	} `yaml:"internet_archive"`

	Snapshots struct {
		DaysInPast int   `yaml:"days_in_past"`
		Hours      []int `yaml:"hours"`
	} `yaml:"snapshots"`

	Embeddings struct {
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"embeddings"`

	Index struct {
		Path string `yaml:"path"`
	} `yaml:"index"`

	Diagnostics struct {
		Dir string `yaml:"dir"`
	} `yaml:"diagnostics"`
}

// Load reads and validates the settings file at path. Missing optional
// fields get defaults; DATABASE_URL and OPENAI_API_KEY from the environment
// override the file.
func Load(path string) (*Settings, error) {
	// #nosec G304 -- path comes from the command line, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := defaults()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		settings.DatabaseURL = url
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}
	return settings, nil
}

func defaults() *Settings {
	s := &Settings{}
	s.InternetArchive.LimiterMaxRate = 5
	s.InternetArchive.LimiterTimePeriod = 60
	s.InternetArchive.RelaxationTimeAfterError429 = 60
	s.InternetArchive.RelaxationTimeAfterErrorConnect = 30
	s.InternetArchive.RequestTimeout = 30
	s.InternetArchive.GateDir = "data/gates"
	s.Snapshots.DaysInPast = 3
	s.Snapshots.Hours = []int{8, 12, 18, 22}
	s.Embeddings.Model = "text-embedding-3-large"
	s.Embeddings.BatchSize = 64
	s.Index.Path = "data/similarity.index"
	s.Diagnostics.Dir = "data/parsing_errors"
	return s
}

// Validate checks settings correctness.
func (s *Settings) Validate() error {
	if s.DatabaseURL == "" {
		return fmt.Errorf("database_url is required (file or DATABASE_URL)")
	}
	if s.InternetArchive.LimiterMaxRate <= 0 {
		return fmt.Errorf("internet_archive.limiter_max_rate must be positive")
	}
	if s.InternetArchive.LimiterTimePeriod <= 0 {
		return fmt.Errorf("internet_archive.limiter_time_period must be positive")
	}
	if s.InternetArchive.RelaxationTimeAfterError429 <= 0 {
		return fmt.Errorf("internet_archive.relaxation_time_after_error_429 must be positive")
	}
	if s.InternetArchive.RelaxationTimeAfterErrorConnect <= 0 {
		return fmt.Errorf("internet_archive.relaxation_time_after_error_connect must be positive")
	}
	if s.InternetArchive.RequestTimeout <= 0 {
		return fmt.Errorf("internet_archive.request_timeout must be positive")
	}
	if s.Snapshots.DaysInPast <= 0 {
		return fmt.Errorf("snapshots.days_in_past must be positive")
	}
	if len(s.Snapshots.Hours) == 0 {
		return fmt.Errorf("snapshots.hours must list at least one hour")
	}
	for _, h := range s.Snapshots.Hours {
		if h < 0 || h > 23 {
			return fmt.Errorf("snapshots.hours entry %d out of range 0..23", h)
		}
	}
	if s.Embeddings.Model == "" {
		return fmt.Errorf("embeddings.model is required")
	}
	if s.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive")
	}
	if s.Index.Path == "" {
		return fmt.Errorf("index.path is required")
	}
	return nil
}

// LimiterTimePeriod returns the token bucket window.
func (s *Settings) LimiterTimePeriod() time.Duration {
	return time.Duration(s.InternetArchive.LimiterTimePeriod) * time.Second
}

// RelaxationAfter429 returns the forced quiet after an HTTP 429.
func (s *Settings) RelaxationAfter429() time.Duration {
	return time.Duration(s.InternetArchive.RelaxationTimeAfterError429) * time.Second
}

// RelaxationAfterConnect returns the forced quiet after a connection error.
func (s *Settings) RelaxationAfterConnect() time.Duration {
	return time.Duration(s.InternetArchive.RelaxationTimeAfterErrorConnect) * time.Second
}

// RequestTimeout returns the per-request deadline for archive calls.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.InternetArchive.RequestTimeout) * time.Second
}

// OpenAIAPIKey reads the embedding provider credential from the environment.
// It is never stored in the settings file.
func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// HealthPort returns the health probe port, HEALTH_PORT or 8081.
func HealthPort() int {
	return getEnvInt("HEALTH_PORT", 8081)
}

// MetricsPort returns the Prometheus port, METRICS_PORT or 9090.
func MetricsPort() int {
	return getEnvInt("METRICS_PORT", 9090)
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed > 0 && parsed <= 65535 {
			return parsed
		}
	}
	return defaultValue
}
