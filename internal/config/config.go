// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Loaders accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"time"
)

// Storage backends.
const (
	StorageFile = "file"
	StorageSQL  = "sql"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// LogFile enables a rotating log file in addition to stdout.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// StorageBackend selects where histories are persisted.
	StorageBackend string `koanf:"storage_backend" validate:"oneof=file sql"`

	// StorageDir holds measurements_<user>.json files for the file backend.
	StorageDir string `koanf:"storage_dir"`

	// SQLDriver is sqlite or postgres.
	SQLDriver string `koanf:"sql_driver" validate:"oneof=sqlite postgres"`

	// SQLDSN is the driver-specific data source name.
	SQLDSN string `koanf:"sql_dsn"`

	// CameraDevice is the local video device index. Negative disables the camera.
	CameraDevice int `koanf:"camera_device"`

	// DetectorURL is the base URL of the pose inference service.
	DetectorURL string `koanf:"detector_url" validate:"omitempty,url"`

	// DetectorTimeoutMS bounds a single detector call.
	DetectorTimeoutMS int `koanf:"detector_timeout_ms" validate:"gt=0"`

	// MinVisibility drops detector landmarks below this confidence.
	MinVisibility float64 `koanf:"min_visibility" validate:"gte=0,lte=1"`

	// AutoCalibrate runs calibration on the first measurement of a session.
	AutoCalibrate bool `koanf:"auto_calibrate"`

	// DedupeSize bounds the save idempotency key cache.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// MaxSessions caps concurrently open non-default sessions.
	MaxSessions int `koanf:"max_sessions" validate:"gt=0"`

	// SessionTTLSec expires idle sessions. Zero keeps them until closed.
	SessionTTLSec int `koanf:"session_ttl_sec" validate:"gte=0"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":5000",
		StorageBackend:    StorageFile,
		StorageDir:        ".",
		SQLDriver:         "sqlite",
		SQLDSN:            "file:tailor.db?_pragma=busy_timeout(5000)",
		CameraDevice:      0,
		DetectorURL:       "",
		DetectorTimeoutMS: 5000,
		MinVisibility:     0.5,
		AutoCalibrate:     true,
		DedupeSize:        10_000,
		MaxSessions:       64,
		SessionTTLSec:     1800,
	}
}

// SessionTTL returns SessionTTLSec as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

// DetectorTimeout returns DetectorTimeoutMS as a duration.
func (c *Config) DetectorTimeout() time.Duration {
	return time.Duration(c.DetectorTimeoutMS) * time.Millisecond
}
