// Package probe drives a running tailor server through a full
// calibrate, measure, save and history round trip.
package probe

import (
	"errors"
	"time"

	"github.com/okian/tailor/internal/domain/measurement"
	"github.com/okian/tailor/internal/domain/model"
)

// ErrProbe marks a failed check against the server.
var ErrProbe = errors.New("probe failed")

// Config holds configuration for a probe run.
type Config struct {
	BaseURL   string        // Base URL of the service
	ImagePath string        // Image uploaded for each frame; empty uses the server camera
	User      string        // History owner; each session appends a suffix
	Sessions  int           // Number of concurrent sessions
	Timeout   time.Duration // HTTP request timeout
	LogFile   string        // Optional log file
	Verbose   bool          // Enable verbose logging
}

// Stats holds probe statistics.
type Stats struct {
	SessionsRun    int
	SessionsFailed int
	Measured       int
	Saved          int
	Duplicates     int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

type frameBody struct {
	Image string `json:"image,omitempty"`
}

type saveBody struct {
	User      string `json:"user"`
	RequestID string `json:"request_id"`
}

type calibrateReply struct {
	Success     bool    `json:"success"`
	ScaleFactor float64 `json:"scale_factor"`
}

type measureReply struct {
	Success      bool            `json:"success"`
	Measurements measurement.Set `json:"measurements"`
}

type saveReply struct {
	Success   bool          `json:"success"`
	Duplicate bool          `json:"duplicate"`
	Record    *model.Record `json:"record"`
}

type historyReply struct {
	Success bool           `json:"success"`
	Records []model.Record `json:"records"`
}

type sessionReply struct {
	ID string `json:"id"`
}

type failureReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
