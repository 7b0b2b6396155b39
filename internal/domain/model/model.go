// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/tailor/internal/domain/measurement"
)

// TimestampLayout is the wall-clock format stored on records.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one saved measurement set. Records are never modified after
// they are appended to a history.
type Record struct {
	Timestamp    string          `json:"timestamp"`
	Measurements measurement.Set `json:"measurements"`
}

// NewRecord stamps set with t.
func NewRecord(t time.Time, set measurement.Set) Record {
	return Record{
		Timestamp:    t.Format(TimestampLayout),
		Measurements: set,
	}
}

// Time parses the record timestamp in the local zone.
func (r Record) Time() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, r.Timestamp, time.Local)
}

// Frame is a captured 3-channel image of known size.
type Frame interface {
	Width() int
	Height() int
	// JPEG encodes the frame for transport to remote collaborators.
	JPEG() ([]byte, error)
	// Close releases the frame's pixel buffer.
	Close() error
}
