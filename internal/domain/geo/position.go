package geo

import (
	"errors"
	"math"
	"time"
)

var (
	ErrNegativeAccuracy  = errors.New("accuracy_meters cannot be negative")
	ErrNegativeSpeed     = errors.New("speed_mps cannot be negative")
	ErrInvalidHeading    = errors.New("heading_degrees must be between 0 and 360")
	ErrMissingCapturedAt = errors.New("captured_at_ms must be a valid epoch timestamp")
)

// Position is a single device location reading. It is never persisted.
type Position struct {
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	HeadingDegrees       float64 `json:"heading_degrees"` // 0 when unknown
	SpeedMetersPerSecond float64 `json:"speed_mps"`
	AccuracyMeters       float64 `json:"accuracy_meters"`
	CapturedAtEpochMs    int64   `json:"captured_at_ms"`
}

// Point returns the coordinate part of the reading.
func (position Position) Point() Point {
	return Point{Latitude: position.Latitude, Longitude: position.Longitude}
}

// CapturedAt converts CapturedAtEpochMs to a UTC time.
func (position Position) CapturedAt() time.Time {
	return time.UnixMilli(position.CapturedAtEpochMs).UTC()
}

// Age reports how long ago the reading was captured relative to now.
func (position Position) Age(now time.Time) time.Duration {
	return now.Sub(position.CapturedAt())
}

// Validate checks invariants of a Position reading.
func (position Position) Validate() error {
	if err := position.Point().Validate(); err != nil {
		return err
	}
	if position.AccuracyMeters < 0 || math.IsNaN(position.AccuracyMeters) {
		return ErrNegativeAccuracy
	}
	if position.SpeedMetersPerSecond < 0 || math.IsNaN(position.SpeedMetersPerSecond) {
		return ErrNegativeSpeed
	}
	// allow exactly 360 (some SDKs report 360.0 instead of 0.0)
	if position.HeadingDegrees < 0 || position.HeadingDegrees > 360 || math.IsNaN(position.HeadingDegrees) {
		return ErrInvalidHeading
	}
	if position.CapturedAtEpochMs <= 0 {
		return ErrMissingCapturedAt
	}
	return nil
}

// SpeedKMH converts the reading's speed to km/h.
func (position Position) SpeedKMH() float64 {
	return position.SpeedMetersPerSecond * 3.6
}
