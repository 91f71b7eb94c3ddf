package geo

import (
	"context"
	"time"
)

// Browser geolocation error codes.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

type (
	// PositionOptions mirrors what a device sensor is asked for on each fix.
	PositionOptions struct {
		HighAccuracy bool
		Timeout      time.Duration
		MaximumAge   time.Duration // 0 means a cached fix is never acceptable
	}

	Position struct {
		Coordinate
		AccuracyMeters float64
		Timestamp      time.Time
	}

	// Locator is a source of device position fixes.
	Locator interface {
		CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
	}

	// PositionError is returned by a Locator when the sensor could not produce a fix.
	PositionError struct {
		Code    int
		Message string
	}
)

func (e *PositionError) Error() string {
	return e.Message
}

// DefaultPositionOptions asks for one fresh high-accuracy fix within 15 seconds.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{HighAccuracy: true, Timeout: 15 * time.Second}
}
