package geo

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// Checker states
const (
	StateIdle     = "idle"
	StateChecking = "checking"
	StateResolved = "resolved"
	StateFailed   = "failed"
)

type ErrorKind string

// Failure kinds of a location check.
const (
	ErrKindUnsupported      ErrorKind = "unsupported"
	ErrKindPermissionDenied ErrorKind = "permission_denied"
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindUnavailable      ErrorKind = "unavailable"
)

var errorMessages = map[ErrorKind]string{
	ErrKindUnsupported:      "Geolocation is not supported on this device.",
	ErrKindPermissionDenied: "Location access denied. Please allow it in your device settings.",
	ErrKindTimeout:          "Location check timed out, please check again.",
	ErrKindUnavailable:      "Failed to get your location. Make sure GPS and location access are enabled.",
}

type (
	LocationError struct {
		Kind    ErrorKind `json:"kind"`
		Message string    `json:"message"`
	}

	// LocationStatus is the outcome of the latest location check.
	LocationStatus struct {
		State       string         `json:"state"`
		Loading     bool           `json:"loading"`
		Allowed     bool           `json:"allowed"`
		InRange     bool           `json:"in_range"`
		Distance    null.Float64   `json:"distance"` // meters
		Error       *LocationError `json:"error"`
		Coordinates *Coordinate    `json:"coordinates"`
	}

	// Checker verifies the device position against a Zone.
	// Calls may overlap; the last one to finish wins.
	Checker struct {
		zone    Zone
		locator Locator
		opts    PositionOptions

		mu     sync.Mutex
		status LocationStatus
	}
)

// NewChecker returns an idle Checker. A nil locator means the device has no location sensor.
func NewChecker(zone Zone, locator Locator, opts PositionOptions) *Checker {
	return &Checker{
		zone:    zone,
		locator: locator,
		opts:    opts,
		status:  LocationStatus{State: StateIdle},
	}
}

func (c *Checker) Zone() Zone { return c.zone }

// Status returns a copy of the current status.
func (c *Checker) Status() LocationStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.status
	if st.Error != nil {
		e := *st.Error
		st.Error = &e
	}
	if st.Coordinates != nil {
		co := *st.Coordinates
		st.Coordinates = &co
	}
	return st
}

// CheckLocation requests a single fresh fix and reports whether it lies within the zone.
// Any failure resolves to false; details are kept in Status().Error.
func (c *Checker) CheckLocation(ctx context.Context) bool {
	c.mu.Lock()
	c.status.State = StateChecking
	c.status.Loading = true
	c.status.Error = nil
	c.mu.Unlock()

	if c.locator == nil {
		c.fail(ErrKindUnsupported)
		return false
	}

	pos, err := c.locate(ctx)
	if err != nil {
		c.fail(classify(err))
		return false
	}

	inRange, dist := c.zone.Contains(pos.Coordinate)
	coord := pos.Coordinate

	c.mu.Lock()
	c.status = LocationStatus{
		State:       StateResolved,
		Allowed:     true,
		InRange:     inRange,
		Distance:    null.Float64From(dist),
		Coordinates: &coord,
	}
	c.mu.Unlock()
	return inRange
}

// locate bounds the locator call with the configured timeout, even if the locator ignores ctx.
func (c *Checker) locate(ctx context.Context) (Position, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	type result struct {
		pos Position
		err error
	}
	ch := make(chan result, 1)
	go func() {
		pos, err := c.locator.CurrentPosition(ctx, c.opts)
		ch <- result{pos, err}
	}()

	select {
	case res := <-ch:
		return res.pos, res.err
	case <-ctx.Done():
		return Position{}, ctx.Err()
	}
}

func (c *Checker) fail(kind ErrorKind) {
	c.mu.Lock()
	c.status = LocationStatus{
		State: StateFailed,
		Error: &LocationError{Kind: kind, Message: errorMessages[kind]},
	}
	c.mu.Unlock()
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	var perr *PositionError
	if errors.As(err, &perr) {
		switch perr.Code {
		case CodePermissionDenied:
			return ErrKindPermissionDenied
		case CodeTimeout:
			return ErrKindTimeout
		}
	}
	return ErrKindUnavailable
}
