package locator

import (
	"context"
	"time"

	"github.com/bbpbat/portal/core/geo"
)

type fixKey struct{}

// Fix is what a browser reports from its geolocation API: either a position or an error code.
type Fix struct {
	HasPosition    bool // (0, 0) is a valid position
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	Timestamp      time.Time // zero means "just now"
	ErrorCode      int
	ErrorMessage   string
}

// Empty reports whether the fix carries neither a position nor an error.
func (f Fix) Empty() bool {
	return f.ErrorCode == 0 && !f.HasPosition
}

// WithFix returns a copy of ctx carrying the reported fix.
func WithFix(ctx context.Context, fix Fix) context.Context {
	return context.WithValue(ctx, fixKey{}, fix)
}

func FixFrom(ctx context.Context) (Fix, bool) {
	fix, ok := ctx.Value(fixKey{}).(Fix)
	return fix, ok
}

// Reported serves the fix carried by the request context.
// A fix older than MaximumAge (plus Allowance for the trip from the browser) is refused
// as a timeout, so the browser is asked for a fresh one.
type Reported struct {
	Allowance time.Duration
}

var _ geo.Locator = (*Reported)(nil)

func NewReported(allowance time.Duration) *Reported {
	return &Reported{Allowance: allowance}
}

func (r Reported) CurrentPosition(ctx context.Context, opts geo.PositionOptions) (geo.Position, error) {
	if err := ctx.Err(); err != nil {
		return geo.Position{}, err
	}
	fix, ok := FixFrom(ctx)
	if !ok || fix.Empty() {
		return geo.Position{}, &geo.PositionError{Code: geo.CodePositionUnavailable, Message: "no position reported"}
	}
	if fix.ErrorCode != 0 {
		return geo.Position{}, &geo.PositionError{Code: fix.ErrorCode, Message: fix.ErrorMessage}
	}

	pos := geo.Position{
		Coordinate:     geo.Coordinate{Latitude: fix.Latitude, Longitude: fix.Longitude},
		AccuracyMeters: fix.AccuracyMeters,
		Timestamp:      fix.Timestamp,
	}
	if !validCoordinate(pos.Coordinate) {
		return geo.Position{}, &geo.PositionError{Code: geo.CodePositionUnavailable, Message: "invalid coordinate"}
	}

	now := NowFunc()
	if pos.Timestamp.IsZero() {
		pos.Timestamp = now
	}
	if now.Sub(pos.Timestamp) > opts.MaximumAge+r.Allowance {
		return geo.Position{}, &geo.PositionError{Code: geo.CodeTimeout, Message: "reported position is too old"}
	}
	return pos, nil
}
