package locator

import (
	"context"
	"time"

	"github.com/bbpbat/portal/core/geo"
)

var NowFunc = time.Now // mockable

// Static always reports the same coordinate. Used by kiosk devices with a known position,
// and by the CLI when the position comes from flags or configuration.
type Static struct {
	Coordinate     geo.Coordinate
	AccuracyMeters float64
}

var _ geo.Locator = (*Static)(nil)

func NewStatic(lat, lng float64) *Static {
	return &Static{Coordinate: geo.Coordinate{Latitude: lat, Longitude: lng}}
}

func (s Static) CurrentPosition(ctx context.Context, _ geo.PositionOptions) (geo.Position, error) {
	if err := ctx.Err(); err != nil {
		return geo.Position{}, err
	}
	if !validCoordinate(s.Coordinate) {
		return geo.Position{}, &geo.PositionError{Code: geo.CodePositionUnavailable, Message: "invalid coordinate"}
	}
	return geo.Position{Coordinate: s.Coordinate, AccuracyMeters: s.AccuracyMeters, Timestamp: NowFunc()}, nil
}

func validCoordinate(c geo.Coordinate) bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
