// Package geo holds the facility geofence: coordinates, haversine distance and the
// location checker that decides whether the participant stands inside the zone.
package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371e3

type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Latitude, c.Longitude)
}

// Zone is the fixed circle within which attendance is permitted.
type Zone struct {
	Name         string     `json:"name"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius"`
}

// Contains reports whether c lies within the zone, along with its distance to the center.
func (z Zone) Contains(c Coordinate) (bool, float64) {
	d := Distance(c, z.Center)
	return d <= z.RadiusMeters, d
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	p1 := radians(a.Latitude)
	p2 := radians(b.Latitude)
	dp := radians(b.Latitude - a.Latitude)
	dl := radians(b.Longitude - a.Longitude)

	h := math.Sin(dp/2)*math.Sin(dp/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
