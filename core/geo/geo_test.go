package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	facility := Coordinate{Latitude: -6.20626, Longitude: 106.83023}
	tests := []struct {
		name    string
		a, b    Coordinate
		want    float64
		epsilon float64
	}{
		{name: "same point", a: facility, b: facility, want: 0},
		{name: "origin", a: Coordinate{}, b: Coordinate{}, want: 0},
		{name: "0.001 deg of longitude at the equator", a: Coordinate{}, b: Coordinate{Longitude: 0.001}, want: 111.19, epsilon: 0.01},
		{name: "0.0005 deg of longitude at the equator", a: Coordinate{}, b: Coordinate{Longitude: 0.0005}, want: 55.6, epsilon: 0.01},
		{name: "1 deg of latitude", a: Coordinate{}, b: Coordinate{Latitude: 1}, want: 111194.93, epsilon: 0.01},
		{name: "antipodes", a: Coordinate{}, b: Coordinate{Longitude: 180}, want: math.Pi * EarthRadius, epsilon: 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.a, tt.b), tt.epsilon)
		})
	}
}

func TestDistance_symmetric(t *testing.T) {
	points := []Coordinate{
		{},
		{Latitude: -6.20626, Longitude: 106.83023},
		{Latitude: 51.5074, Longitude: -0.1278},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9, Longitude: -179.9},
	}
	for _, a := range points {
		assert.Zero(t, Distance(a, a), "distance(%v, %v)", a, a)
		for _, b := range points {
			assert.Equal(t, Distance(a, b), Distance(b, a), "distance(%v, %v)", a, b)
			assert.GreaterOrEqual(t, Distance(a, b), 0.0)
		}
	}
}

func TestZone_Contains(t *testing.T) {
	zone := Zone{Name: "origin", RadiusMeters: 100}
	tests := []struct {
		name   string
		zone   Zone
		point  Coordinate
		wantIn bool
	}{
		{name: "center", zone: zone, point: zone.Center, wantIn: true},
		{name: "center of a zero radius zone", zone: Zone{}, point: Coordinate{}, wantIn: true},
		{name: "~55m away", zone: zone, point: Coordinate{Longitude: 0.0005}, wantIn: true},
		{name: "~111m away", zone: zone, point: Coordinate{Longitude: 0.001}, wantIn: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, dist := tt.zone.Contains(tt.point)
			assert.Equal(t, tt.wantIn, in)
			assert.Equal(t, Distance(tt.point, tt.zone.Center), dist)
		})
	}
}
