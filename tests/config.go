package testutil

import (
	"time"

	"github.com/bbpbat/portal/core"
)

// Facility used by the test configuration.
const (
	FacilityName = "BBPBAT Sukabumi"
	FacilityLat  = -6.20626
	FacilityLng  = 106.83023
)

// NewConfig returns a TEST configuration talking to baseURL, with the facility
// geofence set and "today" computed in UTC.
func NewConfig(baseURL string) *core.Config {
	conf := new(core.Config)
	conf.Env = "TEST"
	conf.TestMode = true
	conf.AppName = "BBPBAT Portal"
	conf.Build = "test"
	conf.Timezone = "UTC"
	conf.API.BaseURL = baseURL
	conf.API.Timeout = 2 * time.Second
	conf.Facility.Name = FacilityName
	conf.Facility.Latitude = FacilityLat
	conf.Facility.Longitude = FacilityLng
	conf.Facility.RadiusMeters = 150
	conf.Geolocation.HighAccuracy = true
	conf.Geolocation.Timeout = time.Second
	conf.Geolocation.ReportAllowance = 30 * time.Second
	conf.Server.DisableReqLogs = true
	conf.Server.ShutdownTimeout = time.Second
	return conf
}
