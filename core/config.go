package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bbpbat/portal/core/geo"
)

// Config holds the portal settings. Values come from defaults, an optional
// config/.env.<env> file and <ENV>_ prefixed environment variables.
type Config struct {
	Env          string `mapstructure:"env"`
	Build        string `mapstructure:"build"`
	Debug        bool   `mapstructure:"debug"`
	TestMode     bool   `mapstructure:"testmode"`
	AppName      string `mapstructure:"appname"`
	Timezone     string `mapstructure:"timezone"`
	RollbarToken string `mapstructure:"rollbartoken"`

	API struct {
		BaseURL string        `mapstructure:"baseurl"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`

	Facility struct {
		Name         string  `mapstructure:"name"`
		Latitude     float64 `mapstructure:"latitude"`
		Longitude    float64 `mapstructure:"longitude"`
		RadiusMeters float64 `mapstructure:"radiusmeters"`
	} `mapstructure:"facility"`

	Geolocation struct {
		HighAccuracy    bool          `mapstructure:"highaccuracy"`
		Timeout         time.Duration `mapstructure:"timeout"`
		MaximumAge      time.Duration `mapstructure:"maximumage"`
		ReportAllowance time.Duration `mapstructure:"reportallowance"`
	} `mapstructure:"geolocation"`

	// Device is an optional fixed position for terminals without a sensor.
	Device struct {
		Latitude  float64 `mapstructure:"latitude"`
		Longitude float64 `mapstructure:"longitude"`
		Enabled   bool    `mapstructure:"enabled"`
	} `mapstructure:"device"`

	Server struct {
		Host            string        `mapstructure:"host"`
		Address         string        `mapstructure:"address"`
		DebugHost       string        `mapstructure:"debughost"`
		ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout"`
		DisableReqLogs  bool          `mapstructure:"disablereqlogs"`
	} `mapstructure:"server"`

	Session struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"session"`
}

// Location returns the configured time zone, falling back to the host's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Zone is the configured facility geofence.
func (c *Config) Zone() geo.Zone {
	return geo.Zone{
		Name:         c.Facility.Name,
		Center:       geo.Coordinate{Latitude: c.Facility.Latitude, Longitude: c.Facility.Longitude},
		RadiusMeters: c.Facility.RadiusMeters,
	}
}

func (c *Config) PositionOptions() geo.PositionOptions {
	return geo.PositionOptions{
		HighAccuracy: c.Geolocation.HighAccuracy,
		Timeout:      c.Geolocation.Timeout,
		MaximumAge:   c.Geolocation.MaximumAge,
	}
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "BBPBAT Portal")
	v.SetDefault("build", "develop")
	v.SetDefault("timezone", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("api.baseURL", "http://127.0.0.1:8000/api")
	v.SetDefault("api.timeout", 10*time.Second)

	v.SetDefault("facility.name", "BBPBAT Sukabumi")
	v.SetDefault("facility.latitude", -6.20626)
	v.SetDefault("facility.longitude", 106.83023)
	v.SetDefault("facility.radiusMeters", 150.0)

	v.SetDefault("geolocation.highAccuracy", true)
	v.SetDefault("geolocation.timeout", 15*time.Second)
	v.SetDefault("geolocation.maximumAge", time.Duration(0))
	v.SetDefault("geolocation.reportAllowance", 30*time.Second)

	v.SetDefault("device.latitude", 0.0)
	v.SetDefault("device.longitude", 0.0)
	v.SetDefault("device.enabled", false)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("session.path", defaultSessionPath())

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	return conf
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bbpbat-session.yaml"
	}
	return filepath.Join(dir, "bbpbat", "session.yaml")
}
