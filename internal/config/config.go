// Package config loads the station configuration for rotord.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ListenConfig holds the service's listen addresses.
type ListenConfig struct {
	HTTP    string `yaml:"http"`    // status/websocket server
	Rotctld string `yaml:"rotctld"` // hamlib network protocol
}

// OffsetConfig holds calibration trims in degrees, added to positions read
// from the device and subtracted from requested positions.
type OffsetConfig struct {
	Azimuth   float64 `yaml:"azimuth"`
	Elevation float64 `yaml:"elevation"`
}

// ObserverConfig is the station location, used by the tracker.
type ObserverConfig struct {
	LatitudeDeg  float64 `yaml:"latitude_deg"`
	LongitudeDeg float64 `yaml:"longitude_deg"` // east positive
}

// TrackConfig is an optional fixed equatorial target to follow.
type TrackConfig struct {
	RADeg      float64 `yaml:"ra_deg"`
	DecDeg     float64 `yaml:"dec_deg"`
	IntervalMs int     `yaml:"interval_ms"`
}

// InterlockConfig is the optional modbus relay board supplying rotor power.
type InterlockConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Config aggregates the rotord configuration.
type Config struct {
	Model      string           `yaml:"model"`
	SerialPort string           `yaml:"serial_port"`
	Simulate   bool             `yaml:"simulate"`
	Listen     ListenConfig     `yaml:"listen"`
	Offsets    OffsetConfig     `yaml:"offsets"`
	Observer   ObserverConfig   `yaml:"observer"`
	Track      *TrackConfig     `yaml:"track,omitempty"`
	Interlock  *InterlockConfig `yaml:"interlock,omitempty"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if cfg.Model == "" {
		cfg.Model = "r0tor"
	}
	if cfg.Listen.HTTP == "" {
		cfg.Listen.HTTP = "127.0.0.1:8502"
	}
	if cfg.Listen.Rotctld == "" {
		cfg.Listen.Rotctld = "127.0.0.1:4533"
	}
	if !cfg.Simulate && cfg.SerialPort == "" {
		return nil, fmt.Errorf("serial_port is required unless simulate is set")
	}
	if lat := cfg.Observer.LatitudeDeg; lat < -90 || lat > 90 {
		return nil, fmt.Errorf("observer.latitude_deg must be within [-90, 90], got %g", lat)
	}
	if lon := cfg.Observer.LongitudeDeg; lon < -180 || lon > 180 {
		return nil, fmt.Errorf("observer.longitude_deg must be within [-180, 180], got %g", lon)
	}
	if cfg.Track != nil {
		if ra := cfg.Track.RADeg; ra < 0 || ra >= 360 {
			return nil, fmt.Errorf("track.ra_deg must be within [0, 360), got %g", ra)
		}
		if dec := cfg.Track.DecDeg; dec < -90 || dec > 90 {
			return nil, fmt.Errorf("track.dec_deg must be within [-90, 90], got %g", dec)
		}
		if cfg.Track.IntervalMs <= 0 {
			cfg.Track.IntervalMs = 1000
		}
	}
	if cfg.Interlock != nil && cfg.Interlock.Baud == 0 {
		cfg.Interlock.Baud = 19200
	}

	return &cfg, nil
}

// TrackInterval returns the tracker update period.
func (c *Config) TrackInterval() time.Duration {
	if c.Track == nil {
		return 0
	}
	return time.Duration(c.Track.IntervalMs) * time.Millisecond
}
