// Package tracker periodically points a rotator at a fixed equatorial
// coordinate, converting it to azimuth/elevation for the station location.
package tracker

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/hambits/rotor_interface/rotator"
)

// Positioner is the one rotator operation the tracker needs. Hand it the
// service's command path, not the driver directly: the serial session
// allows a single transaction at a time, and tracking must share the same
// serialization and power interlock as interactive clients.
type Positioner interface {
	SetPosition(az, el float64) error
}

type Tracker struct {
	pos Positioner

	// Observer location, degrees, east longitude positive.
	Latitude  float64
	Longitude float64

	// Target right ascension and declination, degrees.
	RA  float64
	Dec float64

	// Interval between position updates.
	Interval time.Duration
}

func New(pos Positioner, lat, lon, ra, dec float64, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Tracker{
		pos:       pos,
		Latitude:  lat,
		Longitude: lon,
		RA:        ra,
		Dec:       dec,
		Interval:  interval,
	}
}

// Run updates the rotor position every Interval until ctx is canceled.
// While the target is below the horizon the rotor is left where it is.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		az, el := t.Position(time.Now())
		if el < 0 {
			continue
		}
		if err := t.pos.SetPosition(az, el); err != nil {
			log.Printf("tracker: set position (%.2f, %.2f): %v", az, el, err)
		}
	}
}

// Position returns the target's azimuth and elevation at the given time.
func (t *Tracker) Position(now time.Time) (az, el float64) {
	lst := localSiderealDeg(now, t.Longitude)
	ha := math.Mod(lst-t.RA+360, 360)
	return rotator.EquHorDeg(ha, t.Dec, t.Latitude)
}

// localSiderealDeg returns the local sidereal time as an angle in degrees.
// GMST expression from the USNO almanac; good to well under a second over
// the lifetime of this hardware.
func localSiderealDeg(t time.Time, lon float64) float64 {
	d := t.Sub(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)).Hours() / 24
	gmst := math.Mod(280.46061837+360.98564736629*d, 360)
	return math.Mod(gmst+lon+720, 360)
}
