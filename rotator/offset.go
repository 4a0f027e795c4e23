package rotator

import "sync"

// Offset wraps a Rotator, adding fixed azimuth and elevation trims. Offsets
// are added to positions read back from the device and subtracted from
// requested positions, so callers work in calibrated coordinates (true
// north, level horizon) while the device works in its own frame.
type Offset struct {
	Rotator
	mu sync.Mutex
	// offsetAz and offsetEl are added to the returned position and
	// subtracted from requested positions.
	offsetAz, offsetEl float64
}

func addAz(angle, offset float64) float64 {
	angle += offset
	for angle >= 360 {
		angle -= 360
	}
	for angle < 0 {
		angle += 360
	}
	return angle
}

// Elevation is not modular; it clamps at the mechanical range.
func addEl(angle, offset float64) float64 {
	angle += offset
	if angle < 0 {
		angle = 0
	}
	if angle > 180 {
		angle = 180
	}
	return angle
}

// NewOffset wraps r with the given trims.
func NewOffset(r Rotator, offsetAz, offsetEl float64) *Offset {
	return &Offset{Rotator: r, offsetAz: offsetAz, offsetEl: offsetEl}
}

func (o *Offset) offsets() (float64, float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.offsetAz, o.offsetEl
}

// SetAzimuthOffset replaces the azimuth trim.
func (o *Offset) SetAzimuthOffset(offset float64) {
	o.mu.Lock()
	o.offsetAz = offset
	o.mu.Unlock()
}

// SetElevationOffset replaces the elevation trim.
func (o *Offset) SetElevationOffset(offset float64) {
	o.mu.Lock()
	o.offsetEl = offset
	o.mu.Unlock()
}

func (o *Offset) SetPosition(az, el float64) error {
	oaz, oel := o.offsets()
	return o.Rotator.SetPosition(addAz(az, -oaz), addEl(el, -oel))
}

func (o *Offset) GetPosition() (float64, float64, error) {
	az, el, err := o.Rotator.GetPosition()
	if err != nil {
		return 0, 0, err
	}
	oaz, oel := o.offsets()
	return addAz(az, oaz), addEl(el, oel), nil
}
