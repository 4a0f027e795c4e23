// Package rotator defines the abstraction between rotor drivers and the
// frontends that drive them: the operation table a driver implements, the
// static capability metadata it advertises, and a process-wide registry
// through which frontends look drivers up by model name.
package rotator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Direction is a directional move request.
type Direction int

const (
	MoveUp Direction = iota
	MoveDown
	MoveClockwise
	MoveCounterClockwise
)

func (d Direction) String() string {
	switch d {
	case MoveUp:
		return "up"
	case MoveDown:
		return "down"
	case MoveClockwise:
		return "cw"
	case MoveCounterClockwise:
		return "ccw"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Reset selects what a Reset operation re-homes. Frontends pass ResetAll;
// drivers are free to ignore the distinction.
type Reset int

const ResetAll Reset = 1

// Rotator is the operation table a driver exposes. Operations are
// synchronous: they return once the device has accepted (or rejected) the
// command, not once motion completes.
type Rotator interface {
	// Open performs any protocol handshake the device needs.
	Open() error
	// Close terminates the session. Implementations stop the rotor on the
	// way out so it is not left moving.
	Close() error
	// SetPosition commands the rotor to move to the given azimuth and
	// elevation, in degrees.
	SetPosition(az, el float64) error
	// GetPosition reads the current position back from the device.
	GetPosition() (az, el float64, err error)
	// Stop halts all movement.
	Stop() error
	// Park moves the rotor to its home position.
	Park() error
	// Reset re-homes the rotor.
	Reset(r Reset) error
	// Move starts a continuous move in the given direction. Speed is in
	// arbitrary frontend units; drivers without speed control ignore it.
	Move(d Direction, speed int) error
	// Info returns a human-readable description of the device.
	Info() string
}

// Status is a point-in-time snapshot pushed to a StatusCallback after a
// driver learns something new about the device.
type Status interface {
	AzimuthPosition() float64
	ElevationPosition() float64

	Clone() Status
}

type StatusCallback func(status Status)

// SerialConfig is the serial framing a driver requires.
type SerialConfig struct {
	Baud     int
	DataBits int
	StopBits int
	Parity   byte // 'N', 'E' or 'O'
}

// Caps describes a rotator model: its movement range, serial parameters,
// transaction policy, and a constructor for opening a session.
type Caps struct {
	Model        string
	Manufacturer string
	Version      string

	MinAz, MaxAz float64
	MinEl, MaxEl float64

	Serial SerialConfig
	// Timeout is the per-read deadline for one reply read attempt.
	Timeout time.Duration
	// Retry is the number of reply read attempts before a transaction
	// reports a timeout.
	Retry int

	// Connect opens a session on the named serial port. cb may be nil.
	Connect func(ctx context.Context, port string, cb StatusCallback) (Rotator, error)
}

var (
	regMu  sync.Mutex
	models = make(map[string]*Caps)
)

// Register makes a rotator model available to Lookup and Connect. Drivers
// call it from an init function. Registering the same model twice panics.
func Register(caps *Caps) {
	regMu.Lock()
	defer regMu.Unlock()
	if caps == nil || caps.Model == "" {
		panic("rotator: Register with no model name")
	}
	if _, dup := models[caps.Model]; dup {
		panic("rotator: Register called twice for model " + caps.Model)
	}
	models[caps.Model] = caps
}

// Lookup returns the capabilities registered for model.
func Lookup(model string) (*Caps, bool) {
	regMu.Lock()
	defer regMu.Unlock()
	caps, ok := models[model]
	return caps, ok
}

// Models returns the registered model names, sorted.
func Models() []string {
	regMu.Lock()
	defer regMu.Unlock()
	var out []string
	for name := range models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Connect opens a session with the named model on the given port.
func Connect(ctx context.Context, model, port string, cb StatusCallback) (Rotator, error) {
	caps, ok := Lookup(model)
	if !ok {
		return nil, fmt.Errorf("rotator: unknown model %q", model)
	}
	return caps.Connect(ctx, port, cb)
}
