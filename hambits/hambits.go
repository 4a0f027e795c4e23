// Package hambits drives the Hambits r0tor, an open source Arduino
// azimuth/elevation rotor controller, over a serial link.
//
// Wire protocol (ASCII over 19200-8N1 serial, no handshake; commands end
// with ';', replies end with '\n'):
//
//	| Command                  | Reply          | Meaning                     |
//	|--------------------------|----------------|-----------------------------|
//	| setazDDD.dd;setelDDD.dd; | 11             | both axes accepted          |
//	| getpos;                  | DDD.dd;DDD.dd; | current az;el               |
//	| stop;                    | none           | stop all movement and brake |
package hambits

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hambits/rotor_interface/rotator"
)

const (
	cmdStop   = "stop;"
	cmdGetPos = "getpos;"

	// ackBoth is one '1' per axis: azimuth accepted, elevation accepted.
	ackBoth = "11"

	setReplyLen = 2
	posReplyLen = 15
	// minPosReply covers at least "D;D;" with single-digit values.
	minPosReply = 8
)

// Caps describes the r0tor to the rotator registry.
var Caps = &rotator.Caps{
	Model:        "r0tor",
	Manufacturer: "Hambits",
	Version:      "0.1",

	MinAz: 0,
	MaxAz: 360,
	MinEl: 0,
	MaxEl: 180,

	Serial:  rotator.SerialConfig{Baud: 19200, DataBits: 8, StopBits: 1, Parity: 'N'},
	Timeout: 400 * time.Millisecond,
	Retry:   5,
}

func init() {
	// Assigned here rather than in the composite literal to avoid an
	// initialization cycle: Connect -> openPort -> Caps.
	Caps.Connect = func(ctx context.Context, port string, cb rotator.StatusCallback) (rotator.Rotator, error) {
		return Connect(ctx, port, cb)
	}
	rotator.Register(Caps)
}

// Status is the snapshot pushed to the status callback after a successful
// transaction changes what the driver knows about the device.
type Status struct {
	// AzPos and ElPos are the last positions read back from the device,
	// in decimal degrees.
	AzPos float64
	ElPos float64
	// CommandAzPos and CommandElPos are the last commanded targets.
	CommandAzPos float64
	CommandElPos float64
	// LastUpdate is when AzPos/ElPos were last synced from the device.
	LastUpdate time.Time
}

func (s Status) Clone() rotator.Status { return s }

func (s Status) AzimuthPosition() float64 { return s.AzPos }

func (s Status) ElevationPosition() float64 { return s.ElPos }

// Rotor drives one r0tor over one open serial session. Operations are
// synchronous and the driver assumes a single caller per session; the
// internal mutex only guards the status snapshot against concurrent
// readers on the callback path.
type Rotor struct {
	caps           *rotator.Caps
	port           Port
	statusCallback rotator.StatusCallback

	mu     sync.Mutex
	status Status
}

// Connect opens the serial port with the r0tor's fixed framing and returns
// a driver with zeroed state. No protocol I/O happens until the first
// operation.
func Connect(ctx context.Context, port string, cb rotator.StatusCallback) (*Rotor, error) {
	p, err := openPort(port)
	if err != nil {
		return nil, fmt.Errorf("hambits: %w", err)
	}
	r := New(p)
	r.statusCallback = cb
	return r, nil
}

// New wraps an already open transport. State starts zeroed.
func New(p Port) *Rotor {
	return &Rotor{caps: Caps, port: p}
}

// OnStatus sets the callback invoked after state-changing transactions.
func (r *Rotor) OnStatus(cb rotator.StatusCallback) {
	r.statusCallback = cb
}

// Open is part of the operation table; the r0tor needs no handshake.
func (r *Rotor) Open() error {
	return nil
}

// Close stops the rotor so it is not left moving, then closes the
// transport. The session is terminal either way.
func (r *Rotor) Close() error {
	_, err := r.transaction(cmdStop, false, 0)
	if cerr := r.port.Close(); err == nil {
		err = cerr
	}
	return err
}

func setCmd(az, el float64) string {
	// Two decimal digits, at least three integer digits.
	return fmt.Sprintf("setaz%06.2f;setel%06.2f;", az, el)
}

// SetPosition commands a move to (az, el) degrees. The target is recorded
// before the device answers and is deliberately not rolled back if the
// device rejects the command; only Stop re-syncs it from the device. Range
// enforcement is left to the device's physical limits.
func (r *Rotor) SetPosition(az, el float64) error {
	r.mu.Lock()
	r.status.CommandAzPos = az
	r.status.CommandElPos = el
	r.mu.Unlock()

	reply, err := r.transaction(setCmd(az, el), true, setReplyLen)
	if err != nil {
		return err
	}
	if !strings.Contains(string(reply), ackBoth) {
		return fmt.Errorf("%w: %q", ErrInvalidReply, reply)
	}
	r.notifyStatus()
	return nil
}

func parseFloat(dest *float64, input string) error {
	f, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return err
	}
	*dest = f
	return nil
}

func parsePosition(reply string) (float64, float64, error) {
	if len(reply) < minPosReply {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReply, reply)
	}
	parts := strings.SplitN(strings.TrimRight(reply, "\n"), ";", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReply, reply)
	}
	var az, el float64
	if err := parseFloat(&az, parts[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReply, reply)
	}
	if err := parseFloat(&el, parts[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReply, reply)
	}
	return az, el, nil
}

// GetPosition queries the device for its actual position. It does not
// touch the cached position; Stop is the only operation that re-syncs
// driver state from the device.
func (r *Rotor) GetPosition() (float64, float64, error) {
	reply, err := r.transaction(cmdGetPos, true, posReplyLen)
	if err != nil {
		return 0, 0, err
	}
	return parsePosition(string(reply))
}

// Stop halts all movement, then reads the position back and syncs both the
// current and target state to wherever the rotor actually stopped: no
// further motion is commanded, so that is the new target.
func (r *Rotor) Stop() error {
	if _, err := r.transaction(cmdStop, false, 0); err != nil {
		return err
	}
	az, el, err := r.GetPosition()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.status.AzPos, r.status.ElPos = az, el
	r.status.CommandAzPos, r.status.CommandElPos = az, el
	r.status.LastUpdate = time.Now()
	r.mu.Unlock()
	r.notifyStatus()
	return nil
}

// Park moves the rotor to its home position. Home is the fixed origin.
func (r *Rotor) Park() error {
	return r.SetPosition(0, 0)
}

// Reset re-homes the rotor. The protocol has no reset command beyond
// parking, so the mode argument is ignored.
func (r *Rotor) Reset(_ rotator.Reset) error {
	return r.Park()
}

// Move starts a continuous move in the given direction by pinning one axis
// to its stored target and driving the other to its extreme, producing
// motion-until-limit semantics. The protocol has no speed control; speed is
// accepted and ignored.
func (r *Rotor) Move(d rotator.Direction, speed int) error {
	r.mu.Lock()
	az, el := r.status.CommandAzPos, r.status.CommandElPos
	r.mu.Unlock()

	switch d {
	case rotator.MoveUp:
		return r.SetPosition(az, r.caps.MaxEl)
	case rotator.MoveDown:
		return r.SetPosition(az, r.caps.MinEl)
	case rotator.MoveClockwise:
		return r.SetPosition(r.caps.MaxAz, el)
	case rotator.MoveCounterClockwise:
		return r.SetPosition(r.caps.MinAz, el)
	}
	return fmt.Errorf("%w: direction %v", ErrInvalidArgument, d)
}

// Info returns a fixed description of the device.
func (r *Rotor) Info() string {
	return "Hambits r0tor: open source Arduino rotor controller."
}

// Status returns the current snapshot.
func (r *Rotor) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Rotor) notifyStatus() {
	if r.statusCallback == nil {
		return
	}
	r.statusCallback(r.Status())
}
