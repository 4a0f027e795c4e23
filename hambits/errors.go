package hambits

import "errors"

// The error kinds a transaction or operation can surface. Transport I/O
// failures are returned as wrapped errors from the underlying port and are
// fatal for the call; these sentinels cover the protocol-level outcomes.
var (
	// ErrTimeout is returned when a reply read exhausts the retry budget
	// without receiving a terminated reply.
	ErrTimeout = errors.New("hambits: timed out waiting for reply")

	// ErrInvalidReply is returned when the device answers, but with
	// something other than the expected acknowledgement or a parseable
	// position.
	ErrInvalidReply = errors.New("hambits: invalid reply")

	// ErrInvalidArgument is returned for requests the driver cannot map
	// onto the protocol, such as an unknown move direction.
	ErrInvalidArgument = errors.New("hambits: invalid argument")
)
