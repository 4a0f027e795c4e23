package hambits

import (
	"errors"
	"fmt"
	"io"
)

const replyDelim = '\n'

// readTerminated reads one byte at a time until delim arrives, max bytes
// have been read, or a read attempt expires with no data. A timed-out byte
// read surfaces as ErrTimeout; any partial reply collected so far is
// discarded by the caller. Other read errors are transport failures and are
// returned wrapped.
func readTerminated(p Port, max int, delim byte) ([]byte, error) {
	buf := make([]byte, 0, max)
	one := make([]byte, 1)
	for len(buf) < max {
		n, err := p.Read(one)
		if n == 0 {
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("hambits: read: %w", err)
			}
			return nil, ErrTimeout
		}
		buf = append(buf, one[0])
		if one[0] == delim {
			break
		}
	}
	return buf, nil
}

// transaction performs one command/reply exchange with the device.
//
// cmd, if non-empty, is written to the transport in one call; a write (or
// flush) failure is fatal for the transaction and is not retried. When no
// reply is wanted the transaction succeeds as soon as the write does, so
// fire-and-forget commands such as "stop;" never block on a read.
//
// When a reply is wanted, buffered input is drained first so a stale,
// partially consumed reply from an earlier exchange cannot misalign this
// one. The reply is then read up to expectLen+1 bytes or the '\n'
// terminator. A timed-out read is retried, read-only, up to the configured
// retry budget; exhausting the budget returns ErrTimeout. The returned
// buffer is freshly allocated per call.
func (r *Rotor) transaction(cmd string, wantReply bool, expectLen int) ([]byte, error) {
	if wantReply {
		if err := r.port.Flush(); err != nil {
			return nil, fmt.Errorf("hambits: flush: %w", err)
		}
	}

	if cmd != "" {
		if _, err := io.WriteString(r.port, cmd); err != nil {
			return nil, fmt.Errorf("hambits: write %q: %w", cmd, err)
		}
	}

	if !wantReply {
		return nil, nil
	}

	for attempt := 0; attempt < r.caps.Retry; attempt++ {
		reply, err := readTerminated(r.port, expectLen+1, replyDelim)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		return reply, err
	}
	return nil, ErrTimeout
}
