package hambits

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Simulator speaks the r0tor wire protocol over an in-process pipe, with a
// discrete physics step so commanded moves take time to complete. Useful
// for running the service without hardware and for integration tests.
type Simulator struct {
	conn io.ReadWriteCloser

	mu                 sync.Mutex
	azPos, elPos       float64
	azTarget, elTarget float64

	// pendingAcks accumulates one character per set command until the
	// elevation half of the pair arrives, then the reply is flushed.
	pendingAcks string
}

// NewSimulator returns a simulator and the peer end of its pipe. Wrap the
// returned conn with NewPipePort to drive it.
func NewSimulator() (*Simulator, net.Conn) {
	a, b := net.Pipe()
	return &Simulator{conn: a}, b
}

const (
	// Maximum slew rate in degrees/second
	simMaxVel = 30
	// Discrete simulation step size
	simStep = 25 * time.Millisecond
)

// Run drives the simulator until ctx is canceled or the pipe closes.
func (s *Simulator) Run(ctx context.Context) error {
	t := time.NewTicker(simStep)
	defer t.Stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Pipe reads have no deadline; closing the conn is the only way
		// to unblock the reader on cancellation.
		<-ctx.Done()
		s.conn.Close()
		return ctx.Err()
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
			s.step()
		}
	})
	g.Go(s.reader)
	return g.Wait()
}

// scanCommands splits the input on the ';' command terminator.
func scanCommands(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, ';'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (s *Simulator) reader() error {
	scanner := bufio.NewScanner(s.conn)
	scanner.Split(scanCommands)
	for scanner.Scan() {
		input := scanner.Text()
		if err := s.parseInput(input); err != nil {
			log.Printf("sim: parsing %q: %v", input, err)
			continue
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("reading port: %w", err)
	}
	return nil
}

func accept(v, min, max float64) string {
	if v < min || v > max {
		return "0"
	}
	return "1"
}

func (s *Simulator) parseInput(input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case strings.HasPrefix(input, "setaz"):
		var az float64
		if err := parseFloat(&az, input[len("setaz"):]); err != nil {
			return err
		}
		ack := accept(az, 0, 360)
		if ack == "1" {
			s.azTarget = az
		}
		s.pendingAcks += ack
		return nil
	case strings.HasPrefix(input, "setel"):
		var el float64
		if err := parseFloat(&el, input[len("setel"):]); err != nil {
			return err
		}
		ack := accept(el, 0, 180)
		if ack == "1" {
			s.elTarget = el
		}
		reply := s.pendingAcks + ack
		s.pendingAcks = ""
		return s.send(reply)
	case input == "getpos":
		return s.send(fmt.Sprintf("%06.2f;%06.2f;", s.azPos, s.elPos))
	case input == "stop":
		// Halt and brake: wherever we are becomes the target.
		s.azTarget = s.azPos
		s.elTarget = s.elPos
		return nil
	}
	return fmt.Errorf("unrecognized command %q", input)
}

// approach moves pos toward target by at most one step's worth of travel.
func approach(pos, target float64) float64 {
	delta := math.Abs(target - pos)
	max := simMaxVel * simStep.Seconds()
	if delta > max {
		delta = max
	}
	if target < pos {
		delta = -delta
	}
	return pos + delta
}

func (s *Simulator) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.azPos = approach(s.azPos, s.azTarget)
	s.elPos = approach(s.elPos, s.elTarget)
}

// Position returns the simulated actual position.
func (s *Simulator) Position() (az, el float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.azPos, s.elPos
}

func (s *Simulator) send(reply string) error {
	_, err := fmt.Fprintf(s.conn, "%s\n", reply)
	return err
}
