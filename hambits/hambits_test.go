package hambits

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hambits/rotor_interface/rotator"
)

// fakePort scripts the device side of a session. replies is consumed one
// entry per reply read attempt; an empty entry simulates a read attempt
// that expires with no data.
type fakePort struct {
	replies  []string
	cur      *strings.Reader
	wrote    bytes.Buffer
	flushes  int
	closed   bool
	writeErr error
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.cur == nil || p.cur.Len() == 0 {
		if len(p.replies) == 0 {
			return 0, nil
		}
		next := p.replies[0]
		p.replies = p.replies[1:]
		if next == "" {
			return 0, nil
		}
		p.cur = strings.NewReader(next)
	}
	return p.cur.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.wrote.Write(b)
}

func (p *fakePort) Flush() error {
	p.flushes++
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

var ignoreLastUpdate = cmpopts.IgnoreFields(Status{}, "LastUpdate")

func TestSetPosition(t *testing.T) {
	for _, test := range []struct {
		name    string
		az, el  float64
		reply   string
		wantCmd string
		wantErr error
	}{
		{"accepted", 123.45, 67.89, "11\n", "setaz123.45;setel067.89;", nil},
		{"origin", 0, 0, "11\n", "setaz000.00;setel000.00;", nil},
		{"limits", 360, 180, "11\n", "setaz360.00;setel180.00;", nil},
		{"az rejected", 10, 20, "01\n", "setaz010.00;setel020.00;", ErrInvalidReply},
		{"el rejected", 10, 20, "10\n", "setaz010.00;setel020.00;", ErrInvalidReply},
		{"garbage", 10, 20, "??\n", "setaz010.00;setel020.00;", ErrInvalidReply},
	} {
		t.Run(test.name, func(t *testing.T) {
			port := &fakePort{replies: []string{test.reply}}
			r := New(port)
			err := r.SetPosition(test.az, test.el)
			if !errors.Is(err, test.wantErr) {
				t.Errorf("SetPosition: got %v, want %v", err, test.wantErr)
			}
			if got := port.wrote.String(); got != test.wantCmd {
				t.Errorf("wrote %q, want %q", got, test.wantCmd)
			}
			// The target is recorded before the device answers and is
			// not rolled back on rejection.
			want := Status{CommandAzPos: test.az, CommandElPos: test.el}
			if diff := cmp.Diff(want, r.Status(), ignoreLastUpdate); diff != "" {
				t.Errorf("unexpected status (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetPositionFlushesInput(t *testing.T) {
	port := &fakePort{replies: []string{"11\n"}}
	r := New(port)
	if err := r.SetPosition(1, 2); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if port.flushes != 1 {
		t.Errorf("flushes = %d, want 1", port.flushes)
	}
}

func TestSetPositionWriteError(t *testing.T) {
	wantErr := errors.New("broken pipe")
	port := &fakePort{writeErr: wantErr}
	r := New(port)
	err := r.SetPosition(1, 2)
	if !errors.Is(err, wantErr) {
		t.Errorf("SetPosition: got %v, want wrapped %v", err, wantErr)
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrInvalidReply) {
		t.Errorf("write failure misclassified: %v", err)
	}
}

func TestGetPosition(t *testing.T) {
	for _, test := range []struct {
		name    string
		reply   string
		az, el  float64
		wantErr error
	}{
		{"valid", "123.45;067.89;\n", 123.45, 67.89, nil},
		{"single digits", "010.00;005.50;\n", 10, 5.5, nil},
		{"too short", "1;2;\n", 0, 0, ErrInvalidReply},
		{"empty", "\n", 0, 0, ErrInvalidReply},
		{"unparseable", "abc.de;fgh.ij;\n", 0, 0, ErrInvalidReply},
	} {
		t.Run(test.name, func(t *testing.T) {
			port := &fakePort{replies: []string{test.reply}}
			r := New(port)
			az, el, err := r.GetPosition()
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("GetPosition: got %v, want %v", err, test.wantErr)
			}
			if az != test.az || el != test.el {
				t.Errorf("GetPosition = (%v, %v), want (%v, %v)", az, el, test.az, test.el)
			}
			if got := port.wrote.String(); got != "getpos;" {
				t.Errorf("wrote %q, want %q", got, "getpos;")
			}
			// A position query never updates the cached position;
			// only Stop does.
			if diff := cmp.Diff(Status{}, r.Status(), ignoreLastUpdate); diff != "" {
				t.Errorf("status mutated by GetPosition (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStop(t *testing.T) {
	port := &fakePort{replies: []string{"010.00;020.00;\n"}}
	r := New(port)
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := port.wrote.String(); got != "stop;getpos;" {
		t.Errorf("wrote %q, want %q", got, "stop;getpos;")
	}
	want := Status{AzPos: 10, ElPos: 20, CommandAzPos: 10, CommandElPos: 20}
	if diff := cmp.Diff(want, r.Status(), ignoreLastUpdate); diff != "" {
		t.Errorf("unexpected status (-want +got):\n%s", diff)
	}
	if r.Status().LastUpdate.IsZero() {
		t.Error("LastUpdate not set by Stop")
	}
}

func TestStopPositionFailure(t *testing.T) {
	// The stop command itself has no reply; the follow-up position query
	// fails, so cached state must be left alone.
	port := &fakePort{replies: []string{"1;\n"}}
	r := New(port)
	if err := r.Stop(); !errors.Is(err, ErrInvalidReply) {
		t.Fatalf("Stop: got %v, want %v", err, ErrInvalidReply)
	}
	if diff := cmp.Diff(Status{}, r.Status(), ignoreLastUpdate); diff != "" {
		t.Errorf("status mutated by failed Stop (-want +got):\n%s", diff)
	}
}

func TestReadRetry(t *testing.T) {
	for _, test := range []struct {
		name    string
		replies []string
		wantErr error
	}{
		{"first try", []string{"11\n"}, nil},
		{"fifth try", []string{"", "", "", "", "11\n"}, nil},
		{"exhausted", []string{"", "", "", "", ""}, ErrTimeout},
	} {
		t.Run(test.name, func(t *testing.T) {
			port := &fakePort{replies: test.replies}
			r := New(port)
			err := r.SetPosition(1, 2)
			if !errors.Is(err, test.wantErr) {
				t.Errorf("SetPosition: got %v, want %v", err, test.wantErr)
			}
			// The command is written once; only the read retries.
			if got := port.wrote.String(); got != "setaz001.00;setel002.00;" {
				t.Errorf("wrote %q, want a single command", got)
			}
		})
	}
}

func TestMove(t *testing.T) {
	for _, test := range []struct {
		name    string
		dir     rotator.Direction
		wantCmd string
		wantErr error
	}{
		{"up", rotator.MoveUp, "setaz090.00;setel180.00;", nil},
		{"down", rotator.MoveDown, "setaz090.00;setel000.00;", nil},
		{"cw", rotator.MoveClockwise, "setaz360.00;setel045.00;", nil},
		{"ccw", rotator.MoveCounterClockwise, "setaz000.00;setel045.00;", nil},
		{"bogus", rotator.Direction(99), "", ErrInvalidArgument},
	} {
		t.Run(test.name, func(t *testing.T) {
			port := &fakePort{replies: []string{"11\n"}}
			r := New(port)
			r.status.CommandAzPos = 90
			r.status.CommandElPos = 45
			err := r.Move(test.dir, 50)
			if !errors.Is(err, test.wantErr) {
				t.Errorf("Move: got %v, want %v", err, test.wantErr)
			}
			if got := port.wrote.String(); got != test.wantCmd {
				t.Errorf("wrote %q, want %q", got, test.wantCmd)
			}
		})
	}
}

func TestPark(t *testing.T) {
	port := &fakePort{replies: []string{"11\n"}}
	r := New(port)
	r.status.CommandAzPos = 123
	r.status.CommandElPos = 45
	if err := r.Park(); err != nil {
		t.Fatalf("Park: %v", err)
	}
	if got := port.wrote.String(); got != "setaz000.00;setel000.00;" {
		t.Errorf("wrote %q, want park command", got)
	}
}

func TestReset(t *testing.T) {
	port := &fakePort{replies: []string{"11\n"}}
	r := New(port)
	if err := r.Reset(1); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := port.wrote.String(); got != "setaz000.00;setel000.00;" {
		t.Errorf("wrote %q, want park command", got)
	}
}

func TestClose(t *testing.T) {
	port := &fakePort{}
	r := New(port)
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := port.wrote.String(); got != "stop;" {
		t.Errorf("wrote %q, want %q", got, "stop;")
	}
	if !port.closed {
		t.Error("transport not closed")
	}
}

func TestInfo(t *testing.T) {
	r := New(&fakePort{})
	if got := r.Info(); got == "" {
		t.Error("Info returned empty string")
	}
}
