package rotator

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry(t *testing.T) {
	caps := &Caps{
		Model: "testrot",
		Connect: func(ctx context.Context, port string, cb StatusCallback) (Rotator, error) {
			return nil, nil
		},
	}
	Register(caps)

	got, ok := Lookup("testrot")
	if !ok {
		t.Fatal("Lookup failed for registered model")
	}
	if got != caps {
		t.Error("Lookup returned different caps")
	}
	if _, ok := Lookup("nonexistent"); ok {
		t.Error("Lookup succeeded for unregistered model")
	}

	found := false
	for _, name := range Models() {
		if name == "testrot" {
			found = true
		}
	}
	if !found {
		t.Errorf("Models() = %v, missing testrot", Models())
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	caps := &Caps{Model: "dup"}
	Register(caps)
	Register(caps)
}

func TestConnectUnknownModel(t *testing.T) {
	if _, err := Connect(context.Background(), "no-such-model", "/dev/null", nil); err == nil {
		t.Error("Connect succeeded for unknown model")
	}
}

func TestDirectionString(t *testing.T) {
	for _, test := range []struct {
		d    Direction
		want string
	}{
		{MoveUp, "up"},
		{MoveDown, "down"},
		{MoveClockwise, "cw"},
		{MoveCounterClockwise, "ccw"},
		{Direction(7), "Direction(7)"},
	} {
		if got := test.d.String(); got != test.want {
			t.Errorf("%d.String() = %q, want %q", int(test.d), got, test.want)
		}
	}
}

// fakeRotator records the last requested position and plays back a canned one.
type fakeRotator struct {
	Rotator
	setAz, setEl float64
	az, el       float64
}

func (f *fakeRotator) SetPosition(az, el float64) error {
	f.setAz, f.setEl = az, el
	return nil
}

func (f *fakeRotator) GetPosition() (float64, float64, error) {
	return f.az, f.el, nil
}

func TestOffset(t *testing.T) {
	for _, test := range []struct {
		name               string
		offsetAz, offsetEl float64
		reqAz, reqEl       float64
		wantAz, wantEl     float64
	}{
		{"none", 0, 0, 100, 50, 100, 50},
		{"azimuth", 10, 0, 100, 50, 90, 50},
		{"wraps low", 10, 0, 5, 50, 355, 50},
		{"wraps high", -10, 0, 355, 50, 5, 50},
		{"elevation", 0, 5, 100, 50, 100, 45},
		{"elevation clamps", 0, 5, 100, 2, 100, 0},
	} {
		t.Run(test.name, func(t *testing.T) {
			inner := &fakeRotator{}
			o := NewOffset(inner, test.offsetAz, test.offsetEl)
			if err := o.SetPosition(test.reqAz, test.reqEl); err != nil {
				t.Fatalf("SetPosition: %v", err)
			}
			got := []float64{inner.setAz, inner.setEl}
			want := []float64{test.wantAz, test.wantEl}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("device position (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOffsetGetPosition(t *testing.T) {
	inner := &fakeRotator{az: 90, el: 45}
	o := NewOffset(inner, 10, -5)
	az, el, err := o.GetPosition()
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if az != 100 || el != 40 {
		t.Errorf("GetPosition = (%v, %v), want (100, 40)", az, el)
	}
}
