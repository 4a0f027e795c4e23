// Package powerswitch polls the modbus relay board that supplies the rotor
// mains power. The service uses its status to refuse move commands while
// the supply is off, so a command queued during an outage cannot start the
// rotor unexpectedly when power returns.
package powerswitch

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/hambits/rotor_interface/internal/modbus"
)

type Status struct {
	CommandMainsEnabled bool

	MainsActive bool
	AzActive    bool
	ElActive    bool
}

// Powered reports whether both rotor axes have power.
func (s Status) Powered() bool {
	return s.MainsActive && s.AzActive && s.ElActive
}

type StatusCallback func(status Status)

type Switch struct {
	statusCallback StatusCallback
	mu             sync.Mutex
	client         *modbus.Client
	relays         int
	coils          []bool
	inputs         []bool
}

func Connect(ctx context.Context, port string, baud int, statusCallback StatusCallback) (*Switch, error) {
	s := &Switch{
		client: &modbus.Client{
			Port:     port,
			BaudRate: baud,
			SlaveId:  1,
		},
		statusCallback: statusCallback,
	}
	s.client.Poll = s.pollOnce
	return s, s.client.Connect(ctx)
}

func (s *Switch) pollOnce() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.client.ReadInputRegisters(0, 1)
	if err != nil {
		return err
	}
	relays := binary.BigEndian.Uint16(results)

	coils, err := s.client.ReadCoils(0, relays)
	if err != nil {
		return err
	}
	inputs, err := s.client.ReadDiscreteInputs(0, relays+1)
	if err != nil {
		return err
	}
	s.relays = int(relays)
	s.coils = modbus.BytesToBits(coils)
	s.inputs = modbus.BytesToBits(inputs)
	s.notifyStatus()
	return nil
}

func (s *Switch) notifyStatus() {
	status := s.parseRegisters()
	s.statusCallback(status)
}

func (s *Switch) parseRegisters() Status {
	return Status{
		CommandMainsEnabled: s.coils[0],

		MainsActive: s.inputs[0],
		AzActive:    s.inputs[1],
		ElActive:    s.inputs[2],
	}
}

// SetMainsEnabled switches the rotor supply relay.
func (s *Switch) SetMainsEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client.WriteCoil(0, enabled)
}
