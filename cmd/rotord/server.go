package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hambits/rotor_interface/rotator"
)

var errUnpowered = errors.New("rotor power is off")

type Server struct {
	// mu serializes rotor commands: the driver assumes one caller per
	// session, so concurrent rotctld and websocket clients take turns.
	mu      sync.Mutex
	rot     rotator.Rotator
	caps    *rotator.Caps
	powered bool

	statusMu   sync.RWMutex
	statusCond *sync.Cond
	status     rotator.Status
}

func NewServer(rot rotator.Rotator, caps *rotator.Caps) *Server {
	s := &Server{rot: rot, caps: caps, powered: true}
	s.statusCond = sync.NewCond(s.statusMu.RLocker())
	return s
}

// SetPowered is fed by the power interlock. While the rotor supply is off,
// movement commands are refused rather than queued.
func (s *Server) SetPowered(powered bool) {
	s.mu.Lock()
	if powered != s.powered {
		log.Printf("rotor power: %v", powered)
	}
	s.powered = powered
	s.mu.Unlock()
}

// do runs a movement command under the command lock, respecting the
// interlock.
func (s *Server) do(f func(rotator.Rotator) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.powered {
		return errUnpowered
	}
	return f(s.rot)
}

// SetPosition routes a position command through the command lock and the
// power interlock. Non-HTTP callers (the tracker) must use this rather
// than the driver directly: the serial session allows one transaction at
// a time.
func (s *Server) SetPosition(az, el float64) error {
	return s.do(func(r rotator.Rotator) error {
		return r.SetPosition(az, el)
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(status)
	if err != nil {
		log.Print(err)
		return
	}
	w.Write(data)
}

type Command struct {
	Command   string  `json:"command"`
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
	Direction string  `json:"direction"`
}

func (s *Server) handleCommand(msg Command) error {
	switch msg.Command {
	case "set_position":
		return s.do(func(r rotator.Rotator) error {
			return r.SetPosition(msg.Azimuth, msg.Elevation)
		})
	case "stop":
		s.mu.Lock()
		defer s.mu.Unlock()
		// Stop is always allowed, powered or not.
		return s.rot.Stop()
	case "park":
		return s.do(rotator.Rotator.Park)
	case "move":
		var dir rotator.Direction
		switch msg.Direction {
		case "up":
			dir = rotator.MoveUp
		case "down":
			dir = rotator.MoveDown
		case "cw":
			dir = rotator.MoveClockwise
		case "ccw":
			dir = rotator.MoveCounterClockwise
		default:
			return errors.New("unknown direction " + msg.Direction)
		}
		return s.do(func(r rotator.Rotator) error {
			return r.Move(dir, 0)
		})
	}
	return errors.New("unknown command " + msg.Command)
}

func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	// Read and process incoming messages
	go func() {
		for {
			var msg Command
			if err := conn.ReadJSON(&msg); err != nil {
				cancel()
				conn.Close()
				break
			}
			if err := s.handleCommand(msg); err != nil {
				log.Printf("ws command %q: %v", msg.Command, err)
			}
		}
	}()

	send := func(status rotator.Status) {
		data, err := json.Marshal(status)
		if err != nil {
			log.Print(err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Print(err)
			return
		}
	}

	// Wake the status wait below when the client goes away.
	go func() {
		<-ctx.Done()
		s.statusCond.Broadcast()
	}()

	s.statusMu.RLock()
	status := s.status
	s.statusMu.RUnlock()
	send(status)

	for {
		s.statusMu.RLock()
		s.statusCond.Wait()
		status := s.status
		s.statusMu.RUnlock()
		if ctx.Err() != nil {
			return
		}
		send(status)
	}
}

func (s *Server) statusCallback(status rotator.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = status
	s.statusCond.Broadcast()
}
