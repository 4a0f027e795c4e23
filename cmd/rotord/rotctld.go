package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/hambits/rotor_interface/rotator"
)

// ListenRotctld serves the hamlib rotctld network protocol, so rotctl,
// gpredict and friends can drive the rotor.
func (s *Server) ListenRotctld(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing rotctld socket")
		ln.Close()
	}()
	go func() {
		for ctx.Err() == nil {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("failed to accept: %v", err)
				continue
			}
			go s.handleRotctld(conn)
		}
	}()
	return nil
}

func (s *Server) dumpCaps(conn net.Conn, caps *rotator.Caps) {
	fmt.Fprintf(conn, `Model name: %s
Mfg name: %s
Rot type: Az-El
Min Azimuth: %.2f
Max Azimuth: %.2f
Min Elevation: %.2f
Max Elevation: %.2f
Can set Position: Y
Can get Position: Y
Can Stop: Y
Can Park: Y
Can Reset: Y
Can Move: Y
Can get Info: Y
`, caps.Model, caps.Manufacturer, caps.MinAz, caps.MaxAz, caps.MinEl, caps.MaxEl)
}

func (s *Server) handleRotctld(conn net.Conn) {
	defer conn.Close()
	log.Printf("accepted connection from %v", conn.RemoteAddr())
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		// Two forms of command: single character, or "+\" followed by command name.
		cmd := scanner.Text()
		var args []string
		var extended bool
		if len(cmd) == 0 {
			continue
		} else if len(cmd) > 2 && cmd[0:2] == `+\` {
			extended = true
			parts := strings.Split(cmd, " ")
			cmd = parts[0][2:]
			if len(parts) > 1 {
				args = parts[1:]
			}
			fmt.Fprintf(conn, "%s:\n", cmd)
		} else {
			// Space after command is optional.
			if len(cmd) > 1 {
				args = strings.Fields(strings.TrimLeft(cmd[1:], " "))
			}
			cmd = string(cmd[0])
		}
		log.Printf("%v command: %q args: %#v", conn.RemoteAddr(), cmd, args)
		rprt := -1
		switch cmd {
		case "1", "dump_caps":
			s.dumpCaps(conn, s.caps)
			rprt = 0
		case "S", "stop":
			extended = true // always print RPRT
			s.mu.Lock()
			err := s.rot.Stop()
			s.mu.Unlock()
			rprt = reportCode(err)
		case "P", "set_pos":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = -22
				break
			}
			az, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				rprt = -22
				break
			}
			el, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				rprt = -22
				break
			}
			if az < 0 {
				az += 360
			}
			rprt = reportCode(s.do(func(r rotator.Rotator) error {
				return r.SetPosition(az, el)
			}))
		case "K", "park":
			extended = true
			rprt = reportCode(s.do(rotator.Rotator.Park))
		case "R", "reset":
			extended = true
			rprt = reportCode(s.do(func(r rotator.Rotator) error {
				return r.Reset(rotator.ResetAll)
			}))
		case "M", "move":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = -22
				break
			}
			dir, err := strconv.Atoi(args[0])
			if err != nil {
				rprt = -22
				break
			}
			speed, err := strconv.Atoi(args[1])
			if err != nil {
				rprt = -22
				break
			}
			var d rotator.Direction
			switch dir {
			case 2: // Up
				d = rotator.MoveUp
			case 4: // Down
				d = rotator.MoveDown
			case 8: // Left
				d = rotator.MoveCounterClockwise
			case 16: // Right
				d = rotator.MoveClockwise
			default:
				rprt = -22
				break
			}
			if rprt == -22 {
				break
			}
			rprt = reportCode(s.do(func(r rotator.Rotator) error {
				return r.Move(d, speed)
			}))
		case "p", "get_pos":
			s.mu.Lock()
			az, el, err := s.rot.GetPosition()
			s.mu.Unlock()
			if err != nil {
				rprt = reportCode(err)
				break
			}
			if extended {
				fmt.Fprintf(conn, "Azimuth: %.6f\nElevation: %.6f\n", az, el)
			} else {
				fmt.Fprintf(conn, "%.6f\n%.6f\n", az, el)
			}
			rprt = 0
		case "_", "get_info":
			s.mu.Lock()
			info := s.rot.Info()
			s.mu.Unlock()
			if extended {
				fmt.Fprintf(conn, "Info: %s\n", info)
			} else {
				fmt.Fprintf(conn, "%s\n", info)
			}
			rprt = 0
		}
		if extended || rprt != 0 {
			fmt.Fprintf(conn, "RPRT %d\n", rprt)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading from %v: %v", conn.RemoteAddr(), err)
	}
}

// reportCode maps an operation result onto a rotctld RPRT code.
func reportCode(err error) int {
	switch {
	case err == nil:
		return 0
	case err == errUnpowered:
		return -9
	default:
		return -6
	}
}
