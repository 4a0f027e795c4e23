// Binary rotord drives an azimuth/elevation antenna rotor and exposes it to
// clients over HTTP (JSON status plus a websocket command channel) and the
// hamlib rotctld network protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/hambits/rotor_interface/hambits"
	"github.com/hambits/rotor_interface/internal/config"
	"github.com/hambits/rotor_interface/powerswitch"
	"github.com/hambits/rotor_interface/rotator"
	"github.com/hambits/rotor_interface/tracker"
)

var (
	configPath  = flag.String("config", "", "path to YAML config file")
	model       = flag.String("model", "r0tor", "rotator model name")
	serialPort  = flag.String("port", "", "serial port of the rotor controller")
	simulate    = flag.Bool("simulate", false, "drive a simulated rotor instead of hardware")
	httpAddr    = flag.String("http", "127.0.0.1:8502", "HTTP listen address")
	rotctldAddr = flag.String("rotctld", "127.0.0.1:4533", "rotctld listen address")
	listModels  = flag.Bool("models", false, "list registered rotator models and exit")
)

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	cfg := &config.Config{
		Model:      *model,
		SerialPort: *serialPort,
		Simulate:   *simulate,
		Listen: config.ListenConfig{
			HTTP:    *httpAddr,
			Rotctld: *rotctldAddr,
		},
	}
	if !cfg.Simulate && cfg.SerialPort == "" {
		return nil, fmt.Errorf("-port is required unless -simulate is set")
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	if *listModels {
		for _, m := range rotator.Models() {
			fmt.Println(m)
		}
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	caps, ok := rotator.Lookup(cfg.Model)
	if !ok {
		log.Fatalf("unknown rotator model %q (see -models)", cfg.Model)
	}

	srv := NewServer(nil, caps)

	var rot rotator.Rotator
	if cfg.Simulate {
		sim, conn := hambits.NewSimulator()
		g.Go(func() error { return sim.Run(ctx) })
		r := hambits.New(hambits.NewPipePort(conn))
		r.OnStatus(srv.statusCallback)
		rot = r
		log.Print("driving simulated rotor")
	} else {
		rot, err = caps.Connect(ctx, cfg.SerialPort, srv.statusCallback)
		if err != nil {
			log.Fatalf("connecting to rotor on %s: %v", cfg.SerialPort, err)
		}
		log.Printf("connected to %s %s on %s", caps.Manufacturer, caps.Model, cfg.SerialPort)
	}
	if err := rot.Open(); err != nil {
		log.Fatalf("opening rotor session: %v", err)
	}
	defer rot.Close()

	if cfg.Offsets.Azimuth != 0 || cfg.Offsets.Elevation != 0 {
		rot = rotator.NewOffset(rot, cfg.Offsets.Azimuth, cfg.Offsets.Elevation)
		log.Printf("applying offsets az=%+.2f el=%+.2f", cfg.Offsets.Azimuth, cfg.Offsets.Elevation)
	}
	srv.rot = rot

	if cfg.Interlock != nil {
		sw, err := powerswitch.Connect(ctx, cfg.Interlock.Port, cfg.Interlock.Baud, func(st powerswitch.Status) {
			srv.SetPowered(st.Powered())
		})
		if err != nil {
			log.Fatalf("connecting to power switch on %s: %v", cfg.Interlock.Port, err)
		}
		if err := sw.SetMainsEnabled(true); err != nil {
			log.Printf("enabling rotor mains: %v", err)
		}
	}

	if cfg.Track != nil {
		tr := tracker.New(srv,
			cfg.Observer.LatitudeDeg, cfg.Observer.LongitudeDeg,
			cfg.Track.RADeg, cfg.Track.DecDeg,
			cfg.TrackInterval())
		g.Go(func() error { return tr.Run(ctx) })
		log.Printf("tracking RA %.2f Dec %.2f every %v", cfg.Track.RADeg, cfg.Track.DecDeg, cfg.TrackInterval())
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/status", srv.StatusHandler)
	r.HandleFunc("/api/ws", srv.StatusSocketHandler)

	httpServer := &http.Server{Addr: cfg.Listen.HTTP, Handler: r}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		log.Printf("http listening on %s", cfg.Listen.HTTP)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := srv.ListenRotctld(ctx, cfg.Listen.Rotctld); err != nil {
		log.Fatalf("rotctld listener: %v", err)
	}
	log.Printf("rotctld listening on %s", cfg.Listen.Rotctld)

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}
