// Binary rotor_logger subscribes to rotord's websocket status feed and
// records every update to InfluxDB.
package main

import (
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"

	"github.com/hambits/rotor_interface/hambits"
)

func main() {
	server := os.Getenv("INFLUX_SERVER")
	if server == "" {
		server = "http://localhost:9999"
	}
	client := influxdb2.NewClient(server, os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	// Non-blocking write client
	writeApi := client.WriteApi("hambits", "rotor.raw")
	defer writeApi.Close()
	go func() {
		for err := range writeApi.Errors() {
			log.Printf("write error: %v", err)
		}
	}()
	for {
		if err := logData(writeApi); err != nil {
			log.Print(err)
		}
		time.Sleep(1 * time.Second)
	}
}

// statusFields maps a status snapshot onto InfluxDB field values.
func statusFields(status hambits.Status) map[string]interface{} {
	return map[string]interface{}{
		"az_pos":         status.AzPos,
		"el_pos":         status.ElPos,
		"command_az_pos": status.CommandAzPos,
		"command_el_pos": status.CommandElPos,
	}
}

func logData(writeApi api.WriteApi) error {
	url := os.Getenv("ROTOR_ADDRESS")
	if url == "" {
		url = "ws://localhost:8502/api/ws"
	}
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	for {
		var status hambits.Status
		if err := conn.ReadJSON(&status); err != nil {
			return err
		}
		p := influxdb2.NewPoint("rotor.status",
			nil,
			statusFields(status),
			time.Now(),
		)
		writeApi.WritePoint(p)
	}
}
