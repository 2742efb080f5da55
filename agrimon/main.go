package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/device"
	"github.com/itohio/agrimon/pkg/log"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated sensor hub instead of serial port")
		debugFlag  = flag.Bool("debug", false, "Enable debug logging")
		listFlag   = flag.Bool("list", false, "List available serial ports and exit")
	)
	flag.Parse()

	if *listFlag {
		listPorts()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *debugFlag {
		cfg.Log.Debug = true
	}

	runID, err := log.Init(cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, runID, *mockFlag); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("agrimon stopped: %v", err)
	}
	log.Infof("agrimon stopped")
}

func listPorts() {
	ports, err := device.Ports()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	for _, port := range ports {
		if port.Description != "" && port.Description != port.Name {
			fmt.Printf("%s (%s)\n", port.Name, port.Description)
			continue
		}
		fmt.Println(port.Name)
	}
}
