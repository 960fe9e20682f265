// Command motionbridge runs the Art-Net-to-stepper-motor bridge: it opens
// the serial motion-control bus, discovers attached motors, and serves both
// a DMX ingest listener and an HTTP control surface until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"motionbridge/internal/bridge"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		serialPort string
		baud       int
		artnetIP   string
		artnetPort int
		universe   uint16
		httpAddr   string
		maxSpeed   int32
		minSpeed   int32
		accel      int32
		maxPos     int32
		scanRange  uint8
		configDir  string
		configName string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "motionbridge",
		Short: "Bridge Art-Net/DMX512 lighting control to a serial stepper-motor bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			app := bridge.New(bridge.Config{
				SerialPort:      serialPort,
				Baud:            baud,
				ArtNetBindIP:    artnetIP,
				ArtNetPort:      artnetPort,
				Universe:        universe,
				HTTPAddr:        httpAddr,
				DefaultMaxSpeed: maxSpeed,
				DefaultMinSpeed: minSpeed,
				DefaultAccel:    accel,
				DefaultMaxPos:   maxPos,
				ScanRange:       scanRange,
				ConfigDir:       configDir,
				ConfigName:      configName,
			}, log)

			if err := app.Start(); err != nil {
				return fmt.Errorf("motionbridge: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			<-sigCh

			log.Info("motionbridge: shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.Stop(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&serialPort, "serial-port", "/dev/ttyUSB0", "serial device path for the motion-control bus")
	flags.IntVar(&baud, "baud", 115200, "serial baud rate")
	flags.StringVar(&artnetIP, "artnet-ip", "0.0.0.0", "bind address for the Art-Net UDP listener")
	flags.IntVar(&artnetPort, "artnet-port", 6454, "UDP port for the Art-Net listener")
	flags.Uint16Var(&universe, "universe", 0, "Art-Net universe to accept frames for")
	flags.StringVar(&httpAddr, "http-addr", ":8080", "HTTP control surface bind address")
	flags.Int32Var(&maxSpeed, "max-speed", 1000, "default max speed seeded for newly discovered motors")
	flags.Int32Var(&minSpeed, "min-speed", 10, "default min speed seeded for newly discovered motors")
	flags.Int32Var(&accel, "accel", 50, "default acceleration seeded for newly discovered motors")
	flags.Int32Var(&maxPos, "max-pos", 5000, "default max position seeded for newly discovered motors")
	flags.Uint8Var(&scanRange, "scan-range", 254, "highest address probed during discovery (capped at 254)")
	flags.StringVar(&configDir, "config-dir", "./configs", "directory holding named configuration files")
	flags.StringVar(&configName, "config-name", "default", "configuration name applied at boot if present")
	flags.BoolVar(&verbose, "verbose", false, "enable debug-level logging")

	return cmd
}
