// Package bridge wires the serial motion-control transport, the DMX ingest
// pipeline, and the HTTP control surface into one runnable process.
package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"motionbridge/internal/coalesce"
	"motionbridge/internal/command"
	"motionbridge/internal/config"
	"motionbridge/internal/discovery"
	"motionbridge/internal/dmx"
	"motionbridge/internal/httpapi"
	"motionbridge/internal/registry"
	"motionbridge/internal/transport"
)

// Config holds everything the CLI flags can set.
type Config struct {
	SerialPort string
	Baud       int

	ArtNetBindIP string
	ArtNetPort   int
	Universe     uint16

	HTTPAddr string

	DefaultMaxSpeed int32
	DefaultMinSpeed int32
	DefaultAccel    int32
	DefaultMaxPos   int32

	ScanRange uint8

	ConfigDir  string
	ConfigName string
}

// App owns every long-lived component of the bridge and coordinates
// startup and shutdown order.
type App struct {
	cfg Config
	log *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc

	bus   *transport.Bus
	api   *command.API
	reg   *registry.Registry
	coal  *coalesce.Manager
	dmx   *dmx.Listener
	store *config.Store
	http  *http.Server
}

// New constructs an App from cfg. Start must be called before it does
// anything.
func New(cfg Config, log *logrus.Logger) *App {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{cfg: cfg, log: log}
}

// Start opens the serial port, loads the default configuration if present,
// runs discovery, starts one coalescer worker per discovered motor, starts
// the DMX listener, and starts the HTTP server. It returns once the HTTP
// server is listening; all goroutines it spawns are bound to the App's own
// context and are stopped by Stop.
func (a *App) Start() error {
	a.ctx, a.cancel = context.WithCancel(context.Background())

	port, err := transport.OpenSerialPort(a.cfg.SerialPort, a.cfg.Baud)
	if err != nil {
		return fmt.Errorf("bridge: open serial port: %w", err)
	}
	a.bus = transport.New(port, a.log)
	a.api = command.New(a.bus)
	a.reg = registry.New()
	a.coal = coalesce.NewManager(a.api, a.log)
	a.store = config.NewStore(a.cfg.ConfigDir)

	defaults := discovery.Defaults{
		MaxSpeed: a.cfg.DefaultMaxSpeed,
		MinSpeed: a.cfg.DefaultMinSpeed,
		Accel:    a.cfg.DefaultAccel,
		MaxPos:   a.cfg.DefaultMaxPos,
	}

	seeded := a.loadDefaultConfig()
	a.runDiscovery(seeded, defaults)

	conn, err := net.ListenPacket("udp", fmt.Sprintf("%s:%d", a.cfg.ArtNetBindIP, a.cfg.ArtNetPort))
	if err != nil {
		return fmt.Errorf("bridge: open art-net listener: %w", err)
	}
	a.dmx = dmx.NewListener(conn, a.coal, a.reg, a.cfg.Universe, a.log)
	go a.dmx.Run(a.ctx)

	server := httpapi.New(a.ctx, a.api, a.reg, a.coal, a.dmx, a.store, defaults, a.cfg.ScanRange, a.log)
	a.http = &http.Server{Addr: a.cfg.HTTPAddr, Handler: server.Handler()}
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("bridge: open http listener: %w", err)
	}
	go func() {
		if err := a.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("bridge: http server stopped")
		}
	}()

	a.log.WithFields(logrus.Fields{
		"serial": a.cfg.SerialPort,
		"http":   a.cfg.HTTPAddr,
		"motors": a.reg.Len(),
	}).Info("bridge: started")
	return nil
}

// loadDefaultConfig loads the boot configuration named by cfg.ConfigName
// (if present) into the registry and the DMX universe, returning the
// seeded motor table so runDiscovery can preserve its per-motor parameters
// for addresses rediscovered live.
func (a *App) loadDefaultConfig() map[uint8]registry.Motor {
	name := a.cfg.ConfigName
	if name == "" {
		name = config.DefaultName
	}
	snap, err := a.store.Load(name)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		a.log.WithError(err).Warn("bridge: failed to load boot configuration")
		return nil
	}
	seeded := config.ToRegistry(snap)
	for _, m := range seeded {
		a.reg.Put(m)
	}
	a.cfg.Universe = snap.Universe
	a.log.WithField("motors", len(seeded)).Info("bridge: loaded default configuration")
	return seeded
}

// runDiscovery sweeps the bus and replaces the registry with what answers,
// preserving configured parameters for any address present in both the
// seeded table and the live scan.
func (a *App) runDiscovery(seeded map[uint8]registry.Motor, defaults discovery.Defaults) {
	found := discovery.Scan(a.api, a.cfg.ScanRange, defaults, a.log)
	mergeSeededParams(found, seeded)
	a.reg.Replace(found)

	addrs := make([]uint8, 0, len(found))
	for addr := range found {
		addrs = append(addrs, addr)
	}
	a.coal.Reset(a.ctx, addrs)
}

// mergeSeededParams overwrites found's default-seeded parameters with the
// ones loaded from the configuration file, for every address present in
// both: boot-time discovery must not clobber a previously tuned motor's
// speed/accel/max-pos just because it used the scan defaults to answer.
// A rescan through the HTTP surface does not call this.
func mergeSeededParams(found map[uint8]registry.Motor, seeded map[uint8]registry.Motor) {
	for addr, live := range found {
		prior, ok := seeded[addr]
		if !ok {
			continue
		}
		live.MaxSpeed = prior.MaxSpeed
		live.MinSpeed = prior.MinSpeed
		live.Accel = prior.Accel
		live.MaxPos = prior.MaxPos
		found[addr] = live
	}
}

// Stop shuts down the HTTP server, cancels the DMX listener and every
// coalescer worker, and closes the serial bus, in that order.
func (a *App) Stop(ctx context.Context) error {
	if a.http != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("bridge: http shutdown error")
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			return fmt.Errorf("bridge: close bus: %w", err)
		}
	}
	a.log.Info("bridge: stopped")
	return nil
}
