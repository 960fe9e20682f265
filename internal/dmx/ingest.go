package dmx

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"motionbridge/internal/coalesce"
	"motionbridge/internal/registry"
)

// Offerer is the subset of *coalesce.Manager the listener depends on, kept
// as an interface so tests can substitute a recording fake.
type Offerer interface {
	Offer(addr uint8, in coalesce.Intent) bool
}

// Motors is the subset of *registry.Registry the listener depends on.
type Motors interface {
	Snapshot() map[uint8]registry.Motor
}

// Listener is a UDP Art-Net receiver that translates ArtDmx payloads on
// the configured universe into per-motor intents. Enable state and
// universe are both changeable at runtime (HTTP surface), hence the
// atomics: the receive loop reads them on every packet without taking a
// lock.
type Listener struct {
	mgr     Offerer
	motors  Motors
	log     *logrus.Logger
	conn    net.PacketConn

	enabled  atomic.Bool
	universe atomic.Uint32

	framesSeen atomic.Uint64
}

// NewListener creates a listener that reads from conn (e.g. a UDP socket
// on "0.0.0.0:6454") but does not start receiving until Run is called. It starts enabled; callers
// that want DMX ingest off at boot should call SetEnabled(false) before
// Run.
func NewListener(conn net.PacketConn, mgr Offerer, motors Motors, universe uint16, log *logrus.Logger) *Listener {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &Listener{mgr: mgr, motors: motors, log: log, conn: conn}
	l.universe.Store(uint32(universe))
	l.enabled.Store(true)
	return l
}

// SetEnabled toggles whether received frames produce motor intents.
// Datagrams are still parsed and counted while disabled, for
// observability, but no intent reaches the coalescer.
func (l *Listener) SetEnabled(v bool) { l.enabled.Store(v) }

// Enabled reports the current enable state.
func (l *Listener) Enabled() bool { return l.enabled.Load() }

// SetUniverse changes the universe the listener accepts frames for.
func (l *Listener) SetUniverse(u uint16) { l.universe.Store(uint32(u)) }

// Universe reports the currently configured universe.
func (l *Listener) Universe() uint16 { return uint16(l.universe.Load()) }

// FramesSeen reports the number of ArtDmx datagrams accepted for the
// configured universe since startup (whether or not ingest was enabled).
func (l *Listener) FramesSeen() uint64 { return l.framesSeen.Load() }

// Run reads datagrams until ctx is cancelled or the socket errors. It is
// meant to be run in its own goroutine.
func (l *Listener) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	buf := make([]byte, 2048)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.WithError(err).Warn("dmx: read failed")
			return
		}
		l.handle(buf[:n])
	}
}

func (l *Listener) handle(raw []byte) {
	pkt, err := ParsePacket(raw)
	if err != nil {
		return
	}
	if pkt.Universe != l.Universe() {
		return
	}
	l.framesSeen.Add(1)
	if !l.Enabled() {
		return
	}

	motors := l.motors.Snapshot()
	for addr, intents := range Translate(pkt.Data, motors) {
		for _, in := range intents {
			l.mgr.Offer(addr, in)
		}
	}
}
