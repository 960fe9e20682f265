// Package discovery sweeps the motion-control bus address space to find
// which addresses have a live motor controller attached, building the
// registry's initial table.
package discovery

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"motionbridge/internal/command"
	"motionbridge/internal/mcp"
	"motionbridge/internal/registry"
	"motionbridge/internal/transport"
)

// BroadcastAddr is the motion-control broadcast address; it addresses
// every device at once and is never probed individually.
const BroadcastAddr = 0

// MaxAddr is the highest address discovery will ever probe (255 is
// reserved and excluded along with the broadcast address 0).
const MaxAddr = 254

// tempProbeParam/tempProbeBank select the I/O read that doubles as a
// liveness probe during discovery; any opcode that elicits a reply whose
// module address can be checked would do.
const (
	tempProbeParam = 9
	tempProbeBank  = 1
)

// Defaults seeds a newly discovered motor's runtime parameters.
type Defaults struct {
	MaxSpeed int32
	MinSpeed int32
	Accel    int32
	MaxPos   int32
}

// Scan probes addresses 1..=maxAddr (capped at MaxAddr) and returns the
// table of motors that answered. Timeouts and address mismatches mean "no
// motor there" and are not reported as errors; any other frame error is
// logged and also treated as "no motor".
func Scan(api *command.API, maxAddr uint8, defaults Defaults, log *logrus.Logger) map[uint8]registry.Motor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if maxAddr > MaxAddr {
		maxAddr = MaxAddr
	}

	found := make(map[uint8]registry.Motor)
	for addr := uint8(1); addr <= maxAddr; addr++ {
		// Settle the bus before each probe: give any straggling bytes
		// from the previous address time to drain.
		time.Sleep(settleDelay)

		temp, ok := probe(api, addr, log)
		if !ok {
			continue
		}
		found[addr] = registry.Motor{
			Addr:          addr,
			MaxSpeed:      defaults.MaxSpeed,
			MinSpeed:      defaults.MinSpeed,
			Accel:         defaults.Accel,
			MaxPos:        defaults.MaxPos,
			LastKnownTemp: &temp,
		}
	}
	return found
}

// settleDelay is the pre-wait before each probe, giving the bus time to
// settle after the previous exchange. It mirrors the per-exchange timeout
// used by the command API.
var settleDelay = transport.DefaultTimeout

// probe issues one liveness check against addr and reports the probed
// temperature on success.
func probe(api *command.API, addr uint8, log *logrus.Logger) (int32, bool) {
	value, err := api.GetIO(addr, tempProbeParam, tempProbeBank)
	if err == nil {
		log.WithFields(logrus.Fields{"addr": addr, "temp": value}).Info("discovery: motor found")
		return value, true
	}

	var fe *mcp.FrameError
	if errors.As(err, &fe) && fe.Kind == mcp.ErrAddrMismatch {
		return 0, false
	}
	if errors.Is(err, transport.ErrTimeout) {
		return 0, false
	}

	log.WithError(err).WithField("addr", addr).Debug("discovery: no motor")
	return 0, false
}

// WorstCaseDuration returns an upper bound on how long a full scan of
// maxAddr addresses can take: each address pays the settle delay plus, in
// the worst case (no reply), the full per-exchange timeout.
func WorstCaseDuration(maxAddr uint8, timeout time.Duration) time.Duration {
	if maxAddr > MaxAddr {
		maxAddr = MaxAddr
	}
	return time.Duration(maxAddr) * (settleDelay + timeout)
}
