// Package command provides typed wrappers over the motion-control opcode
// set, fixing opcode/type/bank per call the way Trinamic's TMCL host
// libraries do, and clamping user-supplied speed/acceleration to a safety
// ceiling before anything reaches the wire.
package command

import (
	"time"

	"motionbridge/internal/mcp"
	"motionbridge/internal/transport"
)

// Opcodes used by the motion-control protocol.
const (
	OpRotateRight  = 1
	OpRotateLeft   = 2
	OpStop         = 3
	OpMoveTo       = 4
	OpSetAxis      = 5
	OpGetAxis      = 6
	OpStoreAxis    = 7
	OpRestoreAxis  = 8
	OpSetGlobal    = 9
	OpGetGlobal    = 10
	OpStoreGlobal  = 11
	OpRestoreGlobal = 12
	OpRefSearch    = 13
	OpSetIO        = 14
	OpGetIO        = 15
	OpWait         = 27
)

// Move-to modes for OpMoveTo.
const (
	MoveAbsolute = 0
	MoveRelative = 1
	MoveCoord    = 2
)

// Reference search modes for OpRefSearch.
const (
	RefSearchStart  = 0
	RefSearchStop   = 1
	RefSearchStatus = 2
)

// DefaultSpeedCeiling is the safety ceiling applied to speed and
// acceleration values before they are written to the wire, independent of
// the device's own 1..2047 valid range.
const DefaultSpeedCeiling = 1000

// API is the typed command surface used by every producer of motion
// commands: the DMX coalescer, the HTTP surface, and discovery.
type API struct {
	bus           *transport.Bus
	timeout       time.Duration
	speedCeiling  int32
}

// New creates an API bound to bus, using DefaultTimeout per exchange and
// DefaultSpeedCeiling as the safety clamp.
func New(bus *transport.Bus) *API {
	return &API{bus: bus, timeout: transport.DefaultTimeout, speedCeiling: DefaultSpeedCeiling}
}

// WithSpeedCeiling returns a copy of the API using a different safety
// ceiling for speed/acceleration clamping.
func (a *API) WithSpeedCeiling(ceiling int32) *API {
	cp := *a
	cp.speedCeiling = ceiling
	return &cp
}

// WithTimeout returns a copy of the API using a different per-exchange
// timeout.
func (a *API) WithTimeout(timeout time.Duration) *API {
	cp := *a
	cp.timeout = timeout
	return &cp
}

func (a *API) clamp(v int32) int32 {
	if v > a.speedCeiling {
		return a.speedCeiling
	}
	if v < -a.speedCeiling {
		return -a.speedCeiling
	}
	return v
}

func (a *API) exchange(addr, opcode, typ, bank uint8, value int32) (int32, error) {
	req := mcp.EncodeRequest(addr, opcode, typ, bank, value)
	reply, err := a.bus.Exchange(req, addr, opcode, a.timeout)
	if err != nil {
		return 0, err
	}
	return reply.Value, nil
}

// RotateRight issues a continuous rotate-right at the given (clamped)
// velocity.
func (a *API) RotateRight(addr uint8, velocity int32) (int32, error) {
	return a.exchange(addr, OpRotateRight, 0, 0, a.clamp(velocity))
}

// RotateLeft issues a continuous rotate-left at the given (clamped)
// velocity.
func (a *API) RotateLeft(addr uint8, velocity int32) (int32, error) {
	return a.exchange(addr, OpRotateLeft, 0, 0, a.clamp(velocity))
}

// Stop halts motion on addr.
func (a *API) Stop(addr uint8) (int32, error) {
	return a.exchange(addr, OpStop, 0, 0, 0)
}

// MoveTo issues an absolute, relative, or coordinate move depending on
// mode.
func (a *API) MoveTo(addr uint8, mode uint8, bank uint8, value int32) (int32, error) {
	return a.exchange(addr, OpMoveTo, mode, bank, value)
}

// SetAxis writes an axis parameter, clamped to the speed ceiling (the
// clamp is harmless for parameters that aren't speed/accel, since it only
// engages when the value's magnitude exceeds the configured ceiling).
func (a *API) SetAxis(addr uint8, param uint8, value int32) (int32, error) {
	return a.exchange(addr, OpSetAxis, param, 0, a.clamp(value))
}

// GetAxis reads an axis parameter.
func (a *API) GetAxis(addr uint8, param uint8) (int32, error) {
	return a.exchange(addr, OpGetAxis, param, 0, 0)
}

// StoreAxis persists an axis parameter to non-volatile memory.
func (a *API) StoreAxis(addr uint8, param uint8) (int32, error) {
	return a.exchange(addr, OpStoreAxis, param, 0, 0)
}

// RestoreAxis restores an axis parameter from non-volatile memory.
func (a *API) RestoreAxis(addr uint8, param uint8) (int32, error) {
	return a.exchange(addr, OpRestoreAxis, param, 0, 0)
}

// SetGlobal writes a global/user variable in the given bank (0, 2, or 3).
func (a *API) SetGlobal(addr uint8, param uint8, bank uint8, value int32) (int32, error) {
	return a.exchange(addr, OpSetGlobal, param, bank, value)
}

// GetGlobal reads a global/user variable.
func (a *API) GetGlobal(addr uint8, param uint8, bank uint8) (int32, error) {
	return a.exchange(addr, OpGetGlobal, param, bank, 0)
}

// StoreGlobal persists a user variable to non-volatile memory.
func (a *API) StoreGlobal(addr uint8, param uint8) (int32, error) {
	return a.exchange(addr, OpStoreGlobal, param, 2, 0)
}

// RestoreGlobal restores a user variable from non-volatile memory.
func (a *API) RestoreGlobal(addr uint8, param uint8) (int32, error) {
	return a.exchange(addr, OpRestoreGlobal, param, 2, 0)
}

// RefSearch starts, stops, or queries the device's reference search.
func (a *API) RefSearch(addr uint8, mode uint8) (int32, error) {
	return a.exchange(addr, OpRefSearch, mode, 0, 0)
}

// SetIO sets a digital output port to 0 or 1.
func (a *API) SetIO(addr uint8, port uint8, value uint8) (int32, error) {
	return a.exchange(addr, OpSetIO, port, 2, int32(value))
}

// GetIO reads a digital or analog input port from the given bank.
func (a *API) GetIO(addr uint8, port uint8, bank uint8) (int32, error) {
	return a.exchange(addr, OpGetIO, port, bank, 0)
}

// Wait issues a program-mode wait instruction.
func (a *API) Wait(addr uint8, mode uint8, bank uint8, ticks int32) (int32, error) {
	return a.exchange(addr, OpWait, mode, bank, ticks)
}
