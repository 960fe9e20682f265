package dmx

import (
	"motionbridge/internal/coalesce"
	"motionbridge/internal/registry"
)

// MapValue is the conventional affine mapping of x from [srcLo, srcHi] onto
// [dstLo, dstHi]. A degenerate source range returns dstLo.
func MapValue(x, srcLo, srcHi, dstLo, dstHi int32) int32 {
	if srcHi == srcLo {
		return dstLo
	}
	return dstLo + (x-srcLo)*(dstHi-dstLo)/(srcHi-srcLo)
}

// channelsPerMotor is the DMX footprint of one motor slot.
const channelsPerMotor = 5

// Translate maps one DMX payload into per-motor intents: each motor at
// address a>=1 consumes channels [a-1..a+3] (0-indexed), interpreted
// CH1..CH5 in the documented precedence order. A motor with fewer than 5
// channels available in payload is skipped.
//
// CH1..CH3 (speed/stop) and CH4..CH5 (absolute positioning) are
// independent channel groups that can both fire in the same frame; both
// resulting intents are returned, in the order they should be offered to
// the motor's mailbox, so the coalescer's own latest-wins rule decides
// which one the motor ends up executing.
func Translate(payload []byte, motors map[uint8]registry.Motor) map[uint8][]coalesce.Intent {
	out := make(map[uint8][]coalesce.Intent)
	for addr, m := range motors {
		start := int(addr) - 1
		if start < 0 || start+channelsPerMotor > len(payload) {
			continue
		}
		ch := payload[start : start+channelsPerMotor]
		if ins := translateMotor(ch, m); len(ins) > 0 {
			out[addr] = ins
		}
	}
	return out
}

// translateMotor applies the CH1..CH5 rules for a single motor's 5-channel
// slot, returning zero, one, or two intents (speed group, then position
// group).
func translateMotor(ch []byte, m registry.Motor) []coalesce.Intent {
	ch1, ch2, ch3, ch4, ch5 := int32(ch[0]), int32(ch[1]), int32(ch[2]), int32(ch[3]), int32(ch[4])

	var out []coalesce.Intent

	switch {
	case ch1 >= 2 && ch1 <= 127:
		out = append(out, coalesce.Intent{Kind: coalesce.RotateLeft, Speed: MapValue(ch1, 2, 127, m.MaxSpeed, m.MinSpeed)})
	case ch1 == 128:
		out = append(out, coalesce.Intent{Kind: coalesce.Stop})
	case ch1 >= 129 && ch1 <= 255:
		out = append(out, coalesce.Intent{Kind: coalesce.RotateRight, Speed: MapValue(ch1, 129, 255, m.MinSpeed, m.MaxSpeed)})
	default:
		// CH1 in {0,1}: channel not in use, fall through to CH2/CH3.
		switch {
		case ch2 >= 3 && ch2 <= 255:
			out = append(out, coalesce.Intent{Kind: coalesce.RotateLeft, Speed: MapValue(ch2, 3, 255, m.MinSpeed, m.MaxSpeed)})
		case ch2 >= 1 && ch2 <= 2:
			out = append(out, coalesce.Intent{Kind: coalesce.Stop})
		case ch3 >= 3 && ch3 <= 255:
			out = append(out, coalesce.Intent{Kind: coalesce.RotateRight, Speed: MapValue(ch3, 3, 255, m.MinSpeed, m.MaxSpeed)})
		case ch3 >= 1 && ch3 <= 2:
			out = append(out, coalesce.Intent{Kind: coalesce.Stop})
		}
	}

	switch {
	case ch5 >= 2:
		// Homing overrides an explicit CH4 position; since both are in the
		// same group only the winning one is appended.
		out = append(out, coalesce.Intent{Kind: coalesce.MoveTo, Pos: 0})
	case ch4 >= 2:
		out = append(out, coalesce.Intent{Kind: coalesce.MoveTo, Pos: MapValue(ch4, 2, 255, 1, m.MaxPos)})
	}

	return out
}
