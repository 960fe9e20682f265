package httpapi

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"motionbridge/internal/command"
)

// clampInt clamps v into [lo, hi], returning the clamped value and whether
// clamping happened.
func clampInt(v, lo, hi int64) (int64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

func queryAddr(c *gin.Context, name string) (uint8, string) {
	v, warn := queryIntClamped(c, name, 0, 255, 0)
	return uint8(v), warn
}

func queryIntClamped(c *gin.Context, name string, lo, hi, fallback int64) (int64, string) {
	raw := c.Query(name)
	var v int64
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return fallback, fmt.Sprintf("missing or invalid %q, set to %d", name, fallback)
	}
	clamped, didClamp := clampInt(v, lo, hi)
	if didClamp {
		return clamped, fmt.Sprintf("%s=%d out of range, clamped to %d", name, v, clamped)
	}
	return clamped, ""
}

func (s *Server) motorRight(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	speed, warnS := queryIntClamped(c, "speed", 1, 1000, 50)
	result, err := s.api.RotateRight(addr, int32(speed))
	reply(c, "m_right", resultOrNil(result, err), combine(warnA, warnS, errText(err)))
}

func (s *Server) motorLeft(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	speed, warnS := queryIntClamped(c, "speed", 1, 1000, 50)
	result, err := s.api.RotateLeft(addr, int32(speed))
	reply(c, "m_left", resultOrNil(result, err), combine(warnA, warnS, errText(err)))
}

func (s *Server) motorStop(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	result, err := s.api.Stop(addr)
	reply(c, "m_stop", resultOrNil(result, err), combine(warnA, errText(err)))
}

func (s *Server) motorSetRef(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	result, err := s.api.SetAxis(addr, axisParamPosition, 0)
	reply(c, "m_setref", resultOrNil(result, err), combine(warnA, errText(err)))
}

func (s *Server) motorGotoPos(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	pos, warnP := queryIntClamped(c, "pos", -100000, 100000, 0)
	result, err := s.api.MoveTo(addr, command.MoveAbsolute, 0, int32(pos))
	reply(c, "m_gotopos", resultOrNil(result, err), combine(warnA, warnP, errText(err)))
}

func resultOrNil(v int32, err error) any {
	if err != nil {
		return nil
	}
	return v
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func combine(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out == "" {
			out = p
		} else {
			out += "; " + p
		}
	}
	return out
}
