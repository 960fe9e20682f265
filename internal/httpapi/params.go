package httpapi

import (
	"github.com/gin-gonic/gin"

	"motionbridge/internal/registry"
)

// setMaxPos updates the registry only; there's no TMCL soft-limit axis
// parameter this protocol uses for it. The value sets the top of the DMX
// CH4 position mapping; /m/gotopos does not consult it.
func (s *Server) setMaxPos(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	pos, warnP := queryIntClamped(c, "pos", -100000, 100000, 0)
	ok := s.reg.Update(addr, func(m registry.Motor) registry.Motor {
		m.MaxPos = int32(pos)
		return m
	})
	warn := combine(warnA, warnP, notFoundWarn(ok))
	reply(c, "p_setmaxpos", ok, warn)
}

func (s *Server) setMaxSpeed(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	speed, warnS := queryIntClamped(c, "speed", 1, 1000, 500)
	result, err := s.api.SetAxis(addr, axisParamMaxSpeed, int32(speed))
	ok := s.reg.Update(addr, func(m registry.Motor) registry.Motor {
		m.MaxSpeed = int32(speed)
		return m
	})
	reply(c, "p_setmaxspeed", resultOrNil(result, err), combine(warnA, warnS, errText(err), notFoundWarn(ok)))
}

func (s *Server) setMinSpeed(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	speed, warnS := queryIntClamped(c, "speed", 1, 1000, 10)
	ok := s.reg.Update(addr, func(m registry.Motor) registry.Motor {
		m.MinSpeed = int32(speed)
		return m
	})
	reply(c, "p_setminspeed", ok, combine(warnA, warnS, notFoundWarn(ok)))
}

func (s *Server) setAccel(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	accel, warnAc := queryIntClamped(c, "accel", 1, 1000, 50)
	result, err := s.api.SetAxis(addr, axisParamAccel, int32(accel))
	ok := s.reg.Update(addr, func(m registry.Motor) registry.Motor {
		m.Accel = int32(accel)
		return m
	})
	reply(c, "p_setaccel", resultOrNil(result, err), combine(warnA, warnAc, errText(err), notFoundWarn(ok)))
}

func (s *Server) getTemp(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	result, err := s.api.GetIO(addr, ioParamTemp, ioBankTemp)
	reply(c, "p_gettemp", resultOrNil(result, err), combine(warnA, errText(err)))
}

func (s *Server) getPos(c *gin.Context) {
	addr, warnA := queryAddr(c, "addr")
	result, err := s.api.GetAxis(addr, axisParamPosition)
	reply(c, "p_getpos", resultOrNil(result, err), combine(warnA, errText(err)))
}

func (s *Server) connected(c *gin.Context) {
	reply(c, "p_connected", s.reg.Snapshot(), "")
}

func (s *Server) setAddr(c *gin.Context) {
	current, warnC := queryAddr(c, "current_addr")
	newAddr, warnN := queryAddr(c, "new_addr")
	result, err := s.api.SetGlobal(current, globalParamSetAddr, 0, int32(newAddr))
	reply(c, "p_set_addr", resultOrNil(result, err), combine(warnC, warnN, errText(err)))
}

func notFoundWarn(ok bool) string {
	if ok {
		return ""
	}
	return "motor not found in registry; parameter not applied"
}
