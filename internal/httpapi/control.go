package httpapi

import (
	"github.com/gin-gonic/gin"

	"motionbridge/internal/discovery"
)

// panic disables DMX ingest, then issues stop to every address currently
// in the registry, sequentially (the bus is single-flight).
func (s *Server) panic(c *gin.Context) {
	if s.dmx != nil {
		s.dmx.SetEnabled(false)
	}
	addrs := s.reg.Addresses()
	var lastErr string
	for _, addr := range addrs {
		if _, err := s.api.Stop(addr); err != nil {
			lastErr = err.Error()
			s.log.WithError(err).WithField("addr", addr).Warn("httpapi: panic stop failed")
		}
	}
	reply(c, "p_panic", len(addrs), lastErr)
}

// scan triggers a fresh discovery sweep, replaces the registry, and rebuilds
// the coalescer's mailboxes to match.
func (s *Server) scan(c *gin.Context) {
	found := discovery.Scan(s.api, s.scanRange, s.scanDefaults, s.log)
	s.reg.Replace(found)
	addrs := make([]uint8, 0, len(found))
	for a := range found {
		addrs = append(addrs, a)
	}
	s.coal.Reset(s.ctx, addrs)
	reply(c, "p_scan", found, "")
}

func (s *Server) setUniverse(c *gin.Context) {
	val, warn := queryIntClamped(c, "val", 0, 1024, 0)
	if s.dmx != nil {
		s.dmx.SetUniverse(uint16(val))
	}
	reply(c, "p_set_universe", nil, warn)
}

func (s *Server) getUniverse(c *gin.Context) {
	var u uint16
	if s.dmx != nil {
		u = s.dmx.Universe()
	}
	reply(c, "p_get_universe", u, "")
}

func (s *Server) setArtnet(c *gin.Context) {
	var enabled bool
	if s.dmx != nil {
		enabled = !s.dmx.Enabled()
		s.dmx.SetEnabled(enabled)
	}
	reply(c, "p_set_artnet", enabled, "")
}

func (s *Server) getArtnet(c *gin.Context) {
	var enabled bool
	if s.dmx != nil {
		enabled = s.dmx.Enabled()
	}
	reply(c, "p_get_artnet", enabled, "")
}
