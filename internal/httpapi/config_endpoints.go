package httpapi

import (
	"github.com/gin-gonic/gin"

	"motionbridge/internal/config"
)

func (s *Server) saveConfig(c *gin.Context) {
	name := c.Query("name")
	isDefault := c.Query("default") == "true" || c.Query("default") == "1"
	if name == "" {
		reply(c, "c_save_config", nil, "missing required query parameter \"name\"")
		return
	}
	var universe uint16
	if s.dmx != nil {
		universe = s.dmx.Universe()
	}
	snap := config.FromRegistry(s.reg.Snapshot(), universe)
	err := s.store.Save(name, snap, isDefault)
	reply(c, "c_save_config", name, errText(err))
}

func (s *Server) loadConfig(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		reply(c, "c_load_config", nil, "missing required query parameter \"name\"")
		return
	}
	snap, err := s.store.Load(name)
	if err != nil {
		reply(c, "c_load_config", nil, errText(err))
		return
	}
	for _, m := range config.ToRegistry(snap) {
		s.reg.Put(m)
	}
	if s.dmx != nil {
		s.dmx.SetUniverse(snap.Universe)
	}
	reply(c, "c_load_config", snap, "")
}
