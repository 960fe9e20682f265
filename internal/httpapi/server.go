// Package httpapi implements the HTTP control surface: single-shot motor
// commands, registry/parameter queries, scan/panic, and DMX/config control,
// using gin the way the closest-fit reference orchestrator in the corpus
// wires its HTTP surface.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"motionbridge/internal/command"
	"motionbridge/internal/config"
	"motionbridge/internal/discovery"
	"motionbridge/internal/dmx"
	"motionbridge/internal/registry"
)

// axis parameters used by the parameter-setting endpoints, per TMCL's SAP
// command.
const (
	axisParamPosition = 1
	axisParamMaxSpeed = 4
	axisParamAccel    = 5
)

const (
	ioParamTemp = 9
	ioBankTemp  = 1
)

// globalParamSetAddr reassigns a module's bus address (TMCL SGP, bank 0).
const globalParamSetAddr = 65

// Coalescer is the subset of *coalesce.Manager the server needs to rebuild
// worker mailboxes after a rescan.
type Coalescer interface {
	Reset(ctx context.Context, addrs []uint8)
}

// Server wires the HTTP control surface to the core components. Motion
// commands issued here (right/left/stop/setref/gotopos) go straight
// through the command API, bypassing the DMX coalescer: they are explicit
// single-shot operator actions, not 44Hz streamed intents.
type Server struct {
	api   *command.API
	reg   *registry.Registry
	coal  Coalescer
	dmx   *dmx.Listener
	store *config.Store
	log   *logrus.Logger

	scanDefaults discovery.Defaults
	scanRange    uint8

	// ctx bounds the lifetime of any coalescer workers (re)started by a
	// rescan; it is the same context the owning bridge.App cancels on
	// shutdown, so workers spawned well after startup still stop cleanly.
	ctx context.Context

	router *gin.Engine
}

// New builds the gin router and registers every control-surface route. ctx
// is the app-lifetime context used to bound any coalescer workers a rescan
// spawns.
func New(ctx context.Context, api *command.API, reg *registry.Registry, coal Coalescer, listener *dmx.Listener, store *config.Store, scanDefaults discovery.Defaults, scanRange uint8, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		ctx:          ctx,
		api:          api,
		reg:          reg,
		coal:         coal,
		dmx:          listener,
		store:        store,
		log:          log,
		scanDefaults: scanDefaults,
		scanRange:    scanRange,
		router:       gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

// Handler returns the underlying http.Handler, for embedding in an
// *http.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/m/right", s.motorRight)
	s.router.GET("/m/left", s.motorLeft)
	s.router.GET("/m/stop", s.motorStop)
	s.router.GET("/m/setref", s.motorSetRef)
	s.router.GET("/m/gotopos", s.motorGotoPos)

	s.router.GET("/p/setmaxpos", s.setMaxPos)
	s.router.GET("/p/setmaxspeed", s.setMaxSpeed)
	s.router.GET("/p/setminspeed", s.setMinSpeed)
	s.router.GET("/p/setaccel", s.setAccel)
	s.router.GET("/p/gettemp", s.getTemp)
	s.router.GET("/p/getpos", s.getPos)
	s.router.GET("/p/panic", s.panic)
	s.router.GET("/p/scan", s.scan)
	s.router.GET("/p/connected", s.connected)
	s.router.GET("/p/set_universe", s.setUniverse)
	s.router.GET("/p/get_universe", s.getUniverse)
	s.router.GET("/p/set_artnet", s.setArtnet)
	s.router.GET("/p/get_artnet", s.getArtnet)
	s.router.GET("/p/set_addr", s.setAddr)

	s.router.GET("/c/save_config", s.saveConfig)
	s.router.GET("/c/load_config", s.loadConfig)
}

// reply is the uniform response envelope: every handler reports both its
// result and an optional clamp/validation warning, never a 4xx.
func reply(c *gin.Context, endpoint string, result any, warn string) {
	body := gin.H{"endpoint": endpoint, "result": result}
	if warn != "" {
		body["error"] = warn
	} else {
		body["error"] = nil
	}
	c.JSON(http.StatusOK, body)
}
