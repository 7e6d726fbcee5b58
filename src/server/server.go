package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/relaychat/coordinator/config"
	"github.com/relaychat/coordinator/src/coordinator"
	"github.com/relaychat/coordinator/src/dispatch"
	"github.com/relaychat/coordinator/src/presence"
	"github.com/relaychat/coordinator/src/registry"
	"github.com/relaychat/coordinator/src/rooms"
)

// Server exposes the HTTP surface: the websocket upgrade at /ws and
// the read-only JSON routes via Fiber.
type Server struct {
	app *fiber.App

	cfg        *config.Config
	coord      *coordinator.Coordinator
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	rooms      *rooms.Manager
	presence   *presence.Service
	logger     zerolog.Logger
}

// Deps are the components the server serves.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Dispatcher  *dispatch.Dispatcher
	Registry    *registry.Registry
	Rooms       *rooms.Manager
	Presence    *presence.Service
}

// New builds the Fiber app and routes.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		coord:      deps.Coordinator,
		dispatcher: deps.Dispatcher,
		registry:   deps.Registry,
		rooms:      deps.Rooms,
		presence:   deps.Presence,
		logger:     logger.With().Str("component", "server").Logger(),
	}

	app := fiber.New()
	app.Get("/healthz", s.handleHealth)
	app.Get("/ws/info", s.handleInfo)
	app.Get("/presence", s.handlePresence)
	s.app = app
	return s
}

// Listen serves both the Fiber routes and the raw fasthttp websocket
// upgrade. Fiber v3 does not expose *fasthttp.RequestCtx, so /ws is
// routed before the app handler at the fasthttp level.
func (s *Server) Listen() error {
	appHandler := s.app.Handler()
	wsHandler := s.WebsocketHandler()

	root := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			wsHandler(ctx)
			return
		}
		appHandler(ctx)
	}

	s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("listening")
	return fasthttp.ListenAndServe(s.cfg.ListenAddr, root)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  "/ws",
		"clients":   s.dispatcher.ClientCount(),
		"rooms":     len(s.rooms.Counts()),
		"online":    len(s.registry.OnlineUsers()),
	})
}

func (s *Server) handlePresence(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"users": s.presence.OnlineUsers(c.Context()),
	})
}
