package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaychat/coordinator/config"
	"github.com/relaychat/coordinator/src/coordinator"
	"github.com/relaychat/coordinator/src/directory"
	"github.com/relaychat/coordinator/src/dispatch"
	"github.com/relaychat/coordinator/src/presence"
	"github.com/relaychat/coordinator/src/registry"
	"github.com/relaychat/coordinator/src/rooms"
	"github.com/relaychat/coordinator/src/server"
	"github.com/relaychat/coordinator/src/typing"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	store := directory.NewRedisStore(cfg.Redis, logger)
	defer store.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		// Collaborator failures stay scoped to single commands, so a
		// missing Redis is degraded service, not a startup failure.
		logger.Warn().Err(err).Str("redis_addr", cfg.Redis.Addr).Msg("redis unavailable, commands needing it will fail")
	}
	cancel()

	reg := registry.New()
	members := rooms.New()
	dispatcher := dispatch.New(members, cfg.SendBufferSize, logger)
	typer := typing.New(dispatcher, cfg.TypingTimeout, logger)
	pres := presence.New(reg, store, logger)

	coord := coordinator.New(coordinator.Options{
		Registry:         reg,
		Rooms:            members,
		Dispatcher:       dispatcher,
		Typing:           typer,
		Directory:        store,
		Store:            store,
		MaxMessageLength: cfg.MaxMessageLength,
	}, logger)

	srv := server.New(cfg, server.Deps{
		Coordinator: coord,
		Dispatcher:  dispatcher,
		Registry:    reg,
		Rooms:       members,
		Presence:    pres,
	}, logger)

	if err := srv.Listen(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
