package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wyydra/geosync/internal/adapter/driven/gateway/ws"
	repo "github.com/Wyydra/geosync/internal/adapter/driven/persistence/memory"
	handler "github.com/Wyydra/geosync/internal/adapter/driving/http"
	"github.com/Wyydra/geosync/internal/config"
	"github.com/Wyydra/geosync/internal/core/service"
	"github.com/Wyydra/geosync/internal/logging"
	"github.com/Wyydra/geosync/internal/supervisor"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stdout,
	})

	rooms := repo.NewRoomRepository()
	hub := ws.NewHub()
	roomService := service.NewRoomService(rooms, hub, service.Options{
		AnnounceReconnect: cfg.Relay.AnnounceReconnect,
	})
	h := handler.NewHandler(roomService, cfg)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout * 2})
	tree.AddMessagingService(supervisor.NewLoopService("room-service", roomService))
	tree.AddAPIService(supervisor.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", srv.Addr).Msg("Starting server")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Supervisor stopped with error")
	}
	log.Info().Msg("Server exited")
}
