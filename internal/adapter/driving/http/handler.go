package http

import (
	"context"
	"net/http"

	"github.com/Wyydra/geosync/internal/config"
	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/Wyydra/geosync/internal/core/port"
	"github.com/Wyydra/geosync/internal/core/service"
	"github.com/Wyydra/geosync/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// HealthMessage is the body of GET /.
const HealthMessage = "Geo-Sync Server Running"

// RoomService is the part of the core the transport drives.
type RoomService interface {
	Register(c port.Client)
	Handle(c port.Client, evt domain.Event)
	Disconnect(c port.Client)
	Stats(ctx context.Context) (service.Stats, error)
}

type Handler struct {
	Rooms  RoomService
	server config.ServerConfig
	ws     config.WebSocketConfig
}

func NewHandler(rooms RoomService, cfg *config.Config) *Handler {
	return &Handler{
		Rooms:  rooms,
		server: cfg.Server,
		ws:     cfg.WebSocket,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", h.Health)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", h.Stats)
	r.Handle("/metrics", metrics.Handler())

	ws := r.With()
	if h.ws.UpgradeRate > 0 {
		ws = r.With(httprate.LimitByIP(h.ws.UpgradeRate, h.ws.UpgradeWindow))
	}
	ws.Get("/ws", h.ServeWS)

	if h.server.StaticDir != "" {
		fs := http.FileServer(http.Dir(h.server.StaticDir))
		r.Handle("/app/*", http.StripPrefix("/app/", fs))
	}

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(HealthMessage))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Rooms.Stats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect stats")
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		log.Error().Err(err).Msg("Failed to write stats")
	}
}
