package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/tactics-backend/internal/config"
	"github.com/DoyleJ11/tactics-backend/internal/hub"
	"github.com/DoyleJ11/tactics-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Post("/sessions", CreateSession(h, cfg))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h))
	return r
}
