package httpx

import (
	"net/http"

	"log/slog"

	"github.com/Voxpin/web-tac-toe/internal/app"
	"github.com/Voxpin/web-tac-toe/internal/room"
	"github.com/Voxpin/web-tac-toe/internal/ws"
	"github.com/Voxpin/web-tac-toe/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, registry *room.Registry) http.Handler {
	mw := NewMiddleware(cfg)
	api := &GamesAPI{Registry: registry}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint: the whole game protocol lives here
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Lobby endpoints
	mux.Handle("GET /api/games", http.HandlerFunc(api.List))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
