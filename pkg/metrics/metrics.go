package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks currently open websocket connections
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gameserver_connections_active",
		Help: "Open websocket connections.",
	})

	// RoomsActive tracks currently live rooms
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gameserver_rooms_active",
		Help: "Live rooms in the registry.",
	})

	// MovesTotal counts applied (state-changing) moves per game type
	MovesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameserver_moves_total",
		Help: "Moves applied, by game type.",
	}, []string{"game"})

	// GamesFinished counts terminal games per game type and result
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameserver_games_finished_total",
		Help: "Games reaching a terminal state, by game type and result.",
	}, []string{"game", "result"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
