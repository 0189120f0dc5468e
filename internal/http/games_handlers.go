package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/Voxpin/web-tac-toe/internal/room"
)

type GamesAPI struct{ Registry *room.Registry }

// List returns the registered game types so clients can populate the
// create-room picker without hardcoding tags.
func (a *GamesAPI) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.Registry.Games().List())
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
