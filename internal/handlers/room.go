// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

var validDifficulties = map[string]bool{
	"":       true,
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// createRoomRequest is the body of POST /room/create.
type createRoomRequest struct {
	Name         string `json:"name"`
	TextCategory string `json:"textCategory"`
	Difficulty   string `json:"difficulty"`
	CustomText   string `json:"customText"`
	TimeLimitSec int    `json:"timeLimit"`
}

// CreateRoomHandler builds a private room with the caller as host and returns
// its full snapshot, including the shareable code.
func CreateRoomHandler(srv *RaceServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hostID, err := EnsureSession(w, r)
		if err != nil {
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}

		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
			http.Error(w, "bad room request payload", http.StatusBadRequest)
			return
		}
		if !validDifficulties[strings.ToLower(req.Difficulty)] {
			http.Error(w, "invalid difficulty", http.StatusBadRequest)
			return
		}

		room, err := srv.Registry.CreateRoom(r.Context(), hostID, displayName(req.Name), race.Settings{
			Category:     req.TextCategory,
			Difficulty:   req.Difficulty,
			CustomText:   req.CustomText,
			TimeLimitSec: req.TimeLimitSec,
		})
		if err != nil {
			srv.Logger.Warnf("room create failed: %v", err)
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		writeSnapshot(w, room.FullSnapshot())
	}
}

// QuickRaceHandler joins (or creates) a matchmaking room and returns its full
// snapshot.
func QuickRaceHandler(srv *RaceServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		participantID, err := EnsureSession(w, r)
		if err != nil {
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}

		var req createRoomRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		room, err := srv.Registry.QuickRace(r.Context(), participantID, displayName(req.Name))
		if err != nil {
			srv.Logger.Warnf("quick race failed: %v", err)
			http.Error(w, "failed to join quick race", http.StatusInternalServerError)
			return
		}

		writeSnapshot(w, room.FullSnapshot())
	}
}

// GetRoomHandler serves GET /room/{code}: the room's current full snapshot.
// Finished rooms remain fetchable until their retention window lapses.
func GetRoomHandler(srv *RaceServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/"), "/")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}
		room, err := srv.Registry.GetRoom(code)
		if err != nil {
			if errors.Is(err, race.ErrRoomNotFound) {
				http.Error(w, "room not found", http.StatusNotFound)
				return
			}
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		writeSnapshot(w, room.FullSnapshot())
	}
}

func writeSnapshot(w http.ResponseWriter, snap race.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}
