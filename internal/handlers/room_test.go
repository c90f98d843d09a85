// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Bhuwan-Shahi/TypingHub/internal/auth"
	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

func newTestServer(t *testing.T) *RaceServer {
	t.Helper()
	auth.Init() // ephemeral keys, no DB needed

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	srv := NewRaceServer(race.Config{}, logger)
	t.Cleanup(srv.Registry.Close)
	return srv
}

// TestCreateRoom checks that POST /room/create builds an ephemeral room and
// returns its full snapshot with the host seated.
func TestCreateRoom(t *testing.T) {
	srv := newTestServer(t)

	body := `{"name":"Alice","textCategory":"quotes","difficulty":"easy"}`
	req := httptest.NewRequest("POST", "/room/create", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	CreateRoomHandler(srv).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var snap race.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if len(snap.Code) != 6 {
		t.Fatalf("expected a 6-character room code, got %q", snap.Code)
	}
	if snap.Status != race.StatusWaiting {
		t.Fatalf("new room should be waiting, got %q", snap.Status)
	}
	if snap.Text == "" {
		t.Fatalf("full snapshot should carry the target text")
	}
	if len(snap.Players) != 1 || snap.Players[0].Name != "Alice" || !snap.Players[0].IsHost {
		t.Fatalf("host should be the sole seated player, got %+v", snap.Players)
	}

	// A fresh session cookie must have been minted for the anonymous host.
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a %s cookie on the response", sessionCookie)
	}
}

func TestCreateRoomRejectsBadDifficulty(t *testing.T) {
	srv := newTestServer(t)

	body := `{"name":"Alice","difficulty":"impossible"}`
	req := httptest.NewRequest("POST", "/room/create", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	CreateRoomHandler(srv).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateRoomRejectsGet(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/room/create", nil)
	w := httptest.NewRecorder()

	CreateRoomHandler(srv).ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

// TestGetRoom checks the lookup path, including the case-insensitive code and
// the 404 for unknown rooms.
func TestGetRoom(t *testing.T) {
	srv := newTestServer(t)

	created, err := srv.Registry.CreateRoom(context.Background(), "host-1", "Alice", race.Settings{})
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}

	req := httptest.NewRequest("GET", "/room/"+created.Code, nil)
	w := httptest.NewRecorder()
	GetRoomHandler(srv).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var snap race.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.Code != created.Code {
		t.Fatalf("code mismatch, expected %s got %s", created.Code, snap.Code)
	}

	req = httptest.NewRequest("GET", "/room/zzzzzz", nil)
	w = httptest.NewRecorder()
	GetRoomHandler(srv).ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", w.Code)
	}
}

// TestQuickRace checks that two quick-race requests land in the same room.
func TestQuickRace(t *testing.T) {
	srv := newTestServer(t)

	do := func(name string) race.Snapshot {
		body := `{"name":"` + name + `"}`
		req := httptest.NewRequest("POST", "/room/quick", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		QuickRaceHandler(srv).ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
		}
		var snap race.Snapshot
		if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
			t.Fatalf("failed to decode snapshot: %v", err)
		}
		return snap
	}

	first := do("Alice")
	second := do("Bob")
	if first.Code != second.Code {
		t.Fatalf("quick racers should share a room, got %s and %s", first.Code, second.Code)
	}
	if len(second.Players) != 2 {
		t.Fatalf("expected 2 seated players, got %d", len(second.Players))
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName("  "); got != "Guest" {
		t.Fatalf("blank name should default to Guest, got %q", got)
	}
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	if got := displayName(string(long)); len(got) != 32 {
		t.Fatalf("long names should be truncated to 32, got %d", len(got))
	}

	// Truncation must cut on rune boundaries, never mid-character.
	wide := strings.Repeat("é", 40)
	got := displayName(wide)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated name is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 32 {
		t.Fatalf("expected 32 runes after truncation, got %d", n)
	}
}
