// internal/handlers/session.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Bhuwan-Shahi/TypingHub/internal/auth"
)

const sessionCookie = "session_token"

// EnsureSession returns the participant id for the request, minting an
// anonymous session (uuid subject, signed cookie) when none is present or the
// presented token is invalid. Authenticated and anonymous participants look
// identical to the race engine.
func EnsureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if id, err := auth.ParseSessionToken(cookie.Value); err == nil {
			return id, nil
		}
	}

	id := uuid.New().String()
	token, err := auth.CreateSessionToken(id)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return id, nil
}

// displayName sanitizes a requested display name, defaulting to "Guest".
func displayName(requested string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		return "Guest"
	}
	if runes := []rune(name); len(runes) > 32 {
		name = string(runes[:32])
	}
	return name
}
