// internal/race/errors.go
package race

import "errors"

// Sentinel errors returned by registry and room operations. All of these are
// recoverable at the client layer; handlers translate them into HTTP status
// codes or WebSocket error envelopes, never into a process crash.
var (
	// ErrRoomNotFound indicates an unknown or already-evicted room code.
	ErrRoomNotFound = errors.New("race: room not found")

	// ErrRoomFull indicates the room has reached its maxPlayers capacity.
	ErrRoomFull = errors.New("race: room is full")

	// ErrRoomNotJoinable indicates the room is not in a lifecycle state that
	// permits the requested operation (e.g. joining after the countdown began).
	ErrRoomNotJoinable = errors.New("race: room is not joinable")

	// ErrUpdateRejected indicates a progress report was discarded: wrong
	// lifecycle state, unknown participant, out-of-bounds length, or a report
	// that would move progress backwards.
	ErrUpdateRejected = errors.New("race: progress update rejected")

	// ErrInsufficientPlayers indicates a start request below the configured
	// minimum connected player count.
	ErrInsufficientPlayers = errors.New("race: not enough players to start")

	// ErrNotHost indicates a host-only operation attempted by a non-host.
	ErrNotHost = errors.New("race: only the host may do that")
)
