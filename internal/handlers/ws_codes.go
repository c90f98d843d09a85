// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the race handlers. These give clients
// more specific closure reasons than the standard codes.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	InvalidSessionError  = 3001 // Session token could not be validated or minted.
	InvalidRoomCodeError = 3003 // Target room code in the WS URL does not exist.
	RoomRejectedError    = 3004 // Room exists but refused the join (full or already racing).
)
