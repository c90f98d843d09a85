// internal/race/participant.go
package race

import "time"

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusRacing    Status = "racing"
	StatusFinished  Status = "finished"
)

// Participant is one player's presence and live progress within a room. Rank
// is never stored here; it is derived by sorting on every snapshot.
type Participant struct {
	ID          string
	Name        string
	Progress    float64
	WPM         int
	Accuracy    float64
	TypedLength int
	IsFinished  bool
	IsConnected bool
	IsHost      bool

	JoinedAt   time.Time
	FinishedAt *time.Time

	// joinIndex preserves insertion order for deterministic tie-breaks even
	// after earlier participants leave.
	joinIndex int
}

// PlayerSnapshot is the wire form of a participant inside a room snapshot.
type PlayerSnapshot struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Progress    float64 `json:"progress"`
	WPM         int     `json:"wpm"`
	Accuracy    float64 `json:"accuracy"`
	IsFinished  bool    `json:"isFinished"`
	IsConnected bool    `json:"isConnected"`
	IsHost      bool    `json:"isHost"`
	Position    int     `json:"position"`
}

// Snapshot message types sent to subscribers.
const (
	SnapshotState = "room_state"  // full snapshot, always first on subscribe
	SnapshotDelta = "room_update" // compact update, text omitted
	SnapshotReset = "room_reset"  // finished room replaced; NextCode set
)

// Snapshot is a complete or incremental description of a room's state. A full
// snapshot carries the target text; deltas omit it. Every snapshot carries the
// whole player list, so a dropped delta never leaves a subscriber with a
// partial view.
type Snapshot struct {
	Type               string           `json:"type"`
	Code               string           `json:"code"`
	Status             Status           `json:"status"`
	Text               string           `json:"text,omitempty"`
	TextLength         int              `json:"textLength,omitempty"`
	MaxPlayers         int              `json:"maxPlayers,omitempty"`
	HostID             string           `json:"hostId,omitempty"`
	CountdownRemaining *int             `json:"countdownRemaining,omitempty"`
	ElapsedMs          int64            `json:"elapsedMs,omitempty"`
	Players            []PlayerSnapshot `json:"players"`
	NextCode           string           `json:"nextCode,omitempty"`
}

// ResultEntry is one participant's final line in a race result.
type ResultEntry struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	WPM           int     `json:"wpm"`
	Accuracy      float64 `json:"accuracy"`
	FinalProgress float64 `json:"finalProgress"`
	Position      int     `json:"position"`
}

// Result is emitted exactly once per room on the finished transition. The
// results-persistence collaborator consumes it downstream; the engine itself
// never blocks on it.
type Result struct {
	RoomCode     string        `json:"roomCode"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
	TotalPlayers int           `json:"totalPlayers"`
	Participants []ResultEntry `json:"participants"`
}
