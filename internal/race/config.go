// internal/race/config.go
package race

import "time"

// Config holds the tunable parameters for the race engine. Zero values are
// replaced with the defaults below by withDefaults, so callers may set only
// the fields they care about.
type Config struct {
	// MaxPlayers is the capacity for private rooms created via CreateRoom.
	MaxPlayers int

	// QuickMaxPlayers is the capacity for quick-race matchmaking rooms.
	QuickMaxPlayers int

	// MinPlayers is the minimum connected participants required to start a
	// race. Solo starts are rejected for competitive fairness.
	MinPlayers int

	// QuickStartPlayers is the connected-player count at which a quick-race
	// room begins its countdown automatically.
	QuickStartPlayers int

	// Countdown is the fixed countdown duration between the start request and
	// the racing phase.
	Countdown time.Duration

	// TimeLimit bounds the racing phase; zero means no limit. A per-room
	// Settings.TimeLimit overrides it.
	TimeLimit time.Duration

	// Retention is how long a finished room stays registered so late result
	// fetches succeed.
	Retention time.Duration

	// IdleTimeout is how long a room may sit with no connected subscribers and
	// no progress activity before the janitor reclaims it.
	IdleTimeout time.Duration

	// SubscriberBuffer is the per-subscriber snapshot channel capacity.
	SubscriberBuffer int
}

// DefaultConfig returns the engine defaults: 8-player private rooms, 6-player
// quick rooms, 2-player minimum, a 3 second countdown and a few minutes of
// finished-room retention.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:        8,
		QuickMaxPlayers:   6,
		MinPlayers:        2,
		QuickStartPlayers: 2,
		Countdown:         3 * time.Second,
		Retention:         3 * time.Minute,
		IdleTimeout:       10 * time.Minute,
		SubscriberBuffer:  16,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = def.MaxPlayers
	}
	if c.QuickMaxPlayers <= 0 {
		c.QuickMaxPlayers = def.QuickMaxPlayers
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = def.MinPlayers
	}
	if c.QuickStartPlayers < c.MinPlayers {
		c.QuickStartPlayers = c.MinPlayers
	}
	if c.Countdown <= 0 {
		c.Countdown = def.Countdown
	}
	if c.Retention <= 0 {
		c.Retention = def.Retention
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = def.SubscriberBuffer
	}
	return c
}

// Settings carries the per-room options a host chooses at creation time. The
// text itself is resolved once by the content selector and never changes for
// the life of the room.
type Settings struct {
	Category   string        `json:"textCategory"`
	Difficulty string        `json:"difficulty"`
	CustomText string        `json:"customText,omitempty"`
	TimeLimit  time.Duration `json:"-"`

	// TimeLimitSec is the wire form of TimeLimit.
	TimeLimitSec int `json:"timeLimit,omitempty"`
}
