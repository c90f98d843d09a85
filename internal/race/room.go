// internal/race/room.go
package race

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Room is a single race instance: a shared target text, a bounded set of
// participants and the live subscribers watching it. All mutation goes through
// the room mutex; methods suffixed Unsafe assume the caller holds it.
type Room struct {
	Code       string
	HostID     string
	Text       string
	MaxPlayers int
	Quick      bool
	Settings   Settings
	CreatedAt  time.Time

	// Status and PhaseStartedAt drive the state machine. PhaseStartedAt is the
	// wall-clock start of the current countdown or racing phase; remaining
	// countdown and elapsed race time are always derived from it, never from a
	// counter held in memory, so a reconnecting client can recover both.
	Status         Status
	PhaseStartedAt time.Time

	// Participants preserves join order. Ranking is a derived view.
	Participants []*Participant

	Mu sync.Mutex

	// OnEmpty is called (outside the lock) when the last participant leaves a
	// room that never finished. The registry assigns it to delete the room.
	OnEmpty func(code string)

	// OnFinished delivers the race result exactly once on the finished
	// transition. It runs after the finished broadcast and must not block.
	OnFinished func(Result)

	cfg       Config
	logger    *logrus.Entry
	textRunes []rune

	subs          map[*Subscriber]struct{}
	nextJoinIndex int
	lastActivity  time.Time

	countdownTimer *time.Timer
	limitTimer     *time.Timer
}

func newRoom(code string, text string, maxPlayers int, quick bool, settings Settings, cfg Config, logger *logrus.Logger) *Room {
	now := time.Now()
	return &Room{
		Code:         code,
		Text:         text,
		MaxPlayers:   maxPlayers,
		Quick:        quick,
		Settings:     settings,
		Status:       StatusWaiting,
		CreatedAt:    now,
		cfg:          cfg,
		logger:       logger.WithField("room", code),
		textRunes:    []rune(text),
		subs:         make(map[*Subscriber]struct{}),
		lastActivity: now,
	}
}

// Join adds a participant or, if the id is already a member, marks it
// reconnected. Rejoining works in any lifecycle state; fresh joins are only
// allowed while the room is waiting and below capacity.
func (room *Room) Join(participantID, name string) error {
	room.Mu.Lock()

	if p := room.participantUnsafe(participantID); p != nil {
		p.IsConnected = true
		room.touchUnsafe()
		room.logger.Infof("participant %s (%s) reconnected", participantID, p.Name)
		room.broadcastUnsafe(SnapshotDelta)
		room.Mu.Unlock()
		return nil
	}

	if room.Status != StatusWaiting {
		room.Mu.Unlock()
		return ErrRoomNotJoinable
	}
	if len(room.Participants) >= room.MaxPlayers {
		room.Mu.Unlock()
		return ErrRoomFull
	}

	p := &Participant{
		ID:          participantID,
		Name:        name,
		Accuracy:    100,
		IsConnected: true,
		IsHost:      len(room.Participants) == 0,
		JoinedAt:    time.Now(),
		joinIndex:   room.nextJoinIndex,
	}
	room.nextJoinIndex++
	if p.IsHost {
		room.HostID = p.ID
	}
	room.Participants = append(room.Participants, p)
	room.touchUnsafe()
	room.logger.Infof("participant %s (%s) joined (%d/%d)", participantID, name, len(room.Participants), room.MaxPlayers)

	shouldAutoStart := room.Quick && room.Status == StatusWaiting &&
		room.connectedCountUnsafe() >= room.cfg.QuickStartPlayers
	if shouldAutoStart {
		room.beginCountdownUnsafe()
	}
	room.broadcastUnsafe(SnapshotDelta)
	room.Mu.Unlock()
	return nil
}

// Leave removes the participant entirely. The earliest-joined remaining
// participant inherits the host flag. If nobody remains and the room never
// finished, OnEmpty fires so the registry can delete it immediately.
func (room *Room) Leave(participantID string) {
	room.Mu.Lock()

	idx := -1
	for i, p := range room.Participants {
		if p.ID == participantID {
			idx = i
			break
		}
	}
	if idx < 0 {
		room.Mu.Unlock()
		return
	}
	wasHost := room.Participants[idx].IsHost
	room.Participants = append(room.Participants[:idx], room.Participants[idx+1:]...)
	room.logger.Infof("participant %s left", participantID)

	if wasHost && len(room.Participants) > 0 {
		room.reassignHostUnsafe()
	}

	// Drop this participant's streams.
	for sub := range room.subs {
		if sub.ParticipantID == participantID {
			room.removeSubscriberUnsafe(sub)
		}
	}

	isEmpty := len(room.Participants) == 0
	onEmpty := room.OnEmpty
	room.touchUnsafe()
	if !isEmpty {
		// Leaving mid-race must not stall the finishers left behind.
		if room.Status == StatusRacing && room.allFinishedUnsafe() {
			room.finishUnsafe()
		} else {
			room.broadcastUnsafe(SnapshotDelta)
		}
	}
	finished := room.Status == StatusFinished
	room.Mu.Unlock()

	// Finished rooms stay registered for the retention window regardless.
	if isEmpty && !finished && onEmpty != nil {
		onEmpty(room.Code)
	}
}

// reassignHostUnsafe moves the host flag to the earliest-joined remaining
// participant. Assumes lock is held and Participants is non-empty.
func (room *Room) reassignHostUnsafe() {
	next := room.Participants[0]
	for _, p := range room.Participants[1:] {
		if p.joinIndex < next.joinIndex {
			next = p
		}
	}
	next.IsHost = true
	room.HostID = next.ID
	room.logger.Infof("host reassigned to %s", next.ID)
}

// MarkDisconnected flags the participant as offline without removing them;
// their progress survives for the rest of the race.
func (room *Room) MarkDisconnected(participantID string) {
	room.Mu.Lock()
	p := room.participantUnsafe(participantID)
	if p == nil || !p.IsConnected {
		room.Mu.Unlock()
		return
	}
	p.IsConnected = false
	room.logger.Infof("participant %s disconnected", participantID)

	// One dropped client must not stall the race for everyone else.
	if room.Status == StatusRacing && room.allFinishedUnsafe() {
		room.finishUnsafe()
	} else {
		room.broadcastUnsafe(SnapshotDelta)
	}
	room.Mu.Unlock()
}

// MarkReconnected flags the participant as online again.
func (room *Room) MarkReconnected(participantID string) {
	room.Mu.Lock()
	p := room.participantUnsafe(participantID)
	if p == nil || p.IsConnected {
		room.Mu.Unlock()
		return
	}
	p.IsConnected = true
	room.touchUnsafe()
	room.logger.Infof("participant %s reconnected", participantID)
	room.broadcastUnsafe(SnapshotDelta)
	room.Mu.Unlock()
}

// IsHost reports whether the given participant currently holds the host flag.
func (room *Room) IsHost(participantID string) bool {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	p := room.participantUnsafe(participantID)
	return p != nil && p.IsHost
}

// participantUnsafe returns the member with the given id, or nil.
func (room *Room) participantUnsafe(id string) *Participant {
	for _, p := range room.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (room *Room) connectedCountUnsafe() int {
	n := 0
	for _, p := range room.Participants {
		if p.IsConnected {
			n++
		}
	}
	return n
}

func (room *Room) touchUnsafe() {
	room.lastActivity = time.Now()
}

// idleSince returns the last-activity timestamp and whether any subscriber is
// still attached, for the registry janitor.
func (room *Room) idleSince() (time.Time, bool) {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.lastActivity, len(room.subs) > 0 || room.connectedCountUnsafe() > 0
}

// rankedUnsafe returns participants ordered by (progress desc, wpm desc,
// finish time asc, join order asc). The slice is a copy; storage order is
// untouched.
func (room *Room) rankedUnsafe() []*Participant {
	ranked := make([]*Participant, len(room.Participants))
	copy(ranked, room.Participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Progress != b.Progress {
			return a.Progress > b.Progress
		}
		if a.WPM != b.WPM {
			return a.WPM > b.WPM
		}
		switch {
		case a.FinishedAt != nil && b.FinishedAt != nil:
			if !a.FinishedAt.Equal(*b.FinishedAt) {
				return a.FinishedAt.Before(*b.FinishedAt)
			}
		case a.FinishedAt != nil:
			return true
		case b.FinishedAt != nil:
			return false
		}
		return a.joinIndex < b.joinIndex
	})
	return ranked
}

// snapshotUnsafe builds a snapshot of the current room state. Full snapshots
// (SnapshotState) carry the target text; deltas omit it but still carry the
// complete player list.
func (room *Room) snapshotUnsafe(typ string) Snapshot {
	snap := Snapshot{
		Type:       typ,
		Code:       room.Code,
		Status:     room.Status,
		MaxPlayers: room.MaxPlayers,
		HostID:     room.HostID,
		Players:    make([]PlayerSnapshot, 0, len(room.Participants)),
	}
	if typ == SnapshotState {
		snap.Text = room.Text
		snap.TextLength = len(room.textRunes)
	}
	switch room.Status {
	case StatusCountdown:
		remaining := int((room.cfg.Countdown - time.Since(room.PhaseStartedAt) + time.Second - 1) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
		snap.CountdownRemaining = &remaining
	case StatusRacing:
		snap.ElapsedMs = time.Since(room.PhaseStartedAt).Milliseconds()
	}
	for pos, p := range room.rankedUnsafe() {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:          p.ID,
			Name:        p.Name,
			Progress:    p.Progress,
			WPM:         p.WPM,
			Accuracy:    p.Accuracy,
			IsFinished:  p.IsFinished,
			IsConnected: p.IsConnected,
			IsHost:      p.IsHost,
			Position:    pos + 1,
		})
	}
	return snap
}

// FullSnapshot returns a full snapshot of the room's authoritative state.
func (room *Room) FullSnapshot() Snapshot {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.snapshotUnsafe(SnapshotState)
}

// stopTimersUnsafe clears any pending phase timers.
func (room *Room) stopTimersUnsafe() {
	if room.countdownTimer != nil {
		room.countdownTimer.Stop()
		room.countdownTimer = nil
	}
	if room.limitTimer != nil {
		room.limitTimer.Stop()
		room.limitTimer = nil
	}
}
