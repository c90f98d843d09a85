// internal/race/state.go
package race

import "time"

// Start moves a waiting room into the countdown phase on behalf of the given
// participant. Only the host may start a room, and at least MinPlayers
// connected participants must be present. Transitions are monotonic: a room
// that left waiting can never return to it.
func (room *Room) Start(byID string) error {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	p := room.participantUnsafe(byID)
	if p == nil {
		return ErrRoomNotFound
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if room.Status != StatusWaiting {
		return ErrRoomNotJoinable
	}
	if room.connectedCountUnsafe() < room.cfg.MinPlayers {
		return ErrInsufficientPlayers
	}
	room.beginCountdownUnsafe()
	room.broadcastUnsafe(SnapshotDelta)
	return nil
}

// beginCountdownUnsafe fixes PhaseStartedAt and schedules the transition to
// racing. The text is immutable from this point. Assumes lock is held and the
// room is waiting.
func (room *Room) beginCountdownUnsafe() {
	room.Status = StatusCountdown
	room.PhaseStartedAt = time.Now()
	room.touchUnsafe()
	room.logger.Infof("countdown started (%s)", room.cfg.Countdown)

	var timer *time.Timer
	timer = time.AfterFunc(room.cfg.Countdown, func() {
		room.Mu.Lock()
		// A stale timer (room reset or already advanced) must not fire twice.
		if room.countdownTimer != timer || room.Status != StatusCountdown {
			room.Mu.Unlock()
			return
		}
		room.countdownTimer = nil
		room.beginRacingUnsafe()
		room.Mu.Unlock()
	})
	room.countdownTimer = timer
}

// beginRacingUnsafe fixes the racing PhaseStartedAt used for every
// elapsed-time WPM calculation, and arms the optional time limit.
func (room *Room) beginRacingUnsafe() {
	room.Status = StatusRacing
	room.PhaseStartedAt = time.Now()
	room.touchUnsafe()
	room.logger.Info("racing")

	limit := room.cfg.TimeLimit
	if room.Settings.TimeLimit > 0 {
		limit = room.Settings.TimeLimit
	}
	if limit > 0 {
		var timer *time.Timer
		timer = time.AfterFunc(limit, func() {
			room.Mu.Lock()
			if room.limitTimer != timer || room.Status != StatusRacing {
				room.Mu.Unlock()
				return
			}
			room.limitTimer = nil
			room.logger.Info("time limit reached")
			room.finishUnsafe()
			room.Mu.Unlock()
		})
		room.limitTimer = timer
	}
	room.broadcastUnsafe(SnapshotDelta)
}

// allFinishedUnsafe reports whether every currently-connected participant is
// done. Disconnected participants keep their last progress but never block the
// check; the time limit is the escape hatch for a fully abandoned race.
func (room *Room) allFinishedUnsafe() bool {
	connected := 0
	for _, p := range room.Participants {
		if !p.IsConnected {
			continue
		}
		connected++
		if !p.IsFinished {
			return false
		}
	}
	return connected > 0
}

// finishUnsafe moves the room to its terminal state, broadcasts it, and hands
// the result to OnFinished. Result delivery happens in a fresh goroutine so
// downstream persistence never delays the finished broadcast.
func (room *Room) finishUnsafe() {
	if room.Status == StatusFinished {
		return
	}
	started := room.PhaseStartedAt
	room.Status = StatusFinished
	room.stopTimersUnsafe()
	room.touchUnsafe()

	result := Result{
		RoomCode:     room.Code,
		StartedAt:    started,
		Duration:     time.Since(started),
		TotalPlayers: len(room.Participants),
	}
	for pos, p := range room.rankedUnsafe() {
		result.Participants = append(result.Participants, ResultEntry{
			ID:            p.ID,
			Name:          p.Name,
			WPM:           p.WPM,
			Accuracy:      p.Accuracy,
			FinalProgress: p.Progress,
			Position:      pos + 1,
		})
	}
	room.logger.Infof("race finished after %s with %d participants", result.Duration.Round(time.Millisecond), result.TotalPlayers)

	room.broadcastUnsafe(SnapshotDelta)
	if room.OnFinished != nil {
		go room.OnFinished(result)
	}
}
