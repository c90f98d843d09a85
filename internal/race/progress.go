// internal/race/progress.go
package race

import (
	"math"
	"time"
)

// ReportProgress validates and applies a participant's progress report. The
// report carries only the raw typed prefix; everything derived from it
// (correct characters, accuracy, WPM, progress) is computed here against the
// immutable target text and server-observed elapsed time, so a client cannot
// falsify its own metrics.
//
// Rejected reports (wrong lifecycle state, unknown participant, typed input
// longer than the target, or a report that would move progress backwards) are
// a no-op signalled by ErrUpdateRejected. Resubmitting the already-applied
// length is idempotent: the stored state is returned untouched.
func (room *Room) ReportProgress(participantID, typed string) (PlayerSnapshot, error) {
	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.Status != StatusRacing {
		return PlayerSnapshot{}, ErrUpdateRejected
	}
	p := room.participantUnsafe(participantID)
	if p == nil {
		return PlayerSnapshot{}, ErrUpdateRejected
	}

	typedRunes := []rune(typed)
	typedLen := len(typedRunes)
	textLen := len(room.textRunes)
	if typedLen > textLen {
		return PlayerSnapshot{}, ErrUpdateRejected
	}

	if typedLen == p.TypedLength && p.TypedLength > 0 {
		// Duplicate delivery of the last report; keep stored metrics stable.
		return room.playerSnapshotUnsafe(participantID), nil
	}
	if typedLen < p.TypedLength || p.IsFinished {
		// Out-of-order or post-finish report; progress never decreases and
		// isFinished never reverts while racing.
		return PlayerSnapshot{}, ErrUpdateRejected
	}

	correct := 0
	for i, r := range typedRunes {
		if r == room.textRunes[i] {
			correct++
		}
	}

	elapsed := time.Since(room.PhaseStartedAt)
	p.TypedLength = typedLen
	p.WPM = computeWPM(correct, elapsed)
	p.Accuracy = computeAccuracy(correct, typedLen)
	p.Progress = computeProgress(typedLen, textLen)
	if p.Progress >= 100 && p.FinishedAt == nil {
		now := time.Now()
		p.IsFinished = true
		p.FinishedAt = &now
		room.logger.Infof("participant %s finished at %d wpm", p.ID, p.WPM)
	}
	room.touchUnsafe()

	snap := room.playerSnapshotUnsafe(participantID)
	if room.allFinishedUnsafe() {
		room.finishUnsafe()
	} else {
		room.broadcastUnsafe(SnapshotDelta)
	}
	return snap, nil
}

// playerSnapshotUnsafe returns the ranked snapshot row for one participant.
func (room *Room) playerSnapshotUnsafe(participantID string) PlayerSnapshot {
	for pos, p := range room.rankedUnsafe() {
		if p.ID == participantID {
			return PlayerSnapshot{
				ID:          p.ID,
				Name:        p.Name,
				Progress:    p.Progress,
				WPM:         p.WPM,
				Accuracy:    p.Accuracy,
				IsFinished:  p.IsFinished,
				IsConnected: p.IsConnected,
				IsHost:      p.IsHost,
				Position:    pos + 1,
			}
		}
	}
	return PlayerSnapshot{}
}

// computeWPM standardizes words per minute as correct characters / 5 per
// elapsed minute, rounded, floored at zero.
func computeWPM(correctChars int, elapsed time.Duration) int {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	wpm := int(math.Round(float64(correctChars) / 5 / minutes))
	if wpm < 0 {
		return 0
	}
	return wpm
}

// computeAccuracy is the share of typed positions matching the target. An
// empty report is 100 by convention, matching the idle state.
func computeAccuracy(correctChars, typedLen int) float64 {
	if typedLen == 0 {
		return 100
	}
	return float64(correctChars) / float64(typedLen) * 100
}

// computeProgress is the typed fraction of the target text, clamped to
// [0, 100].
func computeProgress(typedLen, textLen int) float64 {
	if textLen == 0 {
		return 100
	}
	progress := float64(typedLen) / float64(textLen) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
