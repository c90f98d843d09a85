// internal/race/registry_test.go
package race

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSelector serves a fixed text so room creation never touches a store.
type stubSelector struct {
	text string
	err  error
}

func (s stubSelector) SelectText(ctx context.Context, settings Settings) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if settings.CustomText != "" {
		return settings.CustomText, nil
	}
	return s.text, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// newTestRegistry builds a registry over a stub selector and tears it down
// with the test.
func newTestRegistry(t *testing.T, cfg Config, text string) *Registry {
	t.Helper()
	reg := NewRegistry(cfg, stubSelector{text: text}, quietLogger(), nil)
	t.Cleanup(reg.Close)
	return reg
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateRoom(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "the quick brown fox")

	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	assert.Regexp(t, codePattern, room.Code, "room code should be 6 uppercase alphanumerics")
	assert.Equal(t, StatusWaiting, room.Status)
	assert.Equal(t, "host-1", room.HostID)
	require.Len(t, room.Participants, 1)
	assert.True(t, room.Participants[0].IsHost)
	assert.True(t, room.Participants[0].IsConnected)
	assert.Equal(t, 1, reg.Len())
}

func TestCreateRoomCustomText(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "fallback text")

	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{CustomText: "my own words"})
	require.NoError(t, err)
	assert.Equal(t, "my own words", room.Text)
}

func TestCreateRoomSelectorError(t *testing.T) {
	reg := NewRegistry(Config{}, stubSelector{err: fmt.Errorf("store down")}, quietLogger(), nil)
	t.Cleanup(reg.Close)

	_, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len(), "failed creation must not leave a room behind")
}

func TestGetRoomCaseInsensitive(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	lower, err := reg.GetRoom(strings.ToLower(room.Code))
	require.NoError(t, err)
	assert.Same(t, room, lower)

	_, err = reg.GetRoom("NOPE42")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomCapacity(t *testing.T) {
	reg := newTestRegistry(t, Config{MaxPlayers: 2}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	require.NoError(t, err)

	_, err = reg.JoinRoom(room.Code, "p-3", "Carol")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Len(t, room.Participants, 2)
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	reg := newTestRegistry(t, Config{MaxPlayers: 4}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := reg.JoinRoom(room.Code, fmt.Sprintf("p-%d", i), "Racer"); err == nil {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, joined, "exactly the free slots should be won")
	assert.Len(t, room.Participants, 4)
}

func TestJoinRejectedAfterWaiting(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)
	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	require.NoError(t, err)

	room.Mu.Lock()
	room.Status = StatusRacing
	room.PhaseStartedAt = time.Now()
	room.Mu.Unlock()

	_, err = reg.JoinRoom(room.Code, "p-3", "Carol")
	assert.ErrorIs(t, err, ErrRoomNotJoinable)

	// Existing members reconnect in any state.
	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	assert.NoError(t, err)
}

func TestHostReassignment(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)
	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	require.NoError(t, err)
	_, err = reg.JoinRoom(room.Code, "p-3", "Carol")
	require.NoError(t, err)

	require.NoError(t, reg.LeaveRoom(room.Code, "host-1"))

	assert.Equal(t, "p-2", room.HostID, "earliest-joined remaining participant inherits host")
	assert.True(t, room.IsHost("p-2"))
	assert.False(t, room.IsHost("p-3"))
}

func TestEmptyWaitingRoomDeleted(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)
	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	require.NoError(t, err)

	require.NoError(t, reg.LeaveRoom(room.Code, "p-2"))
	require.NoError(t, reg.LeaveRoom(room.Code, "host-1"))

	_, err = reg.GetRoom(room.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Equal(t, 0, reg.Len())
}

func TestQuickRaceMatchmaking(t *testing.T) {
	reg := newTestRegistry(t, Config{QuickStartPlayers: 3}, "text")

	first, err := reg.QuickRace(context.Background(), "p-1", "Alice")
	require.NoError(t, err)
	assert.True(t, first.Quick)
	assert.Equal(t, reg.cfg.QuickMaxPlayers, first.MaxPlayers)

	second, err := reg.QuickRace(context.Background(), "p-2", "Bob")
	require.NoError(t, err)
	assert.Same(t, first, second, "second quick racer should land in the open room")
	assert.Equal(t, 1, reg.Len())
}

func TestQuickRaceAutoStart(t *testing.T) {
	reg := newTestRegistry(t, Config{QuickStartPlayers: 2, Countdown: time.Hour}, "text")

	room, err := reg.QuickRace(context.Background(), "p-1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, room.Status)

	_, err = reg.QuickRace(context.Background(), "p-2", "Bob")
	require.NoError(t, err)

	room.Mu.Lock()
	status := room.Status
	room.Mu.Unlock()
	assert.Equal(t, StatusCountdown, status, "quorum should trigger the countdown")

	// A started quick room is no longer an open matchmaking target.
	third, err := reg.QuickRace(context.Background(), "p-3", "Carol")
	require.NoError(t, err)
	assert.NotEqual(t, room.Code, third.Code)
}

func TestIdleRoomEviction(t *testing.T) {
	reg := newTestRegistry(t, Config{IdleTimeout: time.Minute}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	// Active rooms survive a sweep.
	reg.evictIdle()
	assert.Equal(t, 1, reg.Len())

	room.MarkDisconnected("host-1")
	room.Mu.Lock()
	room.lastActivity = time.Now().Add(-time.Hour)
	room.Mu.Unlock()

	reg.evictIdle()
	_, err = reg.GetRoom(room.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestFinishedRoomRetainedThenRetired(t *testing.T) {
	text := "short race"
	reg := newTestRegistry(t, Config{Retention: 100 * time.Millisecond}, text)
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)
	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	require.NoError(t, err)

	room.Mu.Lock()
	room.Status = StatusRacing
	room.PhaseStartedAt = time.Now()
	room.Mu.Unlock()

	_, err = room.ReportProgress("host-1", text)
	require.NoError(t, err)
	_, err = room.ReportProgress("p-2", text)
	require.NoError(t, err)

	room.Mu.Lock()
	status := room.Status
	room.Mu.Unlock()
	require.Equal(t, StatusFinished, status)

	// Everyone leaving a finished room must not delete it: late result
	// fetches stay possible until the retention window lapses.
	require.NoError(t, reg.LeaveRoom(room.Code, "host-1"))
	require.NoError(t, reg.LeaveRoom(room.Code, "p-2"))

	fetched, err := reg.GetRoom(room.Code)
	require.NoError(t, err)
	snap := fetched.FullSnapshot()
	assert.Equal(t, StatusFinished, snap.Status)

	assert.Eventually(t, func() bool {
		_, err := reg.GetRoom(room.Code)
		return errors.Is(err, ErrRoomNotFound)
	}, time.Second, 10*time.Millisecond, "retention expiry should retire the room")
}

func TestRemoveClosesSubscribers(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	sub := room.Subscribe("host-1")
	reg.Remove(room.Code)

	// Drain the primed full snapshot, then the channel must be closed.
	select {
	case _, ok := <-sub.C():
		require.True(t, ok)
	default:
		t.Fatal("expected a primed full snapshot")
	}
	_, ok := <-sub.C()
	assert.False(t, ok, "subscriber channel should close when the room is removed")
}
