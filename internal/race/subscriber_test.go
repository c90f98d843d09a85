// internal/race/subscriber_test.go
package race

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeFirstSnapshotIsFullState(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "the quick brown fox")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	sub := room.Subscribe("host-1")
	t.Cleanup(func() { room.Unsubscribe(sub) })

	snap := drainOne(t, sub)
	assert.Equal(t, SnapshotState, snap.Type)
	assert.Equal(t, room.Code, snap.Code)
	assert.Equal(t, "the quick brown fox", snap.Text, "the full snapshot carries the target text")
	assert.Equal(t, StatusWaiting, snap.Status)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "host-1", snap.Players[0].ID)
	assert.True(t, snap.Players[0].IsHost)
}

func TestBroadcastOnMembershipChange(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	sub := room.Subscribe("host-1")
	t.Cleanup(func() { room.Unsubscribe(sub) })
	drainOne(t, sub)

	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	require.NoError(t, err)

	snap := drainOne(t, sub)
	assert.Equal(t, SnapshotDelta, snap.Type)
	assert.Empty(t, snap.Text, "deltas omit the target text")
	require.Len(t, snap.Players, 2)
}

func TestUnsubscribeClosesOnlyOwnStream(t *testing.T) {
	reg := newTestRegistry(t, Config{}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)
	_, err = reg.JoinRoom(room.Code, "p-2", "Bob")
	require.NoError(t, err)

	subA := room.Subscribe("host-1")
	subB := room.Subscribe("p-2")
	drainOne(t, subA)
	drainOne(t, subB)

	room.Unsubscribe(subA)
	_, ok := <-subA.C()
	assert.False(t, ok, "unsubscribed stream should be closed")

	// The remaining subscriber still receives broadcasts.
	room.MarkDisconnected("host-1")
	snap := drainOne(t, subB)
	assert.Equal(t, SnapshotDelta, snap.Type)

	// Double unsubscribe is harmless.
	room.Unsubscribe(subA)
}

func TestLaggingSubscriberDropsNotBlocks(t *testing.T) {
	reg := newTestRegistry(t, Config{SubscriberBuffer: 1}, "text")
	room, err := reg.CreateRoom(context.Background(), "host-1", "Alice", Settings{})
	require.NoError(t, err)

	sub := room.Subscribe("host-1")
	t.Cleanup(func() { room.Unsubscribe(sub) })

	// The buffer already holds the primed full snapshot; these broadcasts
	// must drop rather than stall the room.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			room.MarkDisconnected("host-1")
			room.MarkReconnected("host-1")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcasts blocked on a lagging subscriber")
	}

	// The first delivered snapshot is still the self-contained full state.
	snap := drainOne(t, sub)
	assert.Equal(t, SnapshotState, snap.Type)
}
