// internal/race/subscriber.go
package race

// Subscriber is one live stream of room snapshots. The channel is buffered and
// writes never block: a lagging subscriber drops intermediate snapshots, and
// because every snapshot is self-contained the next delivered one catches it
// up. The first item on a fresh subscription is always a full snapshot.
type Subscriber struct {
	ParticipantID string

	ch     chan Snapshot
	closed bool
}

// C is the receive side of the snapshot stream. It is closed when the
// subscriber is removed or the room is deleted.
func (s *Subscriber) C() <-chan Snapshot {
	return s.ch
}

// send pushes a snapshot without blocking. Assumes the room lock is held, so
// closed is stable for the duration of the call.
func (s *Subscriber) send(snap Snapshot) {
	if s.closed {
		return
	}
	select {
	case s.ch <- snap:
	default:
		// Subscriber is lagging; drop. The next snapshot carries full state.
	}
}

// Subscribe registers a snapshot stream for the given participant. The full
// snapshot is queued under the room lock before the subscriber is exposed to
// broadcasts, so it is guaranteed to be observed first and to exactly match
// the authoritative state at subscription time.
func (room *Room) Subscribe(participantID string) *Subscriber {
	sub := &Subscriber{
		ParticipantID: participantID,
		ch:            make(chan Snapshot, room.cfg.SubscriberBuffer),
	}
	room.Mu.Lock()
	sub.ch <- room.snapshotUnsafe(SnapshotState)
	room.subs[sub] = struct{}{}
	room.touchUnsafe()
	room.Mu.Unlock()
	return sub
}

// Unsubscribe detaches the stream and closes its channel. Other subscribers
// are unaffected.
func (room *Room) Unsubscribe(sub *Subscriber) {
	room.Mu.Lock()
	room.removeSubscriberUnsafe(sub)
	room.Mu.Unlock()
}

func (room *Room) removeSubscriberUnsafe(sub *Subscriber) {
	if _, ok := room.subs[sub]; !ok {
		return
	}
	delete(room.subs, sub)
	sub.closed = true
	close(sub.ch)
}

// broadcastUnsafe fans the current state out to every subscriber. Called on
// every state-machine transition and every accepted progress update.
func (room *Room) broadcastUnsafe(typ string) {
	if len(room.subs) == 0 {
		return
	}
	snap := room.snapshotUnsafe(typ)
	for sub := range room.subs {
		sub.send(snap)
	}
}

// closeAllSubscribersUnsafe terminates every stream; used on room deletion.
func (room *Room) closeAllSubscribersUnsafe() {
	for sub := range room.subs {
		room.removeSubscriberUnsafe(sub)
	}
}
