// internal/race/registry.go
package race

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TextSelector resolves the immutable target text for a new room. The engine
// never generates text itself; the content collaborator owns that.
type TextSelector interface {
	SelectText(ctx context.Context, settings Settings) (string, error)
}

// ResultSink consumes the race result emitted on the finished transition.
// Persistence, achievement unlocking and leaderboard updates happen behind it.
type ResultSink func(Result)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// Registry is the authoritative mapping from room code to Room, owned by the
// process and injected into handlers. Mutations to a single room serialize on
// that room's lock; the registry lock only guards the map itself.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	cfg      Config
	texts    TextSelector
	logger   *logrus.Logger
	onResult ResultSink

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRegistry builds an empty registry and starts its eviction janitor.
// onResult may be nil when no persistence is configured.
func NewRegistry(cfg Config, texts TextSelector, logger *logrus.Logger, onResult ResultSink) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	reg := &Registry{
		rooms:    make(map[string]*Room),
		cfg:      cfg.withDefaults(),
		texts:    texts,
		logger:   logger,
		onResult: onResult,
		stop:     make(chan struct{}),
	}
	go reg.runJanitor()
	return reg
}

// Close stops the janitor and deletes every room, terminating all streams.
func (reg *Registry) Close() {
	reg.stopOnce.Do(func() { close(reg.stop) })
	reg.mu.Lock()
	codes := make([]string, 0, len(reg.rooms))
	for code := range reg.rooms {
		codes = append(codes, code)
	}
	reg.mu.Unlock()
	for _, code := range codes {
		reg.Remove(code)
	}
}

// CreateRoom builds a waiting room with the host as its sole participant and
// registers it under a fresh code.
func (reg *Registry) CreateRoom(ctx context.Context, hostID, hostName string, settings Settings) (*Room, error) {
	return reg.createRoom(ctx, hostID, hostName, settings, reg.cfg.MaxPlayers, false)
}

// QuickRace joins the first waiting quick room with a free slot, or creates a
// fresh one with the caller as host. Quick rooms start their countdown
// automatically once the configured player quorum joins.
func (reg *Registry) QuickRace(ctx context.Context, participantID, name string) (*Room, error) {
	reg.mu.Lock()
	var candidate *Room
	for _, room := range reg.rooms {
		room.Mu.Lock()
		open := room.Quick && room.Status == StatusWaiting && len(room.Participants) < room.MaxPlayers
		room.Mu.Unlock()
		if open {
			candidate = room
			break
		}
	}
	reg.mu.Unlock()

	if candidate != nil {
		if err := candidate.Join(participantID, name); err == nil {
			return candidate, nil
		}
		// Lost the slot between scan and join; fall through to a new room.
	}
	return reg.createRoom(ctx, participantID, name, Settings{}, reg.cfg.QuickMaxPlayers, true)
}

func (reg *Registry) createRoom(ctx context.Context, hostID, hostName string, settings Settings, maxPlayers int, quick bool) (*Room, error) {
	if settings.TimeLimit == 0 && settings.TimeLimitSec > 0 {
		settings.TimeLimit = time.Duration(settings.TimeLimitSec) * time.Second
	}

	text, err := reg.texts.SelectText(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("selecting race text: %w", err)
	}

	reg.mu.Lock()
	code := reg.generateCodeUnsafe()
	room := newRoom(code, text, maxPlayers, quick, settings, reg.cfg, reg.logger)
	room.OnEmpty = reg.Remove
	room.OnFinished = func(res Result) {
		reg.scheduleRetirement(res.RoomCode)
		if reg.onResult != nil {
			reg.onResult(res)
		}
	}
	reg.rooms[code] = room
	reg.mu.Unlock()

	// The creator always joins immediately; an empty room never exists.
	if err := room.Join(hostID, hostName); err != nil {
		reg.Remove(code)
		return nil, err
	}
	reg.logger.WithFields(logrus.Fields{"room": code, "host": hostID, "quick": quick}).Info("room created")
	return room, nil
}

// generateCodeUnsafe produces a 6-character uppercase alphanumeric code not
// currently in use, regenerating on collision. Assumes registry lock is held.
func (reg *Registry) generateCodeUnsafe() string {
	buf := make([]byte, codeLength)
	for {
		for i := range buf {
			buf[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}

// GetRoom looks up a room by code, case-insensitively.
func (reg *Registry) GetRoom(code string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// JoinRoom adds the participant to the room, or marks an existing member
// reconnected.
func (reg *Registry) JoinRoom(code, participantID, name string) (*Room, error) {
	room, err := reg.GetRoom(code)
	if err != nil {
		return nil, err
	}
	if err := room.Join(participantID, name); err != nil {
		return nil, err
	}
	return room, nil
}

// LeaveRoom removes the participant; the room handles host reassignment and
// empty-room deletion via its OnEmpty callback.
func (reg *Registry) LeaveRoom(code, participantID string) error {
	room, err := reg.GetRoom(code)
	if err != nil {
		return err
	}
	room.Leave(participantID)
	return nil
}

// Reset replaces a finished room with a fresh waiting one carrying the same
// settings, announced to subscribers of the old room. Host only; the old room
// is deleted. A finished room never transitions back to racing.
func (reg *Registry) Reset(ctx context.Context, code, byID string) (*Room, error) {
	old, err := reg.GetRoom(code)
	if err != nil {
		return nil, err
	}

	old.Mu.Lock()
	if old.Status != StatusFinished {
		old.Mu.Unlock()
		return nil, ErrRoomNotJoinable
	}
	p := old.participantUnsafe(byID)
	if p == nil || !p.IsHost {
		old.Mu.Unlock()
		return nil, ErrNotHost
	}
	settings := old.Settings
	hostName := p.Name
	old.Mu.Unlock()

	replacement, err := reg.createRoom(ctx, byID, hostName, settings, old.MaxPlayers, old.Quick)
	if err != nil {
		return nil, err
	}

	old.Mu.Lock()
	snap := old.snapshotUnsafe(SnapshotReset)
	snap.NextCode = replacement.Code
	for sub := range old.subs {
		sub.send(snap)
	}
	old.Mu.Unlock()

	reg.Remove(code)
	return replacement, nil
}

// Remove deletes the room and terminates every subscriber stream. Safe to
// call for codes that are already gone.
func (reg *Registry) Remove(code string) {
	code = strings.ToUpper(code)
	reg.mu.Lock()
	room, ok := reg.rooms[code]
	if ok {
		delete(reg.rooms, code)
	}
	reg.mu.Unlock()
	if !ok {
		return
	}
	room.Mu.Lock()
	room.stopTimersUnsafe()
	room.closeAllSubscribersUnsafe()
	room.Mu.Unlock()
	reg.logger.WithField("room", code).Info("room removed")
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// scheduleRetirement deletes a finished room after the retention window, so
// late result fetches still succeed for a while.
func (reg *Registry) scheduleRetirement(code string) {
	timer := time.NewTimer(reg.cfg.Retention)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			reg.Remove(code)
		case <-reg.stop:
		}
	}()
}

// runJanitor periodically reclaims rooms with no connected participants, no
// subscribers and no recent activity. Abandoned sessions are the only path to
// unbounded growth; this bounds it.
func (reg *Registry) runJanitor() {
	interval := reg.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-reg.stop:
			return
		case <-ticker.C:
			reg.evictIdle()
		}
	}
}

func (reg *Registry) evictIdle() {
	reg.mu.Lock()
	candidates := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		candidates = append(candidates, room)
	}
	reg.mu.Unlock()

	for _, room := range candidates {
		last, active := room.idleSince()
		if !active && time.Since(last) > reg.cfg.IdleTimeout {
			reg.logger.WithField("room", room.Code).Info("evicting idle room")
			reg.Remove(room.Code)
		}
	}
}
