// internal/handlers/server.go
package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Bhuwan-Shahi/TypingHub/internal/cache"
	"github.com/Bhuwan-Shahi/TypingHub/internal/content"
	"github.com/Bhuwan-Shahi/TypingHub/internal/database"
	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

// RaceServer is a high-level struct that owns the room registry and the
// result pipeline, and is injected into every handler.
type RaceServer struct {
	Registry *race.Registry
	Logger   *logrus.Logger
}

// NewRaceServer wires the registry with the content selector and the result
// sink. cfg zero-values fall back to engine defaults.
func NewRaceServer(cfg race.Config, logger *logrus.Logger) *RaceServer {
	if logger == nil {
		logger = logrus.New()
	}
	srv := &RaceServer{Logger: logger}
	srv.Registry = race.NewRegistry(cfg, content.NewSelector(logger), logger, srv.recordResult)
	return srv
}

// recordResult is the ResultSink: it persists the finished race to Postgres
// and enqueues it for the downstream achievement/leaderboard workers. The
// engine calls it from its own goroutine, after the finished broadcast, so
// neither store can delay the race itself. Both stores are optional.
func (srv *RaceServer) recordResult(res race.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if database.DB != nil {
		if err := database.RecordRaceResult(ctx, res); err != nil {
			srv.Logger.Warnf("failed to persist result for room %s: %v", res.RoomCode, err)
		}
	}
	if cache.Rdb != nil {
		if err := cache.PublishRaceResult(ctx, res); err != nil {
			srv.Logger.Warnf("failed to enqueue result for room %s: %v", res.RoomCode, err)
		}
	}
}
