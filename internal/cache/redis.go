// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

// Rdb is the global Redis client. Connect it once at application startup; it
// stays nil when Redis is not configured.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) race results are pushed onto.
// Downstream workers pop from it to update achievements and leaderboards.
var DefaultQueueName = "typinghub_results"

// RaceResultRecord is the queue payload for one finished race.
type RaceResultRecord struct {
	RoomCode     string             `json:"room_code"`
	StartedAt    int64              `json:"started_at"`
	DurationMs   int64              `json:"duration_ms"`
	TotalPlayers int                `json:"total_players"`
	Participants []race.ResultEntry `json:"participants"`
	Timestamp    int64              `json:"timestamp"`
}

// Configured reports whether the Redis environment variables are set.
func Configured() bool {
	return os.Getenv("REDIS_ADDR") != ""
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishRaceResult serializes the result and pushes it to the results queue.
// This is a quick network send; the race engine never waits on consumers.
func PublishRaceResult(ctx context.Context, res race.Result) error {
	if Rdb == nil {
		return fmt.Errorf("redis not connected")
	}
	record := RaceResultRecord{
		RoomCode:     res.RoomCode,
		StartedAt:    res.StartedAt.Unix(),
		DurationMs:   res.Duration.Milliseconds(),
		TotalPlayers: res.TotalPlayers,
		Participants: res.Participants,
		Timestamp:    time.Now().Unix(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RaceResultRecord: %w", err)
	}

	queueName := getEnv("RESULTS_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
