// internal/database/results.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

// RecordRaceResult persists one row per participant of a finished race into
// the races table. The whole result is written in a single transaction so a
// race never shows up half-recorded on the leaderboards.
func RecordRaceResult(ctx context.Context, res race.Result) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO races (race_id, user_id, wpm, accuracy, final_progress, position, total_players, duration_ms, started_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (race_id, user_id)
			DO UPDATE SET wpm=$3, accuracy=$4, final_progress=$5, position=$6, total_players=$7, duration_ms=$8
		`
		for _, entry := range res.Participants {
			if _, e := tx.Exec(ctx, q,
				res.RoomCode, entry.ID, entry.WPM, entry.Accuracy, entry.FinalProgress,
				entry.Position, res.TotalPlayers, res.Duration.Milliseconds(), res.StartedAt,
			); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert race results: %w", err)
	}
	return nil
}
