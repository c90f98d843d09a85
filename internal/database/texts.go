// internal/database/texts.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetRandomText fetches one random race text for the given category and
// difficulty. Returns pgx.ErrNoRows wrapped when the corpus has no match.
func GetRandomText(ctx context.Context, category, difficulty string) (string, error) {
	if DB == nil {
		return "", fmt.Errorf("database not connected")
	}
	q := `
		SELECT text FROM race_texts
		WHERE category = $1 AND difficulty = $2
		ORDER BY random()
		LIMIT 1
	`
	var text string
	err := DB.QueryRow(ctx, q, category, difficulty).Scan(&text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("no race text for %s/%s: %w", category, difficulty, err)
		}
		return "", fmt.Errorf("query race text: %w", err)
	}
	return text, nil
}
