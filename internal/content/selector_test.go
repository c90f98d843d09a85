// internal/content/selector_test.go
package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

func TestCustomTextWins(t *testing.T) {
	s := NewSelector(nil)
	text, err := s.SelectText(context.Background(), race.Settings{
		CustomText: "  my own practice text  ",
		Category:   "quotes",
	})
	require.NoError(t, err)
	assert.Equal(t, "my own practice text", text)
}

func TestSelectFromStaticCorpus(t *testing.T) {
	s := NewSelector(nil)
	text, err := s.SelectText(context.Background(), race.Settings{
		Category:   "Programming",
		Difficulty: "EASY",
	})
	require.NoError(t, err)
	assert.Contains(t, staticTexts["programming"]["easy"], text, "category and difficulty are matched case-insensitively")
}

func TestUnknownCategoryFallsBack(t *testing.T) {
	s := NewSelector(nil)
	text, err := s.SelectText(context.Background(), race.Settings{
		Category:   "klingon-poetry",
		Difficulty: "hard",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, text, "unknown categories still yield a usable text")
}

func TestDefaultsApplied(t *testing.T) {
	s := NewSelector(nil)
	text, err := s.SelectText(context.Background(), race.Settings{})
	require.NoError(t, err)
	assert.Contains(t, staticTexts[DefaultCategory][DefaultDifficulty], text)
}
