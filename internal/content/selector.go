// internal/content/selector.go
package content

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Bhuwan-Shahi/TypingHub/internal/database"
	"github.com/Bhuwan-Shahi/TypingHub/internal/race"
)

// Selector resolves race texts from the corpus. A custom text always wins;
// otherwise the Postgres corpus is tried when connected, falling back to the
// built-in static corpus so the engine works in demo mode.
type Selector struct {
	logger *logrus.Logger
}

// NewSelector builds the default selector.
func NewSelector(logger *logrus.Logger) *Selector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Selector{logger: logger}
}

// SelectText implements race.TextSelector.
func (s *Selector) SelectText(ctx context.Context, settings race.Settings) (string, error) {
	if custom := strings.TrimSpace(settings.CustomText); custom != "" {
		return custom, nil
	}

	category := normalize(settings.Category, DefaultCategory)
	difficulty := normalize(settings.Difficulty, DefaultDifficulty)

	if database.DB != nil {
		text, err := database.GetRandomText(ctx, category, difficulty)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			s.logger.Warnf("corpus lookup failed for %s/%s, using built-in texts: %v", category, difficulty, err)
		}
	}
	return staticText(category, difficulty), nil
}

func normalize(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
