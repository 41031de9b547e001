package engine

import (
	"fmt"

	"github.com/cppla/fitquest/models"
)

// Classify maps an event kind to the challenge type it advances.
// Goal challenges have no event; they move through Updater.SetAbsolute.
func Classify(kind EventKind) (models.ChallengeType, error) {
	switch kind {
	case EventMealLogged:
		return models.ChallengeMeal, nil
	case EventActivityLogged:
		return models.ChallengeActivity, nil
	case EventStreakAdvanced:
		return models.ChallengeStreak, nil
	}
	return "", fmt.Errorf("%w: unknown event kind %q", ErrInvalidEvent, kind)
}
