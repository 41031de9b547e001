package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/models"
)

var seedLevels = []int{1, 5, 10, 20, 50}

// DefaultChallenges is the global catalog created on first boot.
func DefaultChallenges() []models.Challenge {
	var out []models.Challenge
	for _, lvl := range seedLevels {
		out = append(out, models.Challenge{
			Name:        fmt.Sprintf("Streak %d", lvl),
			Description: fmt.Sprintf("Complete by getting a %d-day log streak", lvl),
			Type:        models.ChallengeStreak,
			Level:       lvl,
		})
	}
	for _, lvl := range seedLevels {
		out = append(out, models.Challenge{
			Name:        plural(lvl, "Log %d Meal", "Log %d Meals"),
			Description: plural(lvl, "Complete by logging %d meal", "Complete by logging %d meals"),
			Type:        models.ChallengeMeal,
			Level:       lvl,
		})
	}
	for _, lvl := range seedLevels {
		out = append(out, models.Challenge{
			Name:        plural(lvl, "Log %d Activity", "Log %d Activities"),
			Description: plural(lvl, "Complete by logging %d activity", "Complete by logging %d activities"),
			Type:        models.ChallengeActivity,
			Level:       lvl,
		})
	}
	out = append(out, models.Challenge{
		Name:        "Reach your target weight",
		Description: "Progress is the percentage of the way from your start weight to your target weight",
		Type:        models.ChallengeGoal,
		Level:       100,
	})
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf(one, n)
	}
	return fmt.Sprintf(many, n)
}

// SeedChallenges inserts the default challenges that do not exist yet and
// returns how many were created.
func SeedChallenges(ctx context.Context, db *gorm.DB) (int, error) {
	created := 0
	for _, ch := range DefaultChallenges() {
		ch := ch
		var count int64
		if err := db.WithContext(ctx).Model(&models.Challenge{}).
			Where("name = ? AND challenge_type = ? AND community_id IS NULL", ch.Name, ch.Type).
			Count(&count).Error; err != nil {
			return created, fmt.Errorf("seed %q: %w", ch.Name, err)
		}
		if count > 0 {
			continue
		}
		if err := db.WithContext(ctx).Create(&ch).Error; err != nil {
			return created, fmt.Errorf("seed %q: %w", ch.Name, err)
		}
		created++
	}
	return created, nil
}
