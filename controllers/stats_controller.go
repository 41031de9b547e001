package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/utils"
)

// StatsController provides service wide counts.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics. A failing count is reported as 0.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	count := func(model interface{}, query string, args ...interface{}) int64 {
		var n int64
		q := db.Model(model)
		if query != "" {
			q = q.Where(query, args...)
		}
		if err := q.Count(&n).Error; err != nil {
			return 0
		}
		return n
	}

	utils.Success(ctx, gin.H{
		"user_count":          count(&models.User{}, ""),
		"challenge_count":     count(&models.Challenge{}, ""),
		"participation_count": count(&models.Participation{}, ""),
		"completion_count":    count(&models.Participation{}, "completed = ?", true),
		"community_count":     count(&models.Community{}, ""),
		"feed_post_count":     count(&models.FeedPost{}, ""),
	})
}
