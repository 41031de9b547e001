package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/streak"
	"github.com/cppla/fitquest/utils"
)

// StreakController recomputes the user's streak from completed daily logs.
type StreakController struct {
	logs    *store.DailyLogs
	users   *store.Users
	updater *engine.Updater
	now     func() time.Time
}

// NewStreakController creates a new controller instance.
func NewStreakController(logs *store.DailyLogs, users *store.Users, updater *engine.Updater) *StreakController {
	return &StreakController{logs: logs, users: users, updater: updater, now: time.Now}
}

// GetStreak computes the current streak, stores it on the user and advances Streak challenges.
func (s *StreakController) GetStreak(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	rctx := ctx.Request.Context()
	days, err := s.logs.CompletedDays(rctx, userID)
	if err != nil {
		respondError(ctx, err, 50030, "failed to load daily logs")
		return
	}
	length := streak.Compute(days, today(s.now()))

	if err := s.users.SetStreak(rctx, userID, length); err != nil {
		respondError(ctx, err, 50031, "failed to store streak")
		return
	}

	res, err := s.updater.Apply(rctx, engine.StreakAdvanced(userID, length))
	if err != nil {
		respondError(ctx, err, 50032, "failed to update progress")
		return
	}

	utils.Success(ctx, gin.H{
		"streak":   length,
		"progress": summarize(res),
	})
}
