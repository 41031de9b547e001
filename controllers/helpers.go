package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/middleware"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func parseOptionalID(s string) (*uint, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return nil, false
	}
	id := uint(n)
	return &id, true
}

func parseTypeQuery(ctx *gin.Context) (models.ChallengeType, bool) {
	raw := strings.TrimSpace(ctx.Query("type"))
	if raw == "" {
		return "", true
	}
	t, err := models.ParseChallengeType(raw)
	return t, err == nil
}

// today returns the current calendar date as UTC midnight, the form daily logs are stored in.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// respondError maps domain errors onto the JSON envelope. Unknown errors become a 500 with fallback.
func respondError(ctx *gin.Context, err error, fallback int, message string) {
	switch {
	case errors.Is(err, engine.ErrInvalidEvent), errors.Is(err, store.ErrInvalidChallenge):
		utils.Error(ctx, http.StatusBadRequest, 40060, err.Error())
	case errors.Is(err, engine.ErrNotMember):
		utils.Error(ctx, http.StatusForbidden, 40360, "not a member of this community")
	case errors.Is(err, engine.ErrCommunityNotFound):
		utils.Error(ctx, http.StatusNotFound, 40461, "community not found")
	case errors.Is(err, engine.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40460, err.Error())
	case errors.Is(err, engine.ErrAlreadyEnrolled):
		utils.Error(ctx, http.StatusConflict, 40960, "already enrolled")
	case errors.Is(err, store.ErrUsernameTaken), errors.Is(err, store.ErrNameTaken), errors.Is(err, store.ErrLogExists):
		utils.Error(ctx, http.StatusConflict, 40961, err.Error())
	case errors.Is(err, engine.ErrConflict):
		utils.Error(ctx, http.StatusServiceUnavailable, 50360, "concurrent update, try again")
	default:
		utils.L().Error(message, zap.Error(err), zap.String("request_id", ctx.GetString(utils.RequestIDKey)))
		utils.Error(ctx, http.StatusInternalServerError, fallback, message)
	}
}

// progressSummary is the progress report attached to responses of event-emitting endpoints.
type progressSummary struct {
	Updated   []engine.Outcome `json:"updated"`
	Completed []engine.Outcome `json:"completed"`
	Skipped   []engine.Skip    `json:"skipped"`
	Warnings  []string         `json:"warnings,omitempty"`
	Partial   bool             `json:"partial"`
}

func summarize(res *engine.Result) progressSummary {
	out := progressSummary{
		Updated:   []engine.Outcome{},
		Completed: []engine.Outcome{},
		Skipped:   []engine.Skip{},
	}
	if res == nil {
		return out
	}
	out.Updated = append(out.Updated, res.Updated...)
	out.Completed = append(out.Completed, res.Completed()...)
	out.Skipped = append(out.Skipped, res.Skipped...)
	out.Warnings = res.Warnings()
	out.Partial = res.Partial()
	return out
}

// applyAll runs events in order and merges their reports. It stops at the first hard error.
func applyAll(ctx context.Context, u *engine.Updater, userID uint, events []engine.Event) (*engine.Result, error) {
	total := &engine.Result{UserID: userID}
	for _, ev := range events {
		res, err := u.Apply(ctx, ev)
		if err != nil {
			return total, err
		}
		total.Merge(res)
	}
	if err := total.Err(); err != nil {
		utils.L().Warn("progress partially applied", zap.Uint("user_id", userID), zap.Error(err))
	}
	return total, nil
}
