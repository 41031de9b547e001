package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

// DailyLogController records foods and exercises. Every newly attached item is a progress event.
type DailyLogController struct {
	logs    *store.DailyLogs
	updater *engine.Updater
	now     func() time.Time
}

// NewDailyLogController creates a DailyLogController.
func NewDailyLogController(logs *store.DailyLogs, updater *engine.Updater) *DailyLogController {
	return &DailyLogController{logs: logs, updater: updater, now: time.Now}
}

type logItemRequest struct {
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

// buildItems sanitizes the request items and returns them with one event per item.
func buildItems(userID uint, foods, exercises []logItemRequest) ([]models.LogItem, []engine.Event, bool) {
	items := make([]models.LogItem, 0, len(foods)+len(exercises))
	events := make([]engine.Event, 0, len(foods)+len(exercises))
	add := func(kind models.LogItemKind, in []logItemRequest, ev func(uint) engine.Event) bool {
		for _, it := range in {
			name := utils.SanitizeText(it.Name)
			if name == "" || len([]rune(name)) > 128 || it.Calories < 0 {
				return false
			}
			items = append(items, models.LogItem{Kind: kind, Name: name, Calories: it.Calories})
			events = append(events, ev(userID))
		}
		return true
	}
	if !add(models.LogItemFood, foods, engine.MealLogged) || !add(models.LogItemExercise, exercises, engine.ActivityLogged) {
		return nil, nil, false
	}
	return items, events, true
}

// CreateLog creates the log for a day with its initial items.
func (d *DailyLogController) CreateLog(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Date      string           `json:"date"`
		Completed bool             `json:"completed"`
		Foods     []logItemRequest `json:"foods"`
		Exercises []logItemRequest `json:"exercises"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}

	date := today(d.now())
	if s := strings.TrimSpace(req.Date); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40081, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	items, events, ok := buildItems(userID, req.Foods, req.Exercises)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40082, "every item needs a name and non-negative calories")
		return
	}

	rctx := ctx.Request.Context()
	log := models.DailyLog{UserID: userID, Date: date, Completed: req.Completed, Items: items}
	if err := d.logs.Create(rctx, &log); err != nil {
		respondError(ctx, err, 50080, "failed to create daily log")
		return
	}

	res, err := applyAll(rctx, d.updater, userID, events)
	if err != nil {
		respondError(ctx, err, 50081, "failed to update progress")
		return
	}
	utils.Created(ctx, gin.H{
		"log":      log,
		"progress": summarize(res),
	})
}

// UpdateLog attaches more items to an existing log and optionally toggles completed.
func (d *DailyLogController) UpdateLog(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	logID, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40083, "invalid log id")
		return
	}
	var req struct {
		Completed *bool            `json:"completed"`
		Foods     []logItemRequest `json:"foods"`
		Exercises []logItemRequest `json:"exercises"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}
	items, events, ok := buildItems(userID, req.Foods, req.Exercises)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40082, "every item needs a name and non-negative calories")
		return
	}

	rctx := ctx.Request.Context()
	log, err := d.logs.Update(rctx, userID, logID, req.Completed, items)
	if err != nil {
		respondError(ctx, err, 50082, "failed to update daily log")
		return
	}

	res, err := applyAll(rctx, d.updater, userID, events)
	if err != nil {
		respondError(ctx, err, 50081, "failed to update progress")
		return
	}
	utils.Success(ctx, gin.H{
		"log":      log,
		"progress": summarize(res),
	})
}
