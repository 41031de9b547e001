package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/middleware"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

const tokenTTL = 72 * time.Hour

// AuthController handles local accounts and the profile fields that drive Goal challenges.
type AuthController struct {
	users   *store.Users
	updater *engine.Updater
}

// NewAuthController creates an AuthController.
func NewAuthController(users *store.Users, updater *engine.Updater) *AuthController {
	return &AuthController{users: users, updater: updater}
}

// Register creates a local account with a bcrypt hashed password.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len([]rune(req.Username)); l < 2 || l > 32 || !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 2-32 letters, digits, '-' or '_'")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrWeakPassword) {
			utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{Username: req.Username, PasswordHash: hash}
	if err := a.users.Create(ctx.Request.Context(), &user); err != nil {
		respondError(ctx, err, 50002, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

func validUsername(s string) bool {
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '_' {
			continue
		}
		return false
	}
	return true
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.GetByUsername(ctx.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponse(*user),
	})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	user, err := a.users.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50005, "failed to load user")
		return
	}

	utils.Success(ctx, userResponse(*user))
}

// UpdateProfile stores goal and weights. When a usable target is set, the percentage
// toward it becomes the progress of the user's Goal challenges.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Goal          *string  `json:"goal"`
		StartWeight   *float64 `json:"start_weight"`
		CurrentWeight *float64 `json:"current_weight"`
		TargetWeight  *float64 `json:"target_weight"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	rctx := ctx.Request.Context()
	user, err := a.users.GetUser(rctx, userID)
	if err != nil {
		respondError(ctx, err, 50031, "failed to load user")
		return
	}

	if req.Goal != nil {
		goal := utils.SanitizeText(*req.Goal)
		if len([]rune(goal)) > 64 {
			goal = string([]rune(goal)[:64])
		}
		user.Goal = goal
	}
	for _, w := range []struct {
		in  *float64
		out *float64
	}{
		{req.StartWeight, &user.StartWeight},
		{req.CurrentWeight, &user.CurrentWeight},
		{req.TargetWeight, &user.TargetWeight},
	} {
		if w.in == nil {
			continue
		}
		if *w.in < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40031, "weights must not be negative")
			return
		}
		*w.out = *w.in
	}

	user, err = a.users.UpdateWeights(rctx, userID, user.Goal, user.StartWeight, user.CurrentWeight, user.TargetWeight)
	if err != nil {
		respondError(ctx, err, 50032, "failed to update profile")
		return
	}

	resp := gin.H{"user": userResponse(*user)}
	if pct, ok := user.GoalPercent(); ok {
		res, err := a.updater.SetAbsolute(rctx, userID, models.ChallengeGoal, pct)
		if err != nil {
			respondError(ctx, err, 50033, "failed to update goal progress")
			return
		}
		resp["goal_percent"] = pct
		resp["progress"] = summarize(res)
	}
	utils.Success(ctx, resp)
}

func userResponse(user models.User) gin.H {
	m := gin.H{
		"id":             user.ID,
		"username":       user.Username,
		"goal":           user.Goal,
		"start_weight":   user.StartWeight,
		"current_weight": user.CurrentWeight,
		"target_weight":  user.TargetWeight,
		"streak":         user.Streak,
		"created_at":     user.CreatedAt,
		"is_admin":       middleware.IsAdmin(user.Username),
	}
	if pct, ok := user.GoalPercent(); ok {
		m["goal_percent"] = pct
	}
	return m
}
