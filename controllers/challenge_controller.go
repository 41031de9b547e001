package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

// ChallengeController serves the catalog and the user's participations.
type ChallengeController struct {
	challenges *store.Challenges
	enrollment *engine.Enrollment
	updater    *engine.Updater
}

// NewChallengeController creates a ChallengeController.
func NewChallengeController(challenges *store.Challenges, enrollment *engine.Enrollment, updater *engine.Updater) *ChallengeController {
	return &ChallengeController{challenges: challenges, enrollment: enrollment, updater: updater}
}

// ListChallenges returns global challenges, optionally of a single type.
func (c *ChallengeController) ListChallenges(ctx *gin.Context) {
	t, ok := parseTypeQuery(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40070, "unknown challenge type")
		return
	}
	items, err := c.challenges.List(ctx.Request.Context(), store.ChallengeFilter{Type: t, GlobalOnly: true})
	if err != nil {
		respondError(ctx, err, 50070, "failed to list challenges")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// GetChallenge returns one challenge.
func (c *ChallengeController) GetChallenge(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40071, "invalid challenge id")
		return
	}
	ch, err := c.challenges.Get(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 50071, "failed to get challenge")
		return
	}
	utils.Success(ctx, ch)
}

// CreateChallenge adds a challenge to the catalog. Admin only.
func (c *ChallengeController) CreateChallenge(ctx *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Type        string `json:"type" binding:"required"`
		Level       int    `json:"level" binding:"required"`
		CommunityID *uint  `json:"community_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40072, "invalid request payload")
		return
	}
	t, err := models.ParseChallengeType(req.Type)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "unknown challenge type")
		return
	}
	if req.CommunityID != nil && *req.CommunityID == 0 {
		req.CommunityID = nil
	}

	ch := models.Challenge{
		Name:        utils.SanitizeText(req.Name),
		Description: utils.Sanitize(strings.TrimSpace(req.Description)),
		Type:        t,
		Level:       req.Level,
		CommunityID: req.CommunityID,
	}
	if err := c.challenges.Create(ctx.Request.Context(), &ch); err != nil {
		respondError(ctx, err, 50072, "failed to create challenge")
		return
	}
	utils.Created(ctx, ch)
}

// DeleteChallenge removes a challenge and every participation in it. Admin only.
func (c *ChallengeController) DeleteChallenge(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40071, "invalid challenge id")
		return
	}
	if err := c.challenges.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err, 50073, "failed to delete challenge")
		return
	}
	utils.Success(ctx, gin.H{"id": id})
}

// Join enrolls the current user.
func (c *ChallengeController) Join(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40071, "invalid challenge id")
		return
	}
	p, err := c.enrollment.Join(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err, 50074, "failed to join challenge")
		return
	}
	utils.Success(ctx, p)
}

// Leave removes the current user's participation. Leaving twice succeeds.
func (c *ChallengeController) Leave(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40071, "invalid challenge id")
		return
	}
	if err := c.enrollment.Leave(ctx.Request.Context(), userID, id); err != nil {
		respondError(ctx, err, 50075, "failed to leave challenge")
		return
	}
	utils.Success(ctx, gin.H{"challenge_id": id})
}

// MyChallenges lists the current user's participations with their challenges.
func (c *ChallengeController) MyChallenges(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	t, ok := parseTypeQuery(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40070, "unknown challenge type")
		return
	}
	communityID, ok := parseOptionalID(ctx.Query("community_id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40073, "invalid community id")
		return
	}
	items, err := c.enrollment.ListForUser(ctx.Request.Context(), userID, engine.ListFilter{Type: t, CommunityID: communityID})
	if err != nil {
		respondError(ctx, err, 50076, "failed to list participations")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// SetGoalProgress sets the progress of the current user's Goal challenges directly.
func (c *ChallengeController) SetGoalProgress(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Value *int `json:"value" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Value == nil {
		utils.Error(ctx, http.StatusBadRequest, 40074, "value is required")
		return
	}
	res, err := c.updater.SetAbsolute(ctx.Request.Context(), userID, models.ChallengeGoal, *req.Value)
	if err != nil {
		respondError(ctx, err, 50077, "failed to update goal progress")
		return
	}
	utils.Success(ctx, gin.H{"progress": summarize(res)})
}
