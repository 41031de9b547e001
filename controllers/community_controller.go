package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

const feedCacheTTL = 5 * time.Minute

// FeedCachePrefix is the redis key prefix of a community's cached feed pages.
func FeedCachePrefix(communityID uint) string {
	return fmt.Sprintf("cache:feed:%d:", communityID)
}

// CommunityController manages communities, their challenges and their feeds.
type CommunityController struct {
	communities *store.Communities
	challenges  *store.Challenges
	feed        *store.FeedPublisher
}

// NewCommunityController creates a CommunityController.
func NewCommunityController(communities *store.Communities, challenges *store.Challenges, feed *store.FeedPublisher) *CommunityController {
	return &CommunityController{communities: communities, challenges: challenges, feed: feed}
}

// CreateCommunity creates a community owned by the current user.
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}
	name := utils.SanitizeText(req.Name)
	if name == "" || len([]rune(name)) > 128 {
		utils.Error(ctx, http.StatusBadRequest, 40091, "name must be 1-128 characters")
		return
	}

	community := models.Community{
		Name:        name,
		Description: utils.Sanitize(strings.TrimSpace(req.Description)),
		CreatedBy:   userID,
	}
	if err := c.communities.Create(ctx.Request.Context(), &community); err != nil {
		respondError(ctx, err, 50090, "failed to create community")
		return
	}
	utils.Created(ctx, community)
}

// JoinCommunity makes the current user a member.
func (c *CommunityController) JoinCommunity(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40092, "invalid community id")
		return
	}
	if err := c.communities.Join(ctx.Request.Context(), id, userID); err != nil {
		respondError(ctx, err, 50091, "failed to join community")
		return
	}
	utils.Success(ctx, gin.H{"community_id": id})
}

// ListChallenges returns the challenges that belong to a community.
func (c *CommunityController) ListChallenges(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40092, "invalid community id")
		return
	}
	t, ok := parseTypeQuery(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40070, "unknown challenge type")
		return
	}
	rctx := ctx.Request.Context()
	if _, err := c.communities.Get(rctx, id); err != nil {
		respondError(ctx, err, 50092, "failed to get community")
		return
	}
	items, err := c.challenges.List(rctx, store.ChallengeFilter{Type: t, CommunityID: &id})
	if err != nil {
		respondError(ctx, err, 50093, "failed to list challenges")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Feed returns one page of the community feed to members. Pages are cached in redis
// and dropped whenever a new post is published.
func (c *CommunityController) Feed(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40092, "invalid community id")
		return
	}

	rctx := ctx.Request.Context()
	if _, err := c.communities.Get(rctx, id); err != nil {
		respondError(ctx, err, 50092, "failed to get community")
		return
	}
	member, err := c.communities.IsMember(rctx, id, userID)
	if err != nil {
		respondError(ctx, err, 50094, "failed to check membership")
		return
	}
	if !member {
		utils.Error(ctx, http.StatusForbidden, 40360, "not a member of this community")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	key := fmt.Sprintf("%s%d:%d", FeedCachePrefix(id), page, pageSize)
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	posts, total, err := c.feed.List(rctx, id, page, pageSize)
	if err != nil {
		respondError(ctx, err, 50095, "failed to load feed")
		return
	}
	payload := gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, feedCacheTTL)
	utils.Success(ctx, payload)
}
