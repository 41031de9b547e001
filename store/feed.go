package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/engine"
	"github.com/cppla/fitquest/models"
)

// FeedPublisher appends posts to community feeds and reads them back.
type FeedPublisher struct {
	db *gorm.DB
	// OnPublish runs after a post is stored, e.g. to drop cached feed pages.
	OnPublish func(communityID uint)
}

// NewFeedPublisher returns a FeedPublisher backed by db.
func NewFeedPublisher(db *gorm.DB) *FeedPublisher {
	return &FeedPublisher{db: db}
}

// Publish stores post in the feed of communityID.
func (s *FeedPublisher) Publish(ctx context.Context, communityID uint, post models.FeedPost) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Community{}).Where("id = ?", communityID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("community %d: %w", communityID, engine.ErrCommunityNotFound)
		}
		post.ID = 0
		post.CommunityID = communityID
		return tx.Create(&post).Error
	})
	if err != nil {
		return err
	}
	if s.OnPublish != nil {
		s.OnPublish(communityID)
	}
	return nil
}

// List returns one page of the feed, newest first, and the total count.
func (s *FeedPublisher) List(ctx context.Context, communityID uint, page, size int) ([]models.FeedPost, int64, error) {
	var total int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.FeedPost{}).Where("community_id = ?", communityID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.FeedPost
	err := db.Where("community_id = ?", communityID).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&posts).Error
	return posts, total, err
}
