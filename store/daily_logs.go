package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/fitquest/models"
)

// DailyLogs stores daily logs and their food and exercise items.
type DailyLogs struct {
	db *gorm.DB
}

// NewDailyLogs returns a DailyLogs backed by db.
func NewDailyLogs(db *gorm.DB) *DailyLogs {
	return &DailyLogs{db: db}
}

// Create inserts log with its items. One log per user and day.
func (s *DailyLogs) Create(ctx context.Context, log *models.DailyLog) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.DailyLog{}).
			Where("user_id = ? AND date = ?", log.UserID, log.Date).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrLogExists
		}
		return tx.Create(log).Error
	})
	if isDuplicate(err) {
		err = ErrLogExists
	}
	if errors.Is(err, ErrLogExists) {
		return fmt.Errorf("%s: %w", log.Date.Format("2006-01-02"), ErrLogExists)
	}
	return err
}

// Get returns the user's log with its items.
func (s *DailyLogs) Get(ctx context.Context, userID, logID uint) (*models.DailyLog, error) {
	var log models.DailyLog
	err := s.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", logID, userID).
		First(&log).Error
	if err != nil {
		return nil, notFound(err, "daily log %d", logID)
	}
	return &log, nil
}

// Update appends items to the user's log and optionally changes its completed flag.
// It returns the updated log with all items.
func (s *DailyLogs) Update(ctx context.Context, userID, logID uint, completed *bool, items []models.LogItem) (*models.DailyLog, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var log models.DailyLog
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", logID, userID).
			First(&log).Error; err != nil {
			return notFound(err, "daily log %d", logID)
		}
		if completed != nil && *completed != log.Completed {
			if err := tx.Model(&log).Update("completed", *completed).Error; err != nil {
				return err
			}
		}
		for i := range items {
			items[i].ID = 0
			items[i].DailyLogID = log.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, logID)
}

// CompletedDays returns the dates of the user's completed logs.
func (s *DailyLogs) CompletedDays(ctx context.Context, userID uint) ([]time.Time, error) {
	var days []time.Time
	err := s.db.WithContext(ctx).Model(&models.DailyLog{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Order("date DESC").
		Pluck("date", &days).Error
	return days, err
}
