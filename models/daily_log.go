package models

import "time"

// LogItemKind distinguishes food entries from exercise entries.
type LogItemKind string

const (
	LogItemFood     LogItemKind = "food"
	LogItemExercise LogItemKind = "exercise"
)

// DailyLog is one user's record for one calendar day. Date is stored at midnight.
type DailyLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_daily_log_day" json:"user_id"`
	Date      time.Time `gorm:"not null;uniqueIndex:uk_daily_log_day" json:"date"`
	Completed bool      `gorm:"default:false;index" json:"completed"`
	Items     []LogItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogItem is a food or exercise attached to a daily log.
type LogItem struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	DailyLogID uint        `gorm:"not null;index" json:"daily_log_id"`
	Kind       LogItemKind `gorm:"size:16;not null" json:"kind"`
	Name       string      `gorm:"size:128;not null" json:"name"`
	Calories   int         `json:"calories"`
	CreatedAt  time.Time   `json:"created_at"`
}
