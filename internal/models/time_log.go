package models

import "time"

type TimeLog struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	CardID          uint       `gorm:"not null;index" json:"card_id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationMinutes int        `gorm:"not null;default:0" json:"duration_minutes"`
	Description     string     `json:"description"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (entry TimeLog) IsRunning() bool {
	return entry.EndTime == nil
}
