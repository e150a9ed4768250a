package models

import "time"

const (
	NotificationProjectInvite  = "PROJECT_INVITE"
	NotificationCardAssigned   = "CARD_ASSIGNED"
	NotificationCardUnassigned = "CARD_UNASSIGNED"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Type      string    `gorm:"not null" json:"type"`
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
