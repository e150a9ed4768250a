package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CardStatusTodo       = "TODO"
	CardStatusInProgress = "IN_PROGRESS"
	CardStatusReview     = "REVIEW"
	CardStatusDone       = "DONE"
)

const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Card.AssigneeID mirrors the active CardAssignment row and is written only
// inside the ledger transaction.
type Card struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BoardID     uint           `gorm:"not null;index" json:"board_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Status      string         `gorm:"not null;default:TODO" json:"status"`
	Priority    string         `gorm:"not null;default:MEDIUM" json:"priority"`
	AssigneeID  *uint          `gorm:"index" json:"assignee_id"`
	Position    int            `gorm:"not null;default:0" json:"position"`
	DueDate     *time.Time     `json:"due_date"`
	CreatedBy   uint           `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type Subtask struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CardID     uint      `gorm:"not null;index" json:"card_id"`
	Title      string    `gorm:"not null" json:"title"`
	Status     string    `gorm:"not null;default:TODO" json:"status"`
	AssigneeID *uint     `json:"assignee_id"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedBy  uint      `gorm:"not null" json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func IsValidCardStatus(status string) bool {
	switch status {
	case CardStatusTodo, CardStatusInProgress, CardStatusReview, CardStatusDone:
		return true
	default:
		return false
	}
}

func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}
