package models

import "time"

// CardAssignment rows are append-only. A row is closed by flipping IsActive
// and stamping UnassignedAt; it is never deleted.
type CardAssignment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	CardID          uint       `gorm:"not null;index" json:"card_id"`
	AssignedTo      uint       `gorm:"not null;index" json:"assigned_to"`
	AssignedBy      uint       `gorm:"not null" json:"assigned_by"`
	AssignedAt      time.Time  `gorm:"not null" json:"assigned_at"`
	UnassignedAt    *time.Time `json:"unassigned_at"`
	IsActive        bool       `gorm:"not null" json:"is_active"`
	Reason          string     `json:"reason"`
	ProjectMemberID *uint      `json:"project_member_id"`
}
