package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ProjectRoleLeader    = "LEADER"
	ProjectRoleDeveloper = "DEVELOPER"
	ProjectRoleDesigner  = "DESIGNER"
	ProjectRoleTester    = "TESTER"
	ProjectRoleObserver  = "OBSERVER"
)

type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	CreatedBy   uint       `gorm:"not null;index" json:"created_by"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProjectMember is unique per (project, user). Leader uniqueness in both
// directions is enforced by partial unique indexes in the schema.
type ProjectMember struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProjectID   uint      `gorm:"not null;uniqueIndex:uidx_project_user" json:"project_id"`
	UserID      uint      `gorm:"not null;uniqueIndex:uidx_project_user" json:"user_id"`
	ProjectRole string    `gorm:"not null;default:DEVELOPER" json:"project_role"`
	JoinedAt    time.Time `gorm:"not null" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Board struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	Name      string    `gorm:"not null" json:"name"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func IsValidProjectRole(role string) bool {
	switch role {
	case ProjectRoleLeader, ProjectRoleDeveloper, ProjectRoleDesigner, ProjectRoleTester, ProjectRoleObserver:
		return true
	default:
		return false
	}
}
