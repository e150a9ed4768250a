package models

import "time"

const (
	GlobalRoleAdmin  = "ADMIN"
	GlobalRoleLeader = "LEADER"
	GlobalRoleMember = "MEMBER"
)

type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Email              string    `gorm:"uniqueIndex;not null" json:"email"`
	Name               string    `gorm:"not null" json:"name"`
	PasswordHash       string    `gorm:"not null" json:"-"`
	GlobalRole         string    `gorm:"not null;default:MEMBER" json:"global_role"`
	MustChangePassword bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func IsValidGlobalRole(role string) bool {
	switch role {
	case GlobalRoleAdmin, GlobalRoleLeader, GlobalRoleMember:
		return true
	default:
		return false
	}
}
