package services

import "github.com/terraincognita07/boardkeeper/internal/models"

func IsAdmin(globalRole string) bool {
	return globalRole == models.GlobalRoleAdmin
}

func IsLeaderOrAdmin(globalRole string) bool {
	return globalRole == models.GlobalRoleAdmin || globalRole == models.GlobalRoleLeader
}

// ProjectAccess is the principal's standing inside one project. ProjectRole
// is empty when the principal is not a member.
type ProjectAccess struct {
	UserID      uint
	GlobalRole  string
	ProjectRole string
	IsCreator   bool
}

func NewProjectAccess(user models.User, project models.Project, member *models.ProjectMember) ProjectAccess {
	access := ProjectAccess{
		UserID:     user.ID,
		GlobalRole: user.GlobalRole,
		IsCreator:  project.CreatedBy == user.ID,
	}
	if member != nil {
		access.ProjectRole = member.ProjectRole
	}
	return access
}

func (access ProjectAccess) IsMember() bool {
	return access.ProjectRole != ""
}

func (access ProjectAccess) HasProjectRole(role string) bool {
	return access.ProjectRole == role
}

func (access ProjectAccess) IsObserver() bool {
	return access.HasProjectRole(models.ProjectRoleObserver)
}

// CanAdministerProject gates settings, member management, board creation,
// card and subtask deletion, project deletion and assigning other people.
func CanAdministerProject(access ProjectAccess) bool {
	return IsAdmin(access.GlobalRole) || access.IsCreator || access.HasProjectRole(models.ProjectRoleLeader)
}

func CanToggleCompletion(access ProjectAccess) bool {
	return IsAdmin(access.GlobalRole) || access.IsCreator
}

func CanReadProject(access ProjectAccess) bool {
	return IsAdmin(access.GlobalRole) || access.IsCreator || access.IsMember()
}

// CanContribute covers card edits, status changes, resets, subtask creation
// and time tracking. Observers are read-only.
func CanContribute(access ProjectAccess) bool {
	if IsAdmin(access.GlobalRole) || access.IsCreator {
		return true
	}
	return access.IsMember() && !access.IsObserver()
}

// CanAssign reports whether the principal may put assigneeID on a card.
// Contributors may only claim cards for themselves.
func CanAssign(access ProjectAccess, assigneeID uint) bool {
	if CanAdministerProject(access) {
		return true
	}
	return assigneeID == access.UserID && CanContribute(access)
}

func CanUnassign(access ProjectAccess, currentAssigneeID *uint) bool {
	if CanAdministerProject(access) {
		return true
	}
	return currentAssigneeID != nil && *currentAssigneeID == access.UserID && CanContribute(access)
}

// CanBeAssigned reports whether a membership may hold cards or subtasks.
func CanBeAssigned(member models.ProjectMember) bool {
	return member.ProjectRole != models.ProjectRoleObserver
}

// CanHoldProjectLeadership reports whether the user may be given the
// project LEADER role at all.
func CanHoldProjectLeadership(user models.User) bool {
	return user.GlobalRole == models.GlobalRoleLeader
}

// CanChangeGlobalRole allows only admins, and never on themselves.
func CanChangeGlobalRole(actor models.User, targetID uint) bool {
	return IsAdmin(actor.GlobalRole) && actor.ID != targetID
}
