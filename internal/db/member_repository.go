package db

import (
	"errors"

	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type MemberRepository struct {
	database *gorm.DB
}

func NewMemberRepository(database *gorm.DB) *MemberRepository {
	return &MemberRepository{database: database}
}

func (repo *MemberRepository) Find(projectID uint, userID uint) (models.ProjectMember, bool, error) {
	member := models.ProjectMember{}
	result := repo.database.Where("project_id = ? AND user_id = ?", projectID, userID).Limit(1).Find(&member)
	if result.Error != nil {
		return models.ProjectMember{}, false, result.Error
	}
	return member, result.RowsAffected > 0, nil
}

func (repo *MemberRepository) Create(member *models.ProjectMember) error {
	return repo.database.Create(member).Error
}

func (repo *MemberRepository) Delete(memberID uint) error {
	return repo.database.Delete(&models.ProjectMember{}, memberID).Error
}

func (repo *MemberRepository) DeleteByProject(projectID uint) error {
	return repo.database.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error
}

func (repo *MemberRepository) UpdateRole(memberID uint, role string) error {
	return repo.database.Model(&models.ProjectMember{}).Where("id = ?", memberID).Update("project_role", role).Error
}

func (repo *MemberRepository) ListByProject(projectID uint) ([]models.ProjectMember, error) {
	members := make([]models.ProjectMember, 0)
	if err := repo.database.
		Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (repo *MemberRepository) FindProjectLeader(projectID uint) (models.ProjectMember, bool, error) {
	return repo.findOne(repo.database.Where("project_id = ? AND project_role = ?", projectID, models.ProjectRoleLeader))
}

// FindLeadershipByUser returns the membership in which the user is LEADER,
// if any. At most one exists system-wide.
func (repo *MemberRepository) FindLeadershipByUser(userID uint) (models.ProjectMember, bool, error) {
	return repo.findOne(repo.database.Where("user_id = ? AND project_role = ?", userID, models.ProjectRoleLeader))
}

func (repo *MemberRepository) findOne(query *gorm.DB) (models.ProjectMember, bool, error) {
	member := models.ProjectMember{}
	err := query.Order("id ASC").First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ProjectMember{}, false, nil
	}
	if err != nil {
		return models.ProjectMember{}, false, err
	}
	return member, true, nil
}
