package db

import (
	"time"

	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	database *gorm.DB
}

func NewProjectRepository(database *gorm.DB) *ProjectRepository {
	return &ProjectRepository{database: database}
}

func (repo *ProjectRepository) Create(project *models.Project) error {
	return repo.database.Create(project).Error
}

func (repo *ProjectRepository) FindByID(projectID uint) (models.Project, error) {
	var project models.Project
	if err := repo.database.First(&project, projectID).Error; err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (repo *ProjectRepository) ListAll() ([]models.Project, error) {
	projects := make([]models.Project, 0)
	if err := repo.database.Order("id ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListVisibleTo returns projects the user created or belongs to.
func (repo *ProjectRepository) ListVisibleTo(userID uint) ([]models.Project, error) {
	projects := make([]models.Project, 0)
	if err := repo.database.
		Where("created_by = ? OR id IN (?)", userID,
			repo.database.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)).
		Order("id ASC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (repo *ProjectRepository) UpdateByID(projectID uint, updates map[string]any) error {
	return repo.database.Model(&models.Project{}).Where("id = ?", projectID).Updates(updates).Error
}

func (repo *ProjectRepository) SetCompleted(projectID uint, completed bool, at time.Time) error {
	var completedAt any
	if completed {
		completedAt = at
	}
	return repo.database.Model(&models.Project{}).Where("id = ?", projectID).Updates(map[string]any{
		"is_completed": completed,
		"completed_at": completedAt,
	}).Error
}

// Delete stamps deleted_at. Boards, cards and the assignment ledger stay in
// place, and every scoped lookup stops seeing the project.
func (repo *ProjectRepository) Delete(projectID uint) error {
	return repo.database.Delete(&models.Project{}, projectID).Error
}
