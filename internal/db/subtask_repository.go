package db

import (
	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type SubtaskRepository struct {
	database *gorm.DB
}

func NewSubtaskRepository(database *gorm.DB) *SubtaskRepository {
	return &SubtaskRepository{database: database}
}

func (repo *SubtaskRepository) Create(subtask *models.Subtask) error {
	return repo.database.Create(subtask).Error
}

func (repo *SubtaskRepository) FindByID(subtaskID uint) (models.Subtask, error) {
	var subtask models.Subtask
	if err := repo.database.First(&subtask, subtaskID).Error; err != nil {
		return models.Subtask{}, err
	}
	return subtask, nil
}

func (repo *SubtaskRepository) ListByCard(cardID uint) ([]models.Subtask, error) {
	subtasks := make([]models.Subtask, 0)
	if err := repo.database.Where("card_id = ?", cardID).Order("position ASC, id ASC").Find(&subtasks).Error; err != nil {
		return nil, err
	}
	return subtasks, nil
}

func (repo *SubtaskRepository) MaxPosition(cardID uint) (int, error) {
	position := -1
	row := repo.database.Model(&models.Subtask{}).
		Select("COALESCE(MAX(position), -1)").
		Where("card_id = ?", cardID).
		Row()
	if err := row.Scan(&position); err != nil {
		return 0, err
	}
	return position, nil
}

func (repo *SubtaskRepository) UpdateByID(subtaskID uint, updates map[string]any) error {
	return repo.database.Model(&models.Subtask{}).Where("id = ?", subtaskID).Updates(updates).Error
}

func (repo *SubtaskRepository) Delete(subtaskID uint) error {
	return repo.database.Delete(&models.Subtask{}, subtaskID).Error
}
