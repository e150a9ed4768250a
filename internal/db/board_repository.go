package db

import (
	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type BoardRepository struct {
	database *gorm.DB
}

func NewBoardRepository(database *gorm.DB) *BoardRepository {
	return &BoardRepository{database: database}
}

func (repo *BoardRepository) Create(board *models.Board) error {
	return repo.database.Create(board).Error
}

func (repo *BoardRepository) FindByID(boardID uint) (models.Board, error) {
	var board models.Board
	if err := repo.database.First(&board, boardID).Error; err != nil {
		return models.Board{}, err
	}
	return board, nil
}

func (repo *BoardRepository) ListByProject(projectID uint) ([]models.Board, error) {
	boards := make([]models.Board, 0)
	if err := repo.database.Where("project_id = ?", projectID).Order("position ASC, id ASC").Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (repo *BoardRepository) MaxPosition(projectID uint) (int, error) {
	position := -1
	row := repo.database.Model(&models.Board{}).
		Select("COALESCE(MAX(position), -1)").
		Where("project_id = ?", projectID).
		Row()
	if err := row.Scan(&position); err != nil {
		return 0, err
	}
	return position, nil
}
