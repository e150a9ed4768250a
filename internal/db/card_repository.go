package db

import (
	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type CardRepository struct {
	database *gorm.DB
}

func NewCardRepository(database *gorm.DB) *CardRepository {
	return &CardRepository{database: database}
}

// CardScope is a card together with the project that owns its board.
type CardScope struct {
	Card    models.Card
	Project models.Project
}

func (repo *CardRepository) Create(card *models.Card) error {
	return repo.database.Create(card).Error
}

func (repo *CardRepository) FindByID(cardID uint) (models.Card, error) {
	var card models.Card
	if err := repo.database.First(&card, cardID).Error; err != nil {
		return models.Card{}, err
	}
	return card, nil
}

func (repo *CardRepository) FindScope(cardID uint) (CardScope, error) {
	card, err := repo.FindByID(cardID)
	if err != nil {
		return CardScope{}, err
	}
	var project models.Project
	if err := repo.database.
		Joins("JOIN boards ON boards.project_id = projects.id").
		Where("boards.id = ?", card.BoardID).
		First(&project).Error; err != nil {
		return CardScope{}, err
	}
	return CardScope{Card: card, Project: project}, nil
}

func (repo *CardRepository) ListByBoard(boardID uint) ([]models.Card, error) {
	cards := make([]models.Card, 0)
	if err := repo.database.Where("board_id = ?", boardID).Order("position ASC, id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (repo *CardRepository) MaxPosition(boardID uint) (int, error) {
	position := -1
	row := repo.database.Model(&models.Card{}).
		Select("COALESCE(MAX(position), -1)").
		Where("board_id = ?", boardID).
		Row()
	if err := row.Scan(&position); err != nil {
		return 0, err
	}
	return position, nil
}

// ListUnfinishedForAssignee returns the user's non-DONE cards in a project,
// optionally excluding one card.
func (repo *CardRepository) ListUnfinishedForAssignee(projectID uint, userID uint, excludeCardID uint) ([]models.Card, error) {
	cards := make([]models.Card, 0)
	query := repo.database.Model(&models.Card{}).
		Joins("JOIN boards ON boards.id = cards.board_id").
		Where("boards.project_id = ? AND cards.assignee_id = ? AND cards.status <> ?", projectID, userID, models.CardStatusDone)
	if excludeCardID != 0 {
		query = query.Where("cards.id <> ?", excludeCardID)
	}
	if err := query.Order("cards.id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (repo *CardRepository) ListAssignedInProject(projectID uint, userID uint) ([]models.Card, error) {
	cards := make([]models.Card, 0)
	if err := repo.database.Model(&models.Card{}).
		Joins("JOIN boards ON boards.id = cards.board_id").
		Where("boards.project_id = ? AND cards.assignee_id = ?", projectID, userID).
		Order("cards.id ASC").
		Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (repo *CardRepository) ListWithAssignee() ([]models.Card, error) {
	cards := make([]models.Card, 0)
	if err := repo.database.Where("assignee_id IS NOT NULL").Order("id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (repo *CardRepository) UpdateByID(cardID uint, updates map[string]any) error {
	return repo.database.Model(&models.Card{}).Where("id = ?", cardID).Updates(updates).Error
}

// SetAssignee writes the denormalized pointer. Only the assignment ledger
// calls it, inside the transaction that writes the matching ledger row.
func (repo *CardRepository) SetAssignee(cardID uint, assigneeID *uint) error {
	return repo.database.Model(&models.Card{}).Where("id = ?", cardID).Update("assignee_id", assigneeID).Error
}

func (repo *CardRepository) Delete(cardID uint) error {
	return repo.database.Delete(&models.Card{}, cardID).Error
}

// UnfinishedCountRow is one (project, assignee) pair holding more than one
// unfinished card in a non-completed project.
type UnfinishedCountRow struct {
	ProjectID  uint  `gorm:"column:project_id"`
	AssigneeID uint  `gorm:"column:assignee_id"`
	Total      int64 `gorm:"column:total"`
}

// ListWorkloadViolations scans every open project.
func (repo *CardRepository) ListWorkloadViolations() ([]UnfinishedCountRow, error) {
	return repo.listWorkloadViolations(repo.workloadQuery().Where("projects.is_completed = ?", false))
}

// ListWorkloadViolationsInProject ignores the completed flag so it can vet a
// project before it is reopened.
func (repo *CardRepository) ListWorkloadViolationsInProject(projectID uint) ([]UnfinishedCountRow, error) {
	return repo.listWorkloadViolations(repo.workloadQuery().Where("boards.project_id = ?", projectID))
}

func (repo *CardRepository) workloadQuery() *gorm.DB {
	return repo.database.Model(&models.Card{}).
		Select("boards.project_id AS project_id, cards.assignee_id AS assignee_id, COUNT(*) AS total").
		Joins("JOIN boards ON boards.id = cards.board_id").
		Joins("JOIN projects ON projects.id = boards.project_id AND projects.deleted_at IS NULL").
		Where("cards.assignee_id IS NOT NULL AND cards.status <> ?", models.CardStatusDone)
}

func (repo *CardRepository) listWorkloadViolations(query *gorm.DB) ([]UnfinishedCountRow, error) {
	rows := make([]UnfinishedCountRow, 0)
	if err := query.
		Group("boards.project_id, cards.assignee_id").
		Having("COUNT(*) > 1").
		Order("boards.project_id, cards.assignee_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
