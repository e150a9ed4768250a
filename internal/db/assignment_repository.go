package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type AssignmentRepository struct {
	database *gorm.DB
}

func NewAssignmentRepository(database *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{database: database}
}

type AssignmentFilter struct {
	CardID     uint
	ProjectID  uint
	AssigneeID uint
	From       *time.Time
	To         *time.Time
	ActiveOnly bool
}

// AssignmentRecord is a ledger row joined with the card and assignee it
// refers to.
type AssignmentRecord struct {
	ID              uint       `gorm:"column:id"`
	CardID          uint       `gorm:"column:card_id"`
	AssignedTo      uint       `gorm:"column:assigned_to"`
	AssignedBy      uint       `gorm:"column:assigned_by"`
	AssignedAt      time.Time  `gorm:"column:assigned_at"`
	UnassignedAt    *time.Time `gorm:"column:unassigned_at"`
	IsActive        bool       `gorm:"column:is_active"`
	Reason          string     `gorm:"column:reason"`
	ProjectMemberID *uint      `gorm:"column:project_member_id"`
	CardTitle       string     `gorm:"column:card_title"`
	CardStatus      string     `gorm:"column:card_status"`
	ProjectID       uint       `gorm:"column:project_id"`
	AssigneeName    string     `gorm:"column:assignee_name"`
	AssignerName    string     `gorm:"column:assigner_name"`
}

func (repo *AssignmentRepository) Create(assignment *models.CardAssignment) error {
	return repo.database.Create(assignment).Error
}

func (repo *AssignmentRepository) FindActiveByCard(cardID uint) (models.CardAssignment, bool, error) {
	assignment := models.CardAssignment{}
	err := repo.database.
		Where("card_id = ? AND is_active = ?", cardID, true).
		Order("assigned_at DESC, id DESC").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CardAssignment{}, false, nil
	}
	if err != nil {
		return models.CardAssignment{}, false, err
	}
	return assignment, true, nil
}

func (repo *AssignmentRepository) ListActiveByCard(cardID uint) ([]models.CardAssignment, error) {
	rows := make([]models.CardAssignment, 0)
	if err := repo.database.
		Where("card_id = ? AND is_active = ?", cardID, true).
		Order("assigned_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (repo *AssignmentRepository) ListActive() ([]models.CardAssignment, error) {
	rows := make([]models.CardAssignment, 0)
	if err := repo.database.
		Where("is_active = ?", true).
		Order("card_id ASC, assigned_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveInProject returns the live rows on every card of the project,
// soft-deleted cards included.
func (repo *AssignmentRepository) ListActiveInProject(projectID uint) ([]models.CardAssignment, error) {
	rows := make([]models.CardAssignment, 0)
	if err := repo.database.Table("card_assignments AS ca").
		Select("ca.*").
		Joins("JOIN cards c ON c.id = ca.card_id").
		Joins("JOIN boards b ON b.id = c.board_id").
		Where("b.project_id = ? AND ca.is_active = ?", projectID, true).
		Order("ca.card_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (repo *AssignmentRepository) ListByCard(cardID uint) ([]models.CardAssignment, error) {
	rows := make([]models.CardAssignment, 0)
	if err := repo.database.
		Where("card_id = ?", cardID).
		Order("assigned_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeactivateActiveByCard closes whatever row is live for the card and
// reports how many rows it closed.
func (repo *AssignmentRepository) DeactivateActiveByCard(cardID uint, at time.Time) (int64, error) {
	result := repo.database.Model(&models.CardAssignment{}).
		Where("card_id = ? AND is_active = ?", cardID, true).
		Updates(map[string]any{
			"is_active":     false,
			"unassigned_at": at,
		})
	return result.RowsAffected, result.Error
}

func (repo *AssignmentRepository) DeactivateByID(assignmentID uint, at time.Time) error {
	return repo.database.Model(&models.CardAssignment{}).
		Where("id = ? AND is_active = ?", assignmentID, true).
		Updates(map[string]any{
			"is_active":     false,
			"unassigned_at": at,
		}).Error
}

func (repo *AssignmentRepository) ListRecords(filter AssignmentFilter) ([]AssignmentRecord, error) {
	query := repo.database.Table("card_assignments AS ca").
		Select(`ca.id, ca.card_id, ca.assigned_to, ca.assigned_by, ca.assigned_at, ca.unassigned_at,
ca.is_active, ca.reason, ca.project_member_id,
c.title AS card_title, c.status AS card_status, b.project_id AS project_id,
COALESCE(assignee.name, '') AS assignee_name, COALESCE(assigner.name, '') AS assigner_name`).
		Joins("JOIN cards c ON c.id = ca.card_id").
		Joins("JOIN boards b ON b.id = c.board_id").
		Joins("LEFT JOIN users assignee ON assignee.id = ca.assigned_to").
		Joins("LEFT JOIN users assigner ON assigner.id = ca.assigned_by")

	if filter.CardID != 0 {
		query = query.Where("ca.card_id = ?", filter.CardID)
	}
	if filter.ProjectID != 0 {
		query = query.Where("b.project_id = ?", filter.ProjectID)
	}
	if filter.AssigneeID != 0 {
		query = query.Where("ca.assigned_to = ?", filter.AssigneeID)
	}
	if filter.From != nil {
		query = query.Where("ca.assigned_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("ca.assigned_at < ?", *filter.To)
	}
	if filter.ActiveOnly {
		query = query.Where("ca.is_active = ?", true)
	}

	records := make([]AssignmentRecord, 0)
	if err := query.Order("ca.assigned_at DESC, ca.id DESC").Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeactivateForMemberInProject closes every live row held by the user on
// cards of the project and returns the affected card ids.
func (repo *AssignmentRepository) DeactivateForMemberInProject(projectID uint, userID uint, at time.Time) ([]uint, error) {
	cardIDs := make([]uint, 0)
	if err := repo.database.Table("card_assignments AS ca").
		Joins("JOIN cards c ON c.id = ca.card_id").
		Joins("JOIN boards b ON b.id = c.board_id").
		Where("b.project_id = ? AND ca.assigned_to = ? AND ca.is_active = ?", projectID, userID, true).
		Pluck("ca.card_id", &cardIDs).Error; err != nil {
		return nil, err
	}
	if len(cardIDs) == 0 {
		return cardIDs, nil
	}
	if err := repo.database.Model(&models.CardAssignment{}).
		Where("card_id IN ? AND assigned_to = ? AND is_active = ?", cardIDs, userID, true).
		Updates(map[string]any{
			"is_active":     false,
			"unassigned_at": at,
		}).Error; err != nil {
		return nil, err
	}
	return cardIDs, nil
}
