package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type TimeLogRepository struct {
	database *gorm.DB
}

func NewTimeLogRepository(database *gorm.DB) *TimeLogRepository {
	return &TimeLogRepository{database: database}
}

func (repo *TimeLogRepository) Create(entry *models.TimeLog) error {
	return repo.database.Create(entry).Error
}

func (repo *TimeLogRepository) FindByID(timeLogID uint) (models.TimeLog, error) {
	var entry models.TimeLog
	if err := repo.database.First(&entry, timeLogID).Error; err != nil {
		return models.TimeLog{}, err
	}
	return entry, nil
}

func (repo *TimeLogRepository) FindRunningByUser(userID uint) (models.TimeLog, bool, error) {
	entry := models.TimeLog{}
	err := repo.database.Where("user_id = ? AND end_time IS NULL", userID).Order("id DESC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TimeLog{}, false, nil
	}
	if err != nil {
		return models.TimeLog{}, false, err
	}
	return entry, true, nil
}

func (repo *TimeLogRepository) ListByCard(cardID uint) ([]models.TimeLog, error) {
	entries := make([]models.TimeLog, 0)
	if err := repo.database.Where("card_id = ?", cardID).Order("start_time DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *TimeLogRepository) SumClosedMinutesSince(userID uint, since time.Time) (int, error) {
	total := 0
	row := repo.database.Model(&models.TimeLog{}).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Where("user_id = ? AND end_time IS NOT NULL AND start_time >= ?", userID, since).
		Row()
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Close stamps the end time only while the row is still running and reports
// whether it did.
func (repo *TimeLogRepository) Close(timeLogID uint, endTime time.Time, durationMinutes int) (bool, error) {
	result := repo.database.Model(&models.TimeLog{}).
		Where("id = ? AND end_time IS NULL", timeLogID).
		Updates(map[string]any{
			"end_time":         endTime,
			"duration_minutes": durationMinutes,
		})
	return result.RowsAffected > 0, result.Error
}
