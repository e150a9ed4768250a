package services

import (
	"context"
	"fmt"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

type NotificationService struct {
	store *db.Store
}

func NewNotificationService(store *db.Store) *NotificationService {
	return &NotificationService{store: store}
}

func (service *NotificationService) ListNotifications(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	return service.store.Repos(ctx).Notifications.ListByUser(userID, unreadOnly)
}

// MarkRead only touches the caller's own notifications; anything else is
// reported as missing.
func (service *NotificationService) MarkRead(ctx context.Context, notificationID uint, userID uint) error {
	updated, err := service.store.Repos(ctx).Notifications.MarkRead(notificationID, userID)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("%w: notification", ErrNotFound)
	}
	return nil
}
