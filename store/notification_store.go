package store

import (
	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/gorm"
)

type NotificationStore struct {
	db *gorm.DB
}

func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Create(notification *models.Notification) error {
	return s.db.Create(notification).Error
}

func (s *NotificationStore) ListByUser(userID string, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var notifications []models.Notification
	err := q.Order("created_at DESC").Limit(100).Find(&notifications).Error
	return notifications, err
}

func (s *NotificationStore) MarkRead(userID, id string) error {
	return s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true).Error
}
