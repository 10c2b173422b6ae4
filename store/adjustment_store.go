package store

import (
	"errors"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/gorm"
)

type AdjustmentStore struct {
	db *gorm.DB
}

func NewAdjustmentStore(db *gorm.DB) *AdjustmentStore {
	return &AdjustmentStore{db: db}
}

func (s *AdjustmentStore) Create(adjustment *models.DepositAdjustment) error {
	return s.db.Create(adjustment).Error
}

func (s *AdjustmentStore) FindByID(id string) (*models.DepositAdjustment, error) {
	var adjustment models.DepositAdjustment
	if err := s.db.First(&adjustment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &adjustment, nil
}

func (s *AdjustmentStore) FindByBooking(bookingID string) ([]models.DepositAdjustment, error) {
	var adjustments []models.DepositAdjustment
	err := s.db.Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&adjustments).Error
	return adjustments, err
}

func (s *AdjustmentStore) ListByStatus(status string) ([]models.DepositAdjustment, error) {
	var adjustments []models.DepositAdjustment
	q := s.db.Model(&models.DepositAdjustment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Find(&adjustments).Error
	return adjustments, err
}

// Transition moves the adjustment to `to` only if its status is one of
// `from`. Same contract as PaymentStore.Transition.
func (s *AdjustmentStore) Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.db.Model(&models.DepositAdjustment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected == 1 {
		return true, to, nil
	}
	var current models.DepositAdjustment
	if err := s.db.Select("status").First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", ErrNotFound
		}
		return false, "", err
	}
	return false, current.Status, nil
}
