package store

import (
	"errors"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/gorm"
)

type ExtensionStore struct {
	db *gorm.DB
}

func NewExtensionStore(db *gorm.DB) *ExtensionStore {
	return &ExtensionStore{db: db}
}

func (s *ExtensionStore) Create(extension *models.TripExtension) error {
	return s.db.Create(extension).Error
}

func (s *ExtensionStore) FindByID(id string) (*models.TripExtension, error) {
	var extension models.TripExtension
	if err := s.db.First(&extension, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &extension, nil
}

func (s *ExtensionStore) FindByBooking(bookingID string) ([]models.TripExtension, error) {
	var extensions []models.TripExtension
	err := s.db.Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&extensions).Error
	return extensions, err
}

// HasPending reports whether the booking already has a PENDING extension.
func (s *ExtensionStore) HasPending(bookingID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.TripExtension{}).
		Where("booking_id = ? AND status = ?", bookingID, models.ExtensionStatusPending).
		Count(&count).Error
	return count > 0, err
}

// Respond terminates a PENDING extension with a single conditional UPDATE.
// Concurrent responses race; exactly one wins.
func (s *ExtensionStore) Respond(id, to string, extra map[string]interface{}) (bool, string, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.db.Model(&models.TripExtension{}).
		Where("id = ? AND status = ?", id, models.ExtensionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected == 1 {
		return true, to, nil
	}
	var current models.TripExtension
	if err := s.db.Select("status").First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", ErrNotFound
		}
		return false, "", err
	}
	return false, current.Status, nil
}
