package store

import (
	"errors"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/gorm"
)

type BookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{db: db}
}

func (s *BookingStore) Create(booking *models.Booking) error {
	return s.db.Create(booking).Error
}

func (s *BookingStore) FindByID(id string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.Preload("Vehicle").First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// Transition moves the booking to `to` only if its status is one of `from`,
// in one conditional UPDATE. Same contract as PaymentStore.Transition.
func (s *BookingStore) Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected == 1 {
		return true, to, nil
	}
	var current models.Booking
	if err := s.db.Select("status").First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", ErrNotFound
		}
		return false, "", err
	}
	return false, current.Status, nil
}

// ExtendSchedule pushes the booking end date out and adds the extension cost
// to the booking totals. The end-date guard makes concurrent approvals of the
// same extension idempotent at the row level.
func (s *BookingStore) ExtendSchedule(id string, fromEnd, newEnd time.Time, addDays int, addAmount int64) (bool, error) {
	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND end_date = ? AND status IN ?", id, fromEnd,
			[]string{models.BookingStatusConfirmed, models.BookingStatusActive}).
		Updates(map[string]interface{}{
			"end_date":     newEnd,
			"total_days":   gorm.Expr("total_days + ?", addDays),
			"total_amount": gorm.Expr("total_amount + ?", addAmount),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindConflicting returns bookings on the same vehicle that overlap the
// given window. Only CONFIRMED and ACTIVE bookings block the calendar.
func (s *BookingStore) FindConflicting(vehicleID, excludeBookingID string, start, end time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.
		Where("vehicle_id = ? AND id <> ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			vehicleID, excludeBookingID,
			[]string{models.BookingStatusConfirmed, models.BookingStatusActive},
			end, start).
		Find(&bookings).Error
	return bookings, err
}

// FindDueToActivate returns CONFIRMED bookings whose start date has passed.
func (s *BookingStore) FindDueToActivate(now time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.
		Where("status = ? AND start_date <= ?", models.BookingStatusConfirmed, now).
		Find(&bookings).Error
	return bookings, err
}

// FindDueToComplete returns ACTIVE bookings whose end date has passed.
func (s *BookingStore) FindDueToComplete(now time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.
		Where("status = ? AND end_date <= ?", models.BookingStatusActive, now).
		Preload("Vehicle").
		Find(&bookings).Error
	return bookings, err
}
