package store

import (
	"errors"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = gorm.ErrRecordNotFound
	ErrDuplicate = gorm.ErrDuplicatedKey
)

// PaymentStore owns all payment row access. Status changes go through
// Transition only; there is no unconditional status write.
type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(payment *models.Payment) error {
	return s.db.Create(payment).Error
}

func (s *PaymentStore) FindByID(id string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByAnyRef resolves a payment by our id, the provider reference, or the
// provider transaction id. Webhooks carry whichever the rail felt like
// sending, so all three are correlation keys.
func (s *PaymentStore) FindByAnyRef(ref string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.
		Where("id = ? OR provider_reference = ? OR provider_transaction_id = ?", ref, ref, ref).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) FindByBooking(bookingID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// FindHeldDeposit returns the HELD security deposit for a booking, if any.
func (s *PaymentStore) FindHeldDeposit(bookingID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.
		Where("booking_id = ? AND payment_type = ? AND status = ?",
			bookingID, models.PaymentTypeSecurityDeposit, models.PaymentStatusHeld).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Transition is the compare-and-set primitive: move the payment to `to` only
// if its current status is one of `from`, atomically, in a single conditional
// UPDATE. extra fields are written in the same statement. It returns whether
// the transition applied and the status actually observed; losing a race is
// not an error.
func (s *PaymentStore) Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected == 1 {
		return true, to, nil
	}
	// Zero rows: either the row is gone or another writer got there first.
	var current models.Payment
	if err := s.db.Select("status").First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", ErrNotFound
		}
		return false, "", err
	}
	return false, current.Status, nil
}

// FlagReview marks a payment for operator attention and records why.
// It is not a status change, so it bypasses Transition.
func (s *PaymentStore) FlagReview(id, reason string) error {
	return s.db.Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"review_required": true,
			"failure_reason":  reason,
			"updated_at":      time.Now(),
		}).Error
}

// PaymentFilter narrows admin listings.
type PaymentFilter struct {
	Status      string
	Provider    string
	PaymentType string
	BookingID   string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

func (s *PaymentStore) List(filter PaymentFilter) ([]models.Payment, int64, error) {
	q := s.db.Model(&models.Payment{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Provider != "" {
		q = q.Where("provider = ?", filter.Provider)
	}
	if filter.PaymentType != "" {
		q = q.Where("payment_type = ?", filter.PaymentType)
	}
	if filter.BookingID != "" {
		q = q.Where("booking_id = ?", filter.BookingID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var payments []models.Payment
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error
	return payments, total, err
}

// ListForReview returns payments flagged by the reconciler for operator
// attention.
func (s *PaymentStore) ListForReview() ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("review_required = ?", true).
		Order("updated_at DESC").
		Find(&payments).Error
	return payments, err
}
