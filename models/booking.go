package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking status constants
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusActive    = "ACTIVE"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusCancelled = "CANCELLED"
)

// Booking is a confirmed or proposed rental. Status transitions are only
// ever caused by a payment event, an extension approval, an explicit
// cancellation, or the trip scheduler; never by the booking itself.
type Booking struct {
	ID                 string  `json:"id" gorm:"primaryKey"`
	ConfirmationNumber string  `json:"confirmation_number" gorm:"uniqueIndex"`
	UserID             string  `json:"user_id" gorm:"index;not null"`
	VehicleID          string  `json:"vehicle_id" gorm:"index;not null"`
	Vehicle            Vehicle `json:"-" gorm:"foreignKey:VehicleID"`
	HostID             string  `json:"host_id" gorm:"index;not null"`

	Status    string    `json:"status"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	TotalDays int       `json:"total_days"`

	// Amounts in minor units (ngwee).
	DailyRate       int64 `json:"daily_rate"`
	TotalAmount     int64 `json:"total_amount"`
	SecurityDeposit int64 `json:"security_deposit"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
