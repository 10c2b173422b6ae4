package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TripExtension status constants
const (
	ExtensionStatusPending  = "PENDING"
	ExtensionStatusApproved = "APPROVED"
	ExtensionStatusDeclined = "DECLINED"
)

// TripExtension is a proposal to push a booking's end date later. At most
// one PENDING extension exists per booking. Extensions are never deleted,
// only status-terminated, preserving the audit trail.
type TripExtension struct {
	ID        string  `json:"id" gorm:"primaryKey"`
	BookingID string  `json:"booking_id" gorm:"index;not null"`
	Booking   Booking `json:"-" gorm:"foreignKey:BookingID"`

	RequestedBy     string    `json:"requested_by"`
	OriginalEndDate time.Time `json:"original_end_date"`
	NewEndDate      time.Time `json:"new_end_date"`
	AdditionalDays  int       `json:"additional_days"`

	// Amounts in minor units (ngwee). DailyRate is a snapshot taken at
	// proposal time so later rate changes do not alter a pending quote.
	DailyRate  int64 `json:"daily_rate"`
	Subtotal   int64 `json:"subtotal"`
	ServiceFee int64 `json:"service_fee"`
	TaxAmount  int64 `json:"tax_amount"`
	TotalCost  int64 `json:"total_cost"`

	Status          string     `json:"status"`
	RespondedBy     string     `json:"responded_by,omitempty"`
	ResponseMessage string     `json:"response_message,omitempty"`
	DeclineReason   string     `json:"decline_reason,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (e *TripExtension) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
