package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification type constants
const (
	NotificationPaymentSuccess     = "PAYMENT_SUCCESS"
	NotificationPaymentFailed      = "PAYMENT_FAILED"
	NotificationBookingConfirmed   = "BOOKING_CONFIRMED"
	NotificationBookingCancelled   = "BOOKING_CANCELLED"
	NotificationBookingModified    = "BOOKING_MODIFIED"
	NotificationExtensionRequested = "EXTENSION_REQUESTED"
	NotificationDepositReleased    = "DEPOSIT_RELEASED"
	NotificationDamageCharge       = "DAMAGE_CHARGE"
	NotificationLateReturn         = "LATE_RETURN"
	NotificationOperatorAlert      = "OPERATOR_ALERT"
)

type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ActionURL string    `json:"action_url,omitempty"`
	BookingID string    `json:"booking_id,omitempty" gorm:"index"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
