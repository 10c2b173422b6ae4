package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment status constants
const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusProcessing = "PROCESSING"
	PaymentStatusCompleted  = "COMPLETED"
	PaymentStatusFailed     = "FAILED"
	PaymentStatusCancelled  = "CANCELLED"
	PaymentStatusRefunded   = "REFUNDED"
	PaymentStatusHeld       = "HELD"
	PaymentStatusReleased   = "RELEASED"
)

// Payment type constants
const (
	PaymentTypeBookingPayment  = "BOOKING_PAYMENT"
	PaymentTypeSecurityDeposit = "SECURITY_DEPOSIT"
	PaymentTypeRefund          = "REFUND"
	PaymentTypePartialRefund   = "PARTIAL_REFUND"
	PaymentTypeDamageCharge    = "DAMAGE_CHARGE"
	PaymentTypeLateFee         = "LATE_FEE"
)

// Payment intent constants
const (
	PaymentIntentPayment = "PAYMENT"
	PaymentIntentHold    = "HOLD"
	PaymentIntentRefund  = "REFUND"
)

// Payment provider constants
const (
	ProviderRazorpay     = "RAZORPAY"
	ProviderAirtelMoney  = "AIRTEL_MONEY"
	ProviderMTNMoMo      = "MTN_MOMO"
	ProviderZamtelKwacha = "ZAMTEL_KWACHA"
)

// Payment method type constants
const (
	MethodCreditCard  = "CREDIT_CARD"
	MethodDebitCard   = "DEBIT_CARD"
	MethodMobileMoney = "MOBILE_MONEY"
)

// Payment is one attempted movement of money. Amount is in minor units
// (ngwee for ZMW) so webhook amount checks are exact integer comparisons.
type Payment struct {
	ID        string  `json:"id" gorm:"primaryKey"`
	BookingID string  `json:"booking_id" gorm:"index;not null"`
	Booking   Booking `json:"-" gorm:"foreignKey:BookingID"`
	UserID    string  `json:"user_id" gorm:"index;not null"`

	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	PaymentType string `json:"payment_type"`
	Intent      string `json:"intent"`
	Provider    string `json:"provider"`
	MethodType  string `json:"method_type,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Status      string `json:"status"`

	// Provider correlation keys. Webhooks may carry either one.
	ProviderReference     string `json:"provider_reference,omitempty"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`

	FailureReason  string     `json:"failure_reason,omitempty"`
	ReviewRequired bool       `json:"review_required,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal reports whether the payment can no longer change state through
// webhook application.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled,
		PaymentStatusRefunded, PaymentStatusReleased:
		return true
	}
	return false
}

// IsMobileMoneyProvider reports whether the provider is a mobile-money rail.
func IsMobileMoneyProvider(provider string) bool {
	switch provider {
	case ProviderAirtelMoney, ProviderMTNMoMo, ProviderZamtelKwacha:
		return true
	}
	return false
}
