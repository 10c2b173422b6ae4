package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepositAdjustment status constants
const (
	AdjustmentStatusPending    = "PENDING"
	AdjustmentStatusCalculated = "CALCULATED"
	AdjustmentStatusApproved   = "APPROVED"
	AdjustmentStatusProcessed  = "PROCESSED"
	AdjustmentStatusDisputed   = "DISPUTED"
	AdjustmentStatusResolved   = "RESOLVED"
)

// DepositAdjustment is the host-facing resolution record for a held
// security deposit. AdjustmentAmount is in minor units; positive means a
// charge against the renter, negative means a refund to the renter. Only a
// PENDING adjustment may be mutated.
type DepositAdjustment struct {
	ID        string  `json:"id" gorm:"primaryKey"`
	BookingID string  `json:"booking_id" gorm:"index;not null"`
	Booking   Booking `json:"-" gorm:"foreignKey:BookingID"`

	OriginalDeposit    int64 `json:"original_deposit"`
	DamageCharges      int64 `json:"damage_charges"`
	FuelCharges        int64 `json:"fuel_charges"`
	OtherCharges       int64 `json:"other_charges"`
	AdjustmentAmount   int64 `json:"adjustment_amount"`
	FinalDepositReturn int64 `json:"final_deposit_return"`

	Status        string     `json:"status"`
	Justification string     `json:"justification,omitempty"`
	ProcessedBy   string     `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (a *DepositAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
