package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Vehicle struct {
	ID          string `json:"id" gorm:"primaryKey"`
	HostID      string `json:"host_id" gorm:"index;not null"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	PlateNumber string `json:"plate_number"`

	// Amounts in minor units (ngwee).
	DailyRate     int64 `json:"daily_rate"`
	LateReturnFee int64 `json:"late_return_fee"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
