package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User role constants. The role is an explicit claim carried on the
// authenticated principal; authorization never infers it from anything else.
const (
	RoleRenter = "RENTER"
	RoleHost   = "HOST"
	RoleAdmin  = "ADMIN"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role" gorm:"default:RENTER"`
	IsBlocked bool      `json:"is_blocked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
