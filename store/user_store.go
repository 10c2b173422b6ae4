package store

import (
	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(user *models.User) error {
	return s.db.Create(user).Error
}

func (s *UserStore) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) FindByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListAdmins returns the operator accounts that receive reconciliation
// alerts.
func (s *UserStore) ListAdmins() ([]models.User, error) {
	var admins []models.User
	err := s.db.Where("role = ?", models.RoleAdmin).Find(&admins).Error
	return admins, err
}
