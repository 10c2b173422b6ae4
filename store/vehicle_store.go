package store

import (
	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/gorm"
)

type VehicleStore struct {
	db *gorm.DB
}

func NewVehicleStore(db *gorm.DB) *VehicleStore {
	return &VehicleStore{db: db}
}

func (s *VehicleStore) Create(vehicle *models.Vehicle) error {
	return s.db.Create(vehicle).Error
}

func (s *VehicleStore) FindByID(id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.db.First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}
