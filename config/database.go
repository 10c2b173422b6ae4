package config

import (
	"fmt"

	"github.com/zemo-mobility/ZemoPay/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectDatabase opens the Postgres connection and performs migrations.
// The handle is returned to the caller and injected where needed; there is
// no package-level DB singleton.
func ConnectDatabase(config *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName)

	// TranslateError surfaces unique-index violations as
	// gorm.ErrDuplicatedKey so callers can map them to conflicts.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Booking{},
		&models.Payment{},
		&models.TripExtension{},
		&models.DepositAdjustment{},
		&models.Notification{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// Webhooks look payments up by either provider identifier, so both
	// correlation columns must be indexed.
	if err := ensureIndexes(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_payments_provider_reference ON payments (provider_reference)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_provider_transaction_id ON payments (provider_transaction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_vehicle_status ON bookings (vehicle_id, status)`,
		// At most one PENDING extension per booking, enforced where the
		// application-level check cannot see a concurrent insert.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_trip_extensions_one_pending ON trip_extensions (booking_id) WHERE status = 'PENDING'`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
