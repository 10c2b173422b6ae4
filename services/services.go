package services

import (
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/store"
)

// Repositories are injected as interfaces so tests can swap in-memory
// implementations; the store package provides the real ones.

type PaymentRepo interface {
	Create(payment *models.Payment) error
	FindByID(id string) (*models.Payment, error)
	FindByAnyRef(ref string) (*models.Payment, error)
	FindByBooking(bookingID string) ([]models.Payment, error)
	FindHeldDeposit(bookingID string) (*models.Payment, error)
	Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error)
	FlagReview(id, reason string) error
}

type BookingRepo interface {
	Create(booking *models.Booking) error
	FindByID(id string) (*models.Booking, error)
	Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error)
	ExtendSchedule(id string, fromEnd, newEnd time.Time, addDays int, addAmount int64) (bool, error)
	FindConflicting(vehicleID, excludeBookingID string, start, end time.Time) ([]models.Booking, error)
	FindDueToActivate(now time.Time) ([]models.Booking, error)
	FindDueToComplete(now time.Time) ([]models.Booking, error)
}

type ExtensionRepo interface {
	Create(extension *models.TripExtension) error
	FindByID(id string) (*models.TripExtension, error)
	FindByBooking(bookingID string) ([]models.TripExtension, error)
	HasPending(bookingID string) (bool, error)
	Respond(id, to string, extra map[string]interface{}) (bool, string, error)
}

type AdjustmentRepo interface {
	Create(adjustment *models.DepositAdjustment) error
	FindByID(id string) (*models.DepositAdjustment, error)
	FindByBooking(bookingID string) ([]models.DepositAdjustment, error)
	Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error)
}

type VehicleRepo interface {
	FindByID(id string) (*models.Vehicle, error)
}

var (
	_ PaymentRepo    = (*store.PaymentStore)(nil)
	_ BookingRepo    = (*store.BookingStore)(nil)
	_ ExtensionRepo  = (*store.ExtensionStore)(nil)
	_ AdjustmentRepo = (*store.AdjustmentStore)(nil)
	_ VehicleRepo    = (*store.VehicleStore)(nil)
)
