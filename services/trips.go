package services

import (
	"fmt"
	"math"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// Late returns get a grace window before fees start. Past four hours the
// hourly fee stops accruing and a full extra day is billed instead.
const (
	lateReturnGrace = 30 * time.Minute
	lateFeeCapHours = 4
)

// TripService advances booking schedules. It is driven by an external
// scheduler hitting the cron endpoints; every sweep is idempotent because
// each row moves through a compare-and-set.
type TripService struct {
	bookings BookingRepo
	payments PaymentRepo
	notifier Notifier
}

func NewTripService(bookings BookingRepo, payments PaymentRepo, notifier Notifier) *TripService {
	return &TripService{bookings: bookings, payments: payments, notifier: notifier}
}

// ActivateDueTrips moves CONFIRMED bookings whose start date has passed to
// ACTIVE. Returns how many bookings were activated.
func (s *TripService) ActivateDueTrips(now time.Time) (int, error) {
	due, err := s.bookings.FindDueToActivate(now)
	if err != nil {
		return 0, utils.NewAppError(500, "Failed to list due trips", err)
	}
	activated := 0
	for _, booking := range due {
		applied, _, err := s.bookings.Transition(booking.ID, models.BookingStatusActive,
			[]string{models.BookingStatusConfirmed}, nil)
		if err != nil {
			utils.LogError("Failed to activate booking %s: %v", booking.ID, err)
			continue
		}
		if applied {
			activated++
			utils.LogInfo("Booking %s is now active", booking.ID)
		}
	}
	return activated, nil
}

// CompleteDueTrips moves ACTIVE bookings past their end date to COMPLETED
// and bills late-return fees where the grace window has lapsed. Returns how
// many bookings were completed.
func (s *TripService) CompleteDueTrips(now time.Time) (int, error) {
	due, err := s.bookings.FindDueToComplete(now)
	if err != nil {
		return 0, utils.NewAppError(500, "Failed to list ending trips", err)
	}
	completed := 0
	for _, booking := range due {
		applied, _, err := s.bookings.Transition(booking.ID, models.BookingStatusCompleted,
			[]string{models.BookingStatusActive},
			map[string]interface{}{"completed_at": &now})
		if err != nil {
			utils.LogError("Failed to complete booking %s: %v", booking.ID, err)
			continue
		}
		if !applied {
			continue
		}
		completed++
		utils.LogInfo("Booking %s completed", booking.ID)

		if fee := LateReturnFee(&booking.Vehicle, booking.EndDate, now); fee > 0 {
			s.billLateReturn(&booking, fee)
		}
	}
	return completed, nil
}

func (s *TripService) billLateReturn(booking *models.Booking, fee int64) {
	charge := &models.Payment{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Amount:      fee,
		Currency:    "ZMW",
		PaymentType: models.PaymentTypeLateFee,
		Intent:      models.PaymentIntentPayment,
		Status:      models.PaymentStatusPending,
	}
	if err := s.payments.Create(charge); err != nil {
		utils.LogError("Failed to record late fee on booking %s: %v", booking.ID, err)
		return
	}
	utils.LogInfo("Late return fee %s billed on booking %s",
		utils.FormatAmount(fee, "ZMW"), booking.ID)
	s.notifier.Notify(booking.UserID, models.NotificationLateReturn,
		"Late return fee",
		fmt.Sprintf("A late return fee of %s was added to your booking.",
			utils.FormatAmount(fee, "ZMW")),
		booking.ID)
	s.notifier.Notify(booking.HostID, models.NotificationLateReturn,
		"Vehicle returned late",
		fmt.Sprintf("The renter returned late; a fee of %s was billed.",
			utils.FormatAmount(fee, "ZMW")),
		booking.ID)
}

// LateReturnFee prices a late return. Within the grace window there is no
// fee; after it, each started hour bills the vehicle's hourly late fee up
// to the cap, beyond which a full extra day is charged instead.
func LateReturnFee(vehicle *models.Vehicle, scheduledEnd, returnedAt time.Time) int64 {
	overdue := returnedAt.Sub(scheduledEnd)
	if overdue <= lateReturnGrace {
		return 0
	}
	hours := int64(math.Ceil(overdue.Hours()))
	if hours > lateFeeCapHours {
		return vehicle.DailyRate
	}
	fee := hours * vehicle.LateReturnFee
	if fee > vehicle.DailyRate {
		return vehicle.DailyRate
	}
	return fee
}
