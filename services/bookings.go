package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zemo-mobility/ZemoPay/config"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// BookingService owns the booking state machine. A booking starts PENDING
// and only ever moves through the compare-and-set transitions driven by
// payments, cancellation, extension approval, or the trip scheduler.
type BookingService struct {
	bookings BookingRepo
	vehicles VehicleRepo
	payments PaymentRepo
	paySvc   *PaymentService
	notifier Notifier

	serviceFeeBps int64
	taxBps        int64
}

func NewBookingService(bookings BookingRepo, vehicles VehicleRepo, payments PaymentRepo, paySvc *PaymentService, notifier Notifier, cfg *config.Config) *BookingService {
	return &BookingService{
		bookings:      bookings,
		vehicles:      vehicles,
		payments:      payments,
		paySvc:        paySvc,
		notifier:      notifier,
		serviceFeeBps: cfg.ServiceFeeBps,
		taxBps:        cfg.TaxBps,
	}
}

// CreateBookingInput is the renter's booking request. Pricing is derived
// from the vehicle record, never from the client.
type CreateBookingInput struct {
	VehicleID string    `json:"vehicle_id" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// Create opens a PENDING booking priced off the vehicle's daily rate. The
// security deposit is two daily rates, held separately once the booking
// confirms.
func (s *BookingService) Create(renterID string, input CreateBookingInput) (*models.Booking, error) {
	if !input.EndDate.After(input.StartDate) {
		return nil, utils.ValidationAppError("End date must be after the start date", nil)
	}
	vehicle, err := s.vehicles.FindByID(input.VehicleID)
	if err != nil {
		return nil, utils.NotFoundError("Vehicle not found", err)
	}
	if vehicle.HostID == renterID {
		return nil, utils.ForbiddenError("You cannot book your own vehicle", nil)
	}

	conflicts, err := s.bookings.FindConflicting(input.VehicleID, "", input.StartDate, input.EndDate)
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to check vehicle availability", err)
	}
	if len(conflicts) > 0 {
		return nil, utils.ConflictError("Vehicle is unavailable for the requested dates", nil)
	}

	days := int(math.Ceil(input.EndDate.Sub(input.StartDate).Hours() / 24))
	subtotal := vehicle.DailyRate * int64(days)
	total := subtotal +
		utils.ApplyBps(subtotal, s.serviceFeeBps) +
		utils.ApplyBps(subtotal, s.taxBps)

	booking := &models.Booking{
		ConfirmationNumber: newConfirmationNumber(),
		UserID:             renterID,
		VehicleID:          vehicle.ID,
		HostID:             vehicle.HostID,
		Status:             models.BookingStatusPending,
		StartDate:          input.StartDate,
		EndDate:            input.EndDate,
		TotalDays:          days,
		DailyRate:          vehicle.DailyRate,
		TotalAmount:        total,
		SecurityDeposit:    vehicle.DailyRate * 2,
	}
	if err := s.bookings.Create(booking); err != nil {
		return nil, utils.NewAppError(500, "Failed to record booking", err)
	}

	utils.LogInfo("Booking %s opened on vehicle %s (%d days, %s)",
		booking.ConfirmationNumber, vehicle.ID, days, utils.FormatAmount(total, "ZMW"))
	return booking, nil
}

// Get returns a booking visible to its renter, host, or an admin.
func (s *BookingService) Get(userID, role, bookingID string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if role != models.RoleAdmin && booking.UserID != userID && booking.HostID != userID {
		return nil, utils.ForbiddenError("Not your booking", nil)
	}
	return booking, nil
}

// Cancel terminates a PENDING or CONFIRMED booking. A confirmed booking's
// completed payment is refunded in full.
func (s *BookingService) Cancel(ctx context.Context, userID, role, bookingID, reason string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if role != models.RoleAdmin && booking.UserID != userID && booking.HostID != userID {
		return nil, utils.ForbiddenError("Not your booking", nil)
	}

	now := time.Now()
	applied, current, err := s.bookings.Transition(bookingID, models.BookingStatusCancelled,
		[]string{models.BookingStatusPending, models.BookingStatusConfirmed},
		map[string]interface{}{"cancelled_at": &now})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to cancel booking", err)
	}
	if !applied {
		if current == models.BookingStatusCancelled {
			return booking, nil
		}
		return nil, utils.ConflictError(
			fmt.Sprintf("Booking is %s, cannot cancel", current), nil)
	}

	s.refundCompletedPayments(ctx, booking, reason)

	utils.LogInfo("Booking %s cancelled (%s)", booking.ConfirmationNumber, reason)
	s.notifier.Notify(booking.UserID, models.NotificationBookingCancelled,
		"Booking cancelled",
		fmt.Sprintf("Booking %s has been cancelled.", booking.ConfirmationNumber),
		booking.ID)
	s.notifier.Notify(booking.HostID, models.NotificationBookingCancelled,
		"Booking cancelled",
		fmt.Sprintf("Booking %s has been cancelled.", booking.ConfirmationNumber),
		booking.ID)
	return s.bookings.FindByID(bookingID)
}

func (s *BookingService) refundCompletedPayments(ctx context.Context, booking *models.Booking, reason string) {
	payments, err := s.payments.FindByBooking(booking.ID)
	if err != nil {
		utils.LogError("Failed to list payments for cancelled booking %s: %v", booking.ID, err)
		return
	}
	for _, p := range payments {
		if p.PaymentType != models.PaymentTypeBookingPayment || p.Status != models.PaymentStatusCompleted {
			continue
		}
		if _, err := s.paySvc.Refund(ctx, RefundInput{
			PaymentID: p.ID,
			Reason:    fmt.Sprintf("booking cancelled: %s", reason),
		}); err != nil {
			utils.LogError("Failed to refund payment %s on cancelled booking %s: %v",
				p.ID, booking.ID, err)
			s.notifier.NotifyOperators("Cancellation refund failed",
				fmt.Sprintf("Payment %s on booking %s needs a manual refund", p.ID, booking.ID),
				booking.ID)
		}
	}
}

func newConfirmationNumber() string {
	return "ZB-" + strings.ToUpper(uuid.NewString()[:8])
}
