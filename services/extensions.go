package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zemo-mobility/ZemoPay/config"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/store"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// ExtensionService runs the trip-extension workflow: the renter proposes a
// later end date, the host approves or declines, and approval pushes the
// booking schedule out and bills the difference.
type ExtensionService struct {
	extensions ExtensionRepo
	bookings   BookingRepo
	notifier   Notifier

	serviceFeeBps int64
	taxBps        int64
}

func NewExtensionService(extensions ExtensionRepo, bookings BookingRepo, notifier Notifier, cfg *config.Config) *ExtensionService {
	return &ExtensionService{
		extensions:    extensions,
		bookings:      bookings,
		notifier:      notifier,
		serviceFeeBps: cfg.ServiceFeeBps,
		taxBps:        cfg.TaxBps,
	}
}

// ProposeInput is the renter's request for a later end date.
type ProposeInput struct {
	BookingID  string    `json:"booking_id"`
	NewEndDate time.Time `json:"new_end_date" binding:"required"`
}

// Propose opens a PENDING extension with a priced quote. The daily rate is
// snapshotted so a later rate change never alters the pending quote. At
// most one PENDING extension exists per booking.
func (s *ExtensionService) Propose(renterID string, input ProposeInput) (*models.TripExtension, error) {
	booking, err := s.bookings.FindByID(input.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.UserID != renterID {
		return nil, utils.ForbiddenError("Only the renter can request an extension", nil)
	}
	if booking.Status != models.BookingStatusConfirmed && booking.Status != models.BookingStatusActive {
		return nil, utils.ConflictError(
			fmt.Sprintf("Booking is %s, extension not applicable", booking.Status), nil)
	}
	if !input.NewEndDate.After(booking.EndDate) {
		return nil, utils.ValidationAppError("New end date must be after the current end date", nil)
	}

	pending, err := s.extensions.HasPending(input.BookingID)
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to check pending extensions", err)
	}
	if pending {
		return nil, utils.ConflictError("Booking already has a pending extension", nil)
	}

	days := additionalDays(booking.EndDate, input.NewEndDate)
	quote := s.price(booking.DailyRate, days)

	extension := &models.TripExtension{
		BookingID:       booking.ID,
		RequestedBy:     renterID,
		OriginalEndDate: booking.EndDate,
		NewEndDate:      input.NewEndDate,
		AdditionalDays:  days,
		DailyRate:       booking.DailyRate,
		Subtotal:        quote.Subtotal,
		ServiceFee:      quote.ServiceFee,
		TaxAmount:       quote.TaxAmount,
		TotalCost:       quote.TotalCost,
		Status:          models.ExtensionStatusPending,
	}
	if err := s.extensions.Create(extension); err != nil {
		// A concurrent proposal can slip past the pending check; the
		// partial unique index on PENDING extensions catches it here.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, utils.ConflictError("Booking already has a pending extension", nil)
		}
		return nil, utils.NewAppError(500, "Failed to record extension request", err)
	}

	utils.LogInfo("Extension %s proposed on booking %s: +%d days, %s",
		extension.ID, booking.ID, days, utils.FormatAmount(quote.TotalCost, "ZMW"))
	s.notifier.Notify(booking.HostID, models.NotificationExtensionRequested,
		"Trip extension requested",
		fmt.Sprintf("The renter asked to extend booking %s by %d day(s) until %s.",
			booking.ConfirmationNumber, days, input.NewEndDate.Format("2 Jan 2006")),
		booking.ID)
	return extension, nil
}

// RespondInput is the host's decision on a pending extension.
type RespondInput struct {
	ExtensionID string `json:"extension_id"`
	Approve     bool   `json:"approve"`
	Message     string `json:"message"`
}

// Respond settles a pending extension. Approval re-checks the vehicle
// calendar first: if another booking claimed the window since the proposal,
// the extension auto-declines instead of double-booking the vehicle.
// Concurrent responses race on the PENDING row; exactly one wins.
func (s *ExtensionService) Respond(hostID string, input RespondInput) (*models.TripExtension, error) {
	extension, err := s.extensions.FindByID(input.ExtensionID)
	if err != nil {
		return nil, utils.NotFoundError("Extension not found", err)
	}
	booking, err := s.bookings.FindByID(extension.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.HostID != hostID {
		return nil, utils.ForbiddenError("Only the host can respond to this extension", nil)
	}
	if extension.Status != models.ExtensionStatusPending {
		return nil, utils.ConflictError(
			fmt.Sprintf("Extension is %s, cannot respond", extension.Status), nil)
	}

	if !input.Approve {
		return s.decline(extension, booking, hostID, input.Message, "")
	}

	conflicts, err := s.bookings.FindConflicting(booking.VehicleID, booking.ID,
		extension.OriginalEndDate, extension.NewEndDate)
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to check vehicle availability", err)
	}
	if len(conflicts) > 0 {
		if _, derr := s.decline(extension, booking, hostID, input.Message,
			"vehicle is booked for the requested dates"); derr != nil {
			return nil, derr
		}
		return nil, utils.ConflictError("Vehicle is unavailable for the requested dates", nil)
	}

	now := time.Now()
	applied, current, err := s.extensions.Respond(extension.ID,
		models.ExtensionStatusApproved,
		map[string]interface{}{
			"responded_by":     hostID,
			"response_message": input.Message,
			"responded_at":     &now,
			"approved_at":      &now,
		})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to approve extension", err)
	}
	if !applied {
		return nil, utils.ConflictError(
			fmt.Sprintf("Extension is %s, cannot approve", current), nil)
	}

	extended, err := s.bookings.ExtendSchedule(booking.ID,
		extension.OriginalEndDate, extension.NewEndDate,
		extension.AdditionalDays, extension.TotalCost)
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to extend booking schedule", err)
	}
	if !extended {
		// The schedule moved under us after approval; flag for operators
		// rather than silently diverging from the approved extension.
		utils.LogError("Extension %s approved but booking %s schedule did not extend",
			extension.ID, booking.ID)
		s.notifier.NotifyOperators("Extension schedule mismatch",
			fmt.Sprintf("Extension %s on booking %s approved but schedule unchanged",
				extension.ID, booking.ID),
			booking.ID)
	}

	utils.LogInfo("Extension %s approved on booking %s", extension.ID, booking.ID)
	s.notifier.Notify(booking.UserID, models.NotificationBookingModified,
		"Trip extension approved",
		fmt.Sprintf("Your trip now ends on %s. The extension cost is %s.",
			extension.NewEndDate.Format("2 Jan 2006"),
			utils.FormatAmount(extension.TotalCost, "ZMW")),
		booking.ID)
	return s.extensions.FindByID(extension.ID)
}

func (s *ExtensionService) decline(extension *models.TripExtension, booking *models.Booking, hostID, message, reason string) (*models.TripExtension, error) {
	now := time.Now()
	applied, current, err := s.extensions.Respond(extension.ID,
		models.ExtensionStatusDeclined,
		map[string]interface{}{
			"responded_by":     hostID,
			"response_message": message,
			"decline_reason":   reason,
			"responded_at":     &now,
		})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to decline extension", err)
	}
	if !applied {
		return nil, utils.ConflictError(
			fmt.Sprintf("Extension is %s, cannot decline", current), nil)
	}

	utils.LogInfo("Extension %s declined on booking %s (%s)", extension.ID, booking.ID, reason)
	s.notifier.Notify(booking.UserID, models.NotificationBookingModified,
		"Trip extension declined",
		"Your trip extension request was declined.",
		booking.ID)
	return s.extensions.FindByID(extension.ID)
}

// ListForBooking returns the booking's extension history for its renter,
// host, or an admin.
func (s *ExtensionService) ListForBooking(userID, role, bookingID string) ([]models.TripExtension, error) {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if role != models.RoleAdmin && booking.UserID != userID && booking.HostID != userID {
		return nil, utils.ForbiddenError("Not your booking", nil)
	}
	return s.extensions.FindByBooking(bookingID)
}

// ExtensionQuote is the priced breakdown of an extension.
type ExtensionQuote struct {
	Subtotal   int64
	ServiceFee int64
	TaxAmount  int64
	TotalCost  int64
}

func (s *ExtensionService) price(dailyRate int64, days int) ExtensionQuote {
	subtotal := dailyRate * int64(days)
	fee := utils.ApplyBps(subtotal, s.serviceFeeBps)
	tax := utils.ApplyBps(subtotal, s.taxBps)
	return ExtensionQuote{
		Subtotal:   subtotal,
		ServiceFee: fee,
		TaxAmount:  tax,
		TotalCost:  subtotal + fee + tax,
	}
}

// additionalDays counts billable days between the old and new end dates.
// Any partial day bills as a whole day.
func additionalDays(from, to time.Time) int {
	hours := to.Sub(from).Hours()
	return int(math.Ceil(hours / 24))
}
