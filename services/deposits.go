package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// DepositService manages held security deposits: release after a clean
// return, capture against damage, and the host-facing adjustment workflow.
type DepositService struct {
	payments    PaymentRepo
	bookings    BookingRepo
	adjustments AdjustmentRepo
	registry    *providers.Registry
	notifier    Notifier
}

func NewDepositService(payments PaymentRepo, bookings BookingRepo, adjustments AdjustmentRepo, registry *providers.Registry, notifier Notifier) *DepositService {
	return &DepositService{
		payments:    payments,
		bookings:    bookings,
		adjustments: adjustments,
		registry:    registry,
		notifier:    notifier,
	}
}

// Release returns the full deposit after the trip has ended. Releasing an
// already-released deposit is a no-op success.
func (s *DepositService) Release(ctx context.Context, hostID, bookingID string) (*models.Payment, error) {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.HostID != hostID {
		return nil, utils.ForbiddenError("Only the host can release the deposit", nil)
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, utils.ConflictError("Deposit can only be released after the trip ends", nil)
	}

	deposit, err := s.payments.FindHeldDeposit(bookingID)
	if err != nil {
		// Nothing held: either never placed or already settled.
		for _, p := range s.settledDeposits(bookingID) {
			if p.Status == models.PaymentStatusReleased {
				return &p, nil
			}
		}
		return nil, utils.NotFoundError("No held deposit for this booking", err)
	}

	adapter, ok := s.registry.Get(deposit.Provider)
	if !ok {
		return nil, utils.NewAppError(500, "Payment provider not configured", nil)
	}
	if _, err := adapter.Release(ctx, deposit.ProviderReference); err != nil {
		if providers.IsRetryable(err) {
			return nil, utils.RetryableError("Provider unavailable, try again", err)
		}
		return nil, utils.ConflictError("Provider refused to release the deposit", err)
	}

	now := time.Now()
	applied, current, err := s.payments.Transition(deposit.ID, models.PaymentStatusReleased,
		[]string{models.PaymentStatusHeld},
		map[string]interface{}{"processed_at": &now})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to release deposit", err)
	}
	if !applied && current != models.PaymentStatusReleased {
		return nil, utils.ConflictError(
			fmt.Sprintf("Deposit is %s, cannot release", current), nil)
	}

	utils.LogInfo("Released deposit %s on booking %s", deposit.ID, bookingID)
	s.notifier.Notify(booking.UserID, models.NotificationDepositReleased,
		"Security deposit released",
		fmt.Sprintf("Your deposit of %s has been released.",
			utils.FormatAmount(deposit.Amount, deposit.Currency)),
		bookingID)
	return s.payments.FindByID(deposit.ID)
}

func (s *DepositService) settledDeposits(bookingID string) []models.Payment {
	payments, err := s.payments.FindByBooking(bookingID)
	if err != nil {
		return nil
	}
	var deposits []models.Payment
	for _, p := range payments {
		if p.PaymentType == models.PaymentTypeSecurityDeposit {
			deposits = append(deposits, p)
		}
	}
	return deposits
}

// CaptureInput describes a damage charge against the held deposit.
type CaptureInput struct {
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// CaptureForDamage takes part or all of the held deposit. Only rails with
// real holds and partial capture can do this; on any other rail the charge
// is refused outright and the deposit stays HELD for the host to release.
func (s *DepositService) CaptureForDamage(ctx context.Context, hostID string, input CaptureInput) (*models.Payment, error) {
	booking, err := s.bookings.FindByID(input.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.HostID != hostID {
		return nil, utils.ForbiddenError("Only the host can charge the deposit", nil)
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, utils.ConflictError("Damage charges require a completed trip", nil)
	}

	deposit, err := s.payments.FindHeldDeposit(input.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("No held deposit for this booking", err)
	}
	if input.Amount <= 0 {
		return nil, utils.ValidationAppError("Charge amount must be positive", nil)
	}
	if input.Amount > deposit.Amount {
		return nil, utils.ValidationAppError("Charge cannot exceed the held deposit", nil)
	}

	adapter, ok := s.registry.Get(deposit.Provider)
	if !ok {
		return nil, utils.NewAppError(500, "Payment provider not configured", nil)
	}

	if !adapter.SupportsHolds() || !adapter.SupportsPartialCapture() {
		return nil, utils.ConflictError("Partial capture not supported for this provider", nil)
	}
	return s.captureHeldFunds(ctx, adapter, booking, deposit, input)
}

// captureHeldFunds settles a real provider hold for the damage amount.
// Partial capture releases the remainder provider-side.
func (s *DepositService) captureHeldFunds(ctx context.Context, adapter providers.Adapter, booking *models.Booking, deposit *models.Payment, input CaptureInput) (*models.Payment, error) {
	reference := deposit.ProviderTransactionID
	if reference == "" {
		reference = deposit.ProviderReference
	}
	result, err := adapter.Capture(ctx, reference, input.Amount)
	if err != nil {
		if providers.IsRetryable(err) {
			return nil, utils.RetryableError("Provider unavailable, try again", err)
		}
		return nil, utils.ConflictError("Provider refused the capture", err)
	}

	now := time.Now()
	applied, current, err := s.payments.Transition(deposit.ID, models.PaymentStatusCompleted,
		[]string{models.PaymentStatusHeld},
		map[string]interface{}{
			"processed_at":            &now,
			"provider_transaction_id": result.TransactionID,
		})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to settle deposit", err)
	}
	if !applied {
		return nil, utils.ConflictError(
			fmt.Sprintf("Deposit is %s, cannot capture", current), nil)
	}

	charge := &models.Payment{
		BookingID:             booking.ID,
		UserID:                booking.UserID,
		Amount:                input.Amount,
		Currency:              deposit.Currency,
		PaymentType:           models.PaymentTypeDamageCharge,
		Intent:                models.PaymentIntentPayment,
		Provider:              deposit.Provider,
		Status:                models.PaymentStatusCompleted,
		ProviderReference:     reference,
		ProviderTransactionID: result.TransactionID,
		FailureReason:         input.Reason,
		ProcessedAt:           &now,
	}
	if err := s.payments.Create(charge); err != nil {
		return nil, utils.NewAppError(500, "Failed to record damage charge", err)
	}

	utils.LogInfo("Captured %s of deposit %s on booking %s for damage",
		utils.FormatAmount(input.Amount, deposit.Currency), deposit.ID, booking.ID)
	s.notifier.Notify(booking.UserID, models.NotificationDamageCharge,
		"Damage charge applied",
		fmt.Sprintf("%s was charged from your security deposit: %s",
			utils.FormatAmount(input.Amount, deposit.Currency), input.Reason),
		booking.ID)
	return charge, nil
}

// AdjustmentInput is the host's itemized claim against the deposit.
type AdjustmentInput struct {
	BookingID     string `json:"booking_id"`
	DamageCharges int64  `json:"damage_charges"`
	FuelCharges   int64  `json:"fuel_charges"`
	OtherCharges  int64  `json:"other_charges"`
	Justification string `json:"justification" binding:"required"`
}

// CreateAdjustment opens an itemized deposit adjustment. The adjustment
// amount is positive for a net charge against the renter.
func (s *DepositService) CreateAdjustment(hostID string, input AdjustmentInput) (*models.DepositAdjustment, error) {
	booking, err := s.bookings.FindByID(input.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.HostID != hostID {
		return nil, utils.ForbiddenError("Only the host can file an adjustment", nil)
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, utils.ConflictError("Adjustments require a completed trip", nil)
	}
	deposit, err := s.payments.FindHeldDeposit(input.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("No held deposit for this booking", err)
	}
	if input.DamageCharges < 0 || input.FuelCharges < 0 || input.OtherCharges < 0 {
		return nil, utils.ValidationAppError("Charges cannot be negative", nil)
	}

	total := input.DamageCharges + input.FuelCharges + input.OtherCharges
	if total > deposit.Amount {
		return nil, utils.ValidationAppError("Charges exceed the held deposit", nil)
	}

	adjustment := &models.DepositAdjustment{
		BookingID:          input.BookingID,
		OriginalDeposit:    deposit.Amount,
		DamageCharges:      input.DamageCharges,
		FuelCharges:        input.FuelCharges,
		OtherCharges:       input.OtherCharges,
		AdjustmentAmount:   total,
		FinalDepositReturn: deposit.Amount - total,
		Status:             models.AdjustmentStatusCalculated,
		Justification:      input.Justification,
	}
	if err := s.adjustments.Create(adjustment); err != nil {
		return nil, utils.NewAppError(500, "Failed to record adjustment", err)
	}

	s.notifier.Notify(booking.UserID, models.NotificationDamageCharge,
		"Deposit adjustment filed",
		fmt.Sprintf("The host filed charges of %s against your deposit.",
			utils.FormatAmount(total, deposit.Currency)),
		booking.ID)
	return adjustment, nil
}

// Dispute lets the renter contest a calculated or approved adjustment
// before it is processed.
func (s *DepositService) Dispute(renterID, adjustmentID, reason string) (*models.DepositAdjustment, error) {
	adjustment, err := s.adjustments.FindByID(adjustmentID)
	if err != nil {
		return nil, utils.NotFoundError("Adjustment not found", err)
	}
	booking, err := s.bookings.FindByID(adjustment.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.UserID != renterID {
		return nil, utils.ForbiddenError("Only the renter can dispute the adjustment", nil)
	}

	applied, current, err := s.adjustments.Transition(adjustmentID,
		models.AdjustmentStatusDisputed,
		[]string{models.AdjustmentStatusCalculated, models.AdjustmentStatusApproved},
		map[string]interface{}{"justification": reason})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to record dispute", err)
	}
	if !applied {
		return nil, utils.ConflictError(
			fmt.Sprintf("Adjustment is %s, cannot dispute", current), nil)
	}

	s.notifier.NotifyOperators("Deposit adjustment disputed",
		fmt.Sprintf("Adjustment %s on booking %s was disputed: %s",
			adjustmentID, adjustment.BookingID, reason),
		adjustment.BookingID)
	return s.adjustments.FindByID(adjustmentID)
}

// Approve moves a calculated or disputed adjustment to APPROVED. Admin
// review is the only path out of DISPUTED.
func (s *DepositService) Approve(adminID, adjustmentID string) (*models.DepositAdjustment, error) {
	applied, current, err := s.adjustments.Transition(adjustmentID,
		models.AdjustmentStatusApproved,
		[]string{models.AdjustmentStatusCalculated, models.AdjustmentStatusDisputed},
		map[string]interface{}{"processed_by": adminID})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to approve adjustment", err)
	}
	if !applied {
		if current == "" {
			return nil, utils.NotFoundError("Adjustment not found", nil)
		}
		return nil, utils.ConflictError(
			fmt.Sprintf("Adjustment is %s, cannot approve", current), nil)
	}
	return s.adjustments.FindByID(adjustmentID)
}

// ProcessAdjustment executes an approved adjustment: the net charge is
// captured from the deposit and the remainder released.
func (s *DepositService) ProcessAdjustment(ctx context.Context, adminID, adjustmentID string) (*models.DepositAdjustment, error) {
	adjustment, err := s.adjustments.FindByID(adjustmentID)
	if err != nil {
		return nil, utils.NotFoundError("Adjustment not found", err)
	}
	if adjustment.Status != models.AdjustmentStatusApproved {
		return nil, utils.ConflictError(
			fmt.Sprintf("Adjustment is %s, cannot process", adjustment.Status), nil)
	}
	booking, err := s.bookings.FindByID(adjustment.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}

	if adjustment.AdjustmentAmount > 0 {
		if _, err := s.CaptureForDamage(ctx, booking.HostID, CaptureInput{
			BookingID: adjustment.BookingID,
			Amount:    adjustment.AdjustmentAmount,
			Reason:    adjustment.Justification,
		}); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.Release(ctx, booking.HostID, adjustment.BookingID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	applied, current, err := s.adjustments.Transition(adjustmentID,
		models.AdjustmentStatusProcessed,
		[]string{models.AdjustmentStatusApproved},
		map[string]interface{}{"processed_by": adminID, "processed_at": &now})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to mark adjustment processed", err)
	}
	if !applied {
		return nil, utils.ConflictError(
			fmt.Sprintf("Adjustment is %s, cannot mark processed", current), nil)
	}

	utils.LogInfo("Processed deposit adjustment %s on booking %s (net %s)",
		adjustmentID, adjustment.BookingID,
		utils.FormatAmount(adjustment.AdjustmentAmount, "ZMW"))
	return s.adjustments.FindByID(adjustmentID)
}

// Resolve closes a disputed adjustment with corrected figures.
func (s *DepositService) Resolve(adminID, adjustmentID string, finalCharge int64, resolution string) (*models.DepositAdjustment, error) {
	adjustment, err := s.adjustments.FindByID(adjustmentID)
	if err != nil {
		return nil, utils.NotFoundError("Adjustment not found", err)
	}
	if finalCharge < 0 || finalCharge > adjustment.OriginalDeposit {
		return nil, utils.ValidationAppError("Final charge exceeds the deposit", nil)
	}

	applied, current, err := s.adjustments.Transition(adjustmentID,
		models.AdjustmentStatusResolved,
		[]string{models.AdjustmentStatusDisputed},
		map[string]interface{}{
			"adjustment_amount":    finalCharge,
			"final_deposit_return": adjustment.OriginalDeposit - finalCharge,
			"justification":        resolution,
			"processed_by":         adminID,
		})
	if err != nil {
		return nil, utils.NewAppError(500, "Failed to resolve adjustment", err)
	}
	if !applied {
		return nil, utils.ConflictError(
			fmt.Sprintf("Adjustment is %s, cannot resolve", current), nil)
	}
	return s.adjustments.FindByID(adjustmentID)
}
