package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// PaymentService drives payment creation, confirmation, and refunds. The
// amount charged always comes from the booking record, never from the
// client request.
type PaymentService struct {
	payments   PaymentRepo
	bookings   BookingRepo
	registry   *providers.Registry
	reconciler *Reconciler
	notifier   Notifier
	currency   string
}

func NewPaymentService(payments PaymentRepo, bookings BookingRepo, registry *providers.Registry, reconciler *Reconciler, notifier Notifier) *PaymentService {
	return &PaymentService{
		payments:   payments,
		bookings:   bookings,
		registry:   registry,
		reconciler: reconciler,
		notifier:   notifier,
		currency:   "ZMW",
	}
}

// CreatePaymentInput is what the client may choose: the rail and, for
// mobile money, the paying number. Everything else is derived server-side.
type CreatePaymentInput struct {
	BookingID   string `json:"booking_id" binding:"required"`
	Provider    string `json:"provider" binding:"required"`
	PhoneNumber string `json:"phone_number"`
	MethodType  string `json:"method_type"`
}

// PaymentIntentResult is returned to the client to complete the payment.
type PaymentIntentResult struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret,omitempty"`
	PaymentLink  string          `json:"payment_link,omitempty"`
}

// CreateBookingPayment opens a payment intent for the booking total.
func (s *PaymentService) CreateBookingPayment(ctx context.Context, userID string, input CreatePaymentInput) (*PaymentIntentResult, error) {
	booking, err := s.bookings.FindByID(input.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.UserID != userID {
		return nil, utils.ForbiddenError("Only the renter can pay for this booking", nil)
	}
	if booking.Status != models.BookingStatusPending {
		return nil, utils.ConflictError(
			fmt.Sprintf("Booking is %s, payment not applicable", booking.Status), nil)
	}
	return s.openIntent(ctx, booking.UserID, booking.ID, input,
		models.PaymentTypeBookingPayment, models.PaymentIntentPayment, booking.TotalAmount,
		fmt.Sprintf("Booking %s", booking.ConfirmationNumber))
}

// CreateDepositHold opens a security-deposit hold for a confirmed booking.
// On rails without real holds the deposit is recorded HELD immediately; the
// hold is logical and no money moves.
func (s *PaymentService) CreateDepositHold(ctx context.Context, userID string, input CreatePaymentInput) (*PaymentIntentResult, error) {
	booking, err := s.bookings.FindByID(input.BookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if booking.UserID != userID {
		return nil, utils.ForbiddenError("Only the renter can place the deposit", nil)
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, utils.ConflictError("Deposit requires a confirmed booking", nil)
	}
	if booking.SecurityDeposit <= 0 {
		return nil, utils.BadRequestError("Booking has no security deposit", nil)
	}
	if existing, err := s.payments.FindHeldDeposit(booking.ID); err == nil {
		return &PaymentIntentResult{Payment: existing}, nil
	}
	return s.openIntent(ctx, booking.UserID, booking.ID, input,
		models.PaymentTypeSecurityDeposit, models.PaymentIntentHold, booking.SecurityDeposit,
		fmt.Sprintf("Security deposit for booking %s", booking.ConfirmationNumber))
}

func (s *PaymentService) openIntent(ctx context.Context, userID, bookingID string, input CreatePaymentInput, paymentType, intent string, amount int64, description string) (*PaymentIntentResult, error) {
	adapter, ok := s.registry.Get(input.Provider)
	if !ok {
		return nil, utils.BadRequestError("Unknown payment provider", nil)
	}

	phone := input.PhoneNumber
	if models.IsMobileMoneyProvider(input.Provider) {
		if !utils.ValidatePhoneNumber(phone) {
			return nil, utils.ValidationAppError("A valid Zambian mobile number is required", nil)
		}
		phone = utils.NormalizePhoneNumber(phone)
	}

	payment := &models.Payment{
		BookingID:   bookingID,
		UserID:      userID,
		Amount:      amount,
		Currency:    s.currency,
		PaymentType: paymentType,
		Intent:      intent,
		Provider:    input.Provider,
		MethodType:  input.MethodType,
		PhoneNumber: phone,
		Status:      models.PaymentStatusPending,
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, utils.NewAppError(500, "Failed to record payment", err)
	}

	req := providers.Request{
		Amount:      amount,
		Currency:    s.currency,
		PhoneNumber: phone,
		Description: description,
		Reference:   payment.ID,
		Metadata:    map[string]string{"booking_id": bookingID},
	}

	var (
		providerIntent *providers.Intent
		callErr        error
	)
	if intent == models.PaymentIntentHold {
		providerIntent, callErr = adapter.CreateHold(ctx, req)
	} else {
		providerIntent, callErr = adapter.CreatePayment(ctx, req)
	}
	if callErr != nil {
		if providers.IsRetryable(callErr) {
			// The payment stays PENDING; the client retries the same intent.
			utils.LogError("Provider %s transient failure on payment %s: %v",
				input.Provider, payment.ID, callErr)
			return nil, utils.RetryableError("Payment provider is unavailable, try again", callErr)
		}
		_, _, _ = s.payments.Transition(payment.ID, models.PaymentStatusFailed,
			[]string{models.PaymentStatusPending},
			map[string]interface{}{"failure_reason": callErr.Error()})
		utils.LogError("Provider %s rejected payment %s: %v", input.Provider, payment.ID, callErr)
		return nil, utils.BadRequestError("Payment was rejected by the provider", callErr)
	}

	// Logical holds on mobile rails settle immediately; everything else
	// waits on confirmation or a webhook.
	target := models.PaymentStatusProcessing
	extra := map[string]interface{}{"provider_reference": providerIntent.Reference}
	if intent == models.PaymentIntentHold && !adapter.SupportsHolds() {
		now := time.Now()
		target = models.PaymentStatusHeld
		extra["processed_at"] = &now
	}
	if _, _, err := s.payments.Transition(payment.ID, target,
		[]string{models.PaymentStatusPending}, extra); err != nil {
		return nil, utils.NewAppError(500, "Failed to update payment", err)
	}
	payment.Status = target
	payment.ProviderReference = providerIntent.Reference

	utils.LogInfo("Opened %s intent %s on %s for booking %s (%s)",
		intent, payment.ID, input.Provider, bookingID, utils.FormatAmount(amount, s.currency))

	return &PaymentIntentResult{
		Payment:      payment,
		ClientSecret: providerIntent.ClientSecret,
		PaymentLink:  providerIntent.PaymentLink,
	}, nil
}

// ConfirmPayment re-verifies the payment with the provider and settles it.
// Confirmation races with the webhook path; both funnel through the same
// compare-and-set, so the loser sees "already processed" and nothing is
// applied twice.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(paymentID)
	if err != nil {
		return nil, utils.NotFoundError("Payment not found", err)
	}
	if payment.UserID != userID {
		return nil, utils.ForbiddenError("Payment belongs to another user", nil)
	}
	if payment.IsTerminal() {
		return payment, nil
	}

	adapter, ok := s.registry.Get(payment.Provider)
	if !ok {
		return nil, utils.NewAppError(500, "Payment provider not configured", nil)
	}
	reference := payment.ProviderReference
	if reference == "" {
		reference = payment.ID
	}
	status, err := adapter.Verify(ctx, reference)
	if err != nil {
		if providers.IsRetryable(err) {
			return nil, utils.RetryableError("Provider verification unavailable, try again", err)
		}
		return nil, utils.BadRequestError("Provider could not verify the payment", err)
	}

	event := &webhookEvent{
		Reference:     status.Reference,
		TransactionID: status.TransactionID,
		Status:        status.Status,
		Amount:        status.Amount,
	}
	if err := s.reconciler.Apply(payment, event); err != nil {
		return nil, err
	}
	return s.payments.FindByID(paymentID)
}

// RefundInput describes a refund against a completed payment. Amount 0
// means full refund.
type RefundInput struct {
	PaymentID string `json:"payment_id" binding:"required"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

// Refund reverses a completed payment, fully or partially.
func (s *PaymentService) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	payment, err := s.payments.FindByID(input.PaymentID)
	if err != nil {
		return nil, utils.NotFoundError("Payment not found", err)
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, utils.ConflictError("Only completed payments can be refunded", nil)
	}
	if input.Amount < 0 || input.Amount > payment.Amount {
		return nil, utils.ValidationAppError("Refund amount exceeds the payment", nil)
	}
	amount := input.Amount
	if amount == 0 {
		amount = payment.Amount
	}

	adapter, ok := s.registry.Get(payment.Provider)
	if !ok {
		return nil, utils.NewAppError(500, "Payment provider not configured", nil)
	}
	reference := payment.ProviderTransactionID
	if reference == "" {
		reference = payment.ProviderReference
	}
	result, err := adapter.Refund(ctx, reference, amount)
	if err != nil {
		if providers.IsRetryable(err) {
			return nil, utils.RetryableError("Provider refund unavailable, try again", err)
		}
		return nil, utils.BadRequestError("Provider rejected the refund", err)
	}

	refundType := models.PaymentTypeRefund
	if amount < payment.Amount {
		refundType = models.PaymentTypePartialRefund
	}
	now := time.Now()
	refund := &models.Payment{
		BookingID:             payment.BookingID,
		UserID:                payment.UserID,
		Amount:                amount,
		Currency:              payment.Currency,
		PaymentType:           refundType,
		Intent:                models.PaymentIntentRefund,
		Provider:              payment.Provider,
		Status:                models.PaymentStatusCompleted,
		ProviderReference:     reference,
		ProviderTransactionID: result.TransactionID,
		FailureReason:         "",
		ProcessedAt:           &now,
	}
	if err := s.payments.Create(refund); err != nil {
		return nil, utils.NewAppError(500, "Failed to record refund", err)
	}

	// A full refund settles the original payment as REFUNDED; a partial
	// refund leaves it COMPLETED with the refund row as the audit record.
	// Fully refunding a booking payment also cancels the booking, unless a
	// cancellation already did.
	if amount == payment.Amount {
		_, _, _ = s.payments.Transition(payment.ID, models.PaymentStatusRefunded,
			[]string{models.PaymentStatusCompleted},
			map[string]interface{}{"processed_at": &now})
		if payment.PaymentType == models.PaymentTypeBookingPayment {
			if _, _, cerr := s.bookings.Transition(payment.BookingID, models.BookingStatusCancelled,
				[]string{models.BookingStatusPending, models.BookingStatusConfirmed},
				map[string]interface{}{"cancelled_at": &now}); cerr != nil {
				utils.LogError("Failed to cancel booking %s after refund of %s: %v",
					payment.BookingID, payment.ID, cerr)
			}
		}
	}

	utils.LogInfo("Refunded %s on payment %s (%s)",
		utils.FormatAmount(amount, payment.Currency), payment.ID, input.Reason)
	s.notifier.Notify(payment.UserID, models.NotificationPaymentSuccess,
		"Refund issued",
		fmt.Sprintf("A refund of %s has been issued to you.",
			utils.FormatAmount(amount, payment.Currency)),
		payment.BookingID)
	return refund, nil
}

// PaymentsForBooking lists the booking's payment history for its renter,
// host, or an admin.
func (s *PaymentService) PaymentsForBooking(userID, role, bookingID string) ([]models.Payment, error) {
	booking, err := s.bookings.FindByID(bookingID)
	if err != nil {
		return nil, utils.NotFoundError("Booking not found", err)
	}
	if role != models.RoleAdmin && booking.UserID != userID && booking.HostID != userID {
		return nil, utils.ForbiddenError("Not your booking", nil)
	}
	return s.payments.FindByBooking(bookingID)
}
