package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/utils"
)

// Reconciler applies provider webhooks to payment records. Delivery is
// at-least-once and unordered, so every step is idempotent: a duplicate or
// stale event acknowledges without changing anything.
type Reconciler struct {
	payments PaymentRepo
	bookings BookingRepo
	registry *providers.Registry
	notifier Notifier
}

func NewReconciler(payments PaymentRepo, bookings BookingRepo, registry *providers.Registry, notifier Notifier) *Reconciler {
	return &Reconciler{
		payments: payments,
		bookings: bookings,
		registry: registry,
		notifier: notifier,
	}
}

// webhookEvent is the normalized form every provider payload reduces to.
type webhookEvent struct {
	Reference     string
	TransactionID string
	Status        string
	Amount        int64
	FailureReason string
}

// Process authenticates, parses, and applies one webhook delivery.
// A nil return means the delivery is acknowledged (applied or no-op);
// AppError codes map to the HTTP responses the provider expects.
func (r *Reconciler) Process(providerName string, rawBody []byte, signature string) error {
	adapter, ok := r.registry.Get(providerName)
	if !ok {
		return utils.NotFoundError("Unknown payment provider", nil)
	}
	if !adapter.VerifyWebhookSignature(rawBody, signature) {
		utils.LogError("Webhook signature verification failed for %s", providerName)
		return utils.UnauthorizedError("Invalid webhook signature", nil)
	}

	event, err := parseWebhookEvent(providerName, rawBody)
	if err != nil {
		utils.LogError("Webhook payload parse failed for %s: %v", providerName, err)
		return utils.BadRequestError("Malformed webhook payload", err)
	}

	payment, err := r.resolvePayment(event)
	if err != nil {
		utils.LogError("Webhook for %s references unknown payment (ref=%s tx=%s)",
			providerName, event.Reference, event.TransactionID)
		return utils.NotFoundError("Payment not found", err)
	}

	return r.Apply(payment, event)
}

// resolvePayment looks the payment up by whichever correlation key the
// event carries.
func (r *Reconciler) resolvePayment(event *webhookEvent) (*models.Payment, error) {
	if event.Reference != "" {
		if payment, err := r.payments.FindByAnyRef(event.Reference); err == nil {
			return payment, nil
		}
	}
	if event.TransactionID != "" {
		return r.payments.FindByAnyRef(event.TransactionID)
	}
	return nil, fmt.Errorf("event carries no correlation key")
}

// Apply moves the payment according to the event, exactly once. Amount
// integrity is checked before any terminal transition: a mismatched amount
// never completes a payment, it flags the record for operator review and
// acknowledges the delivery.
func (r *Reconciler) Apply(payment *models.Payment, event *webhookEvent) error {
	target, from, ok := r.targetStatus(payment, event.Status)
	if !ok {
		// Intermediate provider states carry no transition for us.
		utils.LogDebug("Webhook for payment %s carries non-terminal status %s", payment.ID, event.Status)
		return nil
	}

	settling := target == models.PaymentStatusCompleted || target == models.PaymentStatusHeld
	if settling && event.Amount > 0 && event.Amount != payment.Amount {
		reason := fmt.Sprintf("amount mismatch: provider reported %d, expected %d",
			event.Amount, payment.Amount)
		if err := r.payments.FlagReview(payment.ID, reason); err != nil {
			utils.LogError("Failed to flag payment %s for review: %v", payment.ID, err)
			return utils.NewAppError(500, "Failed to record review flag", err)
		}
		utils.LogError("Payment %s flagged for review: %s", payment.ID, reason)
		r.notifier.NotifyOperators(
			"Payment amount mismatch",
			fmt.Sprintf("Payment %s on booking %s: %s", payment.ID, payment.BookingID, reason),
			payment.BookingID,
		)
		return nil
	}

	now := time.Now()
	extra := map[string]interface{}{"processed_at": &now}
	if event.TransactionID != "" {
		extra["provider_transaction_id"] = event.TransactionID
	}
	if target == models.PaymentStatusFailed && event.FailureReason != "" {
		extra["failure_reason"] = event.FailureReason
	}

	applied, current, err := r.payments.Transition(payment.ID, target, from, extra)
	if err != nil {
		return utils.NewAppError(500, "Failed to apply payment transition", err)
	}
	if !applied {
		if current == target {
			// Duplicate delivery; already applied.
			utils.LogDebug("Duplicate webhook for payment %s (status %s)", payment.ID, current)
			return nil
		}
		// Out-of-order delivery against a payment that already settled
		// differently. The settled state wins; log and acknowledge.
		utils.LogInfo("Stale webhook for payment %s: event wants %s, record is %s",
			payment.ID, target, current)
		return nil
	}

	utils.LogInfo("Payment %s transitioned to %s via webhook", payment.ID, target)
	r.cascade(payment, target)
	return nil
}

// targetStatus maps a normalized provider status onto the payment's own
// target state and the set of states the record must currently be in. A
// successful settlement of a HOLD intent lands on HELD, not COMPLETED: the
// money is reserved, not earned.
func (r *Reconciler) targetStatus(payment *models.Payment, providerStatus string) (string, []string, bool) {
	open := []string{models.PaymentStatusPending, models.PaymentStatusProcessing}
	switch providerStatus {
	case models.PaymentStatusCompleted:
		if payment.Intent == models.PaymentIntentHold {
			return models.PaymentStatusHeld, open, true
		}
		return models.PaymentStatusCompleted, open, true
	case models.PaymentStatusHeld:
		return models.PaymentStatusHeld, open, true
	case models.PaymentStatusFailed:
		return models.PaymentStatusFailed, open, true
	case models.PaymentStatusRefunded:
		// Provider-initiated reversal of an already-settled charge.
		return models.PaymentStatusRefunded, []string{models.PaymentStatusCompleted}, true
	}
	return "", nil, false
}

// cascade performs the booking-side effects of a settled payment.
func (r *Reconciler) cascade(payment *models.Payment, target string) {
	switch target {
	case models.PaymentStatusCompleted:
		if payment.PaymentType == models.PaymentTypeBookingPayment {
			r.confirmBooking(payment)
		}
		r.notifier.Notify(payment.UserID, models.NotificationPaymentSuccess,
			"Payment received",
			fmt.Sprintf("Your payment of %s was received.", utils.FormatAmount(payment.Amount, payment.Currency)),
			payment.BookingID)

	case models.PaymentStatusHeld:
		r.notifier.Notify(payment.UserID, models.NotificationPaymentSuccess,
			"Security deposit held",
			fmt.Sprintf("A security deposit of %s is now held for your booking.",
				utils.FormatAmount(payment.Amount, payment.Currency)),
			payment.BookingID)

	case models.PaymentStatusFailed:
		if payment.PaymentType == models.PaymentTypeBookingPayment {
			r.cancelBooking(payment, []string{models.BookingStatusPending})
		}
		r.notifier.Notify(payment.UserID, models.NotificationPaymentFailed,
			"Payment failed",
			fmt.Sprintf("Your payment of %s could not be processed. Please try a different payment method.",
				utils.FormatAmount(payment.Amount, payment.Currency)),
			payment.BookingID)

	case models.PaymentStatusRefunded:
		if payment.PaymentType == models.PaymentTypeBookingPayment {
			r.cancelBooking(payment,
				[]string{models.BookingStatusPending, models.BookingStatusConfirmed})
		}
		r.notifier.Notify(payment.UserID, models.NotificationPaymentSuccess,
			"Payment refunded",
			fmt.Sprintf("Your payment of %s has been refunded.",
				utils.FormatAmount(payment.Amount, payment.Currency)),
			payment.BookingID)
	}
}

func (r *Reconciler) cancelBooking(payment *models.Payment, from []string) {
	now := time.Now()
	applied, current, err := r.bookings.Transition(
		payment.BookingID, models.BookingStatusCancelled, from,
		map[string]interface{}{"cancelled_at": &now},
	)
	if err != nil {
		utils.LogError("Failed to cancel booking %s after payment %s: %v",
			payment.BookingID, payment.ID, err)
		return
	}
	if !applied {
		utils.LogDebug("Booking %s not cancelled by payment %s (status %s)",
			payment.BookingID, payment.ID, current)
		return
	}
	utils.LogInfo("Booking %s cancelled by the settlement of payment %s",
		payment.BookingID, payment.ID)
}

func (r *Reconciler) confirmBooking(payment *models.Payment) {
	now := time.Now()
	applied, current, err := r.bookings.Transition(
		payment.BookingID, models.BookingStatusConfirmed,
		[]string{models.BookingStatusPending},
		map[string]interface{}{"confirmed_at": &now},
	)
	if err != nil {
		utils.LogError("Failed to confirm booking %s after payment %s: %v",
			payment.BookingID, payment.ID, err)
		return
	}
	if !applied {
		utils.LogDebug("Booking %s not confirmed by payment %s (status %s)",
			payment.BookingID, payment.ID, current)
		return
	}

	booking, err := r.bookings.FindByID(payment.BookingID)
	if err != nil {
		return
	}
	r.notifier.Notify(booking.UserID, models.NotificationBookingConfirmed,
		"Booking confirmed",
		fmt.Sprintf("Your booking %s is confirmed.", booking.ConfirmationNumber),
		booking.ID)
	r.notifier.Notify(booking.HostID, models.NotificationBookingConfirmed,
		"New confirmed booking",
		fmt.Sprintf("Booking %s has been paid and confirmed.", booking.ConfirmationNumber),
		booking.ID)
}

// Provider payload shapes. Each rail has its own envelope; all of them
// reduce to a webhookEvent.

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				Amount           int64  `json:"amount"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type mtnWebhook struct {
	ReferenceID            string `json:"referenceId"`
	ExternalID             string `json:"externalId"`
	Status                 string `json:"status"`
	Amount                 string `json:"amount"`
	FinancialTransactionID string `json:"financialTransactionId"`
	Reason                 string `json:"reason"`
}

type airtelWebhook struct {
	Transaction struct {
		ID            string `json:"id"`
		AirtelMoneyID string `json:"airtel_money_id"`
		StatusCode    string `json:"status_code"`
		Amount        string `json:"amount"`
		Message       string `json:"message"`
	} `json:"transaction"`
}

type zamtelWebhook struct {
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Message       string `json:"message"`
}

func parseWebhookEvent(providerName string, rawBody []byte) (*webhookEvent, error) {
	switch providerName {
	case models.ProviderRazorpay:
		var w razorpayWebhook
		if err := json.Unmarshal(rawBody, &w); err != nil {
			return nil, err
		}
		entity := w.Payload.Payment.Entity
		if entity.ID == "" && entity.OrderID == "" {
			return nil, fmt.Errorf("event %q carries no payment entity", w.Event)
		}
		event := &webhookEvent{
			Reference:     entity.OrderID,
			TransactionID: entity.ID,
			Amount:        entity.Amount,
			FailureReason: entity.ErrorDescription,
		}
		switch entity.Status {
		case "captured":
			event.Status = models.PaymentStatusCompleted
		case "authorized":
			event.Status = models.PaymentStatusHeld
		case "refunded":
			event.Status = models.PaymentStatusRefunded
		case "failed":
			event.Status = models.PaymentStatusFailed
		default:
			event.Status = models.PaymentStatusProcessing
		}
		return event, nil

	case models.ProviderMTNMoMo:
		var w mtnWebhook
		if err := json.Unmarshal(rawBody, &w); err != nil {
			return nil, err
		}
		reference := w.ReferenceID
		if reference == "" {
			reference = w.ExternalID
		}
		if reference == "" && w.FinancialTransactionID == "" {
			return nil, fmt.Errorf("event carries no reference")
		}
		amount, err := minorUnitsFromDecimal(w.Amount)
		if err != nil {
			return nil, err
		}
		event := &webhookEvent{
			Reference:     reference,
			TransactionID: w.FinancialTransactionID,
			Amount:        amount,
			FailureReason: w.Reason,
		}
		switch w.Status {
		case "SUCCESSFUL":
			event.Status = models.PaymentStatusCompleted
		case "FAILED":
			event.Status = models.PaymentStatusFailed
		default:
			event.Status = models.PaymentStatusProcessing
		}
		return event, nil

	case models.ProviderAirtelMoney:
		var w airtelWebhook
		if err := json.Unmarshal(rawBody, &w); err != nil {
			return nil, err
		}
		if w.Transaction.ID == "" && w.Transaction.AirtelMoneyID == "" {
			return nil, fmt.Errorf("event carries no transaction")
		}
		amount, err := minorUnitsFromDecimal(w.Transaction.Amount)
		if err != nil {
			return nil, err
		}
		event := &webhookEvent{
			Reference:     w.Transaction.ID,
			TransactionID: w.Transaction.AirtelMoneyID,
			Amount:        amount,
			FailureReason: w.Transaction.Message,
		}
		switch w.Transaction.StatusCode {
		case "TS":
			event.Status = models.PaymentStatusCompleted
		case "TF":
			event.Status = models.PaymentStatusFailed
		default:
			event.Status = models.PaymentStatusProcessing
		}
		return event, nil

	case models.ProviderZamtelKwacha:
		var w zamtelWebhook
		if err := json.Unmarshal(rawBody, &w); err != nil {
			return nil, err
		}
		if w.Reference == "" && w.TransactionID == "" {
			return nil, fmt.Errorf("event carries no reference")
		}
		amount, err := minorUnitsFromDecimal(w.Amount)
		if err != nil {
			return nil, err
		}
		event := &webhookEvent{
			Reference:     w.Reference,
			TransactionID: w.TransactionID,
			Amount:        amount,
			FailureReason: w.Message,
		}
		switch w.Status {
		case "SUCCESS":
			event.Status = models.PaymentStatusCompleted
		case "FAILED":
			event.Status = models.PaymentStatusFailed
		default:
			event.Status = models.PaymentStatusProcessing
		}
		return event, nil
	}
	return nil, fmt.Errorf("no payload parser for provider %s", providerName)
}

// minorUnitsFromDecimal converts a rail's decimal amount string. A missing
// amount is fine, but a present one that does not parse makes the payload
// malformed: treating it as zero would silently skip the amount check.
func minorUnitsFromDecimal(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	value, err := utils.ToMinorUnitsString(s)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q: %w", s, err)
	}
	return value, nil
}
