package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/utils"
)

func newTestPaymentService(adapter providers.Adapter) (*PaymentService, *memPayments, *memBookings, *fakeNotifier) {
	payments := newMemPayments()
	bookings := newMemBookings()
	notifier := &fakeNotifier{}
	registry := providers.NewRegistry(adapter)
	reconciler := NewReconciler(payments, bookings, registry, notifier)
	svc := NewPaymentService(payments, bookings, registry, reconciler, notifier)
	return svc, payments, bookings, notifier
}

func seedPendingBooking(bookings *memBookings) *models.Booking {
	booking := &models.Booking{
		ID:                 "bk-1",
		ConfirmationNumber: "ZB-PAY1",
		UserID:             "renter-1",
		HostID:             "host-1",
		VehicleID:          "veh-1",
		Status:             models.BookingStatusPending,
		TotalAmount:        113400,
		SecurityDeposit:    60000,
	}
	bookings.add(booking)
	return booking
}

func TestCreateBookingPaymentUsesBookingAmount(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, _, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	result, err := svc.CreateBookingPayment(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderMTNMoMo,
		PhoneNumber: "0971234567",
	})
	require.NoError(t, err)

	// Amount comes from the booking, and the phone is normalized.
	assert.Equal(t, int64(113400), result.Payment.Amount)
	assert.Equal(t, "+260971234567", result.Payment.PhoneNumber)
	assert.Equal(t, models.PaymentStatusProcessing, result.Payment.Status)
	assert.NotEmpty(t, result.Payment.ProviderReference)
}

func TestCreateBookingPaymentRejectsOtherUsers(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, _, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	_, err := svc.CreateBookingPayment(context.Background(), "renter-2", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderMTNMoMo,
		PhoneNumber: "0971234567",
	})
	require.Error(t, err)
	assert.True(t, utils.IsForbiddenError(err))
}

func TestCreateBookingPaymentRejectsBadPhone(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, _, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	_, err := svc.CreateBookingPayment(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderMTNMoMo,
		PhoneNumber: "12345",
	})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestCreateBookingPaymentTransientFailureStaysPending(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo, createErr: retryableErr(models.ProviderMTNMoMo)}
	svc, payments, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	_, err := svc.CreateBookingPayment(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderMTNMoMo,
		PhoneNumber: "0971234567",
	})
	require.Error(t, err)
	assert.True(t, utils.IsRetryableError(err))

	// The intent survives for the retry.
	rows, ferr := payments.FindByBooking(booking.ID)
	require.NoError(t, ferr)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PaymentStatusPending, rows[0].Status)
}

func TestCreateBookingPaymentTerminalFailureMarksFailed(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo, createErr: terminalErr(models.ProviderMTNMoMo)}
	svc, payments, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	_, err := svc.CreateBookingPayment(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderMTNMoMo,
		PhoneNumber: "0971234567",
	})
	require.Error(t, err)
	assert.False(t, utils.IsRetryableError(err))

	rows, ferr := payments.FindByBooking(booking.ID)
	require.NoError(t, ferr)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PaymentStatusFailed, rows[0].Status)
	assert.NotEmpty(t, rows[0].FailureReason)
}

func TestCreateDepositHoldOnMobileRailIsHeldImmediately(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderAirtelMoney}
	svc, _, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)
	_, _, err := bookings.Transition(booking.ID, models.BookingStatusConfirmed,
		[]string{models.BookingStatusPending}, nil)
	require.NoError(t, err)

	result, err := svc.CreateDepositHold(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderAirtelMoney,
		PhoneNumber: "0971234567",
	})
	require.NoError(t, err)

	// No real hold on this rail: the record is HELD and no money moved.
	assert.Equal(t, models.PaymentStatusHeld, result.Payment.Status)
	assert.Equal(t, int64(60000), result.Payment.Amount)
	assert.Equal(t, models.PaymentIntentHold, result.Payment.Intent)
}

func TestCreateDepositHoldOnCardRailWaitsForSettlement(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: true}
	svc, _, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)
	_, _, err := bookings.Transition(booking.ID, models.BookingStatusConfirmed,
		[]string{models.BookingStatusPending}, nil)
	require.NoError(t, err)

	result, herr := svc.CreateDepositHold(context.Background(), "renter-1", CreatePaymentInput{
		BookingID: booking.ID,
		Provider:  models.ProviderRazorpay,
	})
	require.NoError(t, herr)
	assert.Equal(t, models.PaymentStatusProcessing, result.Payment.Status)
}

func TestCreateDepositHoldRequiresConfirmedBooking(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderAirtelMoney}
	svc, _, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	_, err := svc.CreateDepositHold(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderAirtelMoney,
		PhoneNumber: "0971234567",
	})
	require.Error(t, err)
	appErr := utils.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.Code)
}

func TestConfirmPaymentSettlesViaProviderVerify(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, _, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	result, err := svc.CreateBookingPayment(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderMTNMoMo,
		PhoneNumber: "0971234567",
	})
	require.NoError(t, err)

	adapter.verify = &providers.Status{
		Reference:     result.Payment.ProviderReference,
		TransactionID: "fin-1",
		Status:        models.PaymentStatusCompleted,
		Amount:        113400,
	}

	confirmed, err := svc.ConfirmPayment(context.Background(), "renter-1", result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, confirmed.Status)

	updated, err := bookings.FindByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
}

func TestConfirmAfterWebhookReturnsSettledRecord(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, notifier := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	result, err := svc.CreateBookingPayment(context.Background(), "renter-1", CreatePaymentInput{
		BookingID:   booking.ID,
		Provider:    models.ProviderMTNMoMo,
		PhoneNumber: "0971234567",
	})
	require.NoError(t, err)

	// The webhook settles the payment first.
	applied, _, err := payments.Transition(result.Payment.ID, models.PaymentStatusCompleted,
		[]string{models.PaymentStatusProcessing}, nil)
	require.NoError(t, err)
	require.True(t, applied)

	confirmed, err := svc.ConfirmPayment(context.Background(), "renter-1", result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, confirmed.Status)
	assert.Equal(t, 0, notifier.typeCount(models.NotificationPaymentSuccess),
		"terminal payment short-circuits, no duplicate cascade")
}

func TestFullRefundMarksOriginalRefunded(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	payment := &models.Payment{
		ID:                    "pay-1",
		BookingID:             booking.ID,
		UserID:                "renter-1",
		Amount:                113400,
		Currency:              "ZMW",
		PaymentType:           models.PaymentTypeBookingPayment,
		Provider:              models.ProviderMTNMoMo,
		Status:                models.PaymentStatusCompleted,
		ProviderTransactionID: "fin-1",
	}
	require.NoError(t, payments.Create(payment))

	refund, err := svc.Refund(context.Background(), RefundInput{PaymentID: "pay-1", Reason: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeRefund, refund.PaymentType)
	assert.Equal(t, int64(113400), refund.Amount)

	original, err := payments.FindByID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, original.Status)

	cancelled, err := bookings.FindByID(booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
}

func TestPartialRefundLeavesOriginalCompleted(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	payment := &models.Payment{
		ID:          "pay-1",
		BookingID:   booking.ID,
		UserID:      "renter-1",
		Amount:      113400,
		Currency:    "ZMW",
		PaymentType: models.PaymentTypeBookingPayment,
		Provider:    models.ProviderMTNMoMo,
		Status:      models.PaymentStatusCompleted,
	}
	require.NoError(t, payments.Create(payment))

	refund, err := svc.Refund(context.Background(), RefundInput{
		PaymentID: "pay-1", Amount: 50000, Reason: "goodwill",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypePartialRefund, refund.PaymentType)

	original, err := payments.FindByID("pay-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, original.Status)
}

func TestRefundRejectsExcessAmount(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _ := newTestPaymentService(adapter)
	booking := seedPendingBooking(bookings)

	payment := &models.Payment{
		ID:        "pay-1",
		BookingID: booking.ID,
		UserID:    "renter-1",
		Amount:    113400,
		Currency:  "ZMW",
		Provider:  models.ProviderMTNMoMo,
		Status:    models.PaymentStatusCompleted,
	}
	require.NoError(t, payments.Create(payment))

	_, err := svc.Refund(context.Background(), RefundInput{PaymentID: "pay-1", Amount: 200000})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}
