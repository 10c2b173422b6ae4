package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/utils"
)

func newTestDepositService(adapter providers.Adapter) (*DepositService, *memPayments, *memBookings, *memAdjustments, *fakeNotifier) {
	payments := newMemPayments()
	bookings := newMemBookings()
	adjustments := newMemAdjustments()
	notifier := &fakeNotifier{}
	registry := providers.NewRegistry(adapter)
	svc := NewDepositService(payments, bookings, adjustments, registry, notifier)
	return svc, payments, bookings, adjustments, notifier
}

func seedCompletedTripWithDeposit(payments *memPayments, bookings *memBookings, provider string) (*models.Booking, *models.Payment) {
	now := time.Now()
	booking := &models.Booking{
		ID:                 "bk-1",
		ConfirmationNumber: "ZB-DEP1",
		UserID:             "renter-1",
		HostID:             "host-1",
		VehicleID:          "veh-1",
		Status:             models.BookingStatusCompleted,
		CompletedAt:        &now,
		SecurityDeposit:    60000,
	}
	bookings.add(booking)

	deposit := &models.Payment{
		ID:                "dep-1",
		BookingID:         booking.ID,
		UserID:            booking.UserID,
		Amount:            60000,
		Currency:          "ZMW",
		PaymentType:       models.PaymentTypeSecurityDeposit,
		Intent:            models.PaymentIntentHold,
		Provider:          provider,
		PhoneNumber:       "+260971234567",
		Status:            models.PaymentStatusHeld,
		ProviderReference: "hold-ref-1",
	}
	_ = payments.Create(deposit)
	return booking, deposit
}

func TestReleaseReturnsHeldDeposit(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _, notifier := newTestDepositService(adapter)
	booking, deposit := seedCompletedTripWithDeposit(payments, bookings, models.ProviderMTNMoMo)

	released, err := svc.Release(context.Background(), booking.HostID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, released.Status)
	assert.NotNil(t, released.ProcessedAt)
	assert.Equal(t, deposit.ID, released.ID)

	assert.Equal(t, 1, notifier.typeCount(models.NotificationDepositReleased))
}

func TestReleaseTwiceIsIdempotent(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderMTNMoMo)

	_, err := svc.Release(context.Background(), booking.HostID, booking.ID)
	require.NoError(t, err)

	again, err := svc.Release(context.Background(), booking.HostID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReleased, again.Status)
}

func TestReleaseRequiresCompletedTrip(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderMTNMoMo)

	_, _, err := bookings.Transition(booking.ID, models.BookingStatusActive,
		[]string{models.BookingStatusCompleted}, nil)
	require.NoError(t, err)

	_, rerr := svc.Release(context.Background(), booking.HostID, booking.ID)
	require.Error(t, rerr)
	appErr := utils.GetAppError(rerr)
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.Code)
}

func TestReleaseRequiresTheHost(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderMTNMoMo)

	_, err := svc.Release(context.Background(), "renter-1", booking.ID)
	require.Error(t, err)
	assert.True(t, utils.IsForbiddenError(err))
}

func TestCaptureOnCardRailSettlesDeposit(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: true}
	svc, payments, bookings, _, notifier := newTestDepositService(adapter)
	booking, deposit := seedCompletedTripWithDeposit(payments, bookings, models.ProviderRazorpay)

	charge, err := svc.CaptureForDamage(context.Background(), booking.HostID, CaptureInput{
		BookingID: booking.ID,
		Amount:    25000,
		Reason:    "scratched rear bumper",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeDamageCharge, charge.PaymentType)
	assert.Equal(t, models.PaymentStatusCompleted, charge.Status)
	assert.Equal(t, int64(25000), charge.Amount)
	assert.Equal(t, []int64{25000}, adapter.captured)

	settled, err := payments.FindByID(deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, settled.Status)

	assert.Equal(t, 1, notifier.typeCount(models.NotificationDamageCharge))
}

func TestCaptureCannotExceedHeldAmount(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: true}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderRazorpay)

	_, err := svc.CaptureForDamage(context.Background(), booking.HostID, CaptureInput{
		BookingID: booking.ID,
		Amount:    60001,
		Reason:    "totaled",
	})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
	assert.Empty(t, adapter.captured)
}

func TestCaptureRejectsNonPositiveAmount(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: true}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderRazorpay)

	_, err := svc.CaptureForDamage(context.Background(), booking.HostID, CaptureInput{
		BookingID: booking.ID,
		Amount:    0,
		Reason:    "nothing",
	})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestCaptureOnMobileRailIsRefused(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, deposit := seedCompletedTripWithDeposit(payments, bookings, models.ProviderMTNMoMo)

	// Mobile-money holds are logical; there is nothing to capture against.
	_, err := svc.CaptureForDamage(context.Background(), booking.HostID, CaptureInput{
		BookingID: booking.ID,
		Amount:    30000,
		Reason:    "fuel not replaced",
	})
	require.Error(t, err)
	assert.True(t, utils.IsConflictError(err))
	assert.False(t, utils.IsRetryableError(err))
	assert.Empty(t, adapter.captured)

	// The deposit stays HELD and no charge record is opened.
	held, err := payments.FindByID(deposit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusHeld, held.Status)

	rows, err := payments.FindByBooking(booking.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PaymentTypeSecurityDeposit, rows[0].PaymentType)
}

func TestCaptureRequiresPartialCaptureSupport(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: false}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, deposit := seedCompletedTripWithDeposit(payments, bookings, models.ProviderRazorpay)

	_, err := svc.CaptureForDamage(context.Background(), booking.HostID, CaptureInput{
		BookingID: booking.ID,
		Amount:    deposit.Amount,
		Reason:    "totaled",
	})
	require.Error(t, err)
	assert.True(t, utils.IsConflictError(err))
	assert.Empty(t, adapter.captured)
}

func TestProcessAdjustmentOnMobileRailIsRefused(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderMTNMoMo}
	svc, payments, bookings, adjustments, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderMTNMoMo)

	adjustment, err := svc.CreateAdjustment(booking.HostID, AdjustmentInput{
		BookingID:     booking.ID,
		DamageCharges: 20000,
		Justification: "scratch",
	})
	require.NoError(t, err)
	_, err = svc.Approve("admin-1", adjustment.ID)
	require.NoError(t, err)

	_, err = svc.ProcessAdjustment(context.Background(), "admin-1", adjustment.ID)
	require.Error(t, err)
	assert.True(t, utils.IsConflictError(err))

	stored, err := adjustments.FindByID(adjustment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusApproved, stored.Status, "adjustment awaits a capture-capable path")
}

func TestAdjustmentLifecycle(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: true}
	svc, payments, bookings, adjustments, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderRazorpay)

	adjustment, err := svc.CreateAdjustment(booking.HostID, AdjustmentInput{
		BookingID:     booking.ID,
		DamageCharges: 20000,
		FuelCharges:   5000,
		Justification: "bumper scratch, empty tank",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusCalculated, adjustment.Status)
	assert.Equal(t, int64(25000), adjustment.AdjustmentAmount)
	assert.Equal(t, int64(35000), adjustment.FinalDepositReturn)

	approved, err := svc.Approve("admin-1", adjustment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusApproved, approved.Status)

	processed, err := svc.ProcessAdjustment(context.Background(), "admin-1", adjustment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusProcessed, processed.Status)
	assert.Equal(t, []int64{25000}, adapter.captured)

	stored, err := adjustments.FindByID(adjustment.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", stored.ProcessedBy)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestAdjustmentChargesCannotExceedDeposit(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: true}
	svc, payments, bookings, _, _ := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderRazorpay)

	_, err := svc.CreateAdjustment(booking.HostID, AdjustmentInput{
		BookingID:     booking.ID,
		DamageCharges: 50000,
		FuelCharges:   20000,
		Justification: "extensive damage",
	})
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
}

func TestDisputeBlocksProcessingUntilResolved(t *testing.T) {
	adapter := &fakeAdapter{name: models.ProviderRazorpay, holds: true, partialCapture: true}
	svc, payments, bookings, _, notifier := newTestDepositService(adapter)
	booking, _ := seedCompletedTripWithDeposit(payments, bookings, models.ProviderRazorpay)

	adjustment, err := svc.CreateAdjustment(booking.HostID, AdjustmentInput{
		BookingID:     booking.ID,
		DamageCharges: 20000,
		Justification: "scratch",
	})
	require.NoError(t, err)

	disputed, err := svc.Dispute("renter-1", adjustment.ID, "scratch was pre-existing")
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusDisputed, disputed.Status)
	require.Len(t, notifier.operatorAlerts, 1)

	_, err = svc.ProcessAdjustment(context.Background(), "admin-1", adjustment.ID)
	require.Error(t, err)

	resolved, err := svc.Resolve("admin-1", adjustment.ID, 10000, "split the difference")
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusResolved, resolved.Status)
	assert.Equal(t, int64(10000), resolved.AdjustmentAmount)
	assert.Equal(t, int64(50000), resolved.FinalDepositReturn)
}
