package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zemo-mobility/ZemoPay/models"
	"github.com/zemo-mobility/ZemoPay/providers"
	"github.com/zemo-mobility/ZemoPay/store"
)

// In-memory repositories. Transition semantics mirror the store package:
// a single compare-and-set guarded by a mutex.

type memPayments struct {
	mu   sync.Mutex
	rows map[string]*models.Payment
}

func newMemPayments() *memPayments {
	return &memPayments{rows: make(map[string]*models.Payment)}
}

func (m *memPayments) Create(payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.CreatedAt = time.Now()
	clone := *payment
	m.rows[payment.ID] = &clone
	return nil
}

func (m *memPayments) FindByID(id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (m *memPayments) FindByAnyRef(ref string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == ref || row.ProviderReference == ref || row.ProviderTransactionID == ref {
			clone := *row
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memPayments) FindByBooking(bookingID string) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var payments []models.Payment
	for _, row := range m.rows {
		if row.BookingID == bookingID {
			payments = append(payments, *row)
		}
	}
	return payments, nil
}

func (m *memPayments) FindHeldDeposit(bookingID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.BookingID == bookingID &&
			row.PaymentType == models.PaymentTypeSecurityDeposit &&
			row.Status == models.PaymentStatusHeld {
			clone := *row
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memPayments) Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, "", store.ErrNotFound
	}
	matched := false
	for _, status := range from {
		if row.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, row.Status, nil
	}
	row.Status = to
	applyPaymentExtra(row, extra)
	return true, to, nil
}

func applyPaymentExtra(row *models.Payment, extra map[string]interface{}) {
	for key, value := range extra {
		switch key {
		case "provider_reference":
			row.ProviderReference = value.(string)
		case "provider_transaction_id":
			row.ProviderTransactionID = value.(string)
		case "failure_reason":
			row.FailureReason = value.(string)
		case "processed_at":
			row.ProcessedAt = value.(*time.Time)
		}
	}
}

func (m *memPayments) FlagReview(id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	row.ReviewRequired = true
	row.FailureReason = reason
	return nil
}

type memBookings struct {
	mu   sync.Mutex
	rows map[string]*models.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{rows: make(map[string]*models.Booking)}
}

func (m *memBookings) add(booking *models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	clone := *booking
	m.rows[booking.ID] = &clone
}

func (m *memBookings) Create(booking *models.Booking) error {
	m.add(booking)
	return nil
}

func (m *memBookings) FindByID(id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (m *memBookings) Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, "", store.ErrNotFound
	}
	matched := false
	for _, status := range from {
		if row.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, row.Status, nil
	}
	row.Status = to
	for key, value := range extra {
		switch key {
		case "confirmed_at":
			row.ConfirmedAt = value.(*time.Time)
		case "cancelled_at":
			row.CancelledAt = value.(*time.Time)
		case "completed_at":
			row.CompletedAt = value.(*time.Time)
		}
	}
	return true, to, nil
}

func (m *memBookings) ExtendSchedule(id string, fromEnd, newEnd time.Time, addDays int, addAmount int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if !row.EndDate.Equal(fromEnd) {
		return false, nil
	}
	if row.Status != models.BookingStatusConfirmed && row.Status != models.BookingStatusActive {
		return false, nil
	}
	row.EndDate = newEnd
	row.TotalDays += addDays
	row.TotalAmount += addAmount
	return true, nil
}

func (m *memBookings) FindConflicting(vehicleID, excludeBookingID string, start, end time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var conflicts []models.Booking
	for _, row := range m.rows {
		if row.VehicleID != vehicleID || row.ID == excludeBookingID {
			continue
		}
		if row.Status != models.BookingStatusConfirmed && row.Status != models.BookingStatusActive {
			continue
		}
		if !row.StartDate.After(end) && !row.EndDate.Before(start) {
			conflicts = append(conflicts, *row)
		}
	}
	return conflicts, nil
}

func (m *memBookings) FindDueToActivate(now time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []models.Booking
	for _, row := range m.rows {
		if row.Status == models.BookingStatusConfirmed && !row.StartDate.After(now) {
			due = append(due, *row)
		}
	}
	return due, nil
}

func (m *memBookings) FindDueToComplete(now time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []models.Booking
	for _, row := range m.rows {
		if row.Status == models.BookingStatusActive && !row.EndDate.After(now) {
			due = append(due, *row)
		}
	}
	return due, nil
}

type memVehicles struct {
	mu   sync.Mutex
	rows map[string]*models.Vehicle
}

func newMemVehicles() *memVehicles {
	return &memVehicles{rows: make(map[string]*models.Vehicle)}
}

func (m *memVehicles) add(vehicle *models.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vehicle.ID == "" {
		vehicle.ID = uuid.NewString()
	}
	clone := *vehicle
	m.rows[vehicle.ID] = &clone
}

func (m *memVehicles) FindByID(id string) (*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

type memExtensions struct {
	mu   sync.Mutex
	rows map[string]*models.TripExtension

	// beforeCreate runs just before the uniqueness check, letting tests
	// interleave a competing insert.
	beforeCreate func()
}

func newMemExtensions() *memExtensions {
	return &memExtensions{rows: make(map[string]*models.TripExtension)}
}

func (m *memExtensions) Create(extension *models.TripExtension) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirrors the partial unique index on PENDING extensions.
	if extension.Status == models.ExtensionStatusPending {
		for _, row := range m.rows {
			if row.BookingID == extension.BookingID && row.Status == models.ExtensionStatusPending {
				return store.ErrDuplicate
			}
		}
	}
	if extension.ID == "" {
		extension.ID = uuid.NewString()
	}
	clone := *extension
	m.rows[extension.ID] = &clone
	return nil
}

func (m *memExtensions) FindByID(id string) (*models.TripExtension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (m *memExtensions) FindByBooking(bookingID string) ([]models.TripExtension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var extensions []models.TripExtension
	for _, row := range m.rows {
		if row.BookingID == bookingID {
			extensions = append(extensions, *row)
		}
	}
	return extensions, nil
}

func (m *memExtensions) HasPending(bookingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.BookingID == bookingID && row.Status == models.ExtensionStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memExtensions) Respond(id, to string, extra map[string]interface{}) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, "", store.ErrNotFound
	}
	if row.Status != models.ExtensionStatusPending {
		return false, row.Status, nil
	}
	row.Status = to
	for key, value := range extra {
		switch key {
		case "responded_by":
			row.RespondedBy = value.(string)
		case "response_message":
			row.ResponseMessage = value.(string)
		case "decline_reason":
			row.DeclineReason = value.(string)
		case "responded_at":
			row.RespondedAt = value.(*time.Time)
		case "approved_at":
			row.ApprovedAt = value.(*time.Time)
		}
	}
	return true, to, nil
}

type memAdjustments struct {
	mu   sync.Mutex
	rows map[string]*models.DepositAdjustment
}

func newMemAdjustments() *memAdjustments {
	return &memAdjustments{rows: make(map[string]*models.DepositAdjustment)}
}

func (m *memAdjustments) Create(adjustment *models.DepositAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if adjustment.ID == "" {
		adjustment.ID = uuid.NewString()
	}
	clone := *adjustment
	m.rows[adjustment.ID] = &clone
	return nil
}

func (m *memAdjustments) FindByID(id string) (*models.DepositAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (m *memAdjustments) FindByBooking(bookingID string) ([]models.DepositAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var adjustments []models.DepositAdjustment
	for _, row := range m.rows {
		if row.BookingID == bookingID {
			adjustments = append(adjustments, *row)
		}
	}
	return adjustments, nil
}

func (m *memAdjustments) Transition(id, to string, from []string, extra map[string]interface{}) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, "", store.ErrNotFound
	}
	matched := false
	for _, status := range from {
		if row.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, row.Status, nil
	}
	row.Status = to
	for key, value := range extra {
		switch key {
		case "justification":
			row.Justification = value.(string)
		case "processed_by":
			row.ProcessedBy = value.(string)
		case "processed_at":
			row.ProcessedAt = value.(*time.Time)
		case "adjustment_amount":
			row.AdjustmentAmount = value.(int64)
		case "final_deposit_return":
			row.FinalDepositReturn = value.(int64)
		}
	}
	return true, to, nil
}

// fakeNotifier records every notification for assertions.
type fakeNotifier struct {
	mu             sync.Mutex
	notifications  []fakeNotification
	operatorAlerts []fakeNotification
}

type fakeNotification struct {
	UserID    string
	Type      string
	Title     string
	BookingID string
}

func (f *fakeNotifier) Notify(userID, notificationType, title, message, bookingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, fakeNotification{
		UserID: userID, Type: notificationType, Title: title, BookingID: bookingID,
	})
}

func (f *fakeNotifier) NotifyOperators(title, message, bookingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operatorAlerts = append(f.operatorAlerts, fakeNotification{
		Title: title, BookingID: bookingID,
	})
}

func (f *fakeNotifier) typeCount(notificationType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.notifications {
		if n.Type == notificationType {
			count++
		}
	}
	return count
}

// fakeAdapter is a scriptable payment rail.
type fakeAdapter struct {
	name           string
	holds          bool
	partialCapture bool
	signatureValid bool

	createErr  error
	captureErr error
	releaseErr error
	refundErr  error
	verify     *providers.Status
	verifyErr  error

	captured []int64
}

func (f *fakeAdapter) Name() string                 { return f.name }
func (f *fakeAdapter) SupportsHolds() bool          { return f.holds }
func (f *fakeAdapter) SupportsPartialCapture() bool { return f.partialCapture }
func (f *fakeAdapter) SignatureHeader() string      { return "x-signature" }

func (f *fakeAdapter) CreatePayment(_ context.Context, req providers.Request) (*providers.Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &providers.Intent{Reference: "ref-" + req.Reference}, nil
}

func (f *fakeAdapter) CreateHold(_ context.Context, req providers.Request) (*providers.Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &providers.Intent{Reference: "hold-" + req.Reference}, nil
}

func (f *fakeAdapter) Capture(_ context.Context, reference string, amount int64) (*providers.Result, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	f.captured = append(f.captured, amount)
	return &providers.Result{TransactionID: "cap-" + reference, Status: models.PaymentStatusCompleted}, nil
}

func (f *fakeAdapter) Release(_ context.Context, reference string) (*providers.Result, error) {
	if f.releaseErr != nil {
		return nil, f.releaseErr
	}
	return &providers.Result{TransactionID: reference, Status: models.PaymentStatusReleased}, nil
}

func (f *fakeAdapter) Refund(_ context.Context, reference string, amount int64) (*providers.Result, error) {
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	return &providers.Result{TransactionID: "rfnd-" + reference, Status: models.PaymentStatusRefunded}, nil
}

func (f *fakeAdapter) Verify(_ context.Context, reference string) (*providers.Status, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if f.verify != nil {
		return f.verify, nil
	}
	return &providers.Status{Reference: reference, Status: models.PaymentStatusPending}, nil
}

func (f *fakeAdapter) VerifyWebhookSignature(_ []byte, signature string) bool {
	if f.signatureValid {
		return true
	}
	return signature == "good-signature"
}

var _ providers.Adapter = (*fakeAdapter)(nil)

func retryableErr(provider string) error {
	return &providers.Error{Provider: provider, Code: "network", Message: "timeout", Retryable: true}
}

func terminalErr(provider string) error {
	return &providers.Error{Provider: provider, Code: "declined", Message: fmt.Sprintf("%s declined", provider)}
}
