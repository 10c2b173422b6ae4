package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/zemo-mobility/ZemoPay/models"
	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
)

// Razorpay is the card rail. It is the only provider with true holds
// (authorize now, capture later) and partial capture.
type Razorpay struct {
	client        *razorpay.Client
	currency      string
	webhookSecret string
}

func NewRazorpay(key, secret, webhookSecret, currency string) *Razorpay {
	return &Razorpay{
		client:        razorpay.NewClient(key, secret),
		currency:      currency,
		webhookSecret: webhookSecret,
	}
}

func (r *Razorpay) Name() string                 { return models.ProviderRazorpay }
func (r *Razorpay) SupportsHolds() bool          { return true }
func (r *Razorpay) SupportsPartialCapture() bool { return true }
func (r *Razorpay) SignatureHeader() string      { return "X-Razorpay-Signature" }

// The SDK does not take a context; calls rely on its internal HTTP timeout.

func (r *Razorpay) CreatePayment(_ context.Context, req Request) (*Intent, error) {
	return r.createOrder(req, 1)
}

func (r *Razorpay) CreateHold(_ context.Context, req Request) (*Intent, error) {
	return r.createOrder(req, 0)
}

func (r *Razorpay) createOrder(req Request, capture int) (*Intent, error) {
	notes := map[string]interface{}{"reference": req.Reference}
	for k, v := range req.Metadata {
		notes[k] = v
	}
	orderData := map[string]interface{}{
		"amount":          req.Amount,
		"currency":        r.currency,
		"receipt":         req.Reference,
		"payment_capture": capture,
		"notes":           notes,
	}
	order, err := r.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, r.wrap("order create failed", err)
	}
	orderID := fmt.Sprintf("%v", order["id"])
	// The order id doubles as the client secret for the checkout widget.
	return &Intent{Reference: orderID, ClientSecret: orderID}, nil
}

func (r *Razorpay) Capture(_ context.Context, reference string, amount int64) (*Result, error) {
	payment, err := r.client.Payment.Capture(reference, int(amount), map[string]interface{}{
		"currency": r.currency,
	}, nil)
	if err != nil {
		return nil, r.wrap("capture failed", err)
	}
	return &Result{
		TransactionID: fmt.Sprintf("%v", payment["id"]),
		Status:        models.PaymentStatusCompleted,
	}, nil
}

func (r *Razorpay) Release(_ context.Context, reference string) (*Result, error) {
	// Razorpay has no void API; an authorized-but-uncaptured payment lapses
	// on the provider side. Confirm the payment is not captured, then
	// report the release.
	payment, err := r.client.Payment.Fetch(reference, nil, nil)
	if err != nil {
		return nil, r.wrap("payment fetch failed", err)
	}
	if fmt.Sprintf("%v", payment["status"]) == "captured" {
		return nil, &Error{
			Provider: r.Name(),
			Code:     "already_captured",
			Message:  "payment already captured, release not possible",
		}
	}
	return &Result{TransactionID: reference, Status: models.PaymentStatusReleased}, nil
}

func (r *Razorpay) Refund(_ context.Context, reference string, amount int64) (*Result, error) {
	refund, err := r.client.Payment.Refund(reference, int(amount), nil, nil)
	if err != nil {
		return nil, r.wrap("refund failed", err)
	}
	return &Result{
		TransactionID: fmt.Sprintf("%v", refund["id"]),
		Status:        models.PaymentStatusRefunded,
	}, nil
}

func (r *Razorpay) Verify(_ context.Context, reference string) (*Status, error) {
	if strings.HasPrefix(reference, "order_") {
		return r.verifyOrder(reference)
	}
	payment, err := r.client.Payment.Fetch(reference, nil, nil)
	if err != nil {
		return nil, r.wrap("payment fetch failed", err)
	}
	return paymentStatus(reference, payment), nil
}

// verifyOrder resolves the order's payments and reports the first one that
// reached a settled state.
func (r *Razorpay) verifyOrder(orderID string) (*Status, error) {
	resp, err := r.client.Order.Payments(orderID, nil, nil)
	if err != nil {
		return nil, r.wrap("order payments fetch failed", err)
	}
	items, _ := resp["items"].([]interface{})
	for _, item := range items {
		payment, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		st := paymentStatus(orderID, payment)
		if st.Status == models.PaymentStatusCompleted || st.Status == models.PaymentStatusHeld {
			return st, nil
		}
	}
	return &Status{Reference: orderID, Status: models.PaymentStatusPending}, nil
}

func paymentStatus(reference string, payment map[string]interface{}) *Status {
	st := &Status{
		Reference:     reference,
		TransactionID: fmt.Sprintf("%v", payment["id"]),
		Currency:      fmt.Sprintf("%v", payment["currency"]),
	}
	if amount, ok := payment["amount"].(float64); ok {
		st.Amount = int64(amount)
	}
	switch fmt.Sprintf("%v", payment["status"]) {
	case "captured":
		st.Status = models.PaymentStatusCompleted
	case "authorized":
		st.Status = models.PaymentStatusHeld
	case "refunded":
		st.Status = models.PaymentStatusRefunded
	case "failed":
		st.Status = models.PaymentStatusFailed
	default:
		st.Status = models.PaymentStatusPending
	}
	return st
}

func (r *Razorpay) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	return verifyHMACSHA256(rawBody, signatureHeader, r.webhookSecret)
}

// wrap classifies SDK errors: bad requests are terminal declines, server
// and gateway errors are retryable.
func (r *Razorpay) wrap(message string, err error) error {
	retryable := false
	switch err.(type) {
	case *rzperrors.ServerError, *rzperrors.GatewayError:
		retryable = true
	case *rzperrors.BadRequestError:
		retryable = false
	default:
		// Transport-level failures from the SDK arrive as plain errors.
		retryable = true
	}
	return &Error{Provider: r.Name(), Code: "sdk", Message: message, Retryable: retryable, Err: err}
}
