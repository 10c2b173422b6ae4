package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zemo-mobility/ZemoPay/models"
)

// AirtelMoney is the Airtel Money collection rail. Calls authenticate with a
// static API key header.
type AirtelMoney struct {
	baseURL       string
	apiKey        string
	client        *http.Client
	webhookSecret string
	currency      string
}

func NewAirtelMoney(baseURL, apiKey, webhookSecret, currency string) *AirtelMoney {
	return &AirtelMoney{
		baseURL:       baseURL,
		apiKey:        apiKey,
		client:        newHTTPClient(),
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

func (a *AirtelMoney) Name() string                 { return models.ProviderAirtelMoney }
func (a *AirtelMoney) SupportsHolds() bool          { return false }
func (a *AirtelMoney) SupportsPartialCapture() bool { return false }
func (a *AirtelMoney) SignatureHeader() string      { return "x-signature" }

func (a *AirtelMoney) headers() map[string]string {
	return map[string]string{"X-API-Key": a.apiKey}
}

type airtelPaymentRequest struct {
	Reference   string            `json:"reference"`
	Subscriber  airtelSubscriber  `json:"subscriber"`
	Transaction airtelTransaction `json:"transaction"`
}

type airtelSubscriber struct {
	Msisdn string `json:"msisdn"`
}

type airtelTransaction struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	ID       string `json:"id"`
}

type airtelStatusResponse struct {
	Data struct {
		Transaction struct {
			ID            string `json:"id"`
			AirtelMoneyID string `json:"airtel_money_id"`
			Amount        string `json:"amount"`
			Currency      string `json:"currency"`
			Status        string `json:"status"`
			Message       string `json:"message"`
		} `json:"transaction"`
	} `json:"data"`
}

func (a *AirtelMoney) CreatePayment(ctx context.Context, req Request) (*Intent, error) {
	transactionID := uuid.NewString()
	body := airtelPaymentRequest{
		Reference: req.Reference,
		// Airtel wants the national number without the country prefix.
		Subscriber: airtelSubscriber{Msisdn: strings.TrimPrefix(req.PhoneNumber, "+260")},
		Transaction: airtelTransaction{
			Amount:   majorUnits(req.Amount),
			Currency: a.currency,
			ID:       transactionID,
		},
	}
	url := a.baseURL + "/merchant/v1/payments/"
	if err := doJSON(ctx, a.client, a.Name(), http.MethodPost, url, a.headers(), body, nil); err != nil {
		return nil, err
	}
	return &Intent{Reference: transactionID}, nil
}

// CreateHold is logical on this rail; see the reconciler for how logical
// holds settle.
func (a *AirtelMoney) CreateHold(_ context.Context, req Request) (*Intent, error) {
	return &Intent{Reference: "ATLH-" + uuid.NewString()}, nil
}

func (a *AirtelMoney) Capture(_ context.Context, reference string, amount int64) (*Result, error) {
	return nil, &Error{
		Provider: a.Name(),
		Code:     "capture_unsupported",
		Message:  "partial capture not supported on this rail",
	}
}

func (a *AirtelMoney) Release(_ context.Context, reference string) (*Result, error) {
	return &Result{TransactionID: reference, Status: models.PaymentStatusReleased}, nil
}

func (a *AirtelMoney) Refund(ctx context.Context, reference string, amount int64) (*Result, error) {
	body := map[string]interface{}{
		"transaction": map[string]interface{}{
			"airtel_money_id": reference,
			"amount":          majorUnits(amount),
		},
	}
	var resp airtelStatusResponse
	url := a.baseURL + "/standard/v1/payments/refund"
	if err := doJSON(ctx, a.client, a.Name(), http.MethodPost, url, a.headers(), body, &resp); err != nil {
		return nil, err
	}
	return &Result{
		TransactionID: resp.Data.Transaction.ID,
		Status:        models.PaymentStatusRefunded,
	}, nil
}

func (a *AirtelMoney) Verify(ctx context.Context, reference string) (*Status, error) {
	var resp airtelStatusResponse
	url := fmt.Sprintf("%s/standard/v1/payments/%s", a.baseURL, reference)
	if err := doJSON(ctx, a.client, a.Name(), http.MethodGet, url, a.headers(), nil, &resp); err != nil {
		return nil, err
	}
	tx := resp.Data.Transaction
	st := &Status{
		Reference:     reference,
		TransactionID: tx.AirtelMoneyID,
		Amount:        minorUnits(tx.Amount),
		Currency:      tx.Currency,
	}
	switch tx.Status {
	case "TS": // transaction success
		st.Status = models.PaymentStatusCompleted
	case "TF": // transaction failed
		st.Status = models.PaymentStatusFailed
	case "TIP": // transaction in progress
		st.Status = models.PaymentStatusProcessing
	default:
		st.Status = models.PaymentStatusPending
	}
	return st, nil
}

func (a *AirtelMoney) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	return verifyHMACSHA256(rawBody, signatureHeader, a.webhookSecret)
}
