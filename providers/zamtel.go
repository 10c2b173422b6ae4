package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/zemo-mobility/ZemoPay/models"
)

// ZamtelKwacha is the Zamtel Kwacha collection rail. Unlike the other mobile
// rails it does not sign webhook bodies; callbacks carry a shared token in
// the verif-hash header instead.
type ZamtelKwacha struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	webhookToken string
	currency     string
}

func NewZamtelKwacha(baseURL, apiKey, webhookToken, currency string) *ZamtelKwacha {
	return &ZamtelKwacha{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       newHTTPClient(),
		webhookToken: webhookToken,
		currency:     currency,
	}
}

func (z *ZamtelKwacha) Name() string                 { return models.ProviderZamtelKwacha }
func (z *ZamtelKwacha) SupportsHolds() bool          { return false }
func (z *ZamtelKwacha) SupportsPartialCapture() bool { return false }
func (z *ZamtelKwacha) SignatureHeader() string      { return "verif-hash" }

func (z *ZamtelKwacha) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + z.apiKey}
}

type zamtelPaymentResponse struct {
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Message       string `json:"message"`
}

func (z *ZamtelKwacha) CreatePayment(ctx context.Context, req Request) (*Intent, error) {
	body := map[string]interface{}{
		"reference": req.Reference,
		"msisdn":    req.PhoneNumber,
		"amount":    majorUnits(req.Amount),
		"currency":  z.currency,
		"narration": req.Description,
	}
	var resp zamtelPaymentResponse
	url := z.baseURL + "/api/v1/payments"
	if err := doJSON(ctx, z.client, z.Name(), http.MethodPost, url, z.headers(), body, &resp); err != nil {
		return nil, err
	}
	reference := resp.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &Intent{Reference: reference}, nil
}

func (z *ZamtelKwacha) CreateHold(_ context.Context, req Request) (*Intent, error) {
	return &Intent{Reference: "ZMTH-" + uuid.NewString()}, nil
}

func (z *ZamtelKwacha) Capture(_ context.Context, reference string, amount int64) (*Result, error) {
	return nil, &Error{
		Provider: z.Name(),
		Code:     "capture_unsupported",
		Message:  "partial capture not supported on this rail",
	}
}

func (z *ZamtelKwacha) Release(_ context.Context, reference string) (*Result, error) {
	return &Result{TransactionID: reference, Status: models.PaymentStatusReleased}, nil
}

func (z *ZamtelKwacha) Refund(ctx context.Context, reference string, amount int64) (*Result, error) {
	body := map[string]interface{}{
		"transaction_id": reference,
		"amount":         majorUnits(amount),
	}
	var resp zamtelPaymentResponse
	url := z.baseURL + "/api/v1/refunds"
	if err := doJSON(ctx, z.client, z.Name(), http.MethodPost, url, z.headers(), body, &resp); err != nil {
		return nil, err
	}
	return &Result{
		TransactionID: resp.TransactionID,
		Status:        models.PaymentStatusRefunded,
	}, nil
}

func (z *ZamtelKwacha) Verify(ctx context.Context, reference string) (*Status, error) {
	var resp zamtelPaymentResponse
	url := fmt.Sprintf("%s/api/v1/payments/%s", z.baseURL, reference)
	if err := doJSON(ctx, z.client, z.Name(), http.MethodGet, url, z.headers(), nil, &resp); err != nil {
		return nil, err
	}
	st := &Status{
		Reference:     reference,
		TransactionID: resp.TransactionID,
		Amount:        minorUnits(resp.Amount),
		Currency:      resp.Currency,
	}
	switch resp.Status {
	case "SUCCESS":
		st.Status = models.PaymentStatusCompleted
	case "FAILED":
		st.Status = models.PaymentStatusFailed
	case "PROCESSING":
		st.Status = models.PaymentStatusProcessing
	default:
		st.Status = models.PaymentStatusPending
	}
	return st, nil
}

func (z *ZamtelKwacha) VerifyWebhookSignature(_ []byte, signatureHeader string) bool {
	return tokenEquals(signatureHeader, z.webhookToken)
}
