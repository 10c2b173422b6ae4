package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/zemo-mobility/ZemoPay/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// MTNMoMo is the MTN Mobile Money collection rail. API access uses OAuth2
// client credentials; the token source refreshes transparently.
type MTNMoMo struct {
	baseURL       string
	client        *http.Client
	webhookSecret string
	currency      string
}

func NewMTNMoMo(baseURL, tokenURL, clientID, clientSecret, webhookSecret, currency string) *MTNMoMo {
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClient())
	client := cc.Client(ctx)
	client.Timeout = defaultCallTimeout
	return &MTNMoMo{
		baseURL:       baseURL,
		client:        client,
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

func (m *MTNMoMo) Name() string                 { return models.ProviderMTNMoMo }
func (m *MTNMoMo) SupportsHolds() bool          { return false }
func (m *MTNMoMo) SupportsPartialCapture() bool { return false }
func (m *MTNMoMo) SignatureHeader() string      { return "x-signature" }

type mtnRequestToPay struct {
	Amount       string            `json:"amount"`
	Currency     string            `json:"currency"`
	ExternalID   string            `json:"externalId"`
	Payer        mtnParty          `json:"payer"`
	PayerMessage string            `json:"payerMessage,omitempty"`
	PayeeNote    string            `json:"payeeNote,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type mtnParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type mtnStatusResponse struct {
	Status                 string `json:"status"`
	Amount                 string `json:"amount"`
	Currency               string `json:"currency"`
	FinancialTransactionID string `json:"financialTransactionId"`
	Reason                 string `json:"reason"`
}

func (m *MTNMoMo) CreatePayment(ctx context.Context, req Request) (*Intent, error) {
	referenceID := uuid.NewString()
	body := mtnRequestToPay{
		Amount:       majorUnits(req.Amount),
		Currency:     m.currency,
		ExternalID:   req.Reference,
		Payer:        mtnParty{PartyIDType: "MSISDN", PartyID: req.PhoneNumber},
		PayerMessage: req.Description,
		Metadata:     req.Metadata,
	}
	headers := map[string]string{"X-Reference-Id": referenceID}
	url := m.baseURL + "/collection/v1_0/requesttopay"
	if err := doJSON(ctx, m.client, m.Name(), http.MethodPost, url, headers, body, nil); err != nil {
		return nil, err
	}
	// The subscriber approves via USSD push; there is no redirect link.
	return &Intent{Reference: referenceID}, nil
}

// CreateHold is a logical hold: the rail cannot reserve wallet funds, so no
// money moves and the reference only anchors the deposit record.
func (m *MTNMoMo) CreateHold(_ context.Context, req Request) (*Intent, error) {
	return &Intent{Reference: "MTNH-" + uuid.NewString()}, nil
}

func (m *MTNMoMo) Capture(_ context.Context, reference string, amount int64) (*Result, error) {
	return nil, &Error{
		Provider: m.Name(),
		Code:     "capture_unsupported",
		Message:  "partial capture not supported on this rail",
	}
}

// Release flips a logical hold; money was never moved, so there is nothing
// to undo provider-side.
func (m *MTNMoMo) Release(_ context.Context, reference string) (*Result, error) {
	return &Result{TransactionID: reference, Status: models.PaymentStatusReleased}, nil
}

func (m *MTNMoMo) Refund(ctx context.Context, reference string, amount int64) (*Result, error) {
	referenceID := uuid.NewString()
	body := map[string]interface{}{
		"amount":       majorUnits(amount),
		"currency":     m.currency,
		"externalId":   reference,
		"payerMessage": "Refund",
	}
	headers := map[string]string{"X-Reference-Id": referenceID}
	url := m.baseURL + "/disbursement/v1_0/transfer"
	if err := doJSON(ctx, m.client, m.Name(), http.MethodPost, url, headers, body, nil); err != nil {
		return nil, err
	}
	return &Result{TransactionID: referenceID, Status: models.PaymentStatusRefunded}, nil
}

func (m *MTNMoMo) Verify(ctx context.Context, reference string) (*Status, error) {
	var resp mtnStatusResponse
	url := fmt.Sprintf("%s/collection/v1_0/requesttopay/%s", m.baseURL, reference)
	if err := doJSON(ctx, m.client, m.Name(), http.MethodGet, url, nil, nil, &resp); err != nil {
		return nil, err
	}
	st := &Status{
		Reference:     reference,
		TransactionID: resp.FinancialTransactionID,
		Amount:        minorUnits(resp.Amount),
		Currency:      resp.Currency,
	}
	switch resp.Status {
	case "SUCCESSFUL":
		st.Status = models.PaymentStatusCompleted
	case "FAILED":
		st.Status = models.PaymentStatusFailed
	case "PENDING":
		st.Status = models.PaymentStatusProcessing
	default:
		st.Status = models.PaymentStatusPending
	}
	return st, nil
}

func (m *MTNMoMo) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	return verifyHMACSHA256(rawBody, signatureHeader, m.webhookSecret)
}
